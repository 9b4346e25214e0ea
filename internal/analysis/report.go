package analysis

import (
	"encoding/json"
	"strings"

	"github.com/MediVision-io/medivision/internal/models"
)

// systemPrompt instructs the model to answer with the dual-audience JSON
// report the rest of the pipeline expects.
const systemPrompt = `You are an advanced medical imaging AI assistant. Analyze the provided medical image and provide a comprehensive diagnostic report.

IMPORTANT: You are providing educational analysis only. This is NOT a medical diagnosis and should not replace professional medical advice.

Provide your analysis in the following JSON format:
{
    "doctor_view": {
        "summary": "Technical summary of findings",
        "findings": ["List of detailed medical findings"],
        "observations": ["Technical observations about the image"],
        "recommendations": ["Recommended follow-up actions"],
        "confidence_level": "High/Medium/Low",
        "areas_of_concern": ["Specific areas requiring attention"]
    },
    "patient_view": {
        "summary": "Simple explanation of what was found",
        "findings": ["Easy to understand findings"],
        "what_it_means": "Plain language explanation",
        "next_steps": ["Simple recommended actions"],
        "reassurance": "Supportive message for the patient"
    }
}`

func userPrompt(scanType string) string {
	label := strings.ToUpper(strings.ReplaceAll(scanType, "_", " "))
	return "Please analyze this " + label + " medical image and provide a comprehensive diagnostic report in the specified JSON format."
}

// ExtractReport parses the model's free-form response into a dual report.
// It looks for the outermost brace-delimited JSON object in the text; when
// that fails, or when either view is missing, a deterministic fallback
// result is synthesized so that callers always receive both views.
func ExtractReport(response string) *models.AnalysisResult {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(response[start:end+1]), &result); err == nil {
			if result.DoctorView != nil && result.PatientView != nil {
				return &result
			}
		}
	}
	return fallbackReport(response)
}

func fallbackReport(response string) *models.AnalysisResult {
	summary := response
	if len(summary) > 500 {
		summary = summary[:500]
	}
	return &models.AnalysisResult{
		DoctorView: &models.DoctorReport{
			Summary:         summary,
			Findings:        []string{"Analysis completed"},
			Observations:    []string{"Image processed successfully"},
			Recommendations: []string{"Consult with a medical professional for detailed interpretation"},
			ConfidenceLevel: "Medium",
			AreasOfConcern:  []string{},
		},
		PatientView: &models.PatientReport{
			Summary:     "Your scan has been analyzed.",
			Findings:    []string{"The AI has reviewed your image"},
			WhatItMeans: "Please consult with your doctor for a detailed explanation.",
			NextSteps:   []string{"Schedule a follow-up with your healthcare provider"},
			Reassurance: "Remember, this is an AI-assisted analysis. Your doctor will provide the final interpretation.",
		},
	}
}
