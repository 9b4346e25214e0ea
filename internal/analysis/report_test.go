package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReportFromNoisyText(t *testing.T) {
	response := "Here is my analysis of the image:\n\n" + `{
		"doctor_view": {
			"summary": "Mild opacity in the lower left lobe",
			"findings": ["Opacity noted"],
			"observations": ["Image quality adequate"],
			"recommendations": ["Follow-up CT"],
			"confidence_level": "Medium",
			"areas_of_concern": ["Lower left lobe"]
		},
		"patient_view": {
			"summary": "A small shadow was seen.",
			"findings": ["A shadow on one lung"],
			"what_it_means": "It may be nothing, but needs a closer look.",
			"next_steps": ["See your doctor"],
			"reassurance": "Most shadows like this turn out harmless."
		}
	}` + "\n\nLet me know if you need anything else."

	result := ExtractReport(response)
	require.NotNil(t, result.DoctorView)
	require.NotNil(t, result.PatientView)
	assert.Equal(t, "Mild opacity in the lower left lobe", result.DoctorView.Summary)
	assert.Equal(t, "Medium", result.DoctorView.ConfidenceLevel)
	assert.Equal(t, []string{"See your doctor"}, result.PatientView.NextSteps)
}

func TestExtractReportFallbackOnUnparseableText(t *testing.T) {
	response := "The model rambled and produced no JSON at all."

	result := ExtractReport(response)
	require.NotNil(t, result.DoctorView)
	require.NotNil(t, result.PatientView)
	assert.Equal(t, response, result.DoctorView.Summary)
	assert.Equal(t, []string{"Analysis completed"}, result.DoctorView.Findings)
	assert.Equal(t, "Your scan has been analyzed.", result.PatientView.Summary)
	assert.NotEmpty(t, result.PatientView.Reassurance)
}

func TestExtractReportFallbackTruncatesSummary(t *testing.T) {
	response := strings.Repeat("x", 1200)

	result := ExtractReport(response)
	assert.Len(t, result.DoctorView.Summary, 500)
	assert.Equal(t, strings.Repeat("x", 500), result.DoctorView.Summary)
}

func TestExtractReportFallbackOnPartialJSON(t *testing.T) {
	// A parseable object missing one of the two views must not produce a
	// half-shaped result
	response := `{"doctor_view": {"summary": "only one half"}}`

	result := ExtractReport(response)
	require.NotNil(t, result.DoctorView)
	require.NotNil(t, result.PatientView)
	assert.Equal(t, response, result.DoctorView.Summary)
}

func TestUserPrompt(t *testing.T) {
	assert.Contains(t, userPrompt("ct_scan"), "CT SCAN")
	assert.Contains(t, userPrompt("xray"), "XRAY")
}
