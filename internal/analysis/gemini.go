package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MediVision-io/medivision/internal/models"
	"github.com/google/uuid"
)

// ErrUnavailable is returned when no API credential is configured. It is
// distinct from a remote failure: an unset key is a deployment problem,
// not a transient one.
var ErrUnavailable = errors.New("analysis service not configured")

// Analyzer interprets a medical image and produces the dual-audience
// report. Implementations must either return a fully-populated result or
// an error, never a partial one.
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64, scanType string) (*models.AnalysisResult, error)
}

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiAnalyzer calls the Gemini generateContent API over HTTP
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiAnalyzer creates an analyzer for the given model. An empty API
// key is allowed at construction; Analyze reports ErrUnavailable instead.
func NewGeminiAnalyzer(apiKey, model string) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits the image with the diagnostic prompt and parses the
// response into a report. Parse problems fall back to a synthesized
// report; transport and API problems are returned as errors.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, imageBase64, scanType string) (*models.AnalysisResult, error) {
	if g.apiKey == "" {
		return nil, ErrUnavailable
	}

	// Correlation id for tracing a single analysis call end to end
	sessionID := "medivision_" + uuid.NewString()

	reqBody := generateRequest{
		SystemInstruction: &generateContent{
			Parts: []generatePart{{Text: systemPrompt}},
		},
		Contents: []generateContent{{
			Role: "user",
			Parts: []generatePart{
				{Text: userPrompt(scanType)},
				{InlineData: &generateInline{MimeType: "image/jpeg", Data: imageBase64}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("X-Request-Id", sessionID)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("analysis failed: invalid response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("analysis failed: gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return nil, fmt.Errorf("analysis failed: gemini returned status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("analysis failed: empty response")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	log.Printf("Analysis %s completed (%d bytes of model output)", sessionID, text.Len())
	return ExtractReport(text.String()), nil
}
