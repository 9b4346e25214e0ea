package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *GeminiAnalyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGeminiAnalyzer("test-key", "gemini-2.0-flash")
	g.baseURL = server.URL
	return g
}

func geminiReply(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			}},
		},
	}
}

func TestGeminiAnalyzeUnavailableWithoutKey(t *testing.T) {
	g := NewGeminiAnalyzer("", "gemini-2.0-flash")

	_, err := g.Analyze(context.Background(), "aGVsbG8=", "xray")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGeminiAnalyzeSuccess(t *testing.T) {
	report := `{"doctor_view":{"summary":"clear"},"patient_view":{"summary":"all good"}}`

	g := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "XRAY")
		require.NotNil(t, req.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "aGVsbG8=", req.Contents[0].Parts[1].InlineData.Data)

		json.NewEncoder(w).Encode(geminiReply("Sure, here you go: " + report))
	})

	result, err := g.Analyze(context.Background(), "aGVsbG8=", "xray")
	require.NoError(t, err)
	require.NotNil(t, result.DoctorView)
	require.NotNil(t, result.PatientView)
	assert.Equal(t, "clear", result.DoctorView.Summary)
	assert.Equal(t, "all good", result.PatientView.Summary)
}

func TestGeminiAnalyzeFallbackOnProseResponse(t *testing.T) {
	g := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiReply("I cannot produce JSON today."))
	})

	result, err := g.Analyze(context.Background(), "aGVsbG8=", "mri")
	require.NoError(t, err)
	assert.Equal(t, "I cannot produce JSON today.", result.DoctorView.Summary)
	assert.Equal(t, "Your scan has been analyzed.", result.PatientView.Summary)
}

func TestGeminiAnalyzeRemoteError(t *testing.T) {
	g := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 429, "message": "quota exceeded"},
		})
	})

	_, err := g.Analyze(context.Background(), "aGVsbG8=", "xray")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiAnalyzeEmptyCandidates(t *testing.T) {
	g := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	})

	_, err := g.Analyze(context.Background(), "aGVsbG8=", "xray")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
