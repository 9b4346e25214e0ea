package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/MediVision-io/medivision/internal/config"
	"github.com/MediVision-io/medivision/internal/database"
	"github.com/MediVision-io/medivision/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzer returns a fixed result or error, standing in for the
// remote model during handler tests.
type stubAnalyzer struct {
	result *models.AnalysisResult
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, imageBase64, scanType string) (*models.AnalysisResult, error) {
	return s.result, s.err
}

func stubResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		DoctorView:  &models.DoctorReport{Summary: "No acute findings", ConfidenceLevel: "High"},
		PatientView: &models.PatientReport{Summary: "Everything looks normal"},
	}
}

func newTestApi(t *testing.T, analyzer *stubAnalyzer) *Api {
	t.Helper()

	db, err := database.OpenForTest()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{APIPort: 8081, CORSOrigins: []string{"*"}}
	cfg.Auth.JWTSecret = "test-secret"

	a, err := NewApi(cfg, database.NewUserStore(db), database.NewScanStore(db), database.NewAuditLog(db), analyzer, nil)
	require.NoError(t, err)
	return a
}

func doJSON(t *testing.T, a *Api, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// registerUser signs a user up through the API and returns their token.
func registerUser(t *testing.T, a *Api, email string) string {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter2!",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tokenResponse
	decodeBody(t, w, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 12, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: 128, B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadScan posts a multipart upload with an explicit part Content-Type,
// which FormFile surfaces through the part header.
func uploadScan(t *testing.T, a *Api, token, scanType, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="scan.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if scanType != "" {
		require.NoError(t, mw.WriteField("scan_type", scanType))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process-medical-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func TestRootAndHealth(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})

	w := doJSON(t, a, http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var root map[string]string
	decodeBody(t, w, &root)
	assert.Equal(t, "MediVision AI API", root["message"])
	assert.Equal(t, "healthy", root["status"])

	w = doJSON(t, a, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	decodeBody(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.NotEmpty(t, health["timestamp"])
}

func TestRegisterReturnsTokenAndUser(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})

	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "doc@example.com",
		"password": "hunter2!",
		"name":     "Dr. Example",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tokenResponse
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotNil(t, resp.User)
	assert.Equal(t, "doc@example.com", resp.User.Email)
	assert.Equal(t, "Dr. Example", resp.User.Name)
	assert.NotEmpty(t, resp.User.ID)

	// The hash must never appear in the payload
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "x", "name": "x"}},
		{"missing password", map[string]string{"email": "a@example.com", "name": "x"}},
		{"missing name", map[string]string{"email": "a@example.com", "password": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})
	registerUser(t, a, "dup@example.com")

	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "dup@example.com",
		"password": "other",
		"name":     "Other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "Email already registered", resp["error"])
}

func TestLogin(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})
	registerUser(t, a, "login@example.com")

	w := doJSON(t, a, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "login@example.com",
		"password": "hunter2!",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp tokenResponse
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "login@example.com", resp.User.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})
	registerUser(t, a, "victim@example.com")

	// Unknown email and wrong password must be indistinguishable
	for i, body := range []map[string]string{
		{"email": "nobody@example.com", "password": "hunter2!"},
		{"email": "victim@example.com", "password": "wrong"},
	} {
		w := doJSON(t, a, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, fmt.Sprintf("case %d", i))
		var resp map[string]string
		decodeBody(t, w, &resp)
		assert.Equal(t, "Invalid credentials", resp["error"])
	}
}

func TestMeHandler(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})
	token := registerUser(t, a, "me@example.com")

	w := doJSON(t, a, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decodeBody(t, w, &user)
	assert.Equal(t, "me@example.com", user.Email)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApi(t, &stubAnalyzer{result: stubResult()})

	for _, path := range []string{"/api/auth/me", "/api/scans", "/api/stats"} {
		w := doJSON(t, a, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := doJSON(t, a, http.MethodGet, "/api/auth/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
