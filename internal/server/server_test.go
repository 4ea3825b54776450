package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/mocks"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, a *mocks.MockAnalyzer, opts ...func(*Options)) *Server {
	t.Helper()
	o := Options{Analyzer: a, Model: "mock", MaxUploadBytes: 1 << 20}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Engine.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "scan.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model":"mock"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")

	rec := serve(s, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestAnalyze_Multipart(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockAnalyzer(ctrl)
	a.EXPECT().Analyze(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ref imageref.Reference) (*diagnosis.AnalysisResult, error) {
			assert.Equal(t, "bytes", ref.Kind())
			assert.Equal(t, pngBytes, ref.Data)
			return &diagnosis.AnalysisResult{
				Diagnosis:   diagnosis.LabelNormal,
				Confidence:  0.97,
				Explanation: "Your scan looks normal.",
			}, nil
		}).Times(1)

	rec := serve(newTestServer(t, a), multipartRequest(t, "image", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"diagnosis":"normal","confidence":0.97,"explanation":"Your scan looks normal.","refined":false}`, rec.Body.String())
}

func TestAnalyze_JSONDataURI(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockAnalyzer(ctrl)
	a.EXPECT().Analyze(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ref imageref.Reference) (*diagnosis.AnalysisResult, error) {
			assert.Equal(t, "data-uri", ref.Kind())
			return &diagnosis.AnalysisResult{
				Diagnosis:   diagnosis.LabelNotApplicable,
				Confidence:  0.98,
				Explanation: diagnosis.NotApplicableExplanation,
			}, nil
		})

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	rec := serve(newTestServer(t, a), jsonRequest(t, map[string]string{"image": uri}))
	require.Equal(t, http.StatusOK, rec.Code)

	var res diagnosis.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, diagnosis.LabelNotApplicable, res.Diagnosis)
}

func TestAnalyze_RejectsBeforeAnalyzing(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name:   "file path",
			req:    func(t *testing.T) *http.Request { return jsonRequest(t, map[string]string{"image": "/etc/passwd"}) },
			status: http.StatusBadRequest,
			code:   "unsupported_image_reference",
		},
		{
			name:   "url",
			req:    func(t *testing.T) *http.Request { return jsonRequest(t, map[string]string{"image": "http://169.254.169.254/"}) },
			status: http.StatusBadRequest,
			code:   "unsupported_image_reference",
		},
		{
			name:   "missing field",
			req:    func(t *testing.T) *http.Request { return jsonRequest(t, map[string]string{}) },
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name: "not json",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader("scan please"))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "wrong multipart field",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", pngBytes) },
			status: http.StatusBadRequest,
			code:   "missing_image",
		},
		{
			name: "body too large",
			req: func(t *testing.T) *http.Request {
				return jsonRequest(t, map[string]string{"image": "data:image/png;base64," + strings.Repeat("A", 2<<20)})
			},
			status: http.StatusRequestEntityTooLarge,
			code:   "image_too_large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			a := mocks.NewMockAnalyzer(ctrl)
			a.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0)

			rec := serve(newTestServer(t, a), tt.req(t))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAnalyze_FailuresUsePublicMessage(t *testing.T) {
	tests := []struct {
		kind   diagnosis.ErrorKind
		status int
	}{
		{diagnosis.KindInvalidInput, http.StatusBadRequest},
		{diagnosis.KindUpstreamUnavailable, http.StatusServiceUnavailable},
		{diagnosis.KindUpstreamTimeout, http.StatusGatewayTimeout},
		{diagnosis.KindMalformedOutput, http.StatusBadGateway},
		{diagnosis.KindInvariantViolation, http.StatusInternalServerError},
		{diagnosis.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			a := mocks.NewMockAnalyzer(ctrl)
			a.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil, &diagnosis.AnalysisError{
				Kind:  tt.kind,
				Stage: diagnosis.StageValidate,
				Err:   errors.New("gemini: 503 backend error with api_key=secret"),
			})

			rec := serve(newTestServer(t, a), multipartRequest(t, "image", pngBytes))
			require.Equal(t, tt.status, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, diagnosis.PublicMessage, apiErr.Message)
			assert.Equal(t, string(tt.kind), apiErr.Code)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{"any origin when unset", nil, "https://viewer.example", true},
		{"listed origin", []string{"https://viewer.example"}, "https://viewer.example", true},
		{"unlisted origin", []string{"https://viewer.example"}, "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, func(o *Options) { o.CORSOrigins = tt.origins })
			req := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			rec := serve(s, req)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.NotEmpty(t, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}
