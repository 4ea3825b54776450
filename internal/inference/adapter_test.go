package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/prompt"
	"github.com/renalscope/renalscope/internal/schema"
)

func testImage() imageref.Image {
	return imageref.Image{Data: []byte("\x89PNG\r\n\x1a\nfake"), MIMEType: "image/png"}
}

func diagnosePayload(t *testing.T) prompt.Payload {
	t.Helper()
	p, err := prompt.Build(testImage(), diagnosis.VariantOrdered)
	require.NoError(t, err)
	return p
}

func testConfig() Config {
	return Config{Timeout: time.Second, MaxTokens: 256, Temperature: 0.1}
}

func TestInfer_Success(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"diagnosis":"stone","confidence":0.91}`),
	})
	a := New(mock, testConfig(), nil)

	parsed, err := a.Infer(context.Background(), diagnosePayload(t))
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LabelStone, parsed.Diagnosis)
	assert.Equal(t, 0.91, parsed.Confidence)
	assert.Equal(t, "mock", parsed.Model)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, "diagnosis-v1", req.Schema.Name)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Len(t, req.Messages[0].Images, 1)
}

func TestInfer_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
		want Kind
	}{
		{"provider down", llm.MockResponse{Err: &llm.ErrProviderUnavailable{StatusCode: 503, Err: errors.New("503")}}, KindUnavailable},
		{"rate limited", llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}}, KindUnavailable},
		{"auth refused", llm.MockResponse{Err: &llm.ErrProviderUnavailable{StatusCode: 401, Err: errors.New("401")}}, KindUnavailable},
		{"request rejected", llm.MockResponse{Err: &llm.ErrRequestRejected{StatusCode: 400, Err: errors.New("invalid_image_format")}}, KindUnknown},
		{"truncated", llm.MockResponse{Err: &llm.ErrMaxTokensExceeded{}}, KindMalformedOutput},
		{"no content", llm.MockResponse{Err: &llm.ErrInvalidResponse{Err: errors.New("no choices")}}, KindMalformedOutput},
		{"not json", llm.MockResponse{Content: json.RawMessage(`I think it is a stone.`)}, KindMalformedOutput},
		{"schema violation", llm.MockResponse{Content: json.RawMessage(`{"diagnosis":"mass","confidence":0.8}`)}, KindMalformedOutput},
		{"out of range", llm.MockResponse{Content: json.RawMessage(`{"diagnosis":"stone","confidence":1.5}`)}, KindMalformedOutput},
		{"anything else", llm.MockResponse{Err: errors.New("boom")}, KindUnknown},
		{"deadline", llm.MockResponse{Err: context.DeadlineExceeded}, KindTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(tt.resp)
			a := New(mock, testConfig(), nil)

			_, err := a.Infer(context.Background(), diagnosePayload(t))
			require.Error(t, err)
			var ie *Error
			require.True(t, errors.As(err, &ie), "expected *inference.Error, got %T", err)
			assert.Equal(t, tt.want, ie.Kind)
			assert.Equal(t, prompt.PurposeDiagnose, ie.Purpose)
			assert.Equal(t, 1, mock.CallCount(), "no retries at this layer")
		})
	}
}

func TestInfer_MalformedKeepsViolations(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"diagnosis":"stone","confidence":"very sure"}`),
	})
	a := New(mock, testConfig(), nil)

	_, err := a.Infer(context.Background(), diagnosePayload(t))
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.Has("confidence"))
	assert.Equal(t, KindMalformedOutput, KindOf(err))
}

func TestInfer_Timeout(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"diagnosis":"stone","confidence":0.9}`),
		Delay:   time.Second,
	})
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	a := New(mock, cfg, nil)

	start := time.Now()
	_, err := a.Infer(context.Background(), diagnosePayload(t))
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestInfer_CallerCancellation(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{}`),
		Delay:   time.Second,
	})
	a := New(mock, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Infer(ctx, diagnosePayload(t))
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInfer_PurposeReachesProvider(t *testing.T) {
	var seen string
	p := purposeRecorder{seen: &seen, inner: llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"diagnosis":"normal","confidence":0.9}`),
	})}
	a := New(p, testConfig(), nil)

	_, err := a.Infer(context.Background(), diagnosePayload(t))
	require.NoError(t, err)
	assert.Equal(t, prompt.PurposeDiagnose, seen)
}

type purposeRecorder struct {
	seen  *string
	inner llm.Provider
}

func (p purposeRecorder) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	*p.seen = llm.PurposeFrom(ctx)
	return p.inner.Generate(ctx, req)
}

func (p purposeRecorder) ModelID() string { return p.inner.ModelID() }

func TestRefine_UsesRefinementShape(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"diagnosis":"cyst","confidence":0.8,"explanation":"A simple cyst.","analytics":"Left kidney, 2cm."}`),
	})
	a := New(mock, testConfig(), nil)

	parsed, err := a.Refine(context.Background(), testImage(), diagnosis.VariantOrdered, diagnosis.LabelTumor, "Possible mass.")
	require.NoError(t, err)
	assert.Equal(t, diagnosis.LabelCyst, parsed.Diagnosis)
	assert.Equal(t, "Left kidney, 2cm.", parsed.Analytics)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, "refinement-v1", req.Schema.Name)
	assert.Contains(t, req.Messages[0].Content, `Previous diagnosis: "tumor"`)
}

func TestRefine_BadPriorIsUnknown(t *testing.T) {
	mock := llm.NewMockProvider()
	a := New(mock, testConfig(), nil)

	_, err := a.Refine(context.Background(), testImage(), diagnosis.VariantOrdered, "mass", "x")
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Equal(t, 0, mock.CallCount())
}

func TestNew_Defaults(t *testing.T) {
	a := New(llm.NewMockProvider(), Config{}, nil)
	assert.Equal(t, llm.DefaultConfig().Timeout, a.cfg.Timeout)
	assert.Equal(t, llm.DefaultConfig().MaxTokens, a.cfg.MaxTokens)
	assert.Equal(t, "mock", a.ModelID())
}
