package llm

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, "rejected"},
		{404, "rejected"},
		{422, "rejected"},
		{401, "unavailable"},
		{403, "unavailable"},
		{408, "unavailable"},
		{429, "rate_limit"},
		{500, "unavailable"},
		{503, "unavailable"},
		{0, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := statusError(tt.status, errors.New("upstream"))
			if got := errorClass(err); got != tt.want {
				t.Errorf("statusError(%d) = %T, want %s", tt.status, err, tt.want)
			}
		})
	}
}

func TestMapGeminiError(t *testing.T) {
	bad := fmt.Errorf("generate: %w", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"})
	if got := errorClass(mapGeminiError(bad)); got != "rejected" {
		t.Errorf("400 mapped to %s, want rejected", got)
	}

	down := genai.APIError{Code: 503, Status: "UNAVAILABLE"}
	var unavail *ErrProviderUnavailable
	if !errors.As(mapGeminiError(down), &unavail) || unavail.StatusCode != 503 {
		t.Errorf("503 mapped to %v", mapGeminiError(down))
	}

	if got := errorClass(mapGeminiError(errors.New("dial tcp: refused"))); got != "unavailable" {
		t.Errorf("transport error mapped to %s, want unavailable", got)
	}
}

func errorClass(err error) string {
	var (
		rl       *ErrRateLimit
		unavail  *ErrProviderUnavailable
		rejected *ErrRequestRejected
	)
	switch {
	case errors.As(err, &rl):
		return "rate_limit"
	case errors.As(err, &unavail):
		return "unavailable"
	case errors.As(err, &rejected):
		return "rejected"
	}
	return fmt.Sprintf("%T", err)
}
