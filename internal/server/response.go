package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renalscope/renalscope/internal/diagnosis"
)

const keyErrorKind = "error_kind"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the envelope. Message must be safe to show end users.
func RespondError(c *gin.Context, status int, code, message string) {
	c.Set(keyErrorKind, code)
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: message,
			Code:    code,
		},
	})
}

// RespondAnalysisError maps a failed analysis onto a status code. Only the
// public message leaves the process.
func RespondAnalysisError(c *gin.Context, err error) {
	kind := diagnosis.KindOf(err)
	RespondError(c, statusFor(kind), string(kind), diagnosis.PublicMessage)
}

func statusFor(kind diagnosis.ErrorKind) int {
	switch kind {
	case diagnosis.KindInvalidInput:
		return http.StatusBadRequest
	case diagnosis.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case diagnosis.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case diagnosis.KindMalformedOutput:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
