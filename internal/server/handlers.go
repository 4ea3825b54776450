package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/logger"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 64 << 10

type HealthHandler struct {
	model string
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": h.model})
}

type AnalyzeHandler struct {
	analyzer analysis.Analyzer
	maxBytes int64
	log      *logger.Logger
}

func NewAnalyzeHandler(a analysis.Analyzer, maxBytes int64, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a, maxBytes: maxBytes, log: log}
}

type analyzeRequest struct {
	// Image is a base64 data URI.
	Image string `json:"image" binding:"required"`
}

// Analyze accepts a multipart upload in field "image" or a JSON body
// {"image": "data:image/...;base64,..."}.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	// Data URIs inflate the payload by a third.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes*4/3+multipartOverhead)

	ref, ok := h.reference(c)
	if !ok {
		return
	}

	res, err := h.analyzer.Analyze(c.Request.Context(), ref)
	if err != nil {
		h.log.Warn("analysis request failed",
			keyRequestID, c.GetString(keyRequestID),
			"error", err.Error(),
		)
		RespondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalyzeHandler) reference(c *gin.Context) (imageref.Reference, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return h.fromMultipart(c)
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			RespondError(c, http.StatusRequestEntityTooLarge, "image_too_large", "image is too large")
			return imageref.Reference{}, false
		}
		RespondError(c, http.StatusBadRequest, "invalid_request", `expected a JSON body with an "image" data URI`)
		return imageref.Reference{}, false
	}

	// Paths and URLs would let callers read server files or reach internal hosts.
	ref := imageref.Parse(req.Image)
	if ref.Kind() != "data-uri" {
		RespondError(c, http.StatusBadRequest, "unsupported_image_reference", "image must be a base64 data URI")
		return imageref.Reference{}, false
	}
	return ref, true
}

func (h *AnalyzeHandler) fromMultipart(c *gin.Context) (imageref.Reference, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			RespondError(c, http.StatusRequestEntityTooLarge, "image_too_large", "image is too large")
			return imageref.Reference{}, false
		}
		RespondError(c, http.StatusBadRequest, "missing_image", `multipart field "image" is required`)
		return imageref.Reference{}, false
	}

	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "could not read uploaded image")
		return imageref.Reference{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "could not read uploaded image")
		return imageref.Reference{}, false
	}
	return imageref.FromBytes(data, fh.Header.Get("Content-Type")), true
}
