package server

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(opts.Log))
	r.Use(CORS(opts.CORSOrigins))

	health := &HealthHandler{model: opts.Model}
	r.GET("/healthz", health.HealthCheck)

	analyze := NewAnalyzeHandler(opts.Analyzer, opts.MaxUploadBytes, opts.Log)
	v1 := r.Group("/v1")
	{
		v1.POST("/analyze", analyze.Analyze)
	}
	return r
}
