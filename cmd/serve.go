package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/renalscope/renalscope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := newPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.close()

		if cfg.Log.Mode == "production" || cfg.Log.Mode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(server.Options{
			Addr:            cfg.HTTP.Addr,
			Analyzer:        p.analyzer,
			Log:             p.log,
			MaxUploadBytes:  cfg.HTTP.MaxUploadBytes,
			CORSOrigins:     cfg.HTTP.CORSOrigins,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
			Model:           p.model,
		})
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides RENALSCOPE_HTTP_ADDR)")
}
