package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kashmir-agri/farmers-corner/diagnosis"
	"github.com/kashmir-agri/farmers-corner/preprocess"
	"github.com/kashmir-agri/farmers-corner/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if !a.cfg.Log.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			pc, err := a.cfg.PreprocessConfig()
			if err != nil {
				return err
			}
			pre := preprocess.NewPreprocessor(pc, preprocess.WithLogger(a.logger))

			var analyzer server.Analyzer
			advisor, err := a.newAdvisor(cmd.Context())
			switch {
			case err == nil:
				analyzer = advisor
			case errors.Is(err, diagnosis.ErrNoAPIKey):
				a.logger.Warn("GEMINI_API_KEY not set, diagnosis routes disabled")
			default:
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           server.New(pre, analyzer, a.logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.logger.Info("farmers corner gateway listening", zap.String("addr", srv.Addr))
			return server.Serve(cmd.Context(), srv, nil, a.cfg.Server.ShutdownTimeout, a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides config and FC_ADDR")
	return cmd
}
