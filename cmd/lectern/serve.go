package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	sweepInterval  = 10 * time.Minute
	staleUploadAge = time.Hour
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backend HTTP service",
		Long: `Run the HTTP service used by clients that do not call the providers
directly.

Routes:
  POST /transcribe      multipart field "file"; transcript and insights
  GET  /test-prep       ?subject=&level=; study guide
  GET  /health          liveness
  GET  /metrics         Prometheus metrics

The listen address comes from LECTERN_HOST and PORT (default 0.0.0.0:3000).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := services.NewServer()
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			g.Go(func() error { return srv.SweepUploads(gctx, sweepInterval, staleUploadAge) })
			return g.Wait()
		},
	}
}
