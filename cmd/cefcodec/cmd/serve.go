package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrzor/cefcodec/internal/eventprocessor"
	"github.com/mrzor/cefcodec/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve exposes decoding and encoding over HTTP, along with Prometheus
metrics on /metrics.

Examples:
  cefcodec serve --listen :8080
  CEFCODEC_CODEC_FIELDS=src,dst cefcodec serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context) error {
				proc, err := eventprocessor.New(eventprocessor.ModeDecode, a.cfg.Codec,
					eventprocessor.WithTracer(a.tracer),
					eventprocessor.WithMetrics(a.metrics),
					eventprocessor.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}
				srv := server.New(a.cfg.Server, proc, a.metrics, a.registry, a.logger)
				return srv.ListenAndServe(ctx)
			})
		},
	}

	serveCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
	serveCmd.Flags().Bool("unescape", false, "Undo header and extension escaping when decoding")
	addCodecFlags(serveCmd.Flags())
	return serveCmd
}
