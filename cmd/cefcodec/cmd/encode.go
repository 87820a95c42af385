package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrzor/cefcodec/internal/eventprocessor"
	"github.com/mrzor/cefcodec/internal/output"
)

func newEncodeCommand(a *app) *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode JSON events into CEF lines",
		Long: `Encode reads one JSON object per input line, from file or standard input,
and writes one CEF line per event to standard output.

Header values are templates: %{field} is replaced by the event field, and
%{[a][b]} reaches into nested objects.

Examples:
  cefcodec encode --fields src,dst,msg events.ndjson
  cefcodec encode --vendor '%{vendor}' --sev '%{severity}' < events.ndjson`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")

			return a.run(cmd, func(ctx context.Context) error {
				in, closeIn, err := openInput(cmd, args)
				if err != nil {
					return err
				}
				defer closeIn()

				sink := output.NewLineWriter(cmd.OutOrStdout())
				proc, err := eventprocessor.New(eventprocessor.ModeEncode, a.cfg.Codec,
					eventprocessor.WithLineSink(sink),
					eventprocessor.WithTracer(a.tracer),
					eventprocessor.WithMetrics(a.metrics),
					eventprocessor.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}
				return a.stream(ctx, in, proc, sink, strict)
			})
		},
	}

	addCodecFlags(encodeCmd.Flags())
	encodeCmd.Flags().Bool("strict", false, "Stop at the first line that cannot be handled")
	return encodeCmd
}
