package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrzor/cefcodec/internal/eventprocessor"
	"github.com/mrzor/cefcodec/internal/eventstream"
	"github.com/mrzor/cefcodec/internal/output"
)

func newDecodeCommand(a *app) *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode CEF lines into events",
		Long: `Decode reads one CEF line per input line, from file or standard input,
and writes one event per line to standard output.

Examples:
  cefcodec decode /var/log/cef.log
  tail -f /var/log/cef.log | cefcodec decode --unescape
  cefcodec decode --format cbor < cef.log > events.cbor`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			strict, _ := cmd.Flags().GetBool("strict")

			return a.run(cmd, func(ctx context.Context) error {
				in, closeIn, err := openInput(cmd, args)
				if err != nil {
					return err
				}
				defer closeIn()

				sink, err := output.NewEventSink(format, cmd.OutOrStdout())
				if err != nil {
					return err
				}

				proc, err := eventprocessor.New(eventprocessor.ModeDecode, a.cfg.Codec,
					eventprocessor.WithEventSink(sink),
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

	decodeCmd.Flags().StringP("format", "f", output.FormatJSON, "Output format: json or cbor")
	decodeCmd.Flags().Bool("unescape", false, "Undo header and extension escaping")
	decodeCmd.Flags().Bool("strict", false, "Stop at the first line that cannot be handled")
	return decodeCmd
}

// stream feeds in to proc line by line and closes sink at the end.
func (a *app) stream(ctx context.Context, in io.Reader, proc eventstream.LineHandler, sink io.Closer, strict bool) error {
	stats, err := eventstream.New(in, proc,
		eventstream.WithLogger(a.logger),
		eventstream.StopOnError(strict),
	).Run(ctx)
	if closeErr := sink.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("flushing output: %w", closeErr))
	}

	a.logger.Info("done",
		"lines", stats.Lines,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openInput returns the file named by args, or standard input.
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
