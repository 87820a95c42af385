// Package cmd holds the cefcodec command tree.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrzor/cefcodec/internal/config"
	"github.com/mrzor/cefcodec/internal/logging"
	"github.com/mrzor/cefcodec/internal/metrics"
	"github.com/mrzor/cefcodec/internal/otel"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

// app is the state shared by every subcommand once PersistentPreRunE ran.
type app struct {
	info     BuildInfo
	cfg      *config.Config
	logger   *slog.Logger
	tp       *sdktrace.TracerProvider
	tracer   trace.Tracer
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// NewRootCommand builds the cefcodec command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	rootCmd := &cobra.Command{
		Use:   "cefcodec",
		Short: "Encode and decode ArcSight CEF",
		Long: `cefcodec converts between ArcSight Common Event Format lines and
structured events.

Configuration is read from the file given with --config, then from
CEFCODEC_* environment variables, then from command line flags.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newDecodeCommand(a),
		newEncodeCommand(a),
		newServeCommand(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, nil)
	if err != nil {
		return a.fail(cmd, err)
	}
	applyFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return a.fail(cmd, fmt.Errorf("invalid configuration:\n%w", err))
	}
	a.cfg = cfg

	a.logger = logging.Init(cmd.ErrOrStderr(), cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	a.logger.Debug("starting cefcodec", "version", a.info.Version, "commit", a.info.Commit, "command", cmd.Name())

	otelCfg, err := config.ParseOTELConfig(nil)
	if err != nil {
		return a.fail(cmd, err)
	}
	tp, err := otel.InitProvider(cmd.Context(), otelCfg, a.info.String())
	if err != nil {
		return a.fail(cmd, fmt.Errorf("initializing tracing: %w", err))
	}
	a.tp = tp
	a.tracer = otel.Tracer(tp)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)
	return nil
}

// run calls fn with the command context and flushes tracing afterwards,
// whatever fn returned.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	defer a.shutdown()
	if err := fn(cmd.Context()); err != nil {
		return a.fail(cmd, err)
	}
	return nil
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := otel.ShutdownProvider(ctx, a.tp); err != nil {
		a.logger.Error("shutting down tracing", "error", err)
	}
}

// fail prints err on the command's error stream. Errors are otherwise
// silenced so usage is not repeated after every failure.
func (a *app) fail(cmd *cobra.Command, err error) error {
	cmd.PrintErrln("Error:", err)
	return err
}

// applyFlags copies the flags set on the command line over cfg. Flags a
// subcommand does not define are ignored.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)

	str("vendor", &cfg.Codec.Vendor)
	str("product", &cfg.Codec.Product)
	str("device-version", &cfg.Codec.Version)
	str("signature", &cfg.Codec.Signature)
	str("name", &cfg.Codec.Name)
	str("sev", &cfg.Codec.Severity)
	if f := flags.Lookup("fields"); f != nil && f.Changed {
		cfg.Codec.Fields = config.ParseFieldList(f.Value.String())
	}
	if f := flags.Lookup("unescape"); f != nil && f.Changed {
		cfg.Codec.Unescape = f.Value.String() == "true"
	}

	str("listen", &cfg.Server.Listen)
}

// addCodecFlags registers the encoder header and field flags.
func addCodecFlags(flags *pflag.FlagSet) {
	flags.String("vendor", "", "Device vendor template")
	flags.String("product", "", "Device product template")
	flags.String("device-version", "", "Device version template")
	flags.String("signature", "", "Signature ID template")
	flags.String("name", "", "Event name template")
	flags.String("sev", "", "Severity template")
	flags.String("fields", "", "Comma separated event fields to write as extensions")
}
