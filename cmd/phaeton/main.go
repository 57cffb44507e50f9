package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/phaeton"
	"github.com/ajitpratap0/phaeton/pkg/config"
	"github.com/ajitpratap0/phaeton/pkg/logger"
	"github.com/ajitpratap0/phaeton/pkg/observability"

	// Register every record store sink
	_ "github.com/ajitpratap0/phaeton/pkg/sink/bigquery"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/gcs"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/kafka"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/mongo"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/postgres"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/s3"
	_ "github.com/ajitpratap0/phaeton/pkg/sink/sqldb"
)

var version = phaeton.Version

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PHAETON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "phaeton",
		Short: "Phaeton - streaming data sanitization",
		Long: `Phaeton cleans large delimited files in a single streaming pass.
Every row ends up either in the clean output or in the quarantine output,
tagged with the reason it was rejected.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to an engine configuration YAML file")
	flags.Int("batch-size", config.DefaultBatchSize, "Rows per chunk. Larger chunks raise throughput and memory use")
	flags.Int("workers", 0, "Size of the shared worker pool (0 = all logical CPUs)")
	flags.Int("max-inflight-chunks", 0, "Chunks buffered per pipeline (0 = twice the workers)")
	flags.Bool("strict", false, "Validate every pipeline against its source header before reading rows")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "Log encoding (console, json)")
	flags.Bool("metrics", false, "Serve Prometheus metrics while running")
	flags.String("metrics-addr", ":9090", "Address of the metrics endpoint")
	flags.Bool("tracing", false, "Export trace spans to stderr")
	for _, name := range []string{"config", "batch-size", "workers", "max-inflight-chunks", "strict",
		"log-level", "log-encoding", "metrics", "metrics-addr", "tracing"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newRunCmd(v),
		newValidateCmd(v),
		newProbeCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Phaeton v%s\n", version)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	return root
}

// loadConfig reads the config file, when given, and applies flags and
// PHAETON_* environment variables on top.
func loadConfig(v *viper.Viper) (*config.EngineConfig, error) {
	cfg := config.NewEngineConfig()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadEngine(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("batch-size") {
		cfg.BatchSize = v.GetInt("batch-size")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("max-inflight-chunks") {
		cfg.MaxInflightChunks = v.GetInt("max-inflight-chunks")
	}
	if v.IsSet("strict") {
		cfg.Strict = v.GetBool("strict")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-encoding") {
		cfg.Logging.Encoding = v.GetString("log-encoding")
	}
	if v.IsSet("metrics") {
		cfg.Metrics.Enabled = v.GetBool("metrics")
	}
	if v.IsSet("metrics-addr") {
		cfg.Metrics.Address = v.GetString("metrics-addr")
	}
	if v.IsSet("tracing") {
		cfg.Tracing.Enabled = v.GetBool("tracing")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the process-wide setup shared by the commands.
type session struct {
	cfg      *config.EngineConfig
	engine   *phaeton.Engine
	log      *zap.Logger
	shutdown []func(context.Context) error
}

func openSession(ctx context.Context, v *viper.Viper) (*session, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger.With(zap.String("component", "phaeton-cli"))}

	if cfg.Tracing.Enabled {
		stop, err := observability.Init(observability.Config{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		s.shutdown = append(s.shutdown, stop)
	}
	if cfg.Metrics.Enabled {
		srv, err := serveMetrics(ctx, cfg.Metrics.Address, s.log)
		if err != nil {
			s.close(ctx)
			return nil, err
		}
		s.shutdown = append(s.shutdown, srv.Shutdown)
	}

	s.engine, err = phaeton.New(cfg, phaeton.WithLogger(logger.Get()))
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) close(ctx context.Context) {
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		if err := s.shutdown[i](context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("shutdown failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
}
