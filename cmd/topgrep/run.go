package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reugn/topgrep"
	ext "github.com/reugn/topgrep/extension"
	"github.com/reugn/topgrep/internal/config"
	"github.com/reugn/topgrep/internal/metrics"
	"github.com/reugn/topgrep/internal/selfstat"
	"github.com/reugn/topgrep/nats"
	"github.com/reugn/topgrep/pipeline"
	"github.com/reugn/topgrep/query"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func run(cmd *cobra.Command, args []string) error {
	// Handle --version flag first
	if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
		fmt.Printf("topgrep version %s\n", version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileQueries, err := loadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	level, err := parseLevel(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	pids, _ := cmd.Flags().GetUintSlice("pid")
	commands, _ := cmd.Flags().GetStringArray("command")
	expressions, _ := cmd.Flags().GetStringArray("query")
	queries, err := buildQueries(fileQueries, pids, commands, expressions)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		logger.Warn("No queries configured")
	}

	key := query.ByTime()
	if bucket := viper.GetDuration("bucket"); bucket != 0 {
		if bucket < time.Second || bucket > 24*time.Hour {
			return fmt.Errorf("bucket %s is out of range [1s, 24h]", bucket)
		}
		if !viper.GetBool("fold") {
			logger.Warn("Bucket is ignored without folding", slog.Duration("bucket", bucket))
		}
		key = query.ByBucket(bucket, viper.GetString("time_layout"))
	}

	var sampler *selfstat.Sampler
	if viper.GetBool("stats") {
		if sampler, err = selfstat.NewSampler(ctx); err != nil {
			logger.Warn("Failed to initialize resource sampling", slog.Any("error", err))
		}
	}

	input, err := openInput(args, logger)
	if err != nil {
		return err
	}

	pipelineConfig := pipeline.Config{
		Queries: queries,
		Fold:    viper.GetBool("fold"),
		Key:     key,
		Logger:  logger,
	}

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	if addr := viper.GetString("metrics_addr"); addr != "" {
		m := metrics.New()
		pipelineConfig.Observer = m
		go func() {
			if err := m.Serve(serveCtx, addr, logger); err != nil {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	p := pipeline.New(ctx, pipelineConfig)
	sinks, err := openSinks(p, logger)
	if err != nil {
		_ = input.Close()
		return err
	}

	runErr := p.Run(input, sinks...)

	if sampler != nil {
		usage, err := sampler.Sample(context.Background())
		if err != nil {
			logger.Warn("Failed to sample resource usage", slog.Any("error", err))
		} else {
			stats := p.Stats()
			slog.New(slog.NewTextHandler(os.Stderr, nil)).Info("Run statistics",
				slog.Uint64("snapshots", stats.Snapshots),
				slog.Uint64("rows", stats.Rows),
				slog.Uint64("dropped_rows", stats.DroppedRows),
				slog.Any("usage", usage))
		}
	}

	return runErr
}

// loadConfig reads the configuration file, if any, applies its settings and
// returns its queries.
func loadConfig(path string) ([]query.Query, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	queries, err := cfg.QueryList()
	if err != nil {
		return nil, err
	}
	applyConfig(cfg)
	return queries, nil
}

// applyConfig makes the configuration file values the defaults, so that
// flags and environment variables take precedence.
func applyConfig(cfg *config.Config) {
	if cfg.Fold.Enabled {
		viper.SetDefault("fold", true)
	}
	if cfg.Fold.Bucket != 0 {
		viper.SetDefault("bucket", cfg.Fold.Bucket)
	}
	if cfg.Fold.TimeLayout != "" {
		viper.SetDefault("time_layout", cfg.Fold.TimeLayout)
	}
	if cfg.Output.Path != "" {
		viper.SetDefault("output", cfg.Output.Path)
	}
	if cfg.Output.NATS.URL != "" {
		viper.SetDefault("nats_url", cfg.Output.NATS.URL)
	}
	if cfg.Output.NATS.Subject != "" {
		viper.SetDefault("nats_subject", cfg.Output.NATS.Subject)
	}
	if cfg.Metrics.Addr != "" {
		viper.SetDefault("metrics_addr", cfg.Metrics.Addr)
	}
}

func openInput(args []string, logger *slog.Logger) (io.ReadCloser, error) {
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		return file, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Warn("Reading top output from a terminal; pipe 'top -b' into topgrep or pass a file")
	}
	return io.NopCloser(os.Stdin), nil
}

func openSinks(p *pipeline.Pipeline, logger *slog.Logger) ([]topgrep.Sink, error) {
	var output io.WriteCloser = nopWriteCloser{os.Stdout}
	if path := viper.GetString("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output: %w", err)
		}
		output = file
	}
	writerSink, err := ext.NewWriterSink(output,
		ext.WithLogger(logger),
		ext.WithErrorHandler(p.Fail))
	if err != nil {
		return nil, err
	}
	sinks := []topgrep.Sink{writerSink}

	if url := viper.GetString("nats_url"); url != "" {
		natsSink, err := nats.NewSink(url, viper.GetString("nats_subject"),
			nats.WithLogger(logger),
			nats.WithErrorHandler(p.Fail))
		if err != nil {
			// release the writer sink before giving up
			close(writerSink.In())
			writerSink.AwaitCompletion()
			return nil, err
		}
		sinks = append(sinks, natsSink)
	}
	return sinks, nil
}

// buildQueries returns the configuration file queries followed by the
// PID, command and query expression flag queries.
func buildQueries(fileQueries []query.Query, pids []uint, commands,
	expressions []string) ([]query.Query, error) {
	queries := append([]query.Query(nil), fileQueries...)
	for _, pid := range pids {
		if pid > math.MaxUint32 {
			return nil, fmt.Errorf("pid %d is out of range", pid)
		}
		queries = append(queries, query.ByPID(uint32(pid)))
	}
	for _, command := range commands {
		if command == "" {
			return nil, errors.New("empty command query")
		}
		queries = append(queries, query.ByCommand(command))
	}
	for _, expression := range expressions {
		q, err := query.Parse(expression)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func viperKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
