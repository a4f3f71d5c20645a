package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/italolelis/media_downloader/internal/config"
	"github.com/italolelis/media_downloader/internal/downloader"
	"github.com/italolelis/media_downloader/internal/httpclient"
	"github.com/italolelis/media_downloader/internal/input"
	"github.com/italolelis/media_downloader/internal/logctx"
	"github.com/italolelis/media_downloader/internal/notifier"
	"github.com/italolelis/media_downloader/internal/report"
	"github.com/italolelis/media_downloader/internal/resolver"
	"github.com/italolelis/media_downloader/internal/storage"
	"github.com/italolelis/media_downloader/internal/storage/sqlite"
	"github.com/italolelis/media_downloader/internal/stream"
	"github.com/italolelis/media_downloader/internal/telemetry"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// version is set at build time.
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	if err == nil {
		err = cfg.Validate()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := logctx.New(os.Stderr, cfg.SlogLevel(), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logctx.WithLogger(ctx, logger)

	logger.Debug("media downloader starting...", "version", version, "log_level", cfg.LogLevel, "config_paths", cfg.ConfigPaths)

	err = run(ctx, cfg)

	logMemoryUse(ctx)
	stop()

	if err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	switch {
	case cfg.PrintConfig:
		b, err := cfg.Dump()
		if err != nil {
			return fmt.Errorf("failed to dump config: %w", err)
		}

		_, err = os.Stdout.Write(b)

		return err
	case cfg.PrintConfigPaths:
		paths := config.SearchPaths()
		if cfg.ConfigFile != "" {
			paths = []string{cfg.ConfigFile}
		}

		return report.PrintPaths(os.Stdout, paths, cfg.ConfigPaths)
	}

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    config.Name,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	var history *sqlite.InstrumentedDownloadRepository

	if cfg.HistoryDB != "" {
		database, err := sqlite.InitDB(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer database.Close()

		history = sqlite.NewInstrumentedDownloadRepository(database, tel)
	}

	if cfg.PrintHistory {
		if history == nil {
			return errors.New("--print-history needs a history database")
		}

		return printHistory(ctx, os.Stdout, history, cfg.Args)
	}

	// =========================================================================
	// Read Input
	uris, err := input.Read(cfg.Args, os.Stdin)
	if err != nil {
		return err
	}

	if len(uris) == 0 {
		return errors.New("no input URIs given")
	}

	proxy, err := httpclient.ProxyFunc(cfg.HTTPProxy)
	if err != nil {
		return err
	}

	client := httpclient.New(httpclient.Options{
		ConnectTimeout: cfg.HTTPConnectTimeout,
		UserAgent:      cfg.HTTPUserAgent,
		Proxy:          proxy,
	})

	p := &processor{
		cfg:     cfg,
		inquire: resolver.Instrumented(tel, resolver.Inquire),
		streams: stream.NewResolver(client, tel),
		runID:   storage.GenerateRunID(),
		out:     os.Stdout,
		now:     time.Now,
	}

	if history != nil {
		p.history = history
	}

	if cfg.DiscordWebhookURL != "" {
		p.notifier = &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL, Client: client}
	}

	if !cfg.NoProgress {
		p.progress = os.Stderr
	}

	p.engine = downloader.NewEngine(client, tel,
		downloader.WithStdout(os.Stdout),
		downloader.WithProgress(cfg.ProgressInterval, p.updateProgress),
	)

	// =========================================================================
	// Start Batch
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telemetry.MetricsAddress != "" {
		startMetricsServer(gctx, g, cfg.Telemetry.MetricsAddress, tel)
	}

	var failed int

	g.Go(func() error {
		defer cancel()

		failed = p.run(gctx, uris)

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(uris))
	}

	return nil
}

// startMetricsServer serves the metrics endpoint until ctx is done.
func startMetricsServer(ctx context.Context, g *errgroup.Group, addr string, tel *telemetry.Telemetry) {
	logger := logctx.LoggerFromContext(ctx)

	r := chi.NewRouter()
	r.Handle("/metrics", tel.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		logger.Info("serving metrics", "host", addr)

		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to gracefully shutdown the metrics server", "err", err)

			return server.Close()
		}

		return nil
	})
}

// printHistory lists the whole history, or only the records of uris when
// any are given. URIs without a record are skipped.
func printHistory(ctx context.Context, w io.Writer, history storage.DownloadReadRepository, uris []string) error {
	if len(uris) == 0 {
		records, err := history.GetDownloads(ctx, 0)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		return report.PrintHistory(w, records)
	}

	var records []storage.DownloadRecord

	for _, raw := range uris {
		uri, err := input.Normalize(raw)
		if err != nil {
			return err
		}

		record, err := history.GetDownload(ctx, uri)
		if errors.Is(err, storage.ErrNotFound) {
			logctx.LoggerFromContext(ctx).Warn("no history for input", "input_uri", uri)

			continue
		}

		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		records = append(records, *record)
	}

	return report.PrintHistory(w, records)
}

func logMemoryUse(ctx context.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logctx.LoggerFromContext(ctx).Debug("memory use",
		"heap_alloc", humanize.Bytes(m.HeapAlloc),
		"total_alloc", humanize.Bytes(m.TotalAlloc),
		"sys", humanize.Bytes(m.Sys),
	)
}
