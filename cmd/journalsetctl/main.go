package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/term"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/INLOpen/journalset/compressors"
	"github.com/INLOpen/journalset/config"
	"github.com/INLOpen/journalset/core"
	"github.com/INLOpen/journalset/debugserver"
	"github.com/INLOpen/journalset/hooks"
	"github.com/INLOpen/journalset/hooks/listeners"
	"github.com/INLOpen/journalset/journalset"
	"github.com/INLOpen/journalset/localjournal"
	"github.com/INLOpen/journalset/remote"
	"github.com/INLOpen/journalset/storageregistry"
)

// createLogger builds the process logger from configuration: JSON lines to
// stdout, a file, or discarded entirely.
func createLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid logging level: %q", cfg.Level)
	}

	var output io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "file":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		output = f
		closer = f
	case "none", "":
		output = io.Discard
	default:
		return nil, nil, fmt.Errorf("invalid logging output: %q", cfg.Output)
	}

	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

// initTracerProvider builds an OTLP tracer provider, or a no-op one if
// tracing is disabled in config.
func initTracerProvider(cfg config.TracingConfig, logger *slog.Logger) (*sdktrace.TracerProvider, func(), error) {
	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Protocol {
	case "http":
		exporter, err = otlptrace.New(ctx, otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure()))
	case "grpc", "":
		exporter, err = otlptrace.New(ctx, otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure()))
	default:
		return nil, nil, fmt.Errorf("invalid tracing protocol: %q", cfg.Protocol)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String("journalsetctl")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	cleanup := func() {
		logger.Info("shutting down tracer provider")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down tracer provider", "error", err)
		}
	}
	return tp, cleanup, nil
}

// buildCompressor resolves a codec name from config into a core.Compressor.
func buildCompressor(name string) (core.Compressor, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return compressors.NewNoCompressionCompressor(), nil
	case "lz4":
		return compressors.NewLZ4Compressor(), nil
	case "snappy":
		return compressors.NewSnappyCompressor(), nil
	case "zstd":
		return compressors.NewZSTDCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid codec: %q", name)
	}
}

// buildJournal constructs the UnderlyingJournal described by spec, and
// reports whether it counts as a remote entry for the facade's purposes.
func buildJournal(spec config.JournalSpec, cfg *config.Config, compressor core.Compressor, logger *slog.Logger) (core.UnderlyingJournal, bool, error) {
	switch strings.ToLower(spec.Kind) {
	case "local":
		if spec.Directory == "" {
			return nil, false, fmt.Errorf("local journal entry is missing a directory")
		}
		mgr := localjournal.NewManager(spec.Directory,
			localjournal.WithAlwaysSync(strings.EqualFold(cfg.Local.SyncMode, "always")),
			localjournal.WithLogger(logger),
		)
		return mgr, false, nil
	case "remote":
		if spec.Endpoint == "" {
			return nil, false, fmt.Errorf("remote journal entry is missing an endpoint")
		}
		opts := []remote.Option{
			remote.WithCompressor(compressor),
			remote.WithDialTimeout(config.ParseDuration(cfg.Remote.DialTimeout, 5*time.Second, logger)),
			remote.WithCallTimeout(config.ParseDuration(cfg.Remote.CallTimeout, 10*time.Second, logger)),
			remote.WithLogger(logger),
		}
		if cfg.Remote.TLS.Enabled {
			creds, err := credentials.NewClientTLSFromFile(cfg.Remote.TLS.CertFile, "")
			if err != nil {
				return nil, false, fmt.Errorf("failed to load TLS credentials for %s: %w", spec.Endpoint, err)
			}
			opts = append(opts, remote.WithTransportCredentials(creds))
		} else {
			opts = append(opts, remote.WithTransportCredentials(insecure.NewCredentials()))
		}
		j, err := remote.Dial(spec.Endpoint, opts...)
		if err != nil {
			return nil, false, fmt.Errorf("failed to dial remote journal %s: %w", spec.Endpoint, err)
		}
		return j, true, nil
	default:
		return nil, false, fmt.Errorf("invalid journal kind: %q", spec.Kind)
	}
}

// buildFacade loads config, wires the storage registry, hook manager, and
// every configured journal into a ready Facade. Callers that only need a
// one-shot operation (manifest, quorum, purge) still go through the full
// recovery path, since an unfinalized segment left by an unclean shutdown
// would otherwise shadow the true tail of the log.
func buildFacade(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*journalset.Facade, *storageregistry.Registry, error) {
	registry, err := storageregistry.New(cfg.Storage.NonLocalStatfsMagicHex, cfg.Storage.SyncLatencyWindowSize, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage registry: %w", err)
	}

	hookManager := hooks.NewHookManager(logger)
	alerter := listeners.NewDisabledJournalAlerterListener(logger)
	hookManager.Register(hooks.EventPostJournalDisabled, alerter)
	hookManager.Register(hooks.EventPostQuorumLost, alerter)

	compressor, err := buildCompressor(cfg.Remote.Codec)
	if err != nil {
		return nil, nil, err
	}

	facade := journalset.NewFacade(len(cfg.JournalSet.Journals), journalset.Options{
		MinJournals:         cfg.JournalSet.MinJournals,
		MinNonLocalJournals: cfg.JournalSet.MinNonLocalJournals,
		Registry:            registry,
		Hooks:               hookManager,
		Logger:              logger,
	})

	for _, spec := range cfg.JournalSet.Journals {
		j, isRemote, err := buildJournal(spec, cfg, compressor, logger)
		if err != nil {
			return nil, nil, err
		}
		facade.Add(j, spec.Required, spec.Shared, isRemote)
	}

	if err := facade.RecoverUnfinalizedSegments(ctx); err != nil && !core.IsQuorumLost(err) {
		return nil, nil, fmt.Errorf("failed to recover unfinalized segments: %w", err)
	}

	return facade, registry, nil
}

func localDirectories(cfg *config.Config) []string {
	var dirs []string
	for _, spec := range cfg.JournalSet.Journals {
		if strings.EqualFold(spec.Kind, "local") {
			dirs = append(dirs, spec.Directory)
		}
	}
	return dirs
}

func cmdServe(configPath string) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := createLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	tp, tracerCleanup, err := initTracerProvider(cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialize tracer provider", "error", err)
		os.Exit(1)
	}
	_ = tp

	ctx := context.Background()
	facade, registry, err := buildFacade(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build journal set", "error", err)
		os.Exit(1)
	}

	var collector *storageregistry.DiskUsageCollector
	if dirs := localDirectories(cfg); len(dirs) > 0 {
		collector = storageregistry.NewDiskUsageCollector(dirs, 2*time.Second, logger)
		collector.Start()
	}
	_ = registry

	var dbgSrv *debugserver.Server
	if cfg.Debug.Enabled {
		dbgSrv = debugserver.New(cfg.Debug, logger)
		go func() {
			if err := dbgSrv.Start(); err != nil {
				logger.Error("debug server exited with an error", "error", err)
			}
		}()
	}

	logger.Info("journal set running", "journals", len(cfg.JournalSet.Journals))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received, closing journal set")
	if err := facade.Close(); err != nil {
		logger.Error("error while closing journal set", "error", err)
	}
	if collector != nil {
		collector.Stop()
	}
	if dbgSrv != nil {
		dbgSrv.Stop()
	}
	tracerCleanup()
	logger.Info("journalsetctl exited gracefully")
}

func cmdManifest(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to the configuration file")
	fromTxID := fs.Uint64("from-txid", 1, "Starting transaction id for the manifest")
	fs.Parse(args)

	logger, cfg := loadForOneShot(*configPath)
	facade, _, err := buildFacade(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build journal set", "error", err)
		os.Exit(1)
	}
	defer facade.Close()

	manifest, err := facade.GetEditLogManifest(context.Background(), *fromTxID)
	if err != nil {
		logger.Error("failed to build manifest", "error", err)
		os.Exit(1)
	}

	for _, seg := range manifest {
		fmt.Println(seg.String())
	}
}

func cmdQuorum(args []string) {
	fs := flag.NewFlagSet("quorum", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to the configuration file")
	fs.Parse(args)

	logger, cfg := loadForOneShot(*configPath)
	facade, _, err := buildFacade(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build journal set", "error", err)
		os.Exit(1)
	}
	defer facade.Close()

	s := facade.Status()
	fmt.Printf("journals:      %d total, %d active, %d disabled\n", s.TotalJournals, s.ActiveJournals, s.DisabledJournals)
	fmt.Printf("non-local:     %d active (min %d)\n", s.ActiveNonLocal, s.MinNonLocalJournals)
	fmt.Printf("min_journals:  %d\n", s.MinJournals)
	fmt.Printf("quorum_latched: %v\n", s.QuorumLatched)
}

func cmdPurge(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to the configuration file")
	minTxIDToKeep := fs.Uint64("min-txid-to-keep", 0, "Discard every segment entirely before this transaction id")
	assumeYes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	logger, cfg := loadForOneShot(*configPath)

	if !*assumeYes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "refusing to purge without -yes on a non-interactive stdin")
			os.Exit(1)
		}
		fmt.Printf("This will permanently discard every segment before txid %d on every configured journal.\n", *minTxIDToKeep)
		fmt.Print("Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Println("aborted")
			return
		}
	}

	facade, _, err := buildFacade(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build journal set", "error", err)
		os.Exit(1)
	}
	defer facade.Close()

	if err := facade.PurgeLogsOlderThan(context.Background(), *minTxIDToKeep); err != nil {
		logger.Error("purge failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("purge complete")
}

func loadForOneShot(configPath string) (*slog.Logger, *config.Config) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}
	logger, logCloser, err := createLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	return logger, cfg
}

func printUsage() {
	fmt.Println("Usage: journalsetctl <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  serve    - Run the journal set, serving until SIGINT/SIGTERM")
	fmt.Println("  manifest - Print the merged edit log manifest from a given txid")
	fmt.Println("  quorum   - Print the current quorum status")
	fmt.Println("  purge    - Discard segments older than a given txid")
	fmt.Println("\nUse 'journalsetctl <command> -h' for more information on a specific command.")
}

func main() {
	if len(os.Args) < 2 {
		// Default to serving with the default config path, mirroring a
		// plain daemon invocation.
		configPath := flag.String("config", "config.yaml", "Path to the configuration file")
		flag.Parse()
		cmdServe(*configPath)
		return
	}

	switch os.Args[1] {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		configPath := fs.String("config", "config.yaml", "Path to the configuration file")
		fs.Parse(os.Args[2:])
		cmdServe(*configPath)
	case "manifest":
		cmdManifest(os.Args[2:])
	case "quorum":
		cmdQuorum(os.Args[2:])
	case "purge":
		cmdPurge(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}
