// Atlas is a travel-planning chat assistant.
//
// It serves an embedded chat page over HTTP with a WebSocket message
// loop, plus a REST API for plans, calendar export, QR sharing, and
// transcripts. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	atlas serve              Start the chat server
//	atlas init [dir]         Initialize a working directory with defaults
//	atlas ask <question>     Ask a single question (for testing)
//	atlas version            Print version and build information
//	atlas -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/advisor"
	"github.com/fernwey/atlas-travel-agent/internal/buildinfo"
	"github.com/fernwey/atlas-travel-agent/internal/catalog"
	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/connwatch"
	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/knowledge"
	"github.com/fernwey/atlas-travel-agent/internal/mailer"
	"github.com/fernwey/atlas-travel-agent/internal/planner"
	"github.com/fernwey/atlas-travel-agent/internal/presence"
	"github.com/fernwey/atlas-travel-agent/internal/render"
	"github.com/fernwey/atlas-travel-agent/internal/router"
	"github.com/fernwey/atlas-travel-agent/internal/templates"
	"github.com/fernwey/atlas-travel-agent/internal/tools"
	"github.com/fernwey/atlas-travel-agent/internal/transcript"
	"github.com/fernwey/atlas-travel-agent/internal/usage"
	"github.com/fernwey/atlas-travel-agent/internal/weather"
	"github.com/fernwey/atlas-travel-agent/internal/web"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the atlas command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the server and background goroutines.
//   - stdout and stderr receive all program output. Structured logs go
//     to stdout; fatal error messages go to stderr.
//   - args is os.Args[1:], the command-line arguments after the program
//     name. We parse these manually rather than using the flag package
//     to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: atlas ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// atlas is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Atlas - Travel Planning Chat Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: atlas [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the chat server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/atlas/config.yaml, /etc/atlas/config.yaml")
	return nil
}

// runAsk handles the "atlas ask <question>" subcommand. It assembles the
// chat pipeline without the HTTP server and answers a single question on
// stdout. Logs go to stderr at warn level so the answer pipes cleanly.
//
// ask works without a config file: the embedded catalog, templates, and
// knowledge base cover everything the offline pipeline needs, so a
// missing config just means defaults. An explicit -config that does not
// exist is still an error; silent fallback would mask the typo.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	logger := newLogger(stderr, slog.LevelWarn, "text")

	question := strings.Join(args, " ")

	cfg := config.Default()
	if cfgPath, err := config.FindConfig(configPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", cfgPath, err)
		}
	} else if configPath != "" {
		return err
	}

	cat := catalog.New(logger)
	cat.Load(cfg.DataDir)

	kb := knowledge.New(logger)
	if cfg.KnowledgeDir != "" {
		kb.LoadDir(cfg.KnowledgeDir)
	}

	tplStore := templates.NewStore(logger)
	if cfg.TemplateDir != "" {
		if err := tplStore.Load(cfg.TemplateDir); err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
	}

	// Advisor is optional for one-shots. No usage store and no bus: a
	// single question does not need accounting or lifecycle events.
	adv, err := advisor.New(cfg.Advisor, nil, nil, logger)
	if err != nil {
		return fmt.Errorf("advisor: %w", err)
	}

	pipe := web.NewPipeline(web.PipelineDeps{
		Router:    router.New(logger),
		Planner:   planner.New(cat, nil, logger),
		Plans:     planner.NewStore(),
		Renderer:  render.NewRenderer(tplStore, logger),
		Catalog:   cat,
		Knowledge: kb,
		Tools:     tools.NewRegistry(cat, kb, weather.New(logger), nil, logger),
		Advisor:   adv,
		Logger:    logger,
	})

	reply, err := pipe.Respond(ctx, "cli", question, nil)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, reply.Text)
	return nil
}

// runServe handles the "atlas serve" subcommand. It is the primary
// operating mode: loads config, opens the SQLite stores, assembles the
// chat pipeline with all tools and catalogs, starts the HTTP server,
// and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. MQTT presence publishes offline and disconnects
//  3. The HTTP server drains in-flight requests
//  4. SQLite stores and the connection watcher close via defers
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Atlas", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure logger now that we know the desired level and format.
	// The initial Info-level text logger is used only for the startup
	// banner; everything after this point uses the configured settings.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			parsed, err := config.ParseLogLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("config %s: %w", cfgPath, err)
			}
			level = parsed
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"data_dir", cfg.DataDir,
		"advisor", cfg.Advisor.Provider,
	)

	// Wrap the context early so every component sees SIGINT/SIGTERM
	// cancellation through the same ctx.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Data directory ---
	// Persistent state (transcript and usage databases, the MQTT instance
	// id, catalog overrides) lives under this directory.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	// --- Event bus ---
	// Lifecycle events from the server, planner, and advisor. Presence
	// subscribes to keep its sensor counters fresh.
	bus := events.New()

	// --- City catalog ---
	// Embedded seed data, overlaid by any *.yaml files in the data dir.
	cat := catalog.New(logger)
	cat.Load(cfg.DataDir)

	// --- Knowledge base ---
	kb := knowledge.New(logger)
	if cfg.KnowledgeDir != "" {
		n := kb.LoadDir(cfg.KnowledgeDir)
		logger.Info("knowledge notes loaded", "dir", cfg.KnowledgeDir, "entries", n)
	}

	// --- Response templates ---
	// Embedded defaults, overlaid by the configured template directory.
	// A configured directory that cannot be read is a hard error; a
	// malformed template inside it is only a warning.
	tplStore := templates.NewStore(logger)
	if cfg.TemplateDir != "" {
		if err := tplStore.Load(cfg.TemplateDir); err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
	}
	renderer := render.NewRenderer(tplStore, logger)

	// --- Trip planning ---
	plnr := planner.New(cat, bus, logger)
	plans := planner.NewStore()
	rtr := router.New(logger)
	reg := tools.NewRegistry(cat, kb, weather.New(logger), bus, logger)

	// --- Transcript store ---
	// Append-only SQLite record of every conversation.
	transcriptPath := filepath.Join(cfg.DataDir, "transcripts.db")
	transcripts, err := transcript.NewStore(transcriptPath, logger)
	if err != nil {
		return fmt.Errorf("open transcript store %s: %w", transcriptPath, err)
	}
	defer transcripts.Close()
	logger.Info("transcript store opened", "path", transcriptPath)

	// --- Advisor and usage ledger ---
	// The usage store only exists when an advisor is configured; without
	// one there are no tokens to account for.
	var usageStore *usage.Store
	if cfg.Advisor.Enabled() {
		usagePath := filepath.Join(cfg.DataDir, "usage.db")
		usageStore, err = usage.NewStore(usagePath)
		if err != nil {
			return fmt.Errorf("open usage store %s: %w", usagePath, err)
		}
		defer usageStore.Close()
	}

	adv, err := advisor.New(cfg.Advisor, usageStore, bus, logger)
	if err != nil {
		return fmt.Errorf("advisor: %w", err)
	}

	// --- Connection resilience ---
	// Background health monitoring with exponential backoff for the
	// optional external dependencies. Feeds /api/health.
	connMgr := connwatch.NewManager(logger)
	defer connMgr.Stop()

	if adv.Enabled() {
		connMgr.Watch(ctx, connwatch.WatcherConfig{
			Name:    "advisor-" + cfg.Advisor.Provider,
			Probe:   func(pCtx context.Context) error { return adv.Ping(pCtx) },
			Backoff: connwatch.DefaultBackoffConfig(),
			Logger:  logger,
		})
	}

	// --- Outbound mail ---
	var mail *mailer.Mailer
	if cfg.Mail.Enabled() {
		mail = mailer.New(cfg.Mail, logger)
		logger.Info("mail enabled", "host", cfg.Mail.Host, "from", cfg.Mail.From)
	} else {
		logger.Info("mail disabled (not configured)")
	}

	// --- Chat pipeline and HTTP server ---
	pipe := web.NewPipeline(web.PipelineDeps{
		Router:      rtr,
		Planner:     plnr,
		Plans:       plans,
		Renderer:    renderer,
		Catalog:     cat,
		Knowledge:   kb,
		Tools:       reg,
		Advisor:     adv,
		Transcripts: transcripts,
		Bus:         bus,
		Logger:      logger,
	})

	server := web.New(*cfg, pipe, logger)
	server.SetTemplates(tplStore)
	server.SetWatch(connMgr)
	if mail != nil {
		server.SetMailer(mail)
	}
	if usageStore != nil {
		server.SetUsage(usageStore)
	}

	// --- MQTT presence ---
	// Optional: publishes Home Assistant discovery messages and periodic
	// sensor states so Atlas appears as a native HA device.
	var pub *presence.Publisher
	if cfg.MQTT.Configured() {
		instanceID, err := presence.LoadOrCreateInstanceID(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("load mqtt instance id: %w", err)
		}

		pub = presence.New(cfg.MQTT, instanceID, bus, logger)
		go func() {
			if err := pub.Start(ctx); err != nil {
				logger.Error("mqtt presence failed", "error", err)
			}
		}()

		// Register with connwatch for health endpoint visibility.
		connMgr.Watch(ctx, connwatch.WatcherConfig{
			Name: "mqtt",
			Probe: func(pCtx context.Context) error {
				awaitCtx, awaitCancel := context.WithTimeout(pCtx, 2*time.Second)
				defer awaitCancel()
				return pub.AwaitConnection(awaitCtx)
			},
			Backoff: connwatch.DefaultBackoffConfig(),
			Logger:  logger,
		})

		logger.Info("mqtt presence enabled",
			"broker", cfg.MQTT.Broker,
			"device_name", cfg.MQTT.DeviceName,
			"interval", cfg.MQTT.PublishIntervalSec,
		)
	} else {
		logger.Info("mqtt presence disabled (not configured)")
	}

	// --- Graceful shutdown ---
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		// Publish MQTT offline status before disconnecting.
		if pub != nil {
			offlineCtx, offlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer offlineCancel()
			if err := pub.Stop(offlineCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}

		_ = server.Shutdown(context.Background())
	}()

	// Start the HTTP server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Atlas stopped")
	return nil
}

// newLogger creates a structured logger that writes to w at the given level
// and format. Format must be "text" or "json"; any other value defaults to
// text. All log output in Atlas goes through slog; this helper standardizes
// the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations. Returns the parsed
// config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
