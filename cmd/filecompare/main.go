package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/dispatcher"
	"github.com/aleister1102/filecompare/internal/history"
	"github.com/aleister1102/filecompare/internal/logger"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/normalizer"
	"github.com/aleister1102/filecompare/internal/orchestrator"
	"github.com/aleister1102/filecompare/internal/rslimiter"
	"github.com/rs/zerolog"
)

func main() {
	flags, err := ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	gCfg, err := config.LoadGlobalConfig(flags.GlobalConfigFile, zerolog.Nop())
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load global config using path '%s': %v", flags.GlobalConfigFile, err)
	}
	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: Configuration validation failed: %v", err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(gCfg, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	if err := app.run(ctx, flags); err != nil {
		zLogger.Error().Err(err).Str("command", flags.Command).Msg("Command failed")
		app.Close()
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	cfg          *config.GlobalConfig
	store        history.Store
	dispatcher   *dispatcher.Dispatcher
	orchestrator *orchestrator.CompareOrchestrator
	logger       zerolog.Logger
}

func newApp(gCfg *config.GlobalConfig, zLogger zerolog.Logger) (*app, error) {
	store, err := history.NewStore(gCfg.HistoryConfig, zLogger)
	if err != nil {
		return nil, err
	}

	d := dispatcher.NewDispatcherBuilder(zLogger).
		WithConfig(gCfg.DispatcherConfig).
		Build()

	o, err := orchestrator.NewCompareOrchestratorBuilder(zLogger).
		WithParserConfig(gCfg.ParserConfig).
		WithNormalizer(normalizer.NewNormalizer(gCfg.ParserConfig, zLogger)).
		WithComparer(d).
		WithHistoryStore(store).
		Build()
	if err != nil {
		d.Close()
		store.Close()
		return nil, err
	}

	return &app{cfg: gCfg, store: store, dispatcher: d, orchestrator: o, logger: zLogger}, nil
}

func (a *app) Close() {
	var collector common.ErrorCollector
	collector.AddWithContext(a.dispatcher.Close(), "failed to stop compare worker")
	collector.AddWithContext(a.store.Close(), "failed to close history store")
	if collector.HasErrors() {
		a.logger.Warn().Err(collector.Error()).Msg("Shutdown incomplete")
	}
}

func (a *app) run(ctx context.Context, flags AppFlags) error {
	switch flags.Command {
	case cmdCompare:
		return a.runCompare(ctx, flags, os.Stdout)
	case cmdServe:
		return a.withResourceLimiter(ctx, a.runServe)
	case cmdWatch:
		return a.withResourceLimiter(ctx, func(ctx context.Context) error {
			return a.runWatch(ctx, flags, os.Stdout)
		})
	case cmdHistory:
		return a.runHistory(ctx, flags, os.Stdout)
	default:
		return errUsage
	}
}

// comparisonConfig applies command line overrides to the configured defaults.
func (a *app) comparisonConfig(flags AppFlags) models.ComparisonConfig {
	cfg := a.cfg.ComparisonConfig
	if flags.IgnoreWhitespace {
		cfg.IgnoreWhitespace = true
	}
	if flags.IgnoreEmptyLines {
		cfg.IgnoreEmptyLines = true
	}
	if flags.CaseInsensitive {
		cfg.CaseSensitive = false
	}
	return cfg
}

// withResourceLimiter runs fn under a resource limiter that cancels fn's
// context when auto shutdown is enabled and a limit is crossed.
func (a *app) withResourceLimiter(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rslimiter.NewResourceLimiter(rslimiter.DefaultResourceLimiterConfig(), a.logger)
	limiter.SetExceededCallback(func(reason string) {
		a.logger.Error().Str("reason", reason).Msg("Resource limit exceeded, shutting down")
		cancel()
	})
	limiter.Start()
	defer limiter.Stop()

	return fn(ctx)
}
