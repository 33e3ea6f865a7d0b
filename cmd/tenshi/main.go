package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/tenshi-bot/tenshi/pkg/bot"
	"github.com/tenshi-bot/tenshi/pkg/config"
	"github.com/tenshi-bot/tenshi/pkg/convctx"
	"github.com/tenshi-bot/tenshi/pkg/httputil"
	"github.com/tenshi-bot/tenshi/pkg/intent"
	"github.com/tenshi-bot/tenshi/pkg/provider"
	"github.com/tenshi-bot/tenshi/pkg/respond"
	"github.com/tenshi-bot/tenshi/pkg/store"
	"github.com/tenshi-bot/tenshi/pkg/tier"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}).
		With().Timestamp().Logger().Level(level)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	raw, err := sql.Open("sqlite3", cfg.Database.Path+"?_txlock=immediate")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer raw.Close()
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		return fmt.Errorf("failed to wrap database: %w", err)
	}
	db.Log = dbutil.ZeroLogger(log.With().Str("component", "database").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := store.New(db)
	if err := s.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	runtime := config.NewRuntime(cfg.Bot.TriggerWord)
	httpc := httputil.NewClient(cfg.Bot.RequestTimeout)

	sdkClient := provider.NewShapesSDK(cfg.Shapes.APIKey, cfg.Shapes.BaseURL, cfg.Shapes.Username, log)
	rawClient := provider.NewShapesHTTP(httpc, cfg.Shapes.APIKey, cfg.Shapes.BaseURL, cfg.Shapes.Username, log)
	shapes := provider.NewShapes(sdkClient, rawClient, runtime.ShapesClient, log)
	gemini := provider.NewGemini(httpc, cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Bot.SystemPrompt, log)

	contexts := convctx.NewStore(convctx.DefaultMaxTurns)
	orchestrator := respond.NewOrchestrator(contexts, shapes, gemini,
		runtime.PrimaryBackend, runtime.DiagnosticsEnabled, log)

	intents := intent.NewResolver(cfg.Shapes.Username, s, runtime, nil)
	tiers := tier.NewResolver(s)
	linker, err := tier.NewLinker(httpc, cfg.Shapes.AuthBaseURL, cfg.Shapes.AppID, s, log)
	if err != nil {
		return fmt.Errorf("failed to set up account linking: %w", err)
	}

	b := bot.New(intents, tiers, orchestrator, s, runtime, cfg.Bot.OwnerIDs, log)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 30m", func() {
		if evicted := contexts.SweepIdle(cfg.Bot.ContextIdleTTL); evicted > 0 {
			log.Debug().Int("evicted", evicted).Msg("Swept idle conversation contexts")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule context sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	log.Info().
		Str("trigger_word", runtime.TriggerWord()).
		Str("database", cfg.Database.Path).
		Msg("Bot is ready")

	console := newConsole(b, linker, tiers, s, runtime, log)
	go console.loop(ctx)

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}
