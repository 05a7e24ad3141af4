package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	alisabot "github.com/setkov/alisabot"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/game"
	"github.com/setkov/alisabot/internal/handler"
	"github.com/setkov/alisabot/internal/health"
	"github.com/setkov/alisabot/internal/middleware"
	"github.com/setkov/alisabot/internal/oracle"
	"github.com/setkov/alisabot/internal/repository"
	"github.com/setkov/alisabot/internal/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development convenience; in production the env is real.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(alisabot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(pool)

	oracleClient := oracle.New(providers(cfg), oracle.Options{
		PersonaName:        config.PersonaName,
		IgnoreToken:        config.OracleIgnoreToken,
		ReplyTemperature:   config.ReplyTemperature,
		VerdictTemperature: config.VerdictTemperature,
		MaxTokens:          config.MaxTokens,
		TopP:               config.TopP,
		ContextWindow:      config.ContextWindow,
		RequestTimeout:     config.RequestTimeout,
	})

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleNewChatMembers(ctx, b, update)
		}),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("drop pending updates", "error", err)
		}
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	evLogger := telegram.NewEventLogger(b, cfg)
	gateway := telegram.NewGateway(b)
	supervisor := game.NewSupervisor(ctx)

	engine := game.NewEngine(game.Config{
		PersonaName:     config.PersonaName,
		CommandPrefix:   config.CommandPrefix,
		StartTriggers:   config.StartTriggers,
		RosterCapacity:  cfg.RosterCapacity,
		CheckInterval:   config.CheckInterval,
		GraceMargin:     config.GraceMargin,
		MinGameDuration: config.MinGameDuration,
		MaxGameDurations: map[domain.Difficulty]time.Duration{
			domain.DifficultyEasy:   config.MaxGameDurationEasy,
			domain.DifficultyMedium: config.MaxGameDurationMedium,
			domain.DifficultyHard:   config.MaxGameDurationHard,
		},
		LobbyTTL:           config.LobbyTTL,
		ContextWindow:      config.ContextWindow,
		VerdictMinMessages: config.VerdictMinMessages,
		WinPhrases:         []string{config.WinPhraseLove, config.WinPhraseTogether},
	}, store, gateway, oracleClient, supervisor, evLogger)

	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Engine:      engine,
		EvLogger:    evLogger,
		BotID:       me.ID,
		BotUsername: me.Username,
	})
	h.Register()

	// Group chatter that is not a command goes through the game engine.
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.HandleTextGroup(ctx, b, update)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: health.NewRouter(),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("health server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID)
		b.Start(gCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("run", "error", err)
	}

	// Let per-chat tasks finish their cleanup before the pool closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	supervisor.Shutdown(shutdownCtx)

	slog.Info("bot stopped gracefully")
}

func providers(cfg *config.Config) []oracle.Provider {
	var out []oracle.Provider
	if cfg.GroqKey != "" {
		out = append(out, oracle.Provider{
			Name:   "groq",
			URL:    "https://api.groq.com/openai/v1/chat/completions",
			APIKey: cfg.GroqKey,
			Model:  cfg.GroqModel,
		})
	}
	if cfg.OpenRouterKey != "" {
		out = append(out, oracle.Provider{
			Name:   "openrouter",
			URL:    "https://openrouter.ai/api/v1/chat/completions",
			APIKey: cfg.OpenRouterKey,
			Model:  cfg.OpenRouterModel,
		})
	}
	return out
}
