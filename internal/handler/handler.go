package handler

import (
	"github.com/go-telegram/bot"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/game"
	"github.com/setkov/alisabot/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	engine      *game.Engine
	evLogger    *telegram.EventLogger
	botID       int64
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Engine      *game.Engine
	EvLogger    *telegram.EventLogger
	BotID       int64
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		engine:      deps.Engine,
		evLogger:    deps.EvLogger,
		botID:       deps.BotID,
		botUsername: deps.BotUsername,
	}
}
