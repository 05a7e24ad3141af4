package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Oracle providers, tried in order: Groq first, OpenRouter as fallback.
	GroqKey         string `env:"GROQ_API_KEY"`
	GroqModel       string `env:"GROQ_AI_MODEL" envDefault:"llama-3.3-70b-versatile"`
	OpenRouterKey   string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel string `env:"OPENROUTER_AI_MODEL" envDefault:"meta-llama/llama-3.3-70b-instruct:free"`

	// Game
	RosterCapacity int `env:"ROSTER_CAPACITY" envDefault:"3"`

	// Server
	Port int `env:"PORT" envDefault:"8080"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram event logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicGames     int   `env:"LOG_TOPIC_GAMES"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
