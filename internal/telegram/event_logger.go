package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/game"
)

// EventLogger mirrors game lifecycle events and errors into the admin
// log chat. Disabled entirely when no log chat is configured.
type EventLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewEventLogger(b *bot.Bot, cfg *config.Config) *EventLogger {
	return &EventLogger{bot: b, cfg: cfg}
}

func (l *EventLogger) GameStarted(chatID int64, difficulty domain.Difficulty) {
	l.send(l.cfg.LogTopicGames, fmt.Sprintf("🎮 *Game started*\n\n*Chat:* `%d`\n*Difficulty:* %s", chatID, difficulty))
}

func (l *EventLogger) GameFinished(chatID int64, outcome game.Outcome, winner string) {
	msg := fmt.Sprintf("🏁 *Game finished*\n\n*Chat:* `%d`\n*Outcome:* %s", chatID, outcome)
	if winner != "" {
		msg += fmt.Sprintf("\n*Winner:* %s", winner)
	}
	l.send(l.cfg.LogTopicGames, msg)
}

func (l *EventLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.send(l.cfg.LogTopicError, msg)
}

func (l *EventLogger) send(topicID int, message string) {
	if l.cfg.LogTelegramChatID == 0 || topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "error", err)
	}
}
