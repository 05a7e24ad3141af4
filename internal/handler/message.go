package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/game"
)

// HandleTextGroup routes group text messages through the game engine.
func (h *Handler) HandleTextGroup(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	chatType := msg.Chat.Type
	if chatType != "supergroup" && chatType != "group" {
		return
	}

	// Skip other bot commands; the persona's own prefix stays.
	if strings.HasPrefix(msg.Text, "/") && !strings.HasPrefix(msg.Text, config.CommandPrefix) {
		return
	}

	chatID := msg.Chat.ID

	inc := game.Incoming{
		ChatID:         chatID,
		MessageID:      msg.ID,
		UserID:         msg.From.ID,
		Username:       msg.From.Username,
		FirstName:      msg.From.FirstName,
		Text:           msg.Text,
		ReplyToPersona: msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == h.botID,
	}

	sess, err := h.engine.Session(ctx, chatID)
	if err != nil {
		slog.Error("load session", "chat_id", chatID, "error", err)
		h.evLogger.LogError(err, "load session")
		return
	}

	disposition, text := h.engine.Classify(sess, inc)
	switch disposition {
	case game.Skip:
		return

	case game.EmptyPrompt:
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          chatID,
			Text:            h.engine.EmptyPromptText(),
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		})
		if err != nil {
			slog.Error("send empty prompt reply", "chat_id", chatID, "error", err)
		}

	case game.OfferStart:
		h.offerDifficulty(ctx, b, chatID, msg.From)

	case game.Process:
		b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		if err := h.engine.ProcessMessage(ctx, inc, text); err != nil {
			slog.Error("process message", "chat_id", chatID, "user_id", inc.UserID, "error", err)
			h.evLogger.LogError(err, "process message")
		}
	}
}

// HandleNewChatMembers greets the group when the bot itself is added.
func (h *Handler) HandleNewChatMembers(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || len(msg.NewChatMembers) == 0 {
		return
	}

	added := false
	for _, u := range msg.NewChatMembers {
		if u.ID == h.botID {
			added = true
			break
		}
	}
	if !added {
		return
	}

	greeting := fmt.Sprintf(
		"Ну привет 👋 Я %s.\n\n"+
			"Говорят, тут самые смелые пацаны города? Посмотрим, сможет ли кто-то из вас "+
			"влюбить меня в себя 😏\n\n"+
			"Жми /alisa, когда соберетесь с духом. Правила — /help.",
		config.PersonaName,
	)

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   greeting,
	})
	if err != nil {
		slog.Error("send group greeting", "chat_id", msg.Chat.ID, "error", err)
	}
}
