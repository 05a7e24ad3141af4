package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatType := update.Message.Chat.Type
	chatID := update.Message.Chat.ID

	if chatType == "private" {
		h.handleStartPrivate(ctx, b, chatID)
	} else if chatType == "supergroup" || chatType == "group" {
		h.offerDifficulty(ctx, b, chatID, update.Message.From)
	}
}

func (h *Handler) handleStartPrivate(ctx context.Context, b *bot.Bot, chatID int64) {
	welcomeText := fmt.Sprintf(
		"👋 Привет! Я %s.\n\n"+
			"Я играю только в группах: добавь меня в чат с друзьями, и посмотрим, "+
			"кто из вас сможет влюбить меня в себя 😏\n\n"+
			"В группе напиши /alisa или позови меня: «алиса приходи».",
		config.PersonaName,
	)

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   welcomeText,
		ReplyMarkup: telegram.InlineKeyboard(
			telegram.ButtonRow(
				telegram.URLButton("➕ Добавить в группу", fmt.Sprintf("https://t.me/%s?startgroup=true", h.botUsername)),
			),
		),
	})
	if err != nil {
		slog.Error("send private welcome", "chat_id", chatID, "error", err)
	}
}

// handleAlisa opens difficulty selection in a group chat.
func (h *Handler) handleAlisa(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatType := update.Message.Chat.Type
	if chatType != "supergroup" && chatType != "group" {
		return
	}
	h.offerDifficulty(ctx, b, update.Message.Chat.ID, update.Message.From)
}

// offerDifficulty posts the difficulty keyboard. The callback data pins
// the initiator so nobody else can pick for them.
func (h *Handler) offerDifficulty(ctx context.Context, b *bot.Bot, chatID int64, from *models.User) {
	if from == nil {
		return
	}

	sess, err := h.engine.Session(ctx, chatID)
	if err != nil {
		slog.Error("check active session", "chat_id", chatID, "error", err)
		h.evLogger.LogError(err, "offer difficulty")
		return
	}
	if sess != nil {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Игра уже идет, куда торопишься? 😏 Дождись конца.",
		})
		if err != nil {
			slog.Error("send game-active notice", "chat_id", chatID, "error", err)
		}
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Так, %s на месте 💅 Выбирай, насколько тяжело вам придется:", config.PersonaName),
		ReplyMarkup: telegram.InlineKeyboard(
			telegram.ButtonRow(telegram.InlineButton("😇 Легко", fmt.Sprintf("%seasy_%d", CallbackDifficultyPrefix, from.ID))),
			telegram.ButtonRow(telegram.InlineButton("😐 Средне", fmt.Sprintf("%smedium_%d", CallbackDifficultyPrefix, from.ID))),
			telegram.ButtonRow(telegram.InlineButton("👿 Сложно", fmt.Sprintf("%shard_%d", CallbackDifficultyPrefix, from.ID))),
		),
	})
	if err != nil {
		slog.Error("send difficulty keyboard", "chat_id", chatID, "error", err)
	}
}
