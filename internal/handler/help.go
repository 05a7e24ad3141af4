package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/setkov/alisabot/internal/config"
)

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := fmt.Sprintf(
		"🎮 Игра «Влюби в себя %[1]s»\n\n"+
			"Задача: заставить %[1]s признаться вам в любви. Кому признается — тот и победил.\n\n"+
			"📋 Команды:\n"+
			"/alisa — начать новую игру (выбор сложности)\n"+
			"%[2]s текст — сказать что-то %[1]s\n"+
			"/help — это сообщение\n\n"+
			"Во время игры %[1]s отвечает на:\n"+
			"• реплаи на её сообщения\n"+
			"• %[2]s твой_текст\n"+
			"• сообщения с её именем\n\n"+
			"Молчать нельзя: заскучает и уйдет 🤷‍♀️",
		config.PersonaName, config.CommandPrefix,
	)

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   helpText,
	})
	if err != nil {
		slog.Error("send help", "chat_id", update.Message.Chat.ID, "error", err)
	}
}
