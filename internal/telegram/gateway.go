package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const MaxMessageLen = 4096

// Callback data for the lobby keyboard.
const (
	CallbackLobbyJoin   = "lobby_join"
	CallbackLobbyStart  = "lobby_start"
	CallbackLobbyCancel = "lobby_cancel"
)

// Gateway is the outbound messaging adapter the game engine drives. It
// wraps the bot API and owns the lobby keyboard layout.
type Gateway struct {
	bot *bot.Bot
}

func NewGateway(b *bot.Bot) *Gateway {
	return &Gateway{bot: b}
}

// SendText sends a plain text message, splitting it when it exceeds the
// Telegram limit. Returns the id of the first sent message.
func (g *Gateway) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	firstID := 0
	for i, part := range SplitMessage(text, MaxMessageLen) {
		msg, err := g.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
		})
		if err != nil {
			return firstID, fmt.Errorf("send message: %w", err)
		}
		if i == 0 {
			firstID = msg.ID
		}
	}
	return firstID, nil
}

// ReplyText sends text as a reply to the given message.
func (g *Gateway) ReplyText(ctx context.Context, chatID int64, replyToID int, text string) error {
	replyTo := &replyToID
	for _, part := range SplitMessage(text, MaxMessageLen) {
		params := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
		}
		if replyTo != nil {
			params.ReplyParameters = &models.ReplyParameters{MessageID: *replyTo}
			replyTo = nil // only reply to the first part
		}
		if _, err := g.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}

// EditText replaces a message's text and drops its inline keyboard.
func (g *Gateway) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if len([]rune(text)) > MaxMessageLen {
		text = string([]rune(text)[:MaxMessageLen-3]) + "..."
	}
	_, err := g.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// SendLobby posts the lobby roster message with join/start/cancel buttons.
func (g *Gateway) SendLobby(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := g.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: lobbyKeyboard(),
	})
	if err != nil {
		return 0, fmt.Errorf("send lobby message: %w", err)
	}
	return msg.ID, nil
}

// EditLobby updates the lobby message text, keeping the buttons.
func (g *Gateway) EditLobby(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := g.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: lobbyKeyboard(),
	})
	if err != nil {
		return fmt.Errorf("edit lobby message: %w", err)
	}
	return nil
}

// ClearMarkup removes a message's inline keyboard.
func (g *Gateway) ClearMarkup(ctx context.Context, chatID int64, messageID int) error {
	_, err := g.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})
	if err != nil {
		return fmt.Errorf("clear markup: %w", err)
	}
	return nil
}

func lobbyKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		ButtonRow(InlineButton("🎮 Играю", CallbackLobbyJoin)),
		ButtonRow(
			InlineButton("▶️ Начать", CallbackLobbyStart),
			InlineButton("🚫 Отменить", CallbackLobbyCancel),
		),
	)
}
