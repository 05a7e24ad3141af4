package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/setkov/alisabot/internal/domain"
)

// handleDifficultyPick reacts to a diff_<level>_<initiatorID> button and
// opens the lobby. Only the user who called for the game may pick.
func (h *Handler) handleDifficultyPick(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	payload := strings.TrimPrefix(cb.Data, CallbackDifficultyPrefix)
	level, initiatorRaw, ok := strings.Cut(payload, "_")
	if !ok {
		h.answerCallback(ctx, b, cb.ID, "", false)
		return
	}
	initiatorID, err := strconv.ParseInt(initiatorRaw, 10, 64)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "", false)
		return
	}

	if cb.From.ID != initiatorID {
		h.answerCallback(ctx, b, cb.ID, "Не ты звал — не тебе и выбирать 😤", true)
		return
	}

	difficulty, ok := domain.ParseDifficulty(level)
	if !ok {
		h.answerCallback(ctx, b, cb.ID, "", false)
		return
	}

	// The prompt message is spent either way.
	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: cb.Message.Message.ID,
	}); err != nil {
		slog.Warn("delete difficulty prompt", "chat_id", chatID, "error", err)
	}

	err = h.engine.CreateLobby(ctx, chatID, participantFrom(chatID, &cb.From), difficulty)
	switch {
	case errors.Is(err, domain.ErrGameActive):
		h.answerCallback(ctx, b, cb.ID, "Игра уже идет, не части", true)
		return
	case err != nil:
		slog.Error("create lobby", "chat_id", chatID, "error", err)
		h.evLogger.LogError(err, "create lobby")
		h.answerCallback(ctx, b, cb.ID, "Что-то пошло не так, попробуй еще раз", true)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "", false)
}

func (h *Handler) handleLobbyJoin(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	joined, err := h.engine.Join(ctx, chatID, participantFrom(chatID, &cb.From))
	switch {
	case errors.Is(err, domain.ErrNotWaiting):
		h.answerCallback(ctx, b, cb.ID, "Набор уже закрыт", true)
	case errors.Is(err, domain.ErrLobbyFull):
		h.answerCallback(ctx, b, cb.ID, "Мест нет, компания собрана 🤷‍♀️", true)
	case err != nil:
		slog.Error("join lobby", "chat_id", chatID, "user_id", cb.From.ID, "error", err)
		h.answerCallback(ctx, b, cb.ID, "Что-то пошло не так, попробуй еще раз", true)
	case !joined:
		h.answerCallback(ctx, b, cb.ID, "Ты уже в списке 😉", false)
	default:
		h.answerCallback(ctx, b, cb.ID, "Ты в игре!", false)
	}
}

func (h *Handler) handleLobbyStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	err := h.engine.RequestStart(ctx, chatID, cb.From.ID)
	switch {
	case errors.Is(err, domain.ErrNotInitiator):
		h.answerCallback(ctx, b, cb.ID, "Стартовать может только тот, кто позвал играть", true)
	case errors.Is(err, domain.ErrNotWaiting):
		h.answerCallback(ctx, b, cb.ID, "Набор уже закрыт", true)
	case err != nil:
		slog.Error("start game", "chat_id", chatID, "error", err)
		h.evLogger.LogError(err, "start game")
		h.answerCallback(ctx, b, cb.ID, "Что-то пошло не так, попробуй еще раз", true)
	default:
		h.answerCallback(ctx, b, cb.ID, "Поехали!", false)
	}
}

func (h *Handler) handleLobbyCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	err := h.engine.CancelLobby(ctx, chatID, cb.From.ID, participantFrom(chatID, &cb.From).DisplayName())
	switch {
	case errors.Is(err, domain.ErrNotInitiator):
		h.answerCallback(ctx, b, cb.ID, "Отменить может только тот, кто позвал играть", true)
	case errors.Is(err, domain.ErrNotWaiting):
		h.answerCallback(ctx, b, cb.ID, "Отменять уже нечего", true)
	case err != nil:
		slog.Error("cancel lobby", "chat_id", chatID, "error", err)
		h.answerCallback(ctx, b, cb.ID, "Что-то пошло не так, попробуй еще раз", true)
	default:
		h.answerCallback(ctx, b, cb.ID, "", false)
	}
}

func (h *Handler) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		slog.Warn("answer callback query", "error", err)
	}
}

func participantFrom(chatID int64, u *models.User) domain.Participant {
	return domain.Participant{
		ChatID:    chatID,
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
	}
}
