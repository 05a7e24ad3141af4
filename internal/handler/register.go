package handler

import (
	"github.com/go-telegram/bot"
	"github.com/setkov/alisabot/internal/config"
	"github.com/setkov/alisabot/internal/telegram"
)

// CallbackDifficultyPrefix prefixes difficulty selection callbacks:
// diff_<level>_<initiatorID>.
const CallbackDifficultyPrefix = "diff_"

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/alisa", bot.MatchTypePrefix, h.handleAlisa)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleHelp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, config.CommandPrefix, bot.MatchTypePrefix, h.HandleTextGroup)

	// Lobby callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, CallbackDifficultyPrefix, bot.MatchTypePrefix, h.handleDifficultyPick)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackLobbyJoin, bot.MatchTypeExact, h.handleLobbyJoin)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackLobbyStart, bot.MatchTypeExact, h.handleLobbyStart)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackLobbyCancel, bot.MatchTypeExact, h.handleLobbyCancel)
}
