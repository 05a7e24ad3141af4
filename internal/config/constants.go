package config

import "time"

const (
	// Persona
	PersonaName = "Алиса"

	// Command used to address the persona directly
	CommandPrefix = "/say"

	// Game timings
	CheckInterval   = 5 * time.Minute
	GraceMargin     = 30 * time.Second
	MinGameDuration = 5 * time.Minute
	LobbyTTL        = 5 * time.Minute

	// Max session duration per difficulty
	MaxGameDurationEasy   = 15 * time.Minute
	MaxGameDurationMedium = 30 * time.Minute
	MaxGameDurationHard   = 1 * time.Hour

	// Conversation turns kept per oracle call
	ContextWindow = 15

	// Interim verdicts require the most active participant to have
	// at least this many messages.
	VerdictMinMessages = 3

	// AI request parameters
	RequestTimeout     = 90 * time.Second
	ReplyTemperature   = 0.95
	VerdictTemperature = 0.7
	MaxTokens          = 400
	TopP               = 0.95

	// Control token the oracle returns when the persona sulks.
	OracleIgnoreToken = "ИГНОР"

	// Both phrases present in a reply mean an instant win.
	WinPhraseLove     = "я в тебя влюбилась"
	WinPhraseTogether = "хочу быть с тобой"
)

// StartTriggers are phrases that open difficulty selection when no game
// is running, and count as addressing the persona while one is.
var StartTriggers = []string{
	"алиса приходи",
	"алиса давай играть",
	"алиса начнем",
	"алиса го играть",
	"алиса старт",
	"алиса выходи",
}
