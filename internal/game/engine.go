package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/oracle"
)

// Store is what the engine needs from the session store. Implemented by
// repository.Store; tests use an in-memory fake.
type Store interface {
	ActiveSession(ctx context.Context, chatID int64) (*domain.GameSession, error)
	CreateSession(ctx context.Context, chatID int64, initiator domain.Participant, difficulty domain.Difficulty) (*domain.GameSession, error)
	MarkPlaying(ctx context.Context, chatID int64) error
	FinishSession(ctx context.Context, chatID int64, winner *domain.Winner) error

	AddParticipant(ctx context.Context, p domain.Participant) (bool, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, chatID int64) (int, error)
	ParticipantStats(ctx context.Context, chatID int64) ([]domain.ParticipantStat, error)

	AddMessage(ctx context.Context, m domain.ParticipantMessage) error
	CountMessagesByUser(ctx context.Context, chatID, userID int64) (int, error)
	Messages(ctx context.Context, chatID int64) ([]domain.ParticipantMessage, error)
	LastMessageAt(ctx context.Context, chatID int64) (time.Time, error)

	AddTurn(ctx context.Context, chatID int64, role, content string) error
	RecentTurns(ctx context.Context, chatID int64, limit int) ([]domain.ConversationTurn, error)
}

// Gateway is the outbound messaging surface the engine drives.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) (messageID int, err error)
	ReplyText(ctx context.Context, chatID int64, replyToID int, text string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	// SendLobby posts the lobby roster message with join/start/cancel buttons.
	SendLobby(ctx context.Context, chatID int64, text string) (messageID int, err error)
	// EditLobby updates the lobby message text, keeping the buttons.
	EditLobby(ctx context.Context, chatID int64, messageID int, text string) error
	ClearMarkup(ctx context.Context, chatID int64, messageID int) error
}

// Oracle produces persona replies and winner verdicts.
type Oracle interface {
	Reply(ctx context.Context, req oracle.ReplyRequest) oracle.ReplyResult
	DecideWinner(ctx context.Context, roster []domain.ParticipantStat, transcript []domain.ParticipantMessage, difficulty domain.Difficulty) (*oracle.Verdict, error)
}

// Events receives game lifecycle notifications (admin log chat).
type Events interface {
	GameStarted(chatID int64, difficulty domain.Difficulty)
	GameFinished(chatID int64, outcome Outcome, winner string)
}

// Outcome labels the single terminal announcement of a session.
type Outcome string

const (
	OutcomeWon        Outcome = "won"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeInactive   Outcome = "inactive"
	OutcomeOverloaded Outcome = "overloaded"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeExpired    Outcome = "lobby_expired"
)

// Config carries the game tuning knobs. main fills it from the config
// package; tests shrink the durations.
type Config struct {
	PersonaName        string
	CommandPrefix      string
	StartTriggers      []string
	RosterCapacity     int
	CheckInterval      time.Duration
	GraceMargin        time.Duration
	MinGameDuration    time.Duration
	MaxGameDurations   map[domain.Difficulty]time.Duration
	LobbyTTL           time.Duration
	ContextWindow      int
	VerdictMinMessages int
	WinPhrases         []string
}

func (c Config) MaxDuration(d domain.Difficulty) time.Duration {
	if v, ok := c.MaxGameDurations[d]; ok {
		return v
	}
	return c.MaxGameDurations[domain.DifficultyHard]
}

// Engine orchestrates the game for every chat: lobby formation, the game
// clock and turn handling. All per-chat state transitions happen under
// the chat's lock from the Supervisor.
type Engine struct {
	cfg     Config
	store   Store
	gateway Gateway
	oracle  Oracle
	sup     *Supervisor
	events  Events
	now     func() time.Time
}

func NewEngine(cfg Config, store Store, gateway Gateway, o Oracle, sup *Supervisor, events Events) *Engine {
	if events == nil {
		events = noopEvents{}
	}
	return &Engine{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		oracle:  o,
		sup:     sup,
		events:  events,
		now:     time.Now,
	}
}

// Session returns the chat's active session, if any.
func (e *Engine) Session(ctx context.Context, chatID int64) (*domain.GameSession, error) {
	return e.store.ActiveSession(ctx, chatID)
}

// finishLocked ends the chat's active session, announces the outcome and
// drops any background task. Caller must hold the chat lock. A session
// already finished by another path is a no-op: at most one announcement
// per session ever goes out.
func (e *Engine) finishLocked(ctx context.Context, chatID int64, winner *domain.Winner, announcement string, outcome Outcome) error {
	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	if err := e.store.FinishSession(ctx, chatID, winner); err != nil {
		return fmt.Errorf("finish session: %w", err)
	}

	if announcement != "" {
		if _, err := e.gateway.SendText(ctx, chatID, announcement); err != nil {
			slog.Error("send outcome announcement", "chat_id", chatID, "error", err)
		}
	}

	winnerName := ""
	if winner != nil {
		winnerName = winner.DisplayName
	}
	e.events.GameFinished(chatID, outcome, winnerName)
	slog.Info("game finished", "chat_id", chatID, "outcome", outcome, "winner", winnerName)

	e.sup.Clear(chatID)
	return nil
}

type noopEvents struct{}

func (noopEvents) GameStarted(int64, domain.Difficulty) {}
func (noopEvents) GameFinished(int64, Outcome, string)  {}
