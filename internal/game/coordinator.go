package game

import (
	"context"
	"log/slog"
	"strings"

	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/oracle"
)

// Incoming is one inbound chat message, as delivered by the gateway.
type Incoming struct {
	ChatID         int64
	MessageID      int
	UserID         int64
	Username       string
	FirstName      string
	Text           string
	ReplyToPersona bool
}

func (m Incoming) participant() domain.Participant {
	return domain.Participant{
		ChatID:    m.ChatID,
		UserID:    m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
	}
}

// Disposition says what to do with an inbound message.
type Disposition int

const (
	// Skip: not addressed to the persona, or no game to play.
	Skip Disposition = iota
	// Process: gameplay message; run it through ProcessMessage.
	Process
	// OfferStart: start-trigger phrase with no active session; open
	// difficulty selection.
	OfferStart
	// EmptyPrompt: the command prefix with nothing after it.
	EmptyPrompt
)

// Classify applies the addressing rules against the chat's current
// session (nil when none is active). For Process it returns the message
// text with the command prefix stripped.
func (e *Engine) Classify(sess *domain.GameSession, msg Incoming) (Disposition, string) {
	lower := strings.ToLower(strings.TrimSpace(msg.Text))

	isTrigger := false
	for _, trigger := range e.cfg.StartTriggers {
		if strings.Contains(lower, trigger) {
			isTrigger = true
			break
		}
	}

	if sess == nil {
		if isTrigger {
			return OfferStart, ""
		}
		return Skip, ""
	}
	if sess.Status != domain.StatusPlaying {
		return Skip, ""
	}

	switch {
	case msg.ReplyToPersona:
		return Process, msg.Text
	case strings.HasPrefix(msg.Text, e.cfg.CommandPrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(msg.Text, e.cfg.CommandPrefix))
		if rest == "" {
			return EmptyPrompt, ""
		}
		return Process, rest
	case strings.Contains(lower, strings.ToLower(e.cfg.PersonaName)):
		return Process, msg.Text
	case isTrigger:
		return Process, msg.Text
	}
	return Skip, ""
}

// ProcessMessage runs one gameplay message under the chat's exclusive
// lock: admission, persistence, the oracle reply and the instant-win
// scan. Two messages in the same chat are never in flight concurrently.
func (e *Engine) ProcessMessage(ctx context.Context, msg Incoming, text string) error {
	mu := e.sup.ChatLock(msg.ChatID)
	mu.Lock()
	defer mu.Unlock()

	// The game may have ended while this message waited for the lock.
	sess, err := e.store.ActiveSession(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if sess == nil || sess.Status != domain.StatusPlaying {
		return nil
	}

	sender := msg.participant()

	member, err := e.store.IsParticipant(ctx, msg.ChatID, msg.UserID)
	if err != nil {
		return err
	}
	if !member {
		count, err := e.store.CountParticipants(ctx, msg.ChatID)
		if err != nil {
			return err
		}
		if count >= e.cfg.RosterCapacity {
			return e.gateway.ReplyText(ctx, msg.ChatID, msg.MessageID, e.noRoomText())
		}
		if _, err := e.store.AddParticipant(ctx, sender); err != nil {
			return err
		}
		slog.Info("participant auto-admitted", "chat_id", msg.ChatID, "user_id", msg.UserID)
	}

	if err := e.store.AddMessage(ctx, domain.ParticipantMessage{
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		FirstName: msg.FirstName,
		Text:      text,
	}); err != nil {
		return err
	}

	history, err := e.store.RecentTurns(ctx, msg.ChatID, e.cfg.ContextWindow)
	if err != nil {
		return err
	}
	ordinal, err := e.store.CountMessagesByUser(ctx, msg.ChatID, msg.UserID)
	if err != nil {
		return err
	}
	stats, err := e.store.ParticipantStats(ctx, msg.ChatID)
	if err != nil {
		return err
	}

	display := sender.DisplayName()
	result := e.oracle.Reply(ctx, oracle.ReplyRequest{
		Difficulty:    sess.Difficulty,
		History:       history,
		SenderName:    display,
		SenderOrdinal: ordinal,
		Roster:        stats,
		Text:          text,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}

	switch result.Kind {
	case oracle.ReplySuppressed:
		// The persona is sulking: nothing recorded, nothing sent.
		slog.Info("reply suppressed", "chat_id", msg.ChatID, "user_id", msg.UserID)
		return nil
	case oracle.ReplyExhausted:
		// Every provider rate-limited: the game cannot proceed.
		return e.finishLocked(ctx, msg.ChatID, nil, e.overloadText(), OutcomeOverloaded)
	}

	if err := e.store.AddTurn(ctx, msg.ChatID, domain.RoleUser, display+": "+text); err != nil {
		return err
	}
	if err := e.store.AddTurn(ctx, msg.ChatID, domain.RoleAssistant, result.Text); err != nil {
		return err
	}
	if err := e.gateway.ReplyText(ctx, msg.ChatID, msg.MessageID, result.Text); err != nil {
		return err
	}

	if e.isInstantWin(result.Text) {
		winner := &domain.Winner{UserID: msg.UserID, DisplayName: display}
		return e.finishLocked(ctx, msg.ChatID, winner, e.winText(display, ""), OutcomeWon)
	}
	return nil
}

// isInstantWin checks a directly generated reply for both win trigger
// phrases. Verdict text never goes through this.
func (e *Engine) isInstantWin(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range e.cfg.WinPhrases {
		if !strings.Contains(lower, phrase) {
			return false
		}
	}
	return len(e.cfg.WinPhrases) > 0
}
