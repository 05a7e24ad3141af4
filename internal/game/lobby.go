package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/setkov/alisabot/internal/domain"
)

// CreateLobby starts a new session for the chat: retires any stale row,
// clears the chat's transcript and roster, admits the initiator and
// opens the lobby. With capacity 1 the lobby is skipped and play starts
// immediately.
func (e *Engine) CreateLobby(ctx context.Context, chatID int64, initiator domain.Participant, difficulty domain.Difficulty) error {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	active, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return err
	}
	if active != nil {
		return domain.ErrGameActive
	}

	sess, err := e.store.CreateSession(ctx, chatID, initiator, difficulty)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Info("lobby created", "chat_id", chatID, "difficulty", difficulty, "initiator", initiator.UserID)

	if e.cfg.RosterCapacity <= 1 {
		return e.startPlayingLocked(ctx, sess)
	}

	msgID, err := e.gateway.SendLobby(ctx, chatID, e.lobbyText(sess, 1))
	if err != nil {
		return fmt.Errorf("send lobby message: %w", err)
	}

	e.sup.Replace(chatID, PhaseLobby, msgID, func(taskCtx context.Context) {
		e.runLobbyTTL(taskCtx, chatID)
	})
	return nil
}

// Join admits a user to a waiting lobby. Returns false when the user was
// already admitted (a no-op, not an error). Reaching capacity auto-starts
// the game.
func (e *Engine) Join(ctx context.Context, chatID int64, user domain.Participant) (bool, error) {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.Status != domain.StatusWaiting {
		return false, domain.ErrNotWaiting
	}

	already, err := e.store.IsParticipant(ctx, chatID, user.UserID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	count, err := e.store.CountParticipants(ctx, chatID)
	if err != nil {
		return false, err
	}
	if count >= e.cfg.RosterCapacity {
		return false, domain.ErrLobbyFull
	}

	if _, err := e.store.AddParticipant(ctx, user); err != nil {
		return false, err
	}
	count++
	slog.Info("participant joined", "chat_id", chatID, "user_id", user.UserID, "roster", count)

	if count >= e.cfg.RosterCapacity {
		return true, e.startPlayingLocked(ctx, sess)
	}

	if msgID, ok := e.sup.LobbyMessageID(chatID); ok {
		if err := e.gateway.EditLobby(ctx, chatID, msgID, e.lobbyText(sess, count)); err != nil {
			slog.Warn("update lobby message", "chat_id", chatID, "error", err)
		}
	}
	return true, nil
}

// RequestStart begins play before the roster is full. Initiator only.
func (e *Engine) RequestStart(ctx context.Context, chatID, requesterID int64) error {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil || sess.Status != domain.StatusWaiting {
		return domain.ErrNotWaiting
	}
	if sess.InitiatorID != requesterID {
		return domain.ErrNotInitiator
	}
	return e.startPlayingLocked(ctx, sess)
}

// CancelLobby abandons a waiting lobby. Initiator only; the lobby-TTL
// task uses expireLobby instead.
func (e *Engine) CancelLobby(ctx context.Context, chatID, requesterID int64, requesterName string) error {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil || sess.Status != domain.StatusWaiting {
		return domain.ErrNotWaiting
	}
	if sess.InitiatorID != requesterID {
		return domain.ErrNotInitiator
	}

	msgID, hasMsg := e.sup.LobbyMessageID(chatID)
	if err := e.finishLocked(ctx, chatID, nil, "", OutcomeCancelled); err != nil {
		return err
	}
	if hasMsg {
		if err := e.gateway.EditText(ctx, chatID, msgID, e.lobbyCancelledText(requesterName)); err != nil {
			slog.Warn("edit cancelled lobby message", "chat_id", chatID, "error", err)
		}
	}
	return nil
}

// runLobbyTTL finishes a lobby nobody filled in time.
func (e *Engine) runLobbyTTL(ctx context.Context, chatID int64) {
	timer := time.NewTimer(e.cfg.LobbyTTL)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	e.expireLobby(ctx, chatID)
}

func (e *Engine) expireLobby(ctx context.Context, chatID int64) {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		slog.Error("lobby expiry check", "chat_id", chatID, "error", err)
		return
	}
	if sess == nil || sess.Status != domain.StatusWaiting {
		return
	}

	msgID, hasMsg := e.sup.LobbyMessageID(chatID)
	// finishLocked cancels this task's own context; detach so the final
	// edit still goes out.
	editCtx := context.WithoutCancel(ctx)
	if err := e.finishLocked(ctx, chatID, nil, "", OutcomeExpired); err != nil {
		slog.Error("expire lobby", "chat_id", chatID, "error", err)
		return
	}
	if hasMsg {
		if err := e.gateway.EditText(editCtx, chatID, msgID, e.lobbyExpiredText()); err != nil {
			slog.Warn("edit expired lobby message", "chat_id", chatID, "error", err)
		}
	}
}

// startPlayingLocked transitions waiting→playing, posts the intro and
// hands the chat over to the game clock. Caller holds the chat lock.
func (e *Engine) startPlayingLocked(ctx context.Context, sess *domain.GameSession) error {
	chatID := sess.ChatID

	if err := e.store.MarkPlaying(ctx, chatID); err != nil {
		return err
	}

	if msgID, ok := e.sup.LobbyMessageID(chatID); ok {
		if err := e.gateway.ClearMarkup(ctx, chatID, msgID); err != nil {
			slog.Warn("clear lobby markup", "chat_id", chatID, "error", err)
		}
	}

	// The clock is installed before the intro goes out: a failed send
	// must not leave a playing session with no task to resolve it.
	e.sup.Replace(chatID, PhasePlaying, 0, func(taskCtx context.Context) {
		e.runClock(taskCtx, chatID)
	})

	intro := e.introText(sess.Difficulty)
	if _, err := e.gateway.SendText(ctx, chatID, intro); err != nil {
		return fmt.Errorf("send intro: %w", err)
	}
	if err := e.store.AddTurn(ctx, chatID, domain.RoleAssistant, intro); err != nil {
		return err
	}

	e.events.GameStarted(chatID, sess.Difficulty)
	slog.Info("game started", "chat_id", chatID, "difficulty", sess.Difficulty)
	return nil
}
