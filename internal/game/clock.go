package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/oracle"
)

// runClock is the per-session timing loop: it wakes every CheckInterval
// and enforces the silence window, the maximum duration and the gated
// interim winner evaluation. Cancellable at every suspension point.
func (e *Engine) runClock(ctx context.Context, chatID int64) {
	log := slog.With("chat_id", chatID)
	for {
		select {
		case <-ctx.Done():
			log.Info("game clock cancelled")
			return
		case <-time.After(e.cfg.CheckInterval):
		}

		done, err := e.clockTick(ctx, chatID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("game clock tick", "error", err)
			continue
		}
		if done {
			return
		}
	}
}

// clockTick runs one evaluation under the chat lock. Reports done when
// the loop should stop: the session ended, here or elsewhere.
func (e *Engine) clockTick(ctx context.Context, chatID int64) (bool, error) {
	mu := e.sup.ChatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.ActiveSession(ctx, chatID)
	if err != nil {
		return false, err
	}
	// Another path already finished the game while we slept.
	if sess == nil || sess.Status != domain.StatusPlaying {
		return true, nil
	}

	now := e.now()

	lastAt, err := e.store.LastMessageAt(ctx, chatID)
	if err != nil {
		return false, err
	}
	if now.Sub(lastAt) > e.cfg.CheckInterval+e.cfg.GraceMargin {
		return true, e.finishLocked(ctx, chatID, nil, e.inactivityText(), OutcomeInactive)
	}

	elapsed := now.Sub(sess.StartedAt)
	if elapsed >= e.cfg.MaxDuration(sess.Difficulty) {
		return true, e.resolveTimeout(ctx, chatID, sess)
	}

	// Interim verdicts only once the oracle has enough context: a
	// minimum of game time and of messages from the most active player.
	if elapsed >= e.cfg.MinGameDuration {
		stats, err := e.store.ParticipantStats(ctx, chatID)
		if err != nil {
			return false, err
		}
		if len(stats) > 0 && stats[0].MessageCount >= e.cfg.VerdictMinMessages {
			return e.tryInterimVerdict(ctx, chatID, sess, stats)
		}
	}
	return false, nil
}

func (e *Engine) tryInterimVerdict(ctx context.Context, chatID int64, sess *domain.GameSession, stats []domain.ParticipantStat) (bool, error) {
	verdict, err := e.requestVerdict(ctx, chatID, sess, stats)
	if ctx.Err() != nil {
		return true, ctx.Err()
	}
	if err != nil {
		// A failed verdict call only delays evaluation to the next tick.
		slog.Warn("interim verdict failed", "chat_id", chatID, "error", err)
		return false, nil
	}
	if verdict == nil || !verdict.InLove {
		return false, nil
	}
	winner := matchWinner(verdict, stats)
	if winner == nil {
		return false, nil
	}
	return true, e.finishLocked(ctx, chatID, winner, e.winText(winner.DisplayName, verdict.Reason), OutcomeWon)
}

// resolveTimeout ends a session that hit its maximum duration, with a
// final verdict over the full transcript deciding whether anyone won.
func (e *Engine) resolveTimeout(ctx context.Context, chatID int64, sess *domain.GameSession) error {
	stats, err := e.store.ParticipantStats(ctx, chatID)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return e.finishLocked(ctx, chatID, nil, e.timeoutEmptyText(), OutcomeTimeout)
	}

	verdict, err := e.requestVerdict(ctx, chatID, sess, stats)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		slog.Warn("final verdict failed", "chat_id", chatID, "error", err)
	}

	if verdict != nil && verdict.InLove {
		if winner := matchWinner(verdict, stats); winner != nil {
			return e.finishLocked(ctx, chatID, winner, e.winText(winner.DisplayName, verdict.Reason), OutcomeWon)
		}
	}

	reason := ""
	if verdict != nil {
		reason = verdict.Reason
	}
	return e.finishLocked(ctx, chatID, nil, e.timeoutNoWinnerText(reason), OutcomeTimeout)
}

func (e *Engine) requestVerdict(ctx context.Context, chatID int64, sess *domain.GameSession, stats []domain.ParticipantStat) (*oracle.Verdict, error) {
	transcript, err := e.store.Messages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return e.oracle.DecideWinner(ctx, stats, transcript, sess.Difficulty)
}

// matchWinner resolves the verdict's winner id against the roster; a
// verdict naming an unknown user counts as no winner.
func matchWinner(verdict *oracle.Verdict, stats []domain.ParticipantStat) *domain.Winner {
	if verdict.WinnerID == nil {
		return nil
	}
	for _, s := range stats {
		if s.UserID == *verdict.WinnerID {
			return &domain.Winner{UserID: s.UserID, DisplayName: s.DisplayName()}
		}
	}
	return nil
}
