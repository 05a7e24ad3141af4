package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/setkov/alisabot/internal/domain"
)

// Store is the session-store client: row-level access over sessions,
// participants, messages and conversation turns. It owns no game logic;
// serialization is the caller's job (per-chat locks in the game engine).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const sessionColumns = `id, chat_id, status, difficulty, initiator_id, initiator_name, started_at, ended_at, winner_id, winner_name`

func scanSession(row pgx.Row) (*domain.GameSession, error) {
	var s domain.GameSession
	err := row.Scan(&s.ID, &s.ChatID, &s.Status, &s.Difficulty, &s.InitiatorID,
		&s.InitiatorName, &s.StartedAt, &s.EndedAt, &s.WinnerID, &s.WinnerName)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveSession returns the non-finished session for the chat, or nil.
func (s *Store) ActiveSession(ctx context.Context, chatID int64) (*domain.GameSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE chat_id = $1 AND status <> 'finished'`,
		chatID)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return sess, nil
}

// CreateSession retires any stale non-finished session for the chat,
// purges the chat's roster and transcript, and inserts a fresh waiting
// session with the initiator already admitted.
func (s *Store) CreateSession(ctx context.Context, chatID int64, initiator domain.Participant, difficulty domain.Difficulty) (*domain.GameSession, error) {
	if _, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = 'finished', ended_at = NOW() WHERE chat_id = $1 AND status <> 'finished'`,
		chatID); err != nil {
		return nil, fmt.Errorf("retire stale session: %w", err)
	}

	for _, table := range []string{"participant_messages", "conversation_turns", "game_participants"} {
		if _, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE chat_id = $1`, chatID); err != nil {
			return nil, fmt.Errorf("purge %s: %w", table, err)
		}
	}

	id := uuid.New()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO game_sessions (id, chat_id, status, difficulty, initiator_id, initiator_name)
		 VALUES ($1, $2, 'waiting', $3, $4, $5)
		 RETURNING `+sessionColumns,
		id, chatID, difficulty, initiator.UserID, initiator.DisplayName())
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if _, err := s.AddParticipant(ctx, initiator); err != nil {
		return nil, err
	}
	return sess, nil
}

// MarkPlaying transitions the chat's waiting session to playing and
// restarts its clock from now.
func (s *Store) MarkPlaying(ctx context.Context, chatID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = 'playing', started_at = NOW() WHERE chat_id = $1 AND status = 'waiting'`,
		chatID)
	if err != nil {
		return fmt.Errorf("mark playing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotWaiting
	}
	return nil
}

// FinishSession ends the chat's active session, recording the winner when
// there is one. Finishing an already finished session is a no-op.
func (s *Store) FinishSession(ctx context.Context, chatID int64, winner *domain.Winner) error {
	var winnerID *int64
	var winnerName *string
	if winner != nil {
		winnerID = &winner.UserID
		winnerName = &winner.DisplayName
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = 'finished', ended_at = NOW(), winner_id = $2, winner_name = $3
		 WHERE chat_id = $1 AND status <> 'finished'`,
		chatID, winnerID, winnerName)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// AddParticipant admits a user to the roster. Returns false when the user
// was already admitted.
func (s *Store) AddParticipant(ctx context.Context, p domain.Participant) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO game_participants (chat_id, user_id, username, first_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id, user_id) DO NOTHING`,
		p.ChatID, p.UserID, p.Username, p.FirstName)
	if err != nil {
		return false, fmt.Errorf("add participant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return exists, nil
}

func (s *Store) CountParticipants(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM game_participants WHERE chat_id = $1`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// ParticipantStats returns the roster with per-user message counts,
// most active first.
func (s *Store) ParticipantStats(ctx context.Context, chatID int64) ([]domain.ParticipantStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.user_id, p.username, p.first_name, COUNT(m.id)
		 FROM game_participants p
		 LEFT JOIN participant_messages m ON m.chat_id = p.chat_id AND m.user_id = p.user_id
		 WHERE p.chat_id = $1
		 GROUP BY p.user_id, p.username, p.first_name
		 ORDER BY COUNT(m.id) DESC, p.user_id`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("participant stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.ParticipantStat
	for rows.Next() {
		var st domain.ParticipantStat
		if err := rows.Scan(&st.UserID, &st.Username, &st.FirstName, &st.MessageCount); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Store) AddMessage(ctx context.Context, m domain.ParticipantMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participant_messages (chat_id, user_id, username, first_name, message)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ChatID, m.UserID, m.Username, m.FirstName, m.Text)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

func (s *Store) CountMessagesByUser(ctx context.Context, chatID, userID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM participant_messages WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Messages returns the chat's transcript in send order.
func (s *Store) Messages(ctx context.Context, chatID int64) ([]domain.ParticipantMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, user_id, username, first_name, message, sent_at
		 FROM participant_messages WHERE chat_id = $1 ORDER BY sent_at, id`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.ParticipantMessage
	for rows.Next() {
		var m domain.ParticipantMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FirstName, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LastMessageAt reports when the chat last saw a participant message,
// falling back to the active session's start when there are none.
func (s *Store) LastMessageAt(ctx context.Context, chatID int64) (time.Time, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(sent_at) FROM participant_messages WHERE chat_id = $1`, chatID).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("last message time: %w", err)
	}
	if last != nil {
		return *last, nil
	}

	var started time.Time
	err = s.pool.QueryRow(ctx,
		`SELECT started_at FROM game_sessions WHERE chat_id = $1 AND status <> 'finished'`,
		chatID).Scan(&started)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, domain.ErrNoActiveSession
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("session start time: %w", err)
	}
	return started, nil
}

func (s *Store) AddTurn(ctx context.Context, chatID int64, role, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (chat_id, role, content) VALUES ($1, $2, $3)`,
		chatID, role, content)
	if err != nil {
		return fmt.Errorf("add turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last limit turns in chronological order.
func (s *Store) RecentTurns(ctx context.Context, chatID int64, limit int) ([]domain.ConversationTurn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, role, content, created_at FROM (
		     SELECT id, chat_id, role, content, created_at
		     FROM conversation_turns WHERE chat_id = $1 ORDER BY id DESC LIMIT $2
		 ) t ORDER BY id`,
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
