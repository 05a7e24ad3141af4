package domain

import "time"

// ParticipantMessage is an utterance attributed to a participant.
// Append-only; ordering by SentAt is the only ordering observed.
type ParticipantMessage struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Text      string
	SentAt    time.Time
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is one (role, content) pair of the dialogue shown to
// the oracle. Persona turns have no participant attached.
type ConversationTurn struct {
	ID        int64
	ChatID    int64
	Role      string
	Content   string
	CreatedAt time.Time
}
