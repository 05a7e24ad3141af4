package domain

import (
	"fmt"
	"time"
)

// Participant is a (chat, user) pair admitted to the roster. Admission is
// idempotent; participants are never removed while the session lives.
type Participant struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	JoinedAt  time.Time
}

// ParticipantStat is the engagement digest fed to the oracle, ordered by
// message count descending.
type ParticipantStat struct {
	UserID       int64
	Username     string
	FirstName    string
	MessageCount int
}

// DisplayName renders "First (@username)" the way the persona refers to
// players in chat.
func DisplayName(firstName, username string) string {
	if firstName == "" {
		firstName = "Аноним"
	}
	if username == "" {
		return firstName
	}
	return fmt.Sprintf("%s (@%s)", firstName, username)
}

func (p Participant) DisplayName() string {
	return DisplayName(p.FirstName, p.Username)
}

func (s ParticipantStat) DisplayName() string {
	return DisplayName(s.FirstName, s.Username)
}
