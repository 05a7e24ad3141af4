package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusPlaying  SessionStatus = "playing"
	StatusFinished SessionStatus = "finished"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return "", false
}

// GameSession is one play-through of the game for a chat. At most one
// session per chat may be in a non-finished status.
type GameSession struct {
	ID            uuid.UUID
	ChatID        int64
	Status        SessionStatus
	Difficulty    Difficulty
	InitiatorID   int64
	InitiatorName string
	StartedAt     time.Time
	EndedAt       *time.Time
	WinnerID      *int64
	WinnerName    *string
}

// Winner identifies the participant the persona fell for.
type Winner struct {
	UserID      int64
	DisplayName string
}
