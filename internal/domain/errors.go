package domain

import "errors"

var (
	ErrGameActive      = errors.New("game already active in this chat")
	ErrNoActiveSession = errors.New("no active session")
	ErrNotWaiting      = errors.New("session is not waiting for players")
	ErrLobbyFull       = errors.New("lobby is full")
	ErrNotInitiator    = errors.New("only the initiator may do this")
)
