package game

import (
	"context"
	"log/slog"
	"sync"
)

// Phase discriminates what kind of background task a chat currently owns.
type Phase int

const (
	PhaseLobby Phase = iota + 1
	PhasePlaying
)

type taskHandle struct {
	phase          Phase
	lobbyMessageID int
	cancel         context.CancelFunc
	done           chan struct{}
}

// Supervisor is the single source of truth for what background task, if
// any, runs for each chat, plus the per-chat locks that serialize every
// mutation touching a chat's game state. At most one task handle exists
// per chat; Replace guarantees only one caller's task survives.
type Supervisor struct {
	base context.Context

	mu    sync.Mutex
	tasks map[int64]*taskHandle
	locks map[int64]*sync.Mutex
}

// NewSupervisor creates a supervisor whose tasks live under base; when
// base is cancelled every task is, too.
func NewSupervisor(base context.Context) *Supervisor {
	return &Supervisor{
		base:  base,
		tasks: make(map[int64]*taskHandle),
		locks: make(map[int64]*sync.Mutex),
	}
}

// ChatLock returns the chat's exclusive lock, creating it on first use.
func (s *Supervisor) ChatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	return l
}

// Replace cancels and discards the chat's current task, if any, and
// installs run as the new one.
func (s *Supervisor) Replace(chatID int64, phase Phase, lobbyMessageID int, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(s.base)
	handle := &taskHandle{
		phase:          phase,
		lobbyMessageID: lobbyMessageID,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	s.mu.Lock()
	old := s.tasks[chatID]
	s.tasks[chatID] = handle
	s.mu.Unlock()

	if old != nil {
		old.cancel()
	}

	go func() {
		defer close(handle.done)
		run(ctx)
	}()
}

// Clear cancels and removes the chat's task handle. Safe to call from
// inside the task itself.
func (s *Supervisor) Clear(chatID int64) {
	s.mu.Lock()
	handle := s.tasks[chatID]
	delete(s.tasks, chatID)
	s.mu.Unlock()

	if handle != nil {
		handle.cancel()
	}
}

// LobbyMessageID reports the lobby message attached to the chat's task,
// when the task is a lobby-phase one.
func (s *Supervisor) LobbyMessageID(chatID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.tasks[chatID]
	if !ok || handle.phase != PhaseLobby {
		return 0, false
	}
	return handle.lobbyMessageID, true
}

// Shutdown cancels every outstanding task and waits for each to stop, so
// nothing keeps running against a closed store or transport.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	handles := make([]*taskHandle, 0, len(s.tasks))
	for chatID, h := range s.tasks {
		handles = append(handles, h)
		delete(s.tasks, chatID)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		select {
		case <-h.done:
		case <-ctx.Done():
			slog.Warn("supervisor shutdown timed out waiting for tasks")
			return
		}
	}
	if len(handles) > 0 {
		slog.Info("cancelled active game tasks", "count", len(handles))
	}
}
