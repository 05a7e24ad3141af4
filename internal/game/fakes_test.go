package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/oracle"
)

// memStore is an in-memory Store for engine tests. Its clock is shared
// with the engine so silence and duration math line up.
type memStore struct {
	mu    sync.Mutex
	now   func() time.Time
	sess  map[int64]*domain.GameSession
	parts map[int64][]domain.Participant
	msgs  map[int64][]domain.ParticipantMessage
	turns map[int64][]domain.ConversationTurn
}

func newMemStore() *memStore {
	return &memStore{
		now:   time.Now,
		sess:  make(map[int64]*domain.GameSession),
		parts: make(map[int64][]domain.Participant),
		msgs:  make(map[int64][]domain.ParticipantMessage),
		turns: make(map[int64][]domain.ConversationTurn),
	}
}

func (m *memStore) ActiveSession(ctx context.Context, chatID int64) (*domain.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sess[chatID]
	if !ok || s.Status == domain.StatusFinished {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) CreateSession(ctx context.Context, chatID int64, initiator domain.Participant, difficulty domain.Difficulty) (*domain.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.parts, chatID)
	delete(m.msgs, chatID)
	delete(m.turns, chatID)
	s := &domain.GameSession{
		ID:            uuid.New(),
		ChatID:        chatID,
		Status:        domain.StatusWaiting,
		Difficulty:    difficulty,
		InitiatorID:   initiator.UserID,
		InitiatorName: initiator.DisplayName(),
		StartedAt:     m.now(),
	}
	m.sess[chatID] = s
	m.parts[chatID] = []domain.Participant{initiator}
	cp := *s
	return &cp, nil
}

func (m *memStore) MarkPlaying(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sess[chatID]
	if !ok || s.Status != domain.StatusWaiting {
		return domain.ErrNotWaiting
	}
	s.Status = domain.StatusPlaying
	s.StartedAt = m.now()
	return nil
}

func (m *memStore) FinishSession(ctx context.Context, chatID int64, winner *domain.Winner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sess[chatID]
	if !ok || s.Status == domain.StatusFinished {
		return nil
	}
	s.Status = domain.StatusFinished
	endedAt := m.now()
	s.EndedAt = &endedAt
	if winner != nil {
		id := winner.UserID
		name := winner.DisplayName
		s.WinnerID = &id
		s.WinnerName = &name
	}
	return nil
}

func (m *memStore) AddParticipant(ctx context.Context, p domain.Participant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.parts[p.ChatID] {
		if existing.UserID == p.UserID {
			return false, nil
		}
	}
	m.parts[p.ChatID] = append(m.parts[p.ChatID], p)
	return true, nil
}

func (m *memStore) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parts[chatID] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountParticipants(ctx context.Context, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.parts[chatID]), nil
}

func (m *memStore) ParticipantStats(ctx context.Context, chatID int64) ([]domain.ParticipantStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int64]int)
	for _, msg := range m.msgs[chatID] {
		counts[msg.UserID]++
	}
	var stats []domain.ParticipantStat
	for _, p := range m.parts[chatID] {
		stats = append(stats, domain.ParticipantStat{
			UserID:       p.UserID,
			Username:     p.Username,
			FirstName:    p.FirstName,
			MessageCount: counts[p.UserID],
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].MessageCount > stats[j].MessageCount
	})
	return stats, nil
}

func (m *memStore) AddMessage(ctx context.Context, msg domain.ParticipantMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.msgs[msg.ChatID]) + 1)
	if msg.SentAt.IsZero() {
		msg.SentAt = m.now()
	}
	m.msgs[msg.ChatID] = append(m.msgs[msg.ChatID], msg)
	return nil
}

func (m *memStore) CountMessagesByUser(ctx context.Context, chatID, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs[chatID] {
		if msg.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Messages(ctx context.Context, chatID int64) ([]domain.ParticipantMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ParticipantMessage(nil), m.msgs[chatID]...), nil
}

func (m *memStore) LastMessageAt(ctx context.Context, chatID int64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	for _, msg := range m.msgs[chatID] {
		if msg.SentAt.After(last) {
			last = msg.SentAt
		}
	}
	if !last.IsZero() {
		return last, nil
	}
	s, ok := m.sess[chatID]
	if !ok || s.Status == domain.StatusFinished {
		return time.Time{}, domain.ErrNoActiveSession
	}
	return s.StartedAt, nil
}

func (m *memStore) AddTurn(ctx context.Context, chatID int64, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[chatID] = append(m.turns[chatID], domain.ConversationTurn{
		ID:        int64(len(m.turns[chatID]) + 1),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	})
	return nil
}

func (m *memStore) RecentTurns(ctx context.Context, chatID int64, limit int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[chatID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]domain.ConversationTurn(nil), turns...), nil
}

type sentMessage struct {
	chatID    int64
	messageID int
	text      string
}

// fakeGateway records every outbound call. A non-nil sendErr makes
// SendText fail until cleared.
type fakeGateway struct {
	mu      sync.Mutex
	nextID  int
	sendErr error
	sends   []sentMessage
	replies []sentMessage
	edits   []sentMessage
	lobbies []sentMessage
	cleared int
}

func (g *fakeGateway) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.nextID++
	g.sends = append(g.sends, sentMessage{chatID: chatID, messageID: g.nextID, text: text})
	return g.nextID, nil
}

func (g *fakeGateway) ReplyText(ctx context.Context, chatID int64, replyToID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, sentMessage{chatID: chatID, messageID: replyToID, text: text})
	return nil
}

func (g *fakeGateway) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, sentMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (g *fakeGateway) SendLobby(ctx context.Context, chatID int64, text string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.lobbies = append(g.lobbies, sentMessage{chatID: chatID, messageID: g.nextID, text: text})
	return g.nextID, nil
}

func (g *fakeGateway) EditLobby(ctx context.Context, chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lobbies = append(g.lobbies, sentMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (g *fakeGateway) ClearMarkup(ctx context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared++
	return nil
}

func (g *fakeGateway) setSendErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendErr = err
}

func (g *fakeGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sends))
	for i, s := range g.sends {
		out[i] = s.text
	}
	return out
}

// fakeOracle serves scripted replies and verdicts in order; when the
// script runs out it keeps serving the last entry.
type fakeOracle struct {
	mu           sync.Mutex
	replies      []oracle.ReplyResult
	verdicts     []*oracle.Verdict
	verdictErr   error
	replyCalls   int
	verdictCalls int
}

func (o *fakeOracle) Reply(ctx context.Context, req oracle.ReplyRequest) oracle.ReplyResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replyCalls++
	if len(o.replies) == 0 {
		return oracle.ReplyResult{Kind: oracle.ReplyNormal, Text: "ну допустим"}
	}
	r := o.replies[0]
	if len(o.replies) > 1 {
		o.replies = o.replies[1:]
	}
	return r
}

func (o *fakeOracle) DecideWinner(ctx context.Context, roster []domain.ParticipantStat, transcript []domain.ParticipantMessage, difficulty domain.Difficulty) (*oracle.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdictCalls++
	if o.verdictErr != nil {
		return nil, o.verdictErr
	}
	if len(o.verdicts) == 0 {
		return &oracle.Verdict{InLove: false, Reason: "пока никто"}, nil
	}
	v := o.verdicts[0]
	if len(o.verdicts) > 1 {
		o.verdicts = o.verdicts[1:]
	}
	return v, nil
}

type finishedEvent struct {
	chatID  int64
	outcome Outcome
	winner  string
}

type recordEvents struct {
	mu       sync.Mutex
	started  []int64
	finished []finishedEvent
}

func (r *recordEvents) GameStarted(chatID int64, difficulty domain.Difficulty) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, chatID)
}

func (r *recordEvents) GameFinished(chatID int64, outcome Outcome, winner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, finishedEvent{chatID: chatID, outcome: outcome, winner: winner})
}

func (r *recordEvents) finishedEvents() []finishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]finishedEvent(nil), r.finished...)
}

func testConfig() Config {
	return Config{
		PersonaName:     "Алиса",
		CommandPrefix:   "/say",
		StartTriggers:   []string{"алиса приходи"},
		RosterCapacity:  3,
		CheckInterval:   5 * time.Minute,
		GraceMargin:     30 * time.Second,
		MinGameDuration: 5 * time.Minute,
		MaxGameDurations: map[domain.Difficulty]time.Duration{
			domain.DifficultyEasy:   15 * time.Minute,
			domain.DifficultyMedium: 30 * time.Minute,
			domain.DifficultyHard:   time.Hour,
		},
		LobbyTTL:           5 * time.Minute,
		ContextWindow:      15,
		VerdictMinMessages: 3,
		WinPhrases:         []string{"я в тебя влюбилась", "хочу быть с тобой"},
	}
}

type testRig struct {
	engine  *Engine
	store   *memStore
	gateway *fakeGateway
	oracle  *fakeOracle
	sup     *Supervisor
	events  *recordEvents
}

func newTestRig(cfg Config) *testRig {
	store := newMemStore()
	gateway := &fakeGateway{}
	o := &fakeOracle{}
	sup := NewSupervisor(context.Background())
	events := &recordEvents{}
	return &testRig{
		engine:  NewEngine(cfg, store, gateway, o, sup, events),
		store:   store,
		gateway: gateway,
		oracle:  o,
		sup:     sup,
		events:  events,
	}
}

// setClock pins both the engine's and the store's notion of now.
func (r *testRig) setClock(t time.Time) {
	r.engine.now = func() time.Time { return t }
	r.store.now = func() time.Time { return t }
}

func player(chatID, userID int64, name string) domain.Participant {
	return domain.Participant{ChatID: chatID, UserID: userID, FirstName: name}
}
