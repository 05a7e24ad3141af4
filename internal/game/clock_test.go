package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/setkov/alisabot/internal/domain"
	"github.com/setkov/alisabot/internal/oracle"
)

var clockT0 = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

// startPlayingGame opens a lobby at t0 and starts play with just the
// initiator on the roster. With capacity 1 the lobby phase never
// happens, so the explicit start is skipped.
func startPlayingGame(t *testing.T, rig *testRig, t0 time.Time) {
	t.Helper()
	rig.setClock(t0)
	if err := rig.engine.CreateLobby(context.Background(), 100, player(100, 1, "Петя"), domain.DifficultyEasy); err != nil {
		t.Fatalf("create lobby: %v", err)
	}

	sess, err := rig.engine.Session(context.Background(), 100)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess == nil {
		t.Fatal("expected an active session")
	}
	if sess.Status == domain.StatusWaiting {
		if err := rig.engine.RequestStart(context.Background(), 100, 1); err != nil {
			t.Fatalf("start game: %v", err)
		}
	}
}

func addMessageAt(t *testing.T, rig *testRig, userID int64, text string, at time.Time) {
	t.Helper()
	err := rig.store.AddMessage(context.Background(), domain.ParticipantMessage{
		ChatID:    100,
		UserID:    userID,
		FirstName: "Петя",
		Text:      text,
		SentAt:    at,
	})
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
}

func TestClockEndsSilentGame(t *testing.T) {
	rig := newTestRig(testConfig())
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	// Nobody spoke since the intro; silence runs from game start.
	rig.setClock(clockT0.Add(6 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !done {
		t.Fatal("expected the clock to stop")
	}

	sess, _ := rig.engine.Session(context.Background(), 100)
	if sess != nil {
		t.Fatalf("expected finished session, got %+v", sess)
	}

	finished := rig.events.finishedEvents()
	if len(finished) != 1 || finished[0].outcome != OutcomeInactive {
		t.Fatalf("expected one inactive event, got %+v", finished)
	}
	if finished[0].winner != "" {
		t.Fatalf("inactivity must have no winner, got %q", finished[0].winner)
	}
	if rig.oracle.verdictCalls != 0 {
		t.Fatal("inactivity must not consult the oracle")
	}
}

func TestClockSkipsVerdictBelowMessageGate(t *testing.T) {
	rig := newTestRig(testConfig())
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	addMessageAt(t, rig, 1, "привет", clockT0.Add(5*time.Minute))
	addMessageAt(t, rig, 1, "как дела", clockT0.Add(6*time.Minute))
	rig.setClock(clockT0.Add(6 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if done {
		t.Fatal("game must keep running")
	}
	if rig.oracle.verdictCalls != 0 {
		t.Fatalf("verdict gate ignored: %d calls", rig.oracle.verdictCalls)
	}
}

func TestClockInterimVerdictDeclaresWinner(t *testing.T) {
	rig := newTestRig(testConfig())
	winnerID := int64(1)
	rig.oracle.verdicts = []*oracle.Verdict{
		{InLove: true, WinnerID: &winnerID, Reason: "он смешной"},
	}
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	for i := 0; i < 3; i++ {
		addMessageAt(t, rig, 1, "анекдот", clockT0.Add(5*time.Minute))
	}
	rig.setClock(clockT0.Add(6 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !done {
		t.Fatal("expected the clock to stop after a win")
	}

	finished := rig.events.finishedEvents()
	if len(finished) != 1 || finished[0].outcome != OutcomeWon {
		t.Fatalf("expected one won event, got %+v", finished)
	}
	if !strings.Contains(finished[0].winner, "Петя") {
		t.Fatalf("unexpected winner %q", finished[0].winner)
	}

	texts := rig.gateway.sentTexts()
	if len(texts) != 2 { // intro + announcement
		t.Fatalf("expected intro and one announcement, got %v", texts)
	}
	if !strings.Contains(texts[1], "он смешной") {
		t.Fatalf("announcement must carry the reason, got %q", texts[1])
	}
}

func TestClockIgnoresVerdictForUnknownUser(t *testing.T) {
	rig := newTestRig(testConfig())
	strangerID := int64(999)
	rig.oracle.verdicts = []*oracle.Verdict{
		{InLove: true, WinnerID: &strangerID, Reason: "загадочный незнакомец"},
	}
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	for i := 0; i < 3; i++ {
		addMessageAt(t, rig, 1, "привет", clockT0.Add(5*time.Minute))
	}
	rig.setClock(clockT0.Add(6 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if done {
		t.Fatal("a verdict for an unknown user must not end the game")
	}
	if len(rig.events.finishedEvents()) != 0 {
		t.Fatal("no finish expected")
	}
}

func TestClockVerdictErrorDelaysEvaluation(t *testing.T) {
	rig := newTestRig(testConfig())
	rig.oracle.verdictErr = errors.New("boom")
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	for i := 0; i < 3; i++ {
		addMessageAt(t, rig, 1, "привет", clockT0.Add(5*time.Minute))
	}
	rig.setClock(clockT0.Add(6 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick must swallow verdict errors, got %v", err)
	}
	if done {
		t.Fatal("a failed verdict must not end the game")
	}
}

func TestClockTimeoutWithoutLove(t *testing.T) {
	rig := newTestRig(testConfig())
	rig.oracle.verdicts = []*oracle.Verdict{
		{InLove: false, Reason: "все какие-то скучные"},
	}
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	// Keep chatter recent so only the duration cap fires. Easy caps at 15m.
	addMessageAt(t, rig, 1, "я стараюсь", clockT0.Add(15*time.Minute))
	rig.setClock(clockT0.Add(16 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !done {
		t.Fatal("expected the clock to stop at the duration cap")
	}

	finished := rig.events.finishedEvents()
	if len(finished) != 1 || finished[0].outcome != OutcomeTimeout {
		t.Fatalf("expected one timeout event, got %+v", finished)
	}

	texts := rig.gateway.sentTexts()
	if len(texts) != 2 || !strings.Contains(texts[1], "все какие-то скучные") {
		t.Fatalf("timeout announcement must carry the reason, got %v", texts)
	}
}

func TestClockTimeoutWithLateWinner(t *testing.T) {
	rig := newTestRig(testConfig())
	winnerID := int64(1)
	rig.oracle.verdicts = []*oracle.Verdict{
		{InLove: true, WinnerID: &winnerID, Reason: "дожал в последний момент"},
	}
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	addMessageAt(t, rig, 1, "последний шанс", clockT0.Add(15*time.Minute))
	rig.setClock(clockT0.Add(16 * time.Minute))

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !done {
		t.Fatal("expected the clock to stop")
	}

	finished := rig.events.finishedEvents()
	if len(finished) != 1 || finished[0].outcome != OutcomeWon {
		t.Fatalf("expected one won event, got %+v", finished)
	}
}

func TestClockStopsWhenGameAlreadyOver(t *testing.T) {
	rig := newTestRig(testConfig())
	startPlayingGame(t, rig, clockT0)
	defer rig.sup.Clear(100)

	if err := rig.store.FinishSession(context.Background(), 100, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	done, err := rig.engine.clockTick(context.Background(), 100)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !done {
		t.Fatal("tick against a finished session must stop the clock")
	}
	if len(rig.events.finishedEvents()) != 0 {
		t.Fatal("no duplicate finish expected")
	}
}
