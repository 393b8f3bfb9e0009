package game_test

import (
	"context"
	"sync"
	"testing"

	"clickrush/internal/game"
)

type fakeRegistry struct {
	mu   sync.Mutex
	ids  []int64
	sent map[int64][]string
}

func (f *fakeRegistry) ConnectedUserIDs() []int64 {
	return f.ids
}

func (f *fakeRegistry) SendToUser(userID int64, event string, _ any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[userID] = append(f.sent[userID], event)
	return true
}

func TestPassiveIncomeTick(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u := registerPlayer(t, svc, "player1")
	seedProgression(t, store, u.ID, 10, 2, 0, 3)

	reg := &fakeRegistry{ids: []int64{u.ID}}
	driver := game.NewPassiveIncome(svc, reg, game.DefaultPassiveTick, nil)
	driver.RunOnce(ctx)

	p, err := svc.GetProgression(ctx, u.ID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	// One passive tick is exactly one click: 10 + 2*(3+1).
	if p.Count != 18 {
		t.Fatalf("count=%d want 18", p.Count)
	}
	events := reg.sent[u.ID]
	if len(events) != 1 || events[0] != "ScoreUpdate" {
		t.Fatalf("expected one ScoreUpdate, got %v", events)
	}
}

func TestPassiveIncomeSkipsBrokenUsers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	broken := registerPlayer(t, svc, "ghost")
	healthy := registerPlayer(t, svc, "player2")
	seedProgression(t, store, healthy.ID, 0, 1, 0, 0)

	reg := &fakeRegistry{ids: []int64{broken.ID, healthy.ID}}
	driver := game.NewPassiveIncome(svc, reg, game.DefaultPassiveTick, nil)
	driver.RunOnce(ctx)

	// The user without a progression fails quietly; the tick still
	// reaches everyone after them.
	if len(reg.sent[broken.ID]) != 0 {
		t.Fatalf("broken user must not receive updates")
	}
	if len(reg.sent[healthy.ID]) != 1 {
		t.Fatalf("healthy user missed the tick: %v", reg.sent)
	}
	p, err := svc.GetProgression(ctx, healthy.ID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	if p.Count != 1 {
		t.Fatalf("count=%d want 1", p.Count)
	}
}

func TestPassiveIncomeNoConnections(t *testing.T) {
	svc, _ := newTestService(t)
	driver := game.NewPassiveIncome(svc, &fakeRegistry{}, game.DefaultPassiveTick, nil)
	// Nothing connected, nothing to do, no panic.
	driver.RunOnce(context.Background())
}
