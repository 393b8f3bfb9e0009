package game

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPassiveTick is how often passive income is granted.
const DefaultPassiveTick = 30 * time.Second

// SessionRegistry is the view of the realtime layer the driver needs:
// who is connected right now, and a way to push an event at one of them.
// SendToUser reports false when the user has no active channel.
type SessionRegistry interface {
	ConnectedUserIDs() []int64
	SendToUser(userID int64, event string, payload any) bool
}

// PassiveIncome clicks on behalf of every connected user at a fixed
// interval and pushes the fresh score down that user's channel.
type PassiveIncome struct {
	svc      *Service
	sessions SessionRegistry
	interval time.Duration
	log      *slog.Logger
}

func NewPassiveIncome(svc *Service, sessions SessionRegistry, interval time.Duration, logger *slog.Logger) *PassiveIncome {
	if interval <= 0 {
		interval = DefaultPassiveTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PassiveIncome{
		svc:      svc,
		sessions: sessions,
		interval: interval,
		log:      logger,
	}
}

// Run loops until ctx is cancelled, checking the signal at the top of
// every iteration and during the sleep. In-flight per-user work is never
// interrupted mid-click.
func (p *PassiveIncome) Run(ctx context.Context) {
	p.log.Info("passive income driver started", "interval", p.interval.String())
	for {
		select {
		case <-ctx.Done():
			p.log.Info("passive income driver stopped")
			return
		default:
		}

		p.RunOnce(ctx)

		if err := sleepWithContext(ctx, p.interval); err != nil {
			p.log.Info("passive income driver stopped")
			return
		}
	}
}

// RunOnce applies one passive tick to every connected user. Per-user
// failures are logged and skipped so one broken progression cannot stall
// everyone else's income.
func (p *PassiveIncome) RunOnce(ctx context.Context) {
	userIDs := p.sessions.ConnectedUserIDs()
	for _, userID := range userIDs {
		if _, err := p.svc.Click(ctx, userID); err != nil {
			p.log.Error("passive click failed", "user_id", userID, "err", err)
			continue
		}
		progression, err := p.svc.GetProgression(ctx, userID)
		if err != nil {
			p.log.Error("passive progression fetch failed", "user_id", userID, "err", err)
			continue
		}
		if p.sessions.SendToUser(userID, "ScoreUpdate", map[string]any{"count": progression.Count}) {
			p.log.Debug("score update sent", "user_id", userID, "count", progression.Count)
		}
	}
	p.log.Info("passive income applied", "users", len(userIDs))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
