package game

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// resetBaseCost and resetCostGrowth drive the prestige price curve:
// 100 * 1.5^(multiplier-1).
const (
	resetBaseCost   = 100.0
	resetCostGrowth = 1.5
)

type Service struct {
	store      Store
	scores     *HighScoreCache
	log        *slog.Logger
	feedURL    string
	httpClient *http.Client
}

// NewService wires the engines to their collaborators. feedURL is the
// external items feed consumed by SeedItems; it may be empty if seeding
// is never called.
func NewService(store Store, scores *HighScoreCache, feedURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if scores == nil {
		scores = NewHighScoreCache()
	}
	return &Service{
		store:   store,
		scores:  scores,
		log:     logger,
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Scores exposes the high-score cache for teardown between isolated runs.
func (s *Service) Scores() *HighScoreCache { return s.scores }

// Click applies one click to the user's progression: count grows by
// multiplier*(bonus+1), the personal best tracks count, and a new global
// record is reported unless the clicker already holds it. The progression
// is persisted even when the click is discarded by the overflow guard, so
// the clamp sticks.
func (s *Service) Click(ctx context.Context, userID int64) (ClickResult, error) {
	var out ClickResult

	p, err := s.store.ProgressionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, NewError(CodeNoProgression, http.StatusNotFound)
		}
		return out, err
	}

	// Floor against any prior negative drift before the bonus is used.
	if p.TotalClickValue < 0 {
		p.TotalClickValue = 0
	}

	bonus, ok := addInt64(p.TotalClickValue, 1)
	var delta, next int64
	if ok {
		delta, ok = mulInt64(p.Multiplier, bonus)
	}
	if ok {
		next, ok = addInt64(p.Count, delta)
	}
	if ok && next > 0 {
		p.Count = next
	} else {
		s.log.Warn("click discarded by overflow guard", "user_id", userID, "count", p.Count)
		if p.Count < 0 {
			p.Count = 0
		}
	}

	if p.Count > p.BestScore {
		p.BestScore = p.Count
		newRecord, err := s.scores.Update(ctx, userID, p.BestScore, s.scanTopBestScore)
		if err != nil {
			return out, err
		}
		if newRecord {
			out.IsNewHighScore = true
			if user, err := s.store.UserByID(ctx, userID); err == nil {
				out.Username = user.Username
			} else if !errors.Is(err, ErrNotFound) {
				return out, err
			}
			s.log.Info("new global high score", "score", p.BestScore, "user_id", userID)
		}
	}

	if err := s.store.SaveProgression(ctx, &p); err != nil {
		return out, err
	}

	out.Game = Game{Count: p.Count, Multiplier: p.Multiplier}
	out.NewBestScore = p.BestScore
	return out, nil
}

// scanTopBestScore is the lazy-population scan the cache runs under its
// lock on first use.
func (s *Service) scanTopBestScore(ctx context.Context) (int64, int64, bool, error) {
	top, err := s.store.TopProgression(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return top.BestScore, top.UserID, true, nil
}

func (s *Service) GetProgression(ctx context.Context, userID int64) (Progression, error) {
	p, err := s.store.ProgressionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Progression{}, NewError(CodeNoProgression, http.StatusNotFound)
		}
		return Progression{}, err
	}
	return p, nil
}

// InitializeProgression creates the user's progression row. Fails when
// one already exists.
func (s *Service) InitializeProgression(ctx context.Context, userID int64) (Progression, error) {
	_, err := s.store.ProgressionByUserID(ctx, userID)
	if err == nil {
		return Progression{}, NewError(CodeProgressionExists, http.StatusBadRequest)
	}
	if !errors.Is(err, ErrNotFound) {
		return Progression{}, err
	}

	p := Progression{
		UserID:     userID,
		Count:      0,
		Multiplier: 1,
		BestScore:  0,
	}
	if err := s.store.CreateProgression(ctx, &p); err != nil {
		return Progression{}, err
	}
	s.log.Info("progression initialized", "user_id", userID)
	return p, nil
}

// ResetProgression performs the prestige reset: it charges the escalating
// cost, wipes the inventory, bumps the multiplier and carries the score
// into the best-score watermark.
func (s *Service) ResetProgression(ctx context.Context, userID int64) (ResetResult, error) {
	var out ResetResult

	p, err := s.store.ProgressionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, NewError(CodeNoProgression, http.StatusBadRequest)
		}
		return out, err
	}

	cost := resetCost(p.Multiplier)
	if float64(p.Count) < cost {
		return out, NewError(CodeInsufficientClicks, http.StatusBadRequest)
	}

	if user, err := s.store.UserByID(ctx, userID); err == nil {
		out.Username = user.Username
	} else if !errors.Is(err, ErrNotFound) {
		return out, err
	}
	out.ScoreBeforeReset = p.Count

	if err := s.store.DeleteInventoryByUserID(ctx, userID); err != nil {
		return out, err
	}

	p.Multiplier++
	if p.Count > p.BestScore {
		p.BestScore = p.Count
	}
	p.Count = 0
	p.TotalClickValue = 0
	if err := s.store.SaveProgression(ctx, &p); err != nil {
		return out, err
	}

	s.log.Info("progression reset", "user_id", userID, "multiplier", p.Multiplier)
	out.Progression = p
	return out, nil
}

// GetResetCost quotes the prestige price without mutating anything.
func (s *Service) GetResetCost(ctx context.Context, userID int64) (ResetCost, error) {
	p, err := s.store.ProgressionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ResetCost{}, NewError(CodeNoProgression, http.StatusBadRequest)
		}
		return ResetCost{}, err
	}
	return ResetCost{Cost: int64(resetCost(p.Multiplier))}, nil
}

func resetCost(multiplier int64) float64 {
	return resetBaseCost * math.Pow(resetCostGrowth, float64(multiplier-1))
}

// BestScores returns the current leaderboard head straight from the
// store, ignoring the in-process cache.
func (s *Service) BestScores(ctx context.Context) (BestScore, error) {
	top, err := s.store.TopProgression(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return BestScore{}, NewError(CodeNoProgressions, http.StatusNotFound)
		}
		return BestScore{}, err
	}
	return BestScore{UserID: top.UserID, BestScore: top.BestScore}, nil
}

// addInt64 returns a+b and whether the sum stayed in range.
func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// mulInt64 returns a*b and whether the product stayed in range.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	prod := a * b
	if prod/b != a {
		return 0, false
	}
	return prod, true
}
