package boss

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kasuganosora/hearthquest/cache"
	"github.com/kasuganosora/hearthquest/game/calendar"
	"github.com/kasuganosora/hearthquest/metrics"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/store"
)

// refreshParallelism bounds concurrent family rebuilds in RefreshAll.
const refreshParallelism = 4

// Leaderboard serves ranked standings, caching each (family, window) result.
type Leaderboard struct {
	uow    store.UnitOfWork
	scorer *Scorer
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewLeaderboard creates a Leaderboard. A zero ttl disables caching.
func NewLeaderboard(uow store.UnitOfWork, scorer *Scorer, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Leaderboard {
	return &Leaderboard{uow: uow, scorer: scorer, cache: c, ttl: ttl, logger: logger}
}

// TrailingWindow returns the days-long window ending at the next midnight
// after now in tz, so every request on the same local day shares a window.
func TrailingWindow(now time.Time, days int, tz string) (Window, error) {
	today, err := calendar.StartOfDay(now, tz)
	if err != nil {
		return Window{}, err
	}
	to := today.AddDate(0, 0, 1)
	return Window{From: to.AddDate(0, 0, -days), To: to}, nil
}

func cacheKey(familyID int64, w Window) string {
	return fmt.Sprintf("boss:leaderboard:%d:%d:%d", familyID, w.From.Unix(), w.To.Unix())
}

// Top returns at most limit standings for familyID over w.
func (lb *Leaderboard) Top(ctx context.Context, familyID int64, w Window, limit int) ([]Standing, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	key := cacheKey(familyID, w)
	if lb.cache != nil && lb.ttl > 0 {
		if raw, err := lb.cache.Get(ctx, key); err == nil {
			var cached []Standing
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				metrics.LeaderboardBuilds.WithLabelValues("cache").Inc()
				return truncate(cached, limit), nil
			}
		} else if !cache.IsMiss(err) {
			lb.logger.Warn("leaderboard cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := lb.group.Do(key, func() (interface{}, error) {
		return lb.Build(ctx, familyID, w)
	})
	if err != nil {
		return nil, err
	}
	return truncate(v.([]Standing), limit), nil
}

// Build ranks familyID over w from the store and refreshes the cache entry.
func (lb *Leaderboard) Build(ctx context.Context, familyID int64, w Window) ([]Standing, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	battles, err := lb.uow.Battles().Settled(ctx, familyID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(battles))
	for i, b := range battles {
		ids[i] = b.ID
	}
	parts, err := lb.uow.Battles().Participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	userIDs := make([]int64, 0, len(parts))
	seen := make(map[int64]bool, len(parts))
	for _, p := range parts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			userIDs = append(userIDs, p.UserID)
		}
	}

	var (
		members []*model.Member
		chars   []*model.Character
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = lb.uow.Families().Members(gctx, familyID)
		return err
	})
	g.Go(func() error {
		var err error
		chars, err = lb.uow.Characters().ListByUsers(gctx, userIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := Input{
		Battles:      battles,
		Participants: parts,
		Classes:      make(map[int64]model.Class, len(chars)),
		Names:        make(map[int64]string, len(members)+len(chars)),
		Window:       w,
	}
	for _, c := range chars {
		in.Classes[c.UserID] = c.Class
		in.Names[c.UserID] = c.Name
	}
	for _, m := range members {
		in.Names[m.UserID] = m.DisplayName
	}
	standings := lb.scorer.Rank(in)
	metrics.LeaderboardBuilds.WithLabelValues("store").Inc()

	if lb.cache != nil && lb.ttl > 0 {
		if raw, err := json.Marshal(standings); err == nil {
			if err := lb.cache.Set(ctx, cacheKey(familyID, w), string(raw), lb.ttl); err != nil {
				lb.logger.Warn("leaderboard cache write failed", zap.Int64("family_id", familyID), zap.Error(err))
			}
		}
	}
	return standings, nil
}

// RefreshAll rebuilds every family's trailing window ending today in the
// family's timezone. It returns the number of families rebuilt.
func (lb *Leaderboard) RefreshAll(ctx context.Context, now time.Time, days int) (int, error) {
	families, err := lb.uow.Families().List(ctx)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshParallelism)
	for _, f := range families {
		f := f
		g.Go(func() error {
			w, err := TrailingWindow(now, days, f.Timezone)
			if err != nil {
				return fmt.Errorf("boss: family %d: %w", f.ID, err)
			}
			_, err = lb.Build(gctx, f.ID, w)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(families), nil
}

func truncate(s []Standing, limit int) []Standing {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
