// Package boss scores participation in settled boss battles and ranks a
// family's members over a time window.
package boss

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/model"
)

// scoreEpsilon absorbs float summation noise when comparing totals.
const scoreEpsilon = 1e-9

// Window is the half-open interval [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate requires From before To.
func (w Window) Validate() error {
	if !w.From.Before(w.To) {
		return errs.InvalidInput("window", "from must be before to")
	}
	return nil
}

// Contains reports whether t is inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Standing is one member's aggregate over the window.
type Standing struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	AwardedXP   int64   `json:"awarded_xp"`
	AwardedGold int64   `json:"awarded_gold"`
	Battles     int     `json:"battles"`
}

// Input is everything Rank needs; it performs no I/O.
type Input struct {
	Battles      []*model.BossBattle
	Participants []*model.BossBattleParticipant
	Classes      map[int64]model.Class // by user id
	Names        map[int64]string      // by user id
	Window       Window
}

// Scorer scores participations against a class bonus table.
type Scorer struct {
	rewards *reward.Resolver
}

// NewScorer creates a Scorer.
func NewScorer(rewards *reward.Resolver) *Scorer {
	return &Scorer{rewards: rewards}
}

// Qualifies reports whether a battle counts toward a leaderboard for w.
func Qualifies(b *model.BossBattle, w Window) bool {
	return b.Status == model.BossStatusDefeated &&
		b.RewardsDistributed &&
		b.DefeatedAt != nil &&
		w.Contains(*b.DefeatedAt)
}

// Score returns a participant's credit for one battle in [0, 1]: 1 for
// APPROVED, the mean awarded fraction of full xp and gold for PARTIAL,
// 0 otherwise.
func (s *Scorer) Score(b *model.BossBattle, p *model.BossBattleParticipant, class model.Class) float64 {
	switch p.Participation {
	case model.ParticipationApproved:
		return 1
	case model.ParticipationPartial:
		fullXP := s.rewards.Adjusted(b.BaseRewardXP, class, reward.ResourceXP)
		fullGold := s.rewards.Adjusted(b.BaseRewardGold, class, reward.ResourceGold)
		return (fraction(p.AwardedXP, fullXP) + fraction(p.AwardedGold, fullGold)) / 2
	default:
		return 0
	}
}

func fraction(awarded, full int64) float64 {
	if full <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(awarded)/float64(full)))
}

// Rank aggregates scores per user over qualifying battles and orders them by
// score, then awarded xp, then awarded gold (all descending), then name.
func (s *Scorer) Rank(in Input) []Standing {
	battles := make(map[int64]*model.BossBattle, len(in.Battles))
	for _, b := range in.Battles {
		if Qualifies(b, in.Window) {
			battles[b.ID] = b
		}
	}

	parts := append([]*model.BossBattleParticipant(nil), in.Participants...)
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].BattleID != parts[j].BattleID {
			return parts[i].BattleID < parts[j].BattleID
		}
		return parts[i].UserID < parts[j].UserID
	})

	byUser := make(map[int64]*Standing)
	for _, p := range parts {
		b, ok := battles[p.BattleID]
		if !ok {
			continue
		}
		st, ok := byUser[p.UserID]
		if !ok {
			st = &Standing{UserID: p.UserID, Name: displayName(in.Names, p.UserID)}
			byUser[p.UserID] = st
		}
		st.Score += s.Score(b, p, in.Classes[p.UserID])
		st.AwardedXP += p.AwardedXP
		st.AwardedGold += p.AwardedGold
		st.Battles++
	}

	out := make([]Standing, 0, len(byUser))
	for _, st := range byUser {
		out = append(out, *st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if d := a.Score - b.Score; math.Abs(d) > scoreEpsilon {
			return d > 0
		}
		if a.AwardedXP != b.AwardedXP {
			return a.AwardedXP > b.AwardedXP
		}
		if a.AwardedGold != b.AwardedGold {
			return a.AwardedGold > b.AwardedGold
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UserID < b.UserID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func displayName(names map[int64]string, userID int64) string {
	if n, ok := names[userID]; ok && n != "" {
		return n
	}
	return "user-" + strconv.FormatInt(userID, 10)
}
