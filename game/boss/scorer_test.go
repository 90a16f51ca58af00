package boss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/model"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	r, err := reward.NewResolver(reward.DefaultClassTable())
	require.NoError(t, err)
	return NewScorer(r)
}

var (
	from = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func battle(id int64, at time.Time) *model.BossBattle {
	return &model.BossBattle{
		ID: id, FamilyID: 1, Name: "Dust Dragon",
		Status: model.BossStatusDefeated, DefeatedAt: &at,
		BaseRewardXP: 100, BaseRewardGold: 100, RewardsDistributed: true,
	}
}

func part(battleID, userID int64, p model.Participation, xp, gold int64) *model.BossBattleParticipant {
	return &model.BossBattleParticipant{BattleID: battleID, UserID: userID, Participation: p, AwardedXP: xp, AwardedGold: gold}
}

func TestScore(t *testing.T) {
	s := newScorer(t)
	b := battle(1, from)

	assert.Equal(t, 1.0, s.Score(b, part(1, 1, model.ParticipationApproved, 0, 0), model.ClassKnight))
	assert.Equal(t, 0.0, s.Score(b, part(1, 1, model.ParticipationNone, 100, 100), model.ClassKnight))
	assert.InDelta(t, 0.25, s.Score(b, part(1, 1, model.ParticipationPartial, 50, 0), model.ClassKnight), 1e-12)
	// Over-award is clamped to the full share.
	assert.InDelta(t, 1.0, s.Score(b, part(1, 1, model.ParticipationPartial, 500, 500), model.ClassKnight), 1e-12)
}

func TestScore_ClassAdjustedDenominator(t *testing.T) {
	s := newScorer(t)
	b := battle(1, from)
	// A mage's full xp share is 120, so 60 xp is half of it.
	got := s.Score(b, part(1, 1, model.ParticipationPartial, 60, 100), model.ClassMage)
	assert.InDelta(t, 0.75, got, 1e-12)
}

func TestScore_ZeroBaseReward(t *testing.T) {
	s := newScorer(t)
	b := battle(1, from)
	b.BaseRewardXP, b.BaseRewardGold = 0, 0
	assert.Equal(t, 0.0, s.Score(b, part(1, 1, model.ParticipationPartial, 10, 10), model.ClassKnight))
}

func TestQualifies(t *testing.T) {
	w := Window{From: from, To: to}

	assert.True(t, Qualifies(battle(1, from), w), "from is inclusive")
	assert.False(t, Qualifies(battle(1, to), w), "to is exclusive")
	assert.False(t, Qualifies(battle(1, from.Add(-time.Second)), w))

	undistributed := battle(1, from.Add(time.Hour))
	undistributed.RewardsDistributed = false
	assert.False(t, Qualifies(undistributed, w))

	active := battle(1, from.Add(time.Hour))
	active.Status = model.BossStatusActive
	assert.False(t, Qualifies(active, w))

	noTime := battle(1, from)
	noTime.DefeatedAt = nil
	assert.False(t, Qualifies(noTime, w))
}

func TestRank_OrderAndTieBreaks(t *testing.T) {
	s := newScorer(t)
	mid := from.Add(48 * time.Hour)
	in := Input{
		Battles: []*model.BossBattle{battle(1, mid), battle(2, mid), battle(3, to.Add(time.Hour))},
		Participants: []*model.BossBattleParticipant{
			part(1, 10, model.ParticipationApproved, 100, 100),
			part(2, 10, model.ParticipationPartial, 50, 0),
			part(1, 20, model.ParticipationApproved, 100, 100),
			part(2, 20, model.ParticipationPartial, 0, 50),
			part(1, 30, model.ParticipationApproved, 100, 100),
			part(1, 40, model.ParticipationApproved, 100, 100),
			part(3, 40, model.ParticipationApproved, 100, 100), // outside the window
			part(1, 50, model.ParticipationNone, 0, 0),
		},
		Names:  map[int64]string{10: "Ada", 20: "Bea", 30: "Cy", 40: "Ari"},
		Window: Window{From: from, To: to},
	}

	got := s.Rank(in)
	require.Len(t, got, 5)

	// 10 and 20 tie on score 1.25; 10 wins on xp.
	assert.Equal(t, int64(10), got[0].UserID)
	assert.InDelta(t, 1.25, got[0].Score, 1e-9)
	assert.Equal(t, 2, got[0].Battles)
	assert.Equal(t, int64(20), got[1].UserID)
	// 30 and 40 tie on everything but name.
	assert.Equal(t, "Ari", got[2].Name)
	assert.Equal(t, "Cy", got[3].Name)
	assert.Equal(t, 1, got[2].Battles)
	// A NONE participant still appears, with the fallback name.
	assert.Equal(t, "user-50", got[4].Name)
	assert.Equal(t, 0.0, got[4].Score)

	for i, st := range got {
		assert.Equal(t, i+1, st.Rank)
	}
}

func TestRank_Empty(t *testing.T) {
	s := newScorer(t)
	got := s.Rank(Input{Window: Window{From: from, To: to}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{From: from, To: to}.Validate())
	assert.Error(t, Window{From: to, To: from}.Validate())
	assert.Error(t, Window{From: from, To: from}.Validate())
}
