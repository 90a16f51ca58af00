// Package progression turns XP gains into level changes.
package progression

import (
	"fmt"
	"math"

	"github.com/kasuganosora/hearthquest/errs"
)

// Curve is the XP-threshold table: Curve[i] is the accumulated XP needed to
// reach level i+2. The maximum level is len(Curve)+1.
type Curve []int64

// DefaultMaxLevel is the top level of the built-in curve.
const DefaultMaxLevel = 100

// DefaultCurve charges 100×L XP to leave level L, so reaching level L+1
// takes 50×L×(L+1) XP in total.
func DefaultCurve() Curve {
	c := make(Curve, DefaultMaxLevel-1)
	for i := range c {
		l := int64(i + 1)
		c[i] = 50 * l * (l + 1)
	}
	return c
}

// FromCosts converts per-level costs (XP spent inside each level) into a
// threshold table. Sums saturate at math.MaxInt64.
func FromCosts(costs []int64) Curve {
	c := make(Curve, len(costs))
	var total int64
	for i, cost := range costs {
		if cost > 0 && total > math.MaxInt64-cost {
			total = math.MaxInt64
		} else {
			total += cost
		}
		c[i] = total
	}
	return c
}

// Validate requires a non-empty, positive and strictly increasing curve.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return errs.InvalidInput("level curve", "must not be empty")
	}
	var prev int64
	for i, need := range c {
		if need <= 0 {
			return errs.InvalidInput("level curve", fmt.Sprintf("level %d threshold %d is not positive", i+2, need))
		}
		if need <= prev {
			return errs.InvalidInput("level curve", fmt.Sprintf("level %d threshold %d does not increase", i+2, need))
		}
		prev = need
	}
	return nil
}

// MaxLevel is the highest reachable level.
func (c Curve) MaxLevel() int { return len(c) + 1 }

// Threshold returns the accumulated XP needed to reach level. Level 1 needs
// nothing; false beyond the maximum level.
func (c Curve) Threshold(level int) (int64, bool) {
	switch {
	case level <= 1:
		return 0, true
	case level > c.MaxLevel():
		return 0, false
	}
	return c[level-2], true
}

// XPToNext returns how much more accumulated XP a character at level with
// xp needs for the next level, false at max level.
func (c Curve) XPToNext(level int, xp int64) (int64, bool) {
	need, ok := c.Threshold(level + 1)
	if !ok {
		return 0, false
	}
	if xp >= need {
		return 0, true
	}
	return need - xp, true
}

// Result is the outcome of applying an XP gain.
type Result struct {
	PreviousLevel int   `json:"previous_level"`
	NewLevel      int   `json:"new_level"`
	NewXP         int64 `json:"new_xp"`
	LeveledUp     bool  `json:"leveled_up"`
	LevelsGained  int   `json:"levels_gained"`
}

// Evaluator applies XP gains against a fixed curve.
type Evaluator struct {
	curve Curve
}

// NewEvaluator validates curve and copies it.
func NewEvaluator(curve Curve) (*Evaluator, error) {
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{curve: append(Curve(nil), curve...)}, nil
}

// Curve returns a copy of the level curve.
func (e *Evaluator) Curve() Curve { return append(Curve(nil), e.curve...) }

// Apply adds gained XP to the accumulated xp and walks the thresholds above
// level in order, stopping at the first one not reached. Levels are never
// lost, and at max level XP keeps accumulating.
func (e *Evaluator) Apply(level int, xp, gained int64) Result {
	if level < 1 {
		level = 1
	}
	if top := e.curve.MaxLevel(); level > top {
		level = top
	}
	if xp < 0 {
		xp = 0
	}
	if gained < 0 {
		gained = 0
	}
	total := xp + gained
	if total < xp {
		total = math.MaxInt64
	}

	res := Result{PreviousLevel: level, NewLevel: level, NewXP: total}
	for {
		need, ok := e.curve.Threshold(res.NewLevel + 1)
		if !ok || total < need {
			break
		}
		res.NewLevel++
	}
	res.LevelsGained = res.NewLevel - level
	res.LeveledUp = res.LevelsGained > 0
	return res
}
