// Package streak tracks consecutive completions of recurring quest templates.
package streak

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/calendar"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/store"
)

// Rules are the streak bonus constants.
type Rules struct {
	// Increment is the bonus fraction earned per full threshold.
	Increment float64 `mapstructure:"increment"`
	// Threshold is the number of consecutive completions per increment.
	Threshold int `mapstructure:"threshold"`
	// Cap is the largest bonus fraction.
	Cap float64 `mapstructure:"cap"`
}

// DefaultRules grants 1% per 5 consecutive completions, capped at 5%.
func DefaultRules() Rules {
	return Rules{Increment: 0.01, Threshold: 5, Cap: 0.05}
}

// Validate rejects non-positive thresholds and negative fractions.
func (r Rules) Validate() error {
	if r.Threshold <= 0 {
		return errs.InvalidInput("streak threshold", "must be positive")
	}
	if r.Increment < 0 || r.Cap < 0 || math.IsNaN(r.Increment) || math.IsNaN(r.Cap) {
		return errs.InvalidInput("streak bonus", "fractions must be non-negative")
	}
	return nil
}

// Bonus returns min(floor(current/Threshold) × Increment, Cap).
// The result is computed in basis points so 5 completions give exactly 0.01.
func (r Rules) Bonus(current int) float64 {
	if current <= 0 || r.Threshold <= 0 {
		return 0
	}
	inc := int64(math.Round(r.Increment * 10000))
	ceiling := int64(math.Round(r.Cap * 10000))
	if inc <= 0 || ceiling <= 0 {
		return 0
	}
	steps := int64(current / r.Threshold)
	if steps > ceiling/inc {
		return float64(ceiling) / 10000
	}
	return float64(steps*inc) / 10000
}

// ValidateConsecutive reports whether a completion at now continues a streak
// whose last completion was last. Day differences are calendar days in tz.
// DAILY tolerates a gap of up to two days; WEEKLY anything under eight.
func ValidateConsecutive(last *time.Time, pattern model.Recurrence, now time.Time, tz string) (bool, error) {
	if last == nil {
		return true, nil
	}
	switch pattern {
	case model.RecurrenceDaily, model.RecurrenceWeekly:
	default:
		return true, nil
	}
	days, err := calendar.DaysBetween(*last, now, tz)
	if err != nil {
		return false, err
	}
	if pattern == model.RecurrenceDaily {
		return days <= 2, nil
	}
	return days < 8, nil
}

// Tracker reads and mutates streak records through a repository.
type Tracker struct {
	repo  store.StreakRepository
	rules Rules
}

// NewTracker returns a Tracker writing through repo.
func NewTracker(repo store.StreakRepository, rules Rules) *Tracker {
	return &Tracker{repo: repo, rules: rules}
}

// GetOrCreate returns the record for the pair, creating a zero one if needed.
func (t *Tracker) GetOrCreate(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error) {
	return t.repo.Ensure(ctx, characterID, templateID)
}

// Lookup returns the stored record for the pair, or a zero record when the
// pair has never completed. It never writes.
func (t *Tracker) Lookup(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error) {
	rec, err := t.repo.Find(ctx, characterID, templateID)
	if errors.Is(err, errs.ErrNotFound) {
		return &model.StreakRecord{CharacterID: characterID, TemplateID: templateID}, nil
	}
	return rec, err
}

// Increment extends the streak by one completion at completedAt.
func (t *Tracker) Increment(ctx context.Context, characterID, templateID int64, completedAt time.Time) (*model.StreakRecord, error) {
	rec, err := t.repo.Ensure(ctx, characterID, templateID)
	if err != nil {
		return nil, err
	}
	increment(rec, completedAt)
	if err := t.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Reset zeroes the current streak. The longest streak is kept.
func (t *Tracker) Reset(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error) {
	rec, err := t.repo.Find(ctx, characterID, templateID)
	if err != nil {
		return nil, err
	}
	rec.CurrentStreak = 0
	if err := t.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Bonus is the bonus fraction for a current streak length.
func (t *Tracker) Bonus(current int) float64 {
	return t.rules.Bonus(current)
}

// Outcome is the result of recording one approved completion.
type Outcome struct {
	Record *model.StreakRecord `json:"record"`
	Broken bool                `json:"broken"`
	Bonus  float64             `json:"bonus"`
}

// Record applies one approved completion: a broken streak restarts at 1,
// otherwise it grows by one. The record is written once.
func (t *Tracker) Record(ctx context.Context, characterID, templateID int64, pattern model.Recurrence, completedAt time.Time, tz string) (*Outcome, error) {
	rec, err := t.repo.Ensure(ctx, characterID, templateID)
	if err != nil {
		return nil, err
	}
	ok, err := ValidateConsecutive(rec.LastCompletedAt, pattern, completedAt, tz)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Record: rec, Broken: !ok}
	if !ok {
		rec.CurrentStreak = 0
	}
	increment(rec, completedAt)
	if err := t.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	out.Bonus = t.rules.Bonus(rec.CurrentStreak)
	return out, nil
}

func increment(rec *model.StreakRecord, at time.Time) {
	rec.CurrentStreak++
	if rec.CurrentStreak > rec.LongestStreak {
		rec.LongestStreak = rec.CurrentStreak
	}
	// A late approval of an older instance must not move the anchor back.
	if rec.LastCompletedAt != nil && at.Before(*rec.LastCompletedAt) {
		return
	}
	at = at.UTC()
	rec.LastCompletedAt = &at
}
