package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kasuganosora/hearthquest/model"
)

// Household is a seeded family with one guardian and one child.
type Household struct {
	Family   *model.Family
	Guardian *model.Member
	Child    *model.Member
	Hero     *model.Character // the child's character
}

// SeedHousehold inserts a family in tz with a guardian (user 1), a child
// (user 2) and the child's character of the given class.
func SeedHousehold(t *testing.T, db *gorm.DB, tz string, class model.Class) *Household {
	t.Helper()
	h := &Household{
		Family: &model.Family{Name: "Hearth", Timezone: tz},
	}
	require.NoError(t, db.Create(h.Family).Error)

	h.Guardian = &model.Member{UserID: 1, FamilyID: h.Family.ID, DisplayName: "Mum", Role: model.RoleGuardian}
	h.Child = &model.Member{UserID: 2, FamilyID: h.Family.ID, DisplayName: "Robin", Role: model.RoleMember}
	require.NoError(t, db.Create(h.Guardian).Error)
	require.NoError(t, db.Create(h.Child).Error)

	h.Hero = &model.Character{UserID: h.Child.UserID, Name: "Robin", Class: class, Level: 1}
	require.NoError(t, db.Create(h.Hero).Error)
	return h
}

// QuestOption mutates a quest before it is inserted.
type QuestOption func(q *model.Quest)

// Assigned sets the assignee.
func Assigned(userID int64) QuestOption {
	return func(q *model.Quest) { q.AssigneeID = &userID }
}

// WithStatus sets the initial status.
func WithStatus(s model.QuestStatus) QuestOption {
	return func(q *model.Quest) { q.Status = s }
}

// Recurring marks the quest as generated from templateID with pattern.
func Recurring(templateID int64, pattern model.Recurrence) QuestOption {
	return func(q *model.Quest) {
		q.TemplateID = &templateID
		q.Recurrence = pattern
	}
}

// Due sets the due date.
func Due(at time.Time) QuestOption {
	return func(q *model.Quest) {
		at = at.UTC()
		q.DueAt = &at
	}
}

// CompletedAt stamps the completion time.
func CompletedAt(at time.Time) QuestOption {
	return func(q *model.Quest) {
		at = at.UTC()
		q.CompletedAt = &at
	}
}

// Rewards sets the base rewards and difficulty.
func Rewards(xp, gold int64, d model.Difficulty) QuestOption {
	return func(q *model.Quest) {
		q.BaseXP, q.BaseGold, q.Difficulty = xp, gold, d
	}
}

// SeedQuest inserts a PENDING one-off quest in familyID.
func SeedQuest(t *testing.T, db *gorm.DB, familyID int64, opts ...QuestOption) *model.Quest {
	t.Helper()
	q := &model.Quest{
		ID:         uuid.NewString(),
		FamilyID:   familyID,
		Title:      "Feed the cat",
		BaseXP:     100,
		BaseGold:   10,
		Difficulty: model.DifficultyEasy,
		Category:   model.CategoryOneOff,
		Recurrence: model.RecurrenceNone,
		Status:     model.QuestStatusPending,
	}
	for _, opt := range opts {
		opt(q)
	}
	require.NoError(t, db.WithContext(context.Background()).Create(q).Error)
	return q
}
