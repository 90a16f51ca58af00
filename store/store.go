// Package store defines the repositories the engine reads and writes through
// and the unit of work that makes a group of writes atomic.
package store

import (
	"context"
	"time"

	"github.com/kasuganosora/hearthquest/model"
)

// QuestRepository persists quest instances.
type QuestRepository interface {
	Get(ctx context.Context, id string) (*model.Quest, error)
	Create(ctx context.Context, q *model.Quest) error
	// Transition writes q's mutable columns only while the stored row is
	// still at status from and version q.Version. It reports false when
	// another writer got there first and bumps q.Version on success.
	Transition(ctx context.Context, q *model.Quest, from model.QuestStatus) (bool, error)
	// Overdue lists quests in one of statuses whose due date is before now.
	Overdue(ctx context.Context, now time.Time, statuses ...model.QuestStatus) ([]*model.Quest, error)
}

// CharacterRepository persists progression records.
type CharacterRepository interface {
	Get(ctx context.Context, id int64) (*model.Character, error)
	GetByUser(ctx context.Context, userID int64) (*model.Character, error)
	ListByUsers(ctx context.Context, userIDs []int64) ([]*model.Character, error)
	Create(ctx context.Context, c *model.Character) error
	// SaveProgress writes level, exp and the resource balances.
	SaveProgress(ctx context.Context, c *model.Character) error
}

// StreakRepository persists streak records.
type StreakRepository interface {
	Find(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error)
	// Ensure returns the record for the pair, inserting a zero record if
	// none exists. Concurrent callers observe the same row.
	Ensure(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error)
	Save(ctx context.Context, rec *model.StreakRecord) error
}

// FamilyRepository reads families and their members.
type FamilyRepository interface {
	Get(ctx context.Context, id int64) (*model.Family, error)
	List(ctx context.Context) ([]*model.Family, error)
	Create(ctx context.Context, f *model.Family) error
	AddMember(ctx context.Context, m *model.Member) error
	Member(ctx context.Context, userID int64) (*model.Member, error)
	Members(ctx context.Context, familyID int64) ([]*model.Member, error)
}

// LedgerRepository appends payout records.
type LedgerRepository interface {
	// Append inserts t; a second reward for the same quest fails with
	// errs.ErrAlreadyApproved.
	Append(ctx context.Context, t *model.Transaction) error
	ForQuest(ctx context.Context, questID string) ([]*model.Transaction, error)
}

// BattleRepository reads boss battles and their participants.
type BattleRepository interface {
	Create(ctx context.Context, b *model.BossBattle, participants []*model.BossBattleParticipant) error
	// Settled lists DEFEATED battles of a family whose rewards were
	// distributed and whose defeat time is in [from, to).
	Settled(ctx context.Context, familyID int64, from, to time.Time) ([]*model.BossBattle, error)
	Participants(ctx context.Context, battleIDs []int64) ([]*model.BossBattleParticipant, error)
}

// Tx exposes every repository bound to one transaction.
type Tx interface {
	Quests() QuestRepository
	Characters() CharacterRepository
	Streaks() StreakRepository
	Families() FamilyRepository
	Ledger() LedgerRepository
	Battles() BattleRepository
}

// UnitOfWork runs fn atomically: every write fn makes through tx commits
// together or not at all. Used outside Do, its repositories auto-commit.
type UnitOfWork interface {
	Tx
	Do(ctx context.Context, fn func(tx Tx) error) error
}
