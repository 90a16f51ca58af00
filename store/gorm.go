package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/model"
)

// Gorm implements UnitOfWork on a gorm connection.
type Gorm struct {
	db   *gorm.DB
	inTx bool
}

// NewGorm wraps db. The connection should be opened with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// DB returns the underlying connection.
func (g *Gorm) DB() *gorm.DB { return g.db }

// Do runs fn inside a database transaction.
func (g *Gorm) Do(ctx context.Context, fn func(tx Tx) error) error {
	if g.inTx {
		return fn(g)
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx, inTx: true})
	})
}

func (g *Gorm) Quests() QuestRepository         { return questRepo{g} }
func (g *Gorm) Characters() CharacterRepository { return characterRepo{g} }
func (g *Gorm) Streaks() StreakRepository       { return streakRepo{g} }
func (g *Gorm) Families() FamilyRepository      { return familyRepo{g} }
func (g *Gorm) Ledger() LedgerRepository        { return ledgerRepo{g} }
func (g *Gorm) Battles() BattleRepository       { return battleRepo{g} }

// locked adds SELECT ... FOR UPDATE inside transactions on engines that
// support row locks. SQLite serializes writers at BEGIN instead.
func (g *Gorm) locked(ctx context.Context) *gorm.DB {
	db := g.db.WithContext(ctx)
	if g.inTx && db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func notFoundOr(err error, entity, id, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity, id)
	}
	return errs.Storage(op, err)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// ---- quests ----

type questRepo struct{ g *Gorm }

func (r questRepo) Get(ctx context.Context, id string) (*model.Quest, error) {
	var q model.Quest
	if err := r.g.locked(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, notFoundOr(err, "quest", id, "load quest")
	}
	return &q, nil
}

func (r questRepo) Create(ctx context.Context, q *model.Quest) error {
	if err := r.g.db.WithContext(ctx).Create(q).Error; err != nil {
		return errs.Storage("create quest", err)
	}
	return nil
}

func (r questRepo) Transition(ctx context.Context, q *model.Quest, from model.QuestStatus) (bool, error) {
	res := r.g.db.WithContext(ctx).Model(&model.Quest{}).
		Where("id = ? AND status = ? AND version = ?", q.ID, from, q.Version).
		Updates(map[string]interface{}{
			"status":          q.Status,
			"assignee_id":     q.AssigneeID,
			"completed_at":    q.CompletedAt,
			"approved_at":     q.ApprovedAt,
			"approved_by":     q.ApprovedBy,
			"volunteer_bonus": q.VolunteerBonus,
			"streak_bonus":    q.StreakBonus,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, errs.Storage("transition quest", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	q.Version++
	return true, nil
}

func (r questRepo) Overdue(ctx context.Context, now time.Time, statuses ...model.QuestStatus) ([]*model.Quest, error) {
	var list []*model.Quest
	err := r.g.db.WithContext(ctx).
		Where("due_at IS NOT NULL AND due_at < ? AND status IN ?", now.UTC(), statuses).
		Order("due_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, errs.Storage("list overdue quests", err)
	}
	return list, nil
}

// ---- characters ----

type characterRepo struct{ g *Gorm }

func (r characterRepo) Get(ctx context.Context, id int64) (*model.Character, error) {
	var c model.Character
	if err := r.g.locked(ctx).First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, "character", itoa(id), "load character")
	}
	return &c, nil
}

func (r characterRepo) GetByUser(ctx context.Context, userID int64) (*model.Character, error) {
	var c model.Character
	if err := r.g.locked(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, notFoundOr(err, "character", itoa(userID), "load character")
	}
	return &c, nil
}

func (r characterRepo) ListByUsers(ctx context.Context, userIDs []int64) ([]*model.Character, error) {
	var list []*model.Character
	if len(userIDs) == 0 {
		return list, nil
	}
	if err := r.g.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&list).Error; err != nil {
		return nil, errs.Storage("list characters", err)
	}
	return list, nil
}

func (r characterRepo) Create(ctx context.Context, c *model.Character) error {
	if err := r.g.db.WithContext(ctx).Create(c).Error; err != nil {
		return errs.Storage("create character", err)
	}
	return nil
}

func (r characterRepo) SaveProgress(ctx context.Context, c *model.Character) error {
	err := r.g.db.WithContext(ctx).Model(c).
		Select("level", "exp", "gold", "gems", "honor").
		Updates(c).Error
	if err != nil {
		return errs.Storage("save character", err)
	}
	return nil
}

// ---- streaks ----

type streakRepo struct{ g *Gorm }

func streakKey(characterID, templateID int64) string {
	return itoa(characterID) + "/" + itoa(templateID)
}

func (r streakRepo) Find(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error) {
	var rec model.StreakRecord
	err := r.g.locked(ctx).
		Where("character_id = ? AND template_id = ?", characterID, templateID).
		First(&rec).Error
	if err != nil {
		return nil, notFoundOr(err, "streak", streakKey(characterID, templateID), "load streak")
	}
	return &rec, nil
}

func (r streakRepo) Ensure(ctx context.Context, characterID, templateID int64) (*model.StreakRecord, error) {
	rec := &model.StreakRecord{CharacterID: characterID, TemplateID: templateID}
	err := r.g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
	if err != nil {
		return nil, errs.Storage("create streak", err)
	}
	return r.Find(ctx, characterID, templateID)
}

func (r streakRepo) Save(ctx context.Context, rec *model.StreakRecord) error {
	err := r.g.db.WithContext(ctx).Model(rec).
		Select("current_streak", "longest_streak", "last_completed_at").
		Updates(rec).Error
	if err != nil {
		return errs.Storage("save streak", err)
	}
	return nil
}

// ---- families ----

type familyRepo struct{ g *Gorm }

func (r familyRepo) Get(ctx context.Context, id int64) (*model.Family, error) {
	var f model.Family
	if err := r.g.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, notFoundOr(err, "family", itoa(id), "load family")
	}
	return &f, nil
}

func (r familyRepo) List(ctx context.Context) ([]*model.Family, error) {
	var list []*model.Family
	if err := r.g.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, errs.Storage("list families", err)
	}
	return list, nil
}

func (r familyRepo) Create(ctx context.Context, f *model.Family) error {
	if err := r.g.db.WithContext(ctx).Create(f).Error; err != nil {
		return errs.Storage("create family", err)
	}
	return nil
}

func (r familyRepo) AddMember(ctx context.Context, m *model.Member) error {
	if err := r.g.db.WithContext(ctx).Create(m).Error; err != nil {
		return errs.Storage("add member", err)
	}
	return nil
}

func (r familyRepo) Member(ctx context.Context, userID int64) (*model.Member, error) {
	var m model.Member
	if err := r.g.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "member", itoa(userID), "load member")
	}
	return &m, nil
}

func (r familyRepo) Members(ctx context.Context, familyID int64) ([]*model.Member, error) {
	var list []*model.Member
	err := r.g.db.WithContext(ctx).Where("family_id = ?", familyID).Order("user_id ASC").Find(&list).Error
	if err != nil {
		return nil, errs.Storage("list members", err)
	}
	return list, nil
}

// ---- ledger ----

type ledgerRepo struct{ g *Gorm }

func (r ledgerRepo) Append(ctx context.Context, t *model.Transaction) error {
	err := r.g.db.WithContext(ctx).Create(t).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.AlreadyApproved(t.QuestID)
	default:
		return errs.Storage("append ledger", err)
	}
}

func (r ledgerRepo) ForQuest(ctx context.Context, questID string) ([]*model.Transaction, error) {
	var list []*model.Transaction
	err := r.g.db.WithContext(ctx).Where("quest_id = ?", questID).Order("created_at ASC").Find(&list).Error
	if err != nil {
		return nil, errs.Storage("list ledger", err)
	}
	return list, nil
}

// ---- boss battles ----

type battleRepo struct{ g *Gorm }

func (r battleRepo) Create(ctx context.Context, b *model.BossBattle, participants []*model.BossBattleParticipant) error {
	return r.g.Do(ctx, func(tx Tx) error {
		db := tx.(*Gorm).db.WithContext(ctx)
		if err := db.Create(b).Error; err != nil {
			return errs.Storage("create battle", err)
		}
		for _, p := range participants {
			p.BattleID = b.ID
		}
		if len(participants) == 0 {
			return nil
		}
		if err := db.Create(&participants).Error; err != nil {
			return errs.Storage("create participants", err)
		}
		return nil
	})
}

func (r battleRepo) Settled(ctx context.Context, familyID int64, from, to time.Time) ([]*model.BossBattle, error) {
	var list []*model.BossBattle
	err := r.g.db.WithContext(ctx).
		Where("family_id = ? AND status = ? AND rewards_distributed = ?", familyID, model.BossStatusDefeated, true).
		Where("defeated_at >= ? AND defeated_at < ?", from.UTC(), to.UTC()).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, errs.Storage("list battles", err)
	}
	return list, nil
}

func (r battleRepo) Participants(ctx context.Context, battleIDs []int64) ([]*model.BossBattleParticipant, error) {
	var list []*model.BossBattleParticipant
	if len(battleIDs) == 0 {
		return list, nil
	}
	err := r.g.db.WithContext(ctx).Where("battle_id IN ?", battleIDs).Order("battle_id ASC, id ASC").Find(&list).Error
	if err != nil {
		return nil, errs.Storage("list participants", err)
	}
	return list, nil
}
