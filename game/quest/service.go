// Package quest drives quest instances through their lifecycle and pays out
// rewards on guardian approval.
package quest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/progression"
	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/game/streak"
	"github.com/kasuganosora/hearthquest/metrics"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/store"
)

// Rules are the injected rule tables.
type Rules struct {
	Rewards        *reward.Resolver
	Levels         *progression.Evaluator
	Streak         streak.Rules
	VolunteerBonus float64
}

// Service handles all quest lifecycle operations.
type Service struct {
	uow      store.UnitOfWork
	rules    Rules
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a quest Service. A nil notifier discards events.
func NewService(uow store.UnitOfWork, rules Rules, notifier Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		uow:      uow,
		rules:    rules,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (svc *Service) SetClock(now func() time.Time) { svc.now = now }

// ApprovalResult is everything an approval changed.
type ApprovalResult struct {
	Quest       *model.Quest       `json:"quest"`
	Character   *model.Character   `json:"character"`
	Reward      reward.Amounts     `json:"reward"`
	Level       progression.Result `json:"level"`
	Streak      *streak.Outcome    `json:"streak,omitempty"`
	Transaction *model.Transaction `json:"transaction"`
}

// Get returns a quest visible to actor.
func (svc *Service) Get(ctx context.Context, actor Actor, questID string) (*model.Quest, error) {
	q, err := svc.uow.Quests().Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if err := memberOf("view quest")(actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

type step struct {
	action string
	event  string
	from   model.QuestStatus
	to     model.QuestStatus
	guard  guard
	check  func(a Actor, q *model.Quest) error
	apply  func(a Actor, q *model.Quest, now time.Time)
}

// Claim assigns an open PENDING quest to the actor with the volunteer bonus.
func (svc *Service) Claim(ctx context.Context, actor Actor, questID string) (*model.Quest, error) {
	return svc.move(ctx, actor, questID, step{
		action: "claim",
		event:  EventClaimed,
		from:   model.QuestStatusPending,
		to:     model.QuestStatusPending,
		guard:  memberOf("claim quest"),
		check: func(_ Actor, q *model.Quest) error {
			if q.AssigneeID != nil {
				return errs.InvalidStateTransition(q.ID, "ASSIGNED", "CLAIMED")
			}
			return nil
		},
		apply: func(a Actor, q *model.Quest, _ time.Time) {
			uid := a.UserID
			q.AssigneeID = &uid
			if svc.rules.VolunteerBonus > 0 {
				bonus := svc.rules.VolunteerBonus
				q.VolunteerBonus = &bonus
			}
		},
	})
}

// Start moves PENDING → IN_PROGRESS for the assignee.
func (svc *Service) Start(ctx context.Context, actor Actor, questID string) (*model.Quest, error) {
	return svc.move(ctx, actor, questID, step{
		action: "start",
		event:  EventStarted,
		from:   model.QuestStatusPending,
		to:     model.QuestStatusInProgress,
		guard:  assigneeOf("start quest"),
	})
}

// Complete moves IN_PROGRESS → COMPLETED for the assignee.
func (svc *Service) Complete(ctx context.Context, actor Actor, questID string) (*model.Quest, error) {
	return svc.move(ctx, actor, questID, step{
		action: "complete",
		event:  EventCompleted,
		from:   model.QuestStatusInProgress,
		to:     model.QuestStatusCompleted,
		guard:  assigneeOf("complete quest"),
		apply: func(_ Actor, q *model.Quest, now time.Time) {
			q.CompletedAt = &now
		},
	})
}

// Reject sends a COMPLETED quest back to IN_PROGRESS.
func (svc *Service) Reject(ctx context.Context, actor Actor, questID string) (*model.Quest, error) {
	return svc.move(ctx, actor, questID, step{
		action: "reject",
		event:  EventRejected,
		from:   model.QuestStatusCompleted,
		to:     model.QuestStatusInProgress,
		guard:  guardianOf("reject quest"),
		apply: func(_ Actor, q *model.Quest, _ time.Time) {
			q.CompletedAt = nil
		},
	})
}

func (svc *Service) move(ctx context.Context, actor Actor, questID string, st step) (*model.Quest, error) {
	var q *model.Quest
	err := svc.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		q, err = tx.Quests().Get(ctx, questID)
		if err != nil {
			return err
		}
		if err := st.guard(actor, q); err != nil {
			return err
		}
		if q.Status != st.from {
			return errs.InvalidStateTransition(q.ID, string(q.Status), string(st.to))
		}
		if st.check != nil {
			if err := st.check(actor, q); err != nil {
				return err
			}
		}
		if st.apply != nil {
			st.apply(actor, q, svc.now().UTC())
		}
		q.Status = st.to
		return svc.transition(ctx, tx, q, st.from)
	})
	if err != nil {
		svc.failed(st.action, questID, actor, err)
		return nil, err
	}
	metrics.QuestTransitions.WithLabelValues(st.action, string(q.Status)).Inc()
	svc.publish(ctx, Event{
		Type:       st.event,
		QuestID:    q.ID,
		FamilyID:   q.FamilyID,
		ActorID:    actor.UserID,
		AssigneeID: q.AssigneeID,
		Status:     q.Status,
		At:         q.UpdatedAt,
	})
	svc.logger.Info("quest transition",
		zap.String("action", st.action),
		zap.String("quest_id", q.ID),
		zap.Int64("actor", actor.UserID),
		zap.String("status", string(q.Status)))
	return q, nil
}

// transition performs the compare-and-swap write and classifies a lost race.
func (svc *Service) transition(ctx context.Context, tx store.Tx, q *model.Quest, from model.QuestStatus) error {
	q.UpdatedAt = svc.now().UTC()
	ok, err := tx.Quests().Transition(ctx, q, from)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	current, err := tx.Quests().Get(ctx, q.ID)
	if err != nil {
		return err
	}
	if current.Status == model.QuestStatusApproved && q.Status == model.QuestStatusApproved {
		return errs.AlreadyApproved(q.ID)
	}
	return errs.InvalidStateTransition(q.ID, string(current.Status), string(q.Status))
}

// Approve moves COMPLETED → APPROVED and pays the assignee. Streak, reward,
// progression, quest stamp and ledger entry commit together or not at all.
func (svc *Service) Approve(ctx context.Context, actor Actor, questID string) (*ApprovalResult, error) {
	started := time.Now()
	var res *ApprovalResult
	err := svc.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		res, err = svc.approve(ctx, tx, actor, questID)
		return err
	})
	metrics.ApprovalLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		svc.failed("approve", questID, actor, err)
		return nil, err
	}

	metrics.QuestTransitions.WithLabelValues("approve", string(model.QuestStatusApproved)).Inc()
	metrics.RewardPaid.WithLabelValues(string(reward.ResourceXP)).Add(float64(res.Reward.XP))
	metrics.RewardPaid.WithLabelValues(string(reward.ResourceGold)).Add(float64(res.Reward.Gold))
	metrics.RewardPaid.WithLabelValues(string(reward.ResourceGems)).Add(float64(res.Reward.Gems))
	metrics.RewardPaid.WithLabelValues(string(reward.ResourceHonor)).Add(float64(res.Reward.Honor))
	if res.Level.LeveledUp {
		metrics.LevelUps.Add(float64(res.Level.LevelsGained))
	}
	if res.Streak != nil && res.Streak.Broken {
		metrics.StreakBreaks.WithLabelValues("approval").Inc()
	}

	amounts, level := res.Reward, res.Level
	svc.publish(ctx, Event{
		Type:       EventApproved,
		QuestID:    res.Quest.ID,
		FamilyID:   res.Quest.FamilyID,
		ActorID:    actor.UserID,
		AssigneeID: res.Quest.AssigneeID,
		Status:     res.Quest.Status,
		At:         *res.Quest.ApprovedAt,
		Reward:     &amounts,
		Level:      &level,
	})
	svc.logger.Info("quest approved",
		zap.String("quest_id", res.Quest.ID),
		zap.Int64("guardian", actor.UserID),
		zap.Int64("character", res.Character.ID),
		zap.Int64("xp", res.Reward.XP),
		zap.Int64("gold", res.Reward.Gold),
		zap.Int("level", res.Character.Level),
		zap.Bool("leveled_up", res.Level.LeveledUp))
	return res, nil
}

func (svc *Service) approve(ctx context.Context, tx store.Tx, actor Actor, questID string) (*ApprovalResult, error) {
	q, err := tx.Quests().Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if err := guardianOf("approve quest")(actor, q); err != nil {
		return nil, err
	}
	switch q.Status {
	case model.QuestStatusCompleted:
	case model.QuestStatusApproved:
		return nil, errs.AlreadyApproved(q.ID)
	default:
		return nil, errs.InvalidStateTransition(q.ID, string(q.Status), string(model.QuestStatusApproved))
	}
	if q.AssigneeID == nil {
		return nil, errs.InvalidInput("quest "+q.ID, "completed without an assignee")
	}

	now := svc.now().UTC()
	completedAt := now
	if q.CompletedAt != nil {
		completedAt = q.CompletedAt.UTC()
	}
	approvedAt := now
	if approvedAt.Before(completedAt) {
		approvedAt = completedAt
	}

	char, err := tx.Characters().GetByUser(ctx, *q.AssigneeID)
	if err != nil {
		return nil, err
	}

	var outcome *streak.Outcome
	streakBonus := 0.0
	if q.Recurring() {
		fam, err := tx.Families().Get(ctx, q.FamilyID)
		if err != nil {
			return nil, err
		}
		tracker := streak.NewTracker(tx.Streaks(), svc.rules.Streak)
		outcome, err = tracker.Record(ctx, char.ID, *q.TemplateID, q.Recurrence, completedAt, fam.Timezone)
		if err != nil {
			return nil, err
		}
		streakBonus = outcome.Bonus
	}

	base := reward.Amounts{XP: q.BaseXP, Gold: q.BaseGold, Gems: q.BaseGems, Honor: q.BaseHonor}
	amounts, err := svc.rules.Rewards.Compute(base, q.Difficulty, char.Class, q.VolunteerBonus, streakBonus)
	if err != nil {
		return nil, err
	}

	q.Status = model.QuestStatusApproved
	q.ApprovedAt = &approvedAt
	approver := actor.UserID
	q.ApprovedBy = &approver
	q.StreakBonus = &streakBonus
	if err := svc.transition(ctx, tx, q, model.QuestStatusCompleted); err != nil {
		return nil, err
	}

	level := svc.rules.Levels.Apply(char.Level, char.Exp, amounts.XP)
	char.Level, char.Exp = level.NewLevel, level.NewXP
	char.Gold = addSat(char.Gold, amounts.Gold)
	char.Gems = addSat(char.Gems, amounts.Gems)
	char.Honor = addSat(char.Honor, amounts.Honor)
	if err := tx.Characters().SaveProgress(ctx, char); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(rewardMetadata{
		Base:           base,
		Difficulty:     q.Difficulty,
		Class:          char.Class,
		ClassBonus:     svc.rules.Rewards.Multipliers(char.Class),
		VolunteerBonus: valueOr(q.VolunteerBonus),
		StreakBonus:    streakBonus,
		Streak:         outcome,
		Level:          level,
		ApprovedBy:     approver,
	})
	if err != nil {
		return nil, errs.Storage("encode ledger metadata", err)
	}
	entry := &model.Transaction{
		ID:          uuid.NewString(),
		FamilyID:    q.FamilyID,
		UserID:      char.UserID,
		CharacterID: char.ID,
		QuestID:     q.ID,
		Type:        model.TransactionQuestReward,
		XP:          amounts.XP,
		Gold:        amounts.Gold,
		Gems:        amounts.Gems,
		Honor:       amounts.Honor,
		Metadata:    datatypes.JSON(meta),
		CreatedAt:   approvedAt,
	}
	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}

	return &ApprovalResult{
		Quest:       q,
		Character:   char,
		Reward:      amounts,
		Level:       level,
		Streak:      outcome,
		Transaction: entry,
	}, nil
}

type rewardMetadata struct {
	Base           reward.Amounts     `json:"base"`
	Difficulty     model.Difficulty   `json:"difficulty"`
	Class          model.Class        `json:"class"`
	ClassBonus     reward.Multipliers `json:"class_bonus"`
	VolunteerBonus float64            `json:"volunteer_bonus"`
	StreakBonus    float64            `json:"streak_bonus"`
	Streak         *streak.Outcome    `json:"streak,omitempty"`
	Level          progression.Result `json:"level"`
	ApprovedBy     int64              `json:"approved_by"`
}

// SweepResult counts what one overdue sweep closed.
type SweepResult struct {
	Expired      int `json:"expired"`
	Missed       int `json:"missed"`
	StreaksReset int `json:"streaks_reset"`
}

// ExpireOverdue closes quests past their due date at now: PENDING becomes
// EXPIRED and IN_PROGRESS becomes MISSED. A missed or expired recurring
// quest resets the assignee's streak. Each quest commits on its own; failures
// are collected and the sweep continues.
func (svc *Service) ExpireOverdue(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	candidates, err := svc.uow.Quests().Overdue(ctx, now, model.QuestStatusPending, model.QuestStatusInProgress)
	if err != nil {
		return res, err
	}
	var failures []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		q, reset, err := svc.expireOne(ctx, c.ID, now)
		if err != nil {
			svc.logger.Warn("expire quest failed", zap.String("quest_id", c.ID), zap.Error(err))
			failures = append(failures, err)
			continue
		}
		if q == nil {
			continue
		}
		event := EventExpired
		if q.Status == model.QuestStatusMissed {
			event = EventMissed
			res.Missed++
		} else {
			res.Expired++
		}
		if reset {
			res.StreaksReset++
			metrics.StreakBreaks.WithLabelValues("sweep").Inc()
		}
		metrics.SweepExpired.WithLabelValues(string(q.Status)).Inc()
		svc.publish(ctx, Event{
			Type:       event,
			QuestID:    q.ID,
			FamilyID:   q.FamilyID,
			AssigneeID: q.AssigneeID,
			Status:     q.Status,
			At:         now.UTC(),
		})
	}
	if res.Expired+res.Missed > 0 {
		svc.logger.Info("overdue sweep",
			zap.Int("expired", res.Expired),
			zap.Int("missed", res.Missed),
			zap.Int("streaks_reset", res.StreaksReset))
	}
	return res, errors.Join(failures...)
}

// expireOne closes one quest. It returns a nil quest when the quest moved on
// before the sweep reached it.
func (svc *Service) expireOne(ctx context.Context, questID string, now time.Time) (*model.Quest, bool, error) {
	var (
		closed *model.Quest
		reset  bool
	)
	err := svc.uow.Do(ctx, func(tx store.Tx) error {
		q, err := tx.Quests().Get(ctx, questID)
		if err != nil {
			return err
		}
		if !q.Overdue(now) {
			return nil
		}
		from := q.Status
		switch from {
		case model.QuestStatusPending:
			q.Status = model.QuestStatusExpired
		case model.QuestStatusInProgress:
			q.Status = model.QuestStatusMissed
		default:
			return nil
		}
		q.UpdatedAt = now.UTC()
		ok, err := tx.Quests().Transition(ctx, q, from)
		if err != nil || !ok {
			return err
		}
		closed = q

		if !q.Recurring() || q.AssigneeID == nil {
			return nil
		}
		char, err := tx.Characters().GetByUser(ctx, *q.AssigneeID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err := streak.NewTracker(tx.Streaks(), svc.rules.Streak).Reset(ctx, char.ID, *q.TemplateID)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		reset = rec != nil
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return closed, reset, nil
}

func (svc *Service) publish(ctx context.Context, ev Event) {
	if err := svc.notifier.QuestChanged(ctx, ev); err != nil {
		svc.logger.Warn("quest event publish failed",
			zap.String("type", ev.Type),
			zap.String("quest_id", ev.QuestID),
			zap.Error(err))
	}
}

func (svc *Service) failed(action, questID string, actor Actor, err error) {
	kind := string(errs.KindOf(err))
	if kind == "" {
		kind = "INTERNAL"
	}
	metrics.QuestRejections.WithLabelValues(action, kind).Inc()
	svc.logger.Debug("quest action refused",
		zap.String("action", action),
		zap.String("quest_id", questID),
		zap.Int64("actor", actor.UserID),
		zap.Error(err))
}

func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func valueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
