package quest

import (
	"context"
	"time"

	"github.com/kasuganosora/hearthquest/game/progression"
	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/model"
)

// Event types published after a transition commits.
const (
	EventClaimed   = "quest.claimed"
	EventStarted   = "quest.started"
	EventCompleted = "quest.completed"
	EventApproved  = "quest.approved"
	EventRejected  = "quest.rejected"
	EventExpired   = "quest.expired"
	EventMissed    = "quest.missed"
)

// Event describes one committed quest transition.
type Event struct {
	Type       string              `json:"type"`
	QuestID    string              `json:"quest_id"`
	FamilyID   int64               `json:"family_id"`
	ActorID    int64               `json:"actor_id"`
	AssigneeID *int64              `json:"assignee_id,omitempty"`
	Status     model.QuestStatus   `json:"status"`
	At         time.Time           `json:"at"`
	Reward     *reward.Amounts     `json:"reward,omitempty"`
	Level      *progression.Result `json:"level,omitempty"`
}

// Notifier receives committed transitions. Errors are logged by the caller
// and never undo the transition.
type Notifier interface {
	QuestChanged(ctx context.Context, ev Event) error
}

type nopNotifier struct{}

func (nopNotifier) QuestChanged(context.Context, Event) error { return nil }
