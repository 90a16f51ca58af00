// Package notify fans committed quest transitions out over pub/sub, one
// channel per family.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/cache"
	"github.com/kasuganosora/hearthquest/game/quest"
)

// Channel returns the pub/sub channel carrying a family's quest events.
func Channel(familyID int64) string {
	return fmt.Sprintf("family:%d:quests", familyID)
}

// Publisher implements quest.Notifier on a cache.PubSub.
type Publisher struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(ps cache.PubSub, logger *zap.Logger) *Publisher {
	return &Publisher{ps: ps, logger: logger}
}

// QuestChanged publishes ev as JSON on the family channel.
func (p *Publisher) QuestChanged(ctx context.Context, ev quest.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	if err := p.ps.Publish(ctx, Channel(ev.FamilyID), string(payload)); err != nil {
		return fmt.Errorf("notify: publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe streams decoded events for familyID until ctx is done or the
// returned cancel function is called. Undecodable payloads are skipped.
func (p *Publisher) Subscribe(ctx context.Context, familyID int64) (<-chan quest.Event, func(), error) {
	msgs, cancel, err := p.ps.Subscribe(ctx, Channel(familyID))
	if err != nil {
		return nil, nil, fmt.Errorf("notify: subscribe: %w", err)
	}
	out := make(chan quest.Event, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev quest.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.logger.Warn("notify: bad event payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}
