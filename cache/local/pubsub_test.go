package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "family:1:quests")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "family:1:quests", "approved"))

	msg := recv(t, ch)
	assert.Equal(t, "family:1:quests", msg.Channel)
	assert.Equal(t, "approved", msg.Payload)
}

func TestPubSubCancelClosesOnce(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)

	cancel()
	assert.NotPanics(t, cancel)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.NoError(t, ps.Publish(ctx, "ch", "msg"))
}

func TestPubSubContextCancel(t *testing.T) {
	ps := NewPubSub(16)
	ctx, stop := context.WithCancel(context.Background())

	ch, _, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	stop()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscription not closed on context cancel")
	}
}

func TestPubSubMultipleChannels(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "a", "1"))
	require.NoError(t, ps.Publish(ctx, "b", "2"))
	assert.Equal(t, "1", recv(t, ch).Payload)
	assert.Equal(t, "2", recv(t, ch).Payload)
}

func TestPubSubDropsWhenFull(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	_, cancel, err := ps.Subscribe(ctx, "slow")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "slow", "1"))
	require.NoError(t, ps.Publish(ctx, "slow", "2"))
	assert.Equal(t, uint64(1), ps.Dropped())
}
