package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
)

// collector accumulates delivered events for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) first() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[0]
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewWatermillBus(logger.NewNopLogger())
	t.Cleanup(func() { bus.Close() })

	var c collector
	require.NoError(t, bus.Subscribe(context.Background(), TypeFeatureCreated, c.handle))

	bus.Publish(FeatureCreated{
		Name:       "driver_is_online",
		EntityType: "DRIVER",
		Source:     "STREAM",
		OccurredAt: time.Now(),
	})

	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	got := c.first()
	assert.Equal(t, TypeFeatureCreated, got.EventType())
	assert.Equal(t, "driver_is_online", got.Payload()["name"])
	assert.Equal(t, "DRIVER", got.Payload()["entity_type"])
}

func TestSubscribeOnlySeesOwnTopic(t *testing.T) {
	bus := NewWatermillBus(logger.NewNopLogger())
	t.Cleanup(func() { bus.Close() })

	var created, written collector
	ctx := context.Background()
	require.NoError(t, bus.Subscribe(ctx, TypeFeatureCreated, created.handle))
	require.NoError(t, bus.Subscribe(ctx, TypeValueWritten, written.handle))

	bus.Publish(ValueWritten{
		FeatureName: "driver_is_online",
		EntityType:  "DRIVER",
		EntityId:    "drv-1",
		OccurredAt:  time.Now(),
	})

	assert.Eventually(t, func() bool { return written.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, created.count())
}

func TestPublishDoesNotBlockWithoutSubscribers(t *testing.T) {
	bus := NewWatermillBus(logger.NewNopLogger())
	t.Cleanup(func() { bus.Close() })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(FeatureDeprecated{Name: "f", OccurredAt: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked without subscribers")
	}
}
