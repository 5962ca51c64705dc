package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Send(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestBroker() *Broker {
	logger := zerolog.Nop()
	return NewBroker(&logger)
}

func runBroker(t *testing.T, b *Broker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestBrokerFanOut(t *testing.T) {
	b := newTestBroker()
	sub1, sub2 := &recorder{}, &recorder{}
	b.Subscribe(sub1)
	b.Subscribe(sub2)
	runBroker(t, b)

	require.True(t, b.Publish(CanonicalCreated, map[string]any{"id": 1}))

	for _, sub := range []*recorder{sub1, sub2} {
		require.Eventually(t, func() bool { return len(sub.received()) == 1 }, time.Second, 5*time.Millisecond)
		event := sub.received()[0]
		assert.Equal(t, CanonicalCreated, event.Type)
		assert.EqualValues(t, 1, event.Seq)
		assert.False(t, event.Timestamp.IsZero())
	}
	assert.EqualValues(t, 1, b.Stats().Published)
}

func TestBrokerSequenceOrder(t *testing.T) {
	b := newTestBroker()
	sub := &recorder{}
	b.Subscribe(sub)
	runBroker(t, b)

	types := []EventType{DimensionCreated, CanonicalCreated, ValueMappingUpdated, ConfigUpdated}
	for _, typ := range types {
		b.Publish(typ, nil)
	}

	require.Eventually(t, func() bool { return len(sub.received()) == len(types) }, time.Second, 5*time.Millisecond)
	for i, event := range sub.received() {
		assert.Equal(t, types[i], event.Type)
		assert.EqualValues(t, i+1, event.Seq)
	}
}

func TestBrokerSubscriberFunc(t *testing.T) {
	b := newTestBroker()
	got := make(chan Event, 1)
	b.Subscribe(SubscriberFunc(func(e Event) error {
		got <- e
		return nil
	}))
	runBroker(t, b)

	b.Publish(ValueMappingDeleted, map[string]int64{"id": 3})

	select {
	case e := <-got:
		assert.Equal(t, ValueMappingDeleted, e.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber func not called")
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := newTestBroker()
	sub := &recorder{}
	unsubscribe := b.Subscribe(sub)
	require.Equal(t, 1, b.Stats().Subscribers)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.Stats().Subscribers)

	runBroker(t, b)
	b.Publish(ConfigUpdated, nil)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sub.received())
}

func TestBrokerSendErrorDoesNotStopFanOut(t *testing.T) {
	b := newTestBroker()
	failing := &recorder{err: errors.New("closed pipe")}
	healthy := &recorder{}
	b.Subscribe(failing)
	b.Subscribe(healthy)
	runBroker(t, b)

	b.Publish(ConfigUpdated, nil)
	b.Publish(DimensionDeleted, nil)

	require.Eventually(t, func() bool { return len(healthy.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, DimensionDeleted, healthy.received()[1].Type)
	require.Eventually(t, func() bool { return b.Stats().Failed == 2 }, time.Second, 5*time.Millisecond)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := newTestBroker()
	for range queueSize {
		require.True(t, b.Publish(ValueMappingCreated, nil))
	}
	for range 3 {
		assert.False(t, b.Publish(ValueMappingCreated, nil))
	}

	stats := b.Stats()
	assert.EqualValues(t, queueSize, stats.Published)
	assert.EqualValues(t, 3, stats.Dropped)
	assert.Equal(t, queueSize, stats.QueueDepth)
}

func TestEventTypeReference(t *testing.T) {
	tests := map[EventType]bool{
		CanonicalCreated:    true,
		DimensionDeleted:    true,
		ValueMappingCreated: false,
		ConfigUpdated:       false,
	}
	for typ, want := range tests {
		assert.Equal(t, want, typ.Reference(), typ)
	}
}
