package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
)

// queueSize bounds the events waiting for Run.
const queueSize = 256

// Broker queues published events and delivers them to subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uint64]Subscriber
	nextID      uint64

	queue  chan Event
	logger *zerolog.Logger

	seq       atomic.Uint64
	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time view of broker activity.
type Stats struct {
	Published   int64 `json:"published_total"`
	Dropped     int64 `json:"dropped_total"`
	Failed      int64 `json:"failed_sends_total"`
	QueueDepth  int   `json:"queue_depth"`
	Subscribers int   `json:"subscribers"`
}

// NewBroker creates a broker. Call Run to start delivery.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subscribers: make(map[uint64]Subscriber),
		queue:       make(chan Event, queueSize),
		logger:      logger,
	}
}

// Run delivers queued events until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Int("pending", len(b.queue)).Msg("Event broker stopped")
			return
		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

func (b *Broker) deliver(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(event); err != nil {
			b.failed.Add(1)
			b.logger.Warn().Err(err).
				Str("event_type", string(event.Type)).
				Uint64("seq", event.Seq).
				Msg("Subscriber rejected event")
		}
	}
	b.logger.Debug().
		Str("event_type", string(event.Type)).
		Uint64("seq", event.Seq).
		Int("subscribers", len(subs)).
		Msg("Event delivered")
}

// Publish queues an event. When the queue is full the event is dropped and
// no sequence number is consumed.
func (b *Broker) Publish(eventType EventType, data any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := Event{
		Seq:       b.seq.Load() + 1,
		Type:      eventType,
		Timestamp: utc.Now().Time,
		Data:      data,
	}
	select {
	case b.queue <- event:
		b.seq.Store(event.Seq)
		b.published.Add(1)
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn().Str("event_type", string(eventType)).Msg("Event queue full, event dropped")
		return false
	}
}

// Subscribe adds sub and returns a function that removes it. It is safe to
// call before Run.
func (b *Broker) Subscribe(sub Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = sub
	count := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug().Int("subscribers", count).Msg("Subscriber added")

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}

// Stats returns current counters.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	subscribers := len(b.subscribers)
	b.mu.RUnlock()
	return Stats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Failed:      b.failed.Load(),
		QueueDepth:  len(b.queue),
		Subscribers: subscribers,
	}
}
