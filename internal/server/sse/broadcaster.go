// Package sse streams hub change events to Server-Sent Events clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	streamBuffer     = 64
	defaultHeartbeat = 25 * time.Second
	retryMillis      = 3000
)

// Event is one SSE frame.
type Event struct {
	Name string
	ID   string
	Data any
}

type stream struct {
	id     string
	events chan Event
}

// Broadcaster writes broadcast events to every open event stream. A stream
// whose buffer is full misses the event; the connection is kept.
type Broadcaster struct {
	mu      sync.Mutex
	streams map[*stream]struct{}
	closed  bool

	heartbeat time.Duration
	logger    *zerolog.Logger

	skipped atomic.Int64
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithHeartbeat sets how often an idle stream receives a comment line.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(logger *zerolog.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		streams:   make(map[*stream]struct{}),
		heartbeat: defaultHeartbeat,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run blocks until ctx is cancelled, then ends every open stream and
// refuses new ones.
func (b *Broadcaster) Run(ctx context.Context) {
	<-ctx.Done()

	b.mu.Lock()
	b.closed = true
	n := len(b.streams)
	for s := range b.streams {
		close(s.events)
		delete(b.streams, s)
	}
	b.mu.Unlock()

	b.logger.Info().Int("streams", n).Msg("SSE broadcaster stopped")
}

// Broadcast queues event on every open stream.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.streams {
		select {
		case s.events <- event:
		default:
			b.skipped.Add(1)
			b.logger.Warn().Str("stream_id", s.id).Str("event", event.Name).Msg("SSE stream buffer full, event skipped")
		}
	}
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

// Skipped returns how many per-stream deliveries were skipped.
func (b *Broadcaster) Skipped() int64 { return b.skipped.Load() }

func (b *Broadcaster) open() (*stream, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	s := &stream{id: uuid.NewString(), events: make(chan Event, streamBuffer)}
	b.streams[s] = struct{}{}
	return s, true
}

func (b *Broadcaster) release(s *stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[s]; ok {
		delete(b.streams, s)
		close(s.events)
	}
}

// ServeHTTP holds an event stream open until the client leaves or the
// broadcaster stops.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	s, ok := b.open()
	if !ok {
		http.Error(w, "Event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer b.release(s)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	log := b.logger.With().Str("stream_id", s.id).Logger()
	log.Debug().Str("remote_addr", r.RemoteAddr).Msg("SSE stream opened")
	defer log.Debug().Msg("SSE stream closed")

	_, _ = fmt.Fprintf(w, "retry: %d\n", retryMillis)
	if err := writeFrame(w, Event{Name: "connected", ID: s.id, Data: map[string]string{"stream_id": s.id}}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-s.events:
			if !ok {
				return
			}
			if err := writeFrame(w, event); err != nil {
				log.Warn().Err(err).Msg("SSE write failed")
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame writes one event in text/event-stream framing with a JSON data
// line.
func writeFrame(w io.Writer, event Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode sse data: %w", err)
	}
	if event.Name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Name); err != nil {
			return err
		}
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
