package sse

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster(t *testing.T, opts ...Option) (*Broadcaster, context.CancelFunc) {
	t.Helper()
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger, opts...)
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
	return b, cancel
}

// frameReader reads blank-line separated SSE frames.
type frameReader struct {
	t *testing.T
	r *bufio.Reader
}

func (f frameReader) next() []string {
	f.t.Helper()
	var lines []string
	for {
		line, err := f.r.ReadString('\n')
		require.NoError(f.t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func connect(t *testing.T, srv *httptest.Server) (frameReader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return frameReader{t: t, r: bufio.NewReader(resp.Body)}, func() {
		cancel()
		_ = resp.Body.Close()
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b, _ := newBroadcaster(t)
	srv := httptest.NewServer(b)
	defer srv.Close()

	frames, disconnect := connect(t, srv)
	defer disconnect()

	hello := frames.next()
	require.Len(t, hello, 4)
	assert.Equal(t, "retry: 3000", hello[0])
	assert.Equal(t, "event: connected", hello[1])

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Broadcast(Event{Name: "canonical.deleted", ID: "7", Data: map[string]any{"id": 7}})

	assert.Equal(t, []string{"event: canonical.deleted", "id: 7", `data: {"id":7}`}, frames.next())
}

func TestServeHTTPHeartbeat(t *testing.T) {
	b, _ := newBroadcaster(t, WithHeartbeat(20*time.Millisecond))
	srv := httptest.NewServer(b)
	defer srv.Close()

	frames, disconnect := connect(t, srv)
	defer disconnect()

	frames.next()
	assert.Equal(t, []string{": keepalive"}, frames.next())
}

func TestClientLeaving(t *testing.T) {
	b, _ := newBroadcaster(t)
	srv := httptest.NewServer(b)
	defer srv.Close()

	frames, disconnect := connect(t, srv)
	frames.next()
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	disconnect()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestShutdownEndsStreams(t *testing.T) {
	b, cancel := newBroadcaster(t)
	srv := httptest.NewServer(b)
	defer srv.Close()

	frames, disconnect := connect(t, srv)
	defer disconnect()
	frames.next()
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w.Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcastSkipsFullStream(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	s, ok := b.open()
	require.True(t, ok)

	for range streamBuffer + 2 {
		b.Broadcast(Event{Name: "value_mapping.created"})
	}
	assert.EqualValues(t, 2, b.Skipped())
	assert.Equal(t, 1, b.ClientCount())

	b.release(s)
	b.release(s)
	assert.Zero(t, b.ClientCount())
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, Event{Data: []string{"a"}}))
	assert.Equal(t, "data: [\"a\"]\n\n", buf.String())

	assert.Error(t, writeFrame(&buf, Event{Data: make(chan int)}))
}
