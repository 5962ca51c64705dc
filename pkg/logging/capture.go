package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Capture records JSON log events in memory for assertions in tests.
type Capture struct {
	Logger *zerolog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCapture returns a trace-level capturing logger. The zerolog global
// level is lowered for the duration of the test.
func NewCapture(tb testing.TB) *Capture {
	tb.Helper()

	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	tb.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	c := &Capture{}
	logger := zerolog.New(c).Level(zerolog.TraceLevel)
	c.Logger = &logger
	return c
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes every captured event. Lines that are not JSON are skipped.
func (c *Capture) Entries() []map[string]any {
	c.mu.Lock()
	raw := c.buf.String()
	c.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil {
			out = append(out, entry)
		}
	}
	return out
}

// Find returns the first event whose message is msg.
func (c *Capture) Find(msg string) (map[string]any, bool) {
	for _, e := range c.Entries() {
		if e[zerolog.MessageFieldName] == msg {
			return e, true
		}
	}
	return nil, false
}
