package refdata

import "sync"

// Change types reported to hooks.
const (
	CanonicalCreated    = "canonical.created"
	CanonicalUpdated    = "canonical.updated"
	CanonicalDeleted    = "canonical.deleted"
	DimensionCreated    = "dimension.created"
	DimensionUpdated    = "dimension.updated"
	DimensionDeleted    = "dimension.deleted"
	ValueMappingCreated = "value_mapping.created"
	ValueMappingUpdated = "value_mapping.updated"
	ValueMappingDeleted = "value_mapping.deleted"
	ConfigUpdated       = "config.updated"
)

// Change describes a mutation made through the hub.
type Change struct {
	Type string
	Data any
}

// ChangeHook is called after a mutation is persisted.
type ChangeHook func(Change)

// hooks manages change callbacks
type hooks struct {
	mu       sync.RWMutex
	onChange []ChangeHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnChange registers a callback for every persisted mutation.
func (h *Hub) OnChange(fn ChangeHook) {
	h.hooks.mu.Lock()
	defer h.hooks.mu.Unlock()
	h.hooks.onChange = append(h.hooks.onChange, fn)
}

func (h *hooks) trigger(changeType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	change := Change{Type: changeType, Data: data}
	for _, fn := range h.onChange {
		fn(change)
	}
}
