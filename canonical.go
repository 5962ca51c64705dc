package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/matcher"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// CanonicalValueCreate is the payload for creating a canonical value.
type CanonicalValueCreate struct {
	Dimension      string         `json:"dimension"`
	CanonicalLabel string         `json:"canonical_label"`
	Description    *string        `json:"description"`
	Attributes     map[string]any `json:"attributes"`
}

// CanonicalValueUpdate is a partial update. Nil fields are left unchanged.
type CanonicalValueUpdate struct {
	Dimension      *string        `json:"dimension"`
	CanonicalLabel *string        `json:"canonical_label"`
	Description    *string        `json:"description"`
	Attributes     map[string]any `json:"attributes"`
}

// MatchRequest asks for canonical matches of a raw value.
type MatchRequest struct {
	RawText   string  `json:"raw_text"`
	Dimension *string `json:"dimension"`
}

// MatchResponse carries the matches at or above the threshold.
type MatchResponse struct {
	RawText   string          `json:"raw_text"`
	Dimension string          `json:"dimension"`
	Matches   []matcher.Match `json:"matches"`
}

// ListCanonicalValues returns every canonical value ordered by dimension
// then label.
func (h *Hub) ListCanonicalValues(ctx context.Context) ([]storage.CanonicalValue, error) {
	return h.store.ListCanonicalValues(ctx, "")
}

// CreateCanonicalValue validates the payload against its dimension and
// persists it.
func (h *Hub) CreateCanonicalValue(ctx context.Context, in CanonicalValueCreate) (storage.CanonicalValue, error) {
	value, err := h.createCanonical(ctx, in)
	if err != nil {
		return value, err
	}
	h.hooks.trigger(CanonicalCreated, value)
	return value, nil
}

func (h *Hub) createCanonical(ctx context.Context, in CanonicalValueCreate) (storage.CanonicalValue, error) {
	code := strings.TrimSpace(in.Dimension)
	label := strings.TrimSpace(in.CanonicalLabel)
	if code == "" {
		return storage.CanonicalValue{}, errors.NewValidationError("dimension", in.Dimension, "Dimension is required.")
	}
	if label == "" {
		return storage.CanonicalValue{}, errors.NewValidationError("canonical_label", in.CanonicalLabel, "Canonical label is required.")
	}
	dimension, err := h.store.GetDimension(ctx, code)
	if err != nil {
		return storage.CanonicalValue{}, err
	}
	attrs, err := dimensions.ValidateAttributes(dimension, in.Attributes)
	if err != nil {
		return storage.CanonicalValue{}, err
	}

	value := storage.CanonicalValue{
		Dimension:      code,
		CanonicalLabel: label,
		Description:    trimmed(in.Description),
		Attributes:     attrs,
	}
	if err := h.store.CreateCanonicalValue(ctx, &value); err != nil {
		return storage.CanonicalValue{}, err
	}
	return value, nil
}

// UpdateCanonicalValue applies a partial update. Attributes are revalidated
// against the target dimension whenever the dimension or attributes change.
func (h *Hub) UpdateCanonicalValue(ctx context.Context, id int64, in CanonicalValueUpdate) (storage.CanonicalValue, error) {
	value, err := h.store.GetCanonicalValue(ctx, id)
	if err != nil {
		return value, err
	}

	revalidate := in.Attributes != nil
	if in.Dimension != nil {
		code := strings.TrimSpace(*in.Dimension)
		if code != value.Dimension {
			value.Dimension = code
			revalidate = true
		}
	}
	if in.CanonicalLabel != nil {
		label := strings.TrimSpace(*in.CanonicalLabel)
		if label == "" {
			return value, errors.NewValidationError("canonical_label", *in.CanonicalLabel, "Canonical label is required.")
		}
		value.CanonicalLabel = label
	}
	if in.Description != nil {
		value.Description = trimmed(in.Description)
	}

	if revalidate {
		dimension, err := h.store.GetDimension(ctx, value.Dimension)
		if err != nil {
			return value, err
		}
		attrs := value.Attributes
		if in.Attributes != nil {
			attrs = in.Attributes
		}
		if value.Attributes, err = dimensions.ValidateAttributes(dimension, attrs); err != nil {
			return value, err
		}
	}

	if err := h.store.UpdateCanonicalValue(ctx, value); err != nil {
		return value, err
	}
	h.hooks.trigger(CanonicalUpdated, value)
	return value, nil
}

// DeleteCanonicalValue removes a canonical value with its relation links.
func (h *Hub) DeleteCanonicalValue(ctx context.Context, id int64) error {
	if err := h.store.DeleteCanonicalValue(ctx, id); err != nil {
		return err
	}
	h.hooks.trigger(CanonicalDeleted, map[string]int64{"id": id})
	return nil
}

// Propose ranks the canonical values of the requested dimension against the
// raw text and records the raw value with the outcome.
func (h *Hub) Propose(ctx context.Context, in MatchRequest) (MatchResponse, error) {
	if in.RawText == "" {
		return MatchResponse{}, errors.NewValidationError("raw_text", in.RawText, "raw_text must not be empty.")
	}
	cfg, err := h.systemConfig(ctx)
	if err != nil {
		return MatchResponse{}, err
	}

	dimension := cfg.DefaultDimension
	if in.Dimension != nil && strings.TrimSpace(*in.Dimension) != "" {
		dimension = strings.TrimSpace(*in.Dimension)
	}
	ctx = logging.WithDimension(logging.Attach(ctx, h.logger), dimension)

	candidates, err := h.store.ListCanonicalValues(ctx, dimension)
	if err != nil {
		return MatchResponse{}, err
	}
	if len(candidates) == 0 && dimension != cfg.DefaultDimension {
		if candidates, err = h.store.ListCanonicalValues(ctx, cfg.DefaultDimension); err != nil {
			return MatchResponse{}, err
		}
	}

	ranked := h.newMatcher(cfg, candidates).Rank(ctx, in.RawText)
	matches := make([]matcher.Match, 0, len(ranked))
	for _, m := range ranked {
		if m.Score >= cfg.MatchThreshold {
			matches = append(matches, m)
		}
	}

	raw := storage.RawValue{
		Dimension: dimension,
		RawText:   in.RawText,
		Status:    storage.RawStatusPending,
	}
	if len(matches) > 0 {
		raw.Status = storage.RawStatusSuggested
		raw.ProposedCanonicalID = &matches[0].CanonicalID
	}
	if err := h.store.CreateRawValue(ctx, &raw); err != nil {
		return MatchResponse{}, fmt.Errorf("recording raw value: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("status", raw.Status).
		Int("matches", len(matches)).
		Msg("proposed canonical matches")

	return MatchResponse{RawText: in.RawText, Dimension: dimension, Matches: matches}, nil
}

// Rank scores the canonical values of a dimension, or of every dimension
// when dimension is empty, without recording anything.
func (h *Hub) Rank(ctx context.Context, raw, dimension string) ([]matcher.Match, error) {
	cfg, err := h.systemConfig(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := h.store.ListCanonicalValues(ctx, dimension)
	if err != nil {
		return nil, err
	}
	return h.newMatcher(cfg, candidates).Rank(ctx, raw), nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
