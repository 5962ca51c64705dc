package refdata

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/refdata/internal/matcher"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/logging"
)

const (
	maxSuggestions  = 3
	maxTopUnmatched = 10
	// statsWorkers bounds how many field mappings are evaluated at once.
	statsWorkers = 4
)

// UnmatchedValue is a sample value that neither a value mapping nor the
// matcher resolves.
type UnmatchedValue struct {
	RawValue        string          `json:"raw_value"`
	OccurrenceCount int             `json:"occurrence_count"`
	Suggestions     []matcher.Match `json:"suggestions"`
}

// UnmatchedRecord is an unmatched value with the mapping it was found under.
type UnmatchedRecord struct {
	MappingID    int64  `json:"mapping_id"`
	SourceTable  string `json:"source_table"`
	SourceField  string `json:"source_field"`
	RefDimension string `json:"ref_dimension"`
	UnmatchedValue
}

// FieldMatchStats summarizes how well the samples of one field mapping match.
type FieldMatchStats struct {
	MappingID       int64            `json:"mapping_id"`
	SourceTable     string           `json:"source_table"`
	SourceField     string           `json:"source_field"`
	RefDimension    string           `json:"ref_dimension"`
	TotalValues     int              `json:"total_values"`
	MatchedValues   int              `json:"matched_values"`
	UnmatchedValues int              `json:"unmatched_values"`
	MatchRate       float64          `json:"match_rate"`
	TopUnmatched    []UnmatchedValue `json:"top_unmatched"`
}

// fieldEvaluation is the outcome of matching the samples of one mapping.
type fieldEvaluation struct {
	mapping   storage.FieldMapping
	total     int
	matched   int
	unmatched []UnmatchedValue
}

// MatchStats computes match statistics for every field mapping of a
// connection, ordered by table then field.
func (h *Hub) MatchStats(ctx context.Context, connectionID int64) ([]FieldMatchStats, error) {
	evals, err := h.evaluateMappings(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	stats := make([]FieldMatchStats, 0, len(evals))
	for _, e := range evals {
		rate := 0.0
		if e.total > 0 {
			rate = float64(e.matched) / float64(e.total)
		}
		top := e.unmatched
		if len(top) > maxTopUnmatched {
			top = top[:maxTopUnmatched]
		}
		stats = append(stats, FieldMatchStats{
			MappingID:       e.mapping.ID,
			SourceTable:     e.mapping.SourceTable,
			SourceField:     e.mapping.SourceField,
			RefDimension:    e.mapping.RefDimension,
			TotalValues:     e.total,
			MatchedValues:   e.matched,
			UnmatchedValues: max(e.total-e.matched, 0),
			MatchRate:       rate,
			TopUnmatched:    top,
		})
	}
	return stats, nil
}

// Unmatched lists every unmatched sample value of a connection, most
// frequent first.
func (h *Hub) Unmatched(ctx context.Context, connectionID int64) ([]UnmatchedRecord, error) {
	evals, err := h.evaluateMappings(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	records := []UnmatchedRecord{}
	for _, e := range evals {
		for _, u := range e.unmatched {
			records = append(records, UnmatchedRecord{
				MappingID:      e.mapping.ID,
				SourceTable:    e.mapping.SourceTable,
				SourceField:    e.mapping.SourceField,
				RefDimension:   e.mapping.RefDimension,
				UnmatchedValue: u,
			})
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurrenceCount > records[j].OccurrenceCount
	})
	return records, nil
}

// evaluateMappings matches the samples of every field mapping concurrently.
// Results keep mapping order.
func (h *Hub) evaluateMappings(ctx context.Context, connectionID int64) ([]fieldEvaluation, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	cfg, err := h.systemConfig(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := h.store.ListFieldMappings(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithConnection(logging.Attach(ctx, h.logger), connectionID)

	evals := make([]fieldEvaluation, len(mappings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsWorkers)
	for i, mapping := range mappings {
		g.Go(func() error {
			eval, err := h.evaluateMapping(gctx, cfg, mapping)
			if err != nil {
				return err
			}
			evals[i] = eval
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

func (h *Hub) evaluateMapping(ctx context.Context, cfg storage.SystemConfig, mapping storage.FieldMapping) (fieldEvaluation, error) {
	eval := fieldEvaluation{mapping: mapping, unmatched: []UnmatchedValue{}}

	candidates, err := h.store.ListCanonicalValues(ctx, mapping.RefDimension)
	if err != nil {
		return eval, err
	}
	samples, err := h.store.ListSamples(ctx, mapping.SourceConnectionID, storage.SampleFilter{
		SourceTable: mapping.SourceTable,
		SourceField: mapping.SourceField,
	})
	if err != nil {
		return eval, err
	}
	existing, err := h.store.ListValueMappings(ctx, storage.ValueMappingFilter{
		ConnectionID: mapping.SourceConnectionID,
		SourceTable:  mapping.SourceTable,
		SourceField:  mapping.SourceField,
	})
	if err != nil {
		return eval, err
	}
	mapped := make(map[string]struct{}, len(existing))
	for _, vm := range existing {
		mapped[vm.RawValue] = struct{}{}
	}

	m := h.newMatcher(cfg, candidates)
	suggestAt := math.Max(cfg.MatchThreshold*0.75, 0.2)
	for _, sample := range samples {
		eval.total += sample.OccurrenceCount
		if _, ok := mapped[sample.RawValue]; ok {
			eval.matched += sample.OccurrenceCount
			continue
		}

		ranked := m.Rank(ctx, sample.RawValue)
		if len(ranked) > 0 && ranked[0].Score >= cfg.MatchThreshold {
			eval.matched += sample.OccurrenceCount
			continue
		}

		suggestions := []matcher.Match{}
		for _, r := range ranked {
			if r.Score >= suggestAt {
				suggestions = append(suggestions, r)
				if len(suggestions) == maxSuggestions {
					break
				}
			}
		}
		eval.unmatched = append(eval.unmatched, UnmatchedValue{
			RawValue:        sample.RawValue,
			OccurrenceCount: sample.OccurrenceCount,
			Suggestions:     suggestions,
		})
	}

	sort.SliceStable(eval.unmatched, func(i, j int) bool {
		return eval.unmatched[i].OccurrenceCount > eval.unmatched[j].OccurrenceCount
	})
	return eval, nil
}
