// Package grouping splits samples into control and treated groups from their
// free-text characteristics.
package grouping

import (
	"strings"

	"degpredict/domain/core"
	"degpredict/domain/expression"
	"degpredict/internal"
	"degpredict/internal/errors"
)

const stage = "group_assignment"

// DefaultKeywords mark a sample as treated when found in its characteristics.
func DefaultKeywords() []string {
	return []string{"inhibitor", "pkc", "treated"}
}

// Resolver assigns samples to groups by keyword, falling back to a positional
// split when the keywords cannot separate the samples.
type Resolver struct {
	keywords []string
	logger   *internal.Logger
}

// NewResolver creates a resolver; an empty keyword list selects DefaultKeywords.
func NewResolver(keywords []string, logger *internal.Logger) *Resolver {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Resolver{keywords: lowered, logger: logger.With("GroupResolver")}
}

// Resolve partitions samples. The result always has two non-empty, disjoint
// groups covering every sample.
func (r *Resolver) Resolve(samples []expression.Sample) (expression.GroupAssignment, error) {
	if len(samples) < 2 {
		return expression.GroupAssignment{}, errors.StageInput(stage, "at least two samples required", core.ErrNoSamples)
	}

	var out expression.GroupAssignment
	for _, s := range samples {
		if r.isTreated(s) {
			out.Treated = append(out.Treated, s.ID)
		} else {
			out.Control = append(out.Control, s.ID)
		}
	}

	if len(out.Control) > 0 && len(out.Treated) > 0 {
		out.Method = expression.GroupKeyword
		r.logger.Info("keyword assignment: %d control, %d treated", len(out.Control), len(out.Treated))
		return out, nil
	}

	mid := len(samples) / 2
	fallback := expression.GroupAssignment{Method: expression.GroupPositionalFallback}
	for i, s := range samples {
		if i < mid {
			fallback.Control = append(fallback.Control, s.ID)
		} else {
			fallback.Treated = append(fallback.Treated, s.ID)
		}
	}
	r.logger.Warn("keywords %v did not separate %d samples; using positional split (%d control, %d treated)",
		r.keywords, len(samples), len(fallback.Control), len(fallback.Treated))
	return fallback, nil
}

func (r *Resolver) isTreated(s expression.Sample) bool {
	text := s.Descriptor()
	for _, k := range r.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
