// Package expression holds the expression matrix, sample metadata and the
// control/treated group assignment consumed by differential expression.
package expression

import (
	"fmt"
	"strings"

	"degpredict/domain/core"
)

// Sample describes one expression profile column.
type Sample struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Source          string `json:"source"`
	Characteristics string `json:"characteristics"`
}

// Descriptor is the lower-cased text that group keywords are matched against.
func (s Sample) Descriptor() string {
	return strings.ToLower(s.Characteristics)
}

// GroupMethod records how a GroupAssignment was derived.
type GroupMethod string

const (
	GroupKeyword            GroupMethod = "keyword"
	GroupPositionalFallback GroupMethod = "positional_fallback"
)

// GroupAssignment partitions sample IDs into control and treated sets.
type GroupAssignment struct {
	Control []string    `json:"control"`
	Treated []string    `json:"treated"`
	Method  GroupMethod `json:"method"`
}

// Validate checks the partition invariants against the matrix columns:
// both sets non-empty and disjoint, every assigned id a known column and
// every column assigned.
func (g GroupAssignment) Validate(columns []string) error {
	if len(g.Control) == 0 || len(g.Treated) == 0 {
		return fmt.Errorf("%w: control=%d treated=%d", core.ErrEmptyGroup, len(g.Control), len(g.Treated))
	}
	known := make(map[string]bool, len(columns))
	for _, id := range columns {
		known[id] = true
	}
	seen := make(map[string]bool, len(g.Control)+len(g.Treated))
	for _, id := range g.Control {
		seen[id] = true
	}
	for _, id := range g.Treated {
		if seen[id] {
			return fmt.Errorf("%w: %s", core.ErrOverlapGroups, id)
		}
		seen[id] = true
	}
	for _, group := range [][]string{g.Control, g.Treated} {
		for _, id := range group {
			if !known[id] {
				return core.NewMissingSampleError(id)
			}
		}
	}
	for _, id := range columns {
		if !seen[id] {
			return fmt.Errorf("%w: %s", core.ErrUnassignedSample, id)
		}
	}
	return nil
}
