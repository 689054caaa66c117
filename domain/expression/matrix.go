package expression

import (
	"fmt"
	"strings"

	"degpredict/domain/core"
)

// Matrix is a features x samples table of log-scale expression values.
// Values[i][j] is feature i measured in sample SampleIDs[j].
type Matrix struct {
	FeatureIDs []string
	Symbols    []string // optional, parallel to FeatureIDs
	SampleIDs  []string
	Values     [][]float64
}

// Features returns the number of rows.
func (m *Matrix) Features() int { return len(m.FeatureIDs) }

// Validate reports input-shape problems: no features, no samples, or a row
// whose length differs from the sample count.
func (m *Matrix) Validate() error {
	if m == nil || len(m.FeatureIDs) == 0 || len(m.SampleIDs) == 0 {
		return core.ErrEmptyMatrix
	}
	if len(m.Values) != len(m.FeatureIDs) {
		return fmt.Errorf("%w: %d value rows for %d features", core.ErrRaggedMatrix, len(m.Values), len(m.FeatureIDs))
	}
	if m.Symbols != nil && len(m.Symbols) != len(m.FeatureIDs) {
		return fmt.Errorf("%w: %d symbols for %d features", core.ErrRaggedMatrix, len(m.Symbols), len(m.FeatureIDs))
	}
	for i, row := range m.Values {
		if len(row) != len(m.SampleIDs) {
			return fmt.Errorf("%w: feature %s has %d values, want %d", core.ErrRaggedMatrix, m.FeatureIDs[i], len(row), len(m.SampleIDs))
		}
	}
	return nil
}

// Symbol returns the gene symbol of feature i, falling back to the feature ID.
func (m *Matrix) Symbol(i int) string {
	if i < len(m.Symbols) {
		if s := strings.TrimSpace(m.Symbols[i]); s != "" {
			return s
		}
	}
	return m.FeatureIDs[i]
}

// ColumnIndex resolves sample IDs to matrix columns.
func (m *Matrix) ColumnIndex(ids []string) ([]int, error) {
	pos := make(map[string]int, len(m.SampleIDs))
	for j, id := range m.SampleIDs {
		pos[id] = j
	}
	cols := make([]int, len(ids))
	for k, id := range ids {
		j, ok := pos[id]
		if !ok {
			return nil, core.NewMissingSampleError(id)
		}
		cols[k] = j
	}
	return cols, nil
}

// Row gathers feature i's values at the given columns into dst.
func (m *Matrix) Row(i int, cols []int, dst []float64) []float64 {
	dst = dst[:0]
	for _, j := range cols {
		dst = append(dst, m.Values[i][j])
	}
	return dst
}

// WithSymbols returns a shallow copy whose Symbols are replaced.
func (m *Matrix) WithSymbols(symbols []string) *Matrix {
	out := *m
	out.Symbols = symbols
	return &out
}
