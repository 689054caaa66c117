package expression

import (
	"errors"
	"strings"
	"testing"

	"degpredict/domain/core"
)

func TestMatrixValidate(t *testing.T) {
	tests := []struct {
		name   string
		matrix *Matrix
		want   error
	}{
		{"nil", nil, core.ErrEmptyMatrix},
		{"no features", &Matrix{SampleIDs: []string{"a"}}, core.ErrEmptyMatrix},
		{"ragged", &Matrix{
			FeatureIDs: []string{"p1", "p2"},
			SampleIDs:  []string{"a", "b"},
			Values:     [][]float64{{1, 2}, {3}},
		}, core.ErrRaggedMatrix},
		{"symbol count", &Matrix{
			FeatureIDs: []string{"p1"},
			Symbols:    []string{"A", "B"},
			SampleIDs:  []string{"a"},
			Values:     [][]float64{{1}},
		}, core.ErrRaggedMatrix},
		{"ok", &Matrix{
			FeatureIDs: []string{"p1"},
			SampleIDs:  []string{"a", "b"},
			Values:     [][]float64{{1, 2}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.matrix.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMatrixSymbolFallback(t *testing.T) {
	m := &Matrix{FeatureIDs: []string{"p1", "p2"}, Symbols: []string{"ITPR1", " "}}
	if m.Symbol(0) != "ITPR1" {
		t.Errorf("Symbol(0) = %s", m.Symbol(0))
	}
	if m.Symbol(1) != "p2" {
		t.Errorf("Symbol(1) = %s, want probe fallback", m.Symbol(1))
	}
}

func TestMatrixColumnIndexMissingSample(t *testing.T) {
	m := &Matrix{SampleIDs: []string{"GSM1", "GSM2"}}
	cols, err := m.ColumnIndex([]string{"GSM2", "GSM1"})
	if err != nil {
		t.Fatal(err)
	}
	if cols[0] != 1 || cols[1] != 0 {
		t.Errorf("cols = %v", cols)
	}
	_, err = m.ColumnIndex([]string{"GSM9"})
	if !errors.Is(err, core.ErrMissingSample) {
		t.Fatalf("expected missing sample, got %v", err)
	}
}

func TestGroupAssignmentValidate(t *testing.T) {
	all := []string{"a", "b", "c"}
	ok := GroupAssignment{Control: []string{"a"}, Treated: []string{"b", "c"}}
	if err := ok.Validate(all); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	empty := GroupAssignment{Control: nil, Treated: all}
	if !errors.Is(empty.Validate(all), core.ErrEmptyGroup) {
		t.Error("expected empty group error")
	}
	overlap := GroupAssignment{Control: []string{"a", "b"}, Treated: []string{"b", "c"}}
	if !errors.Is(overlap.Validate(all), core.ErrOverlapGroups) {
		t.Error("expected overlap error")
	}
	partial := GroupAssignment{Control: []string{"a"}, Treated: []string{"b"}}
	if err := partial.Validate(all); !errors.Is(err, core.ErrUnassignedSample) || !strings.HasSuffix(err.Error(), ": c") {
		t.Errorf("expected unassigned sample c, got %v", err)
	}
	unknown := GroupAssignment{Control: []string{"a"}, Treated: []string{"b", "c", "z"}}
	if err := unknown.Validate(all); !errors.Is(err, core.ErrMissingSample) {
		t.Errorf("expected missing sample z, got %v", err)
	}
}
