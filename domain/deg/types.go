// Package deg defines differential expression results and their classification.
package deg

import (
	"math"
	"sort"
)

// Regulation is the significance/direction label of a feature.
type Regulation string

const (
	Upregulated    Regulation = "upregulated"
	Downregulated  Regulation = "downregulated"
	NotSignificant Regulation = "not_significant"
	// NotFound marks panel genes absent from the DEG table.
	NotFound Regulation = "not_found"
)

// Thresholds control classification. Comparisons are strict.
type Thresholds struct {
	AdjPValue float64 `json:"adj_p_value"`
	Log2FC    float64 `json:"log2_fold_change"`
}

// DefaultThresholds returns adj p < 0.05 and |log2FC| > 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{AdjPValue: 0.05, Log2FC: 0.5}
}

// Result is one scored feature.
type Result struct {
	Index          int        `json:"index"`
	ProbeID        string     `json:"probe_id"`
	GeneSymbol     string     `json:"gene_symbol"`
	ControlMean    float64    `json:"control_mean"`
	TreatedMean    float64    `json:"treated_mean"`
	Log2FoldChange float64    `json:"log2_fold_change"`
	TStatistic     float64    `json:"t_statistic"` // NaN when degenerate
	PValue         float64    `json:"p_value"`
	AdjPValue      float64    `json:"adj_p_value"`
	Regulation     Regulation `json:"regulation"`
	Degenerate     bool       `json:"degenerate"`
}

// Significant reports whether the result is up- or downregulated.
func (r Result) Significant() bool {
	return r.Regulation == Upregulated || r.Regulation == Downregulated
}

// Classify labels a feature from its adjusted p-value and log2 fold change.
func Classify(adjP, log2FC float64, thr Thresholds) Regulation {
	if math.IsNaN(adjP) || math.IsNaN(log2FC) || !(adjP < thr.AdjPValue) {
		return NotSignificant
	}
	switch {
	case log2FC > thr.Log2FC:
		return Upregulated
	case log2FC < -thr.Log2FC:
		return Downregulated
	default:
		return NotSignificant
	}
}

// Reclassify returns a copy of results relabelled under thr. Applying it twice
// with the same thresholds yields the same labels.
func Reclassify(results []Result, thr Thresholds) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		r.Regulation = Classify(r.AdjPValue, r.Log2FoldChange, thr)
		out[i] = r
	}
	return out
}

// SortByAdjustedP returns a copy ordered by adjusted p ascending, ties by Index.
func SortByAdjustedP(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := nanHigh(out[i].AdjPValue), nanHigh(out[j].AdjPValue)
		if pi != pj {
			return pi < pj
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Significant filters to up- and downregulated rows, preserving order.
func Significant(results []Result) []Result {
	out := make([]Result, 0)
	for _, r := range results {
		if r.Significant() {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts results per label.
type Summary struct {
	Total          int `json:"total"`
	Upregulated    int `json:"upregulated"`
	Downregulated  int `json:"downregulated"`
	NotSignificant int `json:"not_significant"`
	Degenerate     int `json:"degenerate"`
}

// Summarize tallies labels and degenerate features.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Regulation {
		case Upregulated:
			s.Upregulated++
		case Downregulated:
			s.Downregulated++
		default:
			s.NotSignificant++
		}
		if r.Degenerate {
			s.Degenerate++
		}
	}
	return s
}

func nanHigh(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(1)
	}
	return p
}
