package deg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	thr := DefaultThresholds()
	tests := []struct {
		name   string
		adjP   float64
		log2FC float64
		want   Regulation
	}{
		{"up", 0.01, 1.2, Upregulated},
		{"down", 0.01, -0.8, Downregulated},
		{"small effect", 0.01, 0.3, NotSignificant},
		{"p at threshold", 0.05, 2.0, NotSignificant},
		{"fc at threshold", 0.01, 0.5, NotSignificant},
		{"negative fc at threshold", 0.01, -0.5, NotSignificant},
		{"nan fc", 0.01, math.NaN(), NotSignificant},
		{"nan p", math.NaN(), 3, NotSignificant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.adjP, tt.log2FC, thr))
		})
	}
}

func TestReclassifyIdempotent(t *testing.T) {
	thr := Thresholds{AdjPValue: 0.1, Log2FC: 1}
	in := []Result{
		{Index: 0, AdjPValue: 0.01, Log2FoldChange: 2, Regulation: NotSignificant},
		{Index: 1, AdjPValue: 0.2, Log2FoldChange: -2, Regulation: Downregulated},
		{Index: 2, AdjPValue: 0.05, Log2FoldChange: -1.5},
	}
	once := Reclassify(in, thr)
	twice := Reclassify(once, thr)
	assert.Equal(t, once, twice)
	assert.Equal(t, Upregulated, once[0].Regulation)
	assert.Equal(t, NotSignificant, once[1].Regulation)
	assert.Equal(t, Downregulated, once[2].Regulation)
	// input untouched
	assert.Equal(t, NotSignificant, in[0].Regulation)
}

func TestSortByAdjustedPTiesByIndex(t *testing.T) {
	in := []Result{
		{Index: 0, AdjPValue: 0.5},
		{Index: 1, AdjPValue: 0.1},
		{Index: 2, AdjPValue: 0.1},
		{Index: 3, AdjPValue: math.NaN()},
		{Index: 4, AdjPValue: 0.01},
	}
	out := SortByAdjustedP(in)
	got := make([]int, len(out))
	for i, r := range out {
		got[i] = r.Index
	}
	assert.Equal(t, []int{4, 1, 2, 0, 3}, got)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		{Regulation: Upregulated},
		{Regulation: Downregulated},
		{Regulation: NotSignificant, Degenerate: true},
		{Regulation: NotSignificant},
	})
	assert.Equal(t, Summary{Total: 4, Upregulated: 1, Downregulated: 1, NotSignificant: 2, Degenerate: 1}, s)
	assert.Len(t, Significant([]Result{{Regulation: Upregulated}, {Regulation: NotSignificant}}), 1)
}
