package geo

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Normalize applies the fixed preprocessing: log2(x+1) followed by
// rank-based quantile normalisation across samples. The input is left
// untouched.
func Normalize(values [][]float64) [][]float64 {
	return QuantileNormalize(Log2Transform(values))
}

// Log2Transform returns log2(x+1) for every cell. Cells at or below -1 and
// non-finite cells become NaN.
func Log2Transform(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= -1 {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = math.Log2(v + 1)
		}
	}
	return out
}

// QuantileNormalize replaces each value with the mean, across samples, of
// the sorted values at its rank. Ties take the lowest rank. Missing values
// stay missing and do not contribute to the rank means.
func QuantileNormalize(values [][]float64) [][]float64 {
	if len(values) == 0 {
		return nil
	}
	cols := len(values[0])

	sorted := make([][]float64, cols)
	longest := 0
	for j := 0; j < cols; j++ {
		col := make([]float64, 0, len(values))
		for _, row := range values {
			if j < len(row) && !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		sort.Float64s(col)
		sorted[j] = col
		if len(col) > longest {
			longest = len(col)
		}
	}

	rankMeans := make([]float64, longest)
	buf := make([]float64, 0, cols)
	for k := 0; k < longest; k++ {
		buf = buf[:0]
		for _, col := range sorted {
			if k < len(col) {
				buf = append(buf, col[k])
			}
		}
		rankMeans[k], _ = stats.Mean(buf)
	}

	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = rankMeans[sort.SearchFloat64s(sorted[j], v)]
		}
	}
	return out
}
