package diffexpr

import (
	"math"
	"sort"
)

// BenjaminiHochberg returns step-up adjusted p-values in input order.
// Adjusted values are capped at 1, never smaller than the raw value and
// preserve the raw rank order. NaN inputs are treated as 1.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}

	raw := make([]float64, m)
	order := make([]int, m)
	for i, p := range pValues {
		if math.IsNaN(p) {
			p = 1
		}
		raw[i] = p
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return raw[order[a]] < raw[order[b]] })

	// q at rank k is min over ranks j >= k of p_(j) * m / j
	running := 1.0
	for k := m - 1; k >= 0; k-- {
		idx := order[k]
		q := raw[idx] * float64(m) / float64(k+1)
		if q < running {
			running = q
		}
		// p*m/m can round one ulp below p at the top rank
		adjusted[idx] = math.Max(running, raw[idx])
	}
	return adjusted
}
