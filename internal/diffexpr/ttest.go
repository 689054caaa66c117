package diffexpr

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is a pooled-variance two-sample t-test outcome.
type TTestResult struct {
	TreatedMean float64
	ControlMean float64
	T           float64 // NaN when degenerate
	P           float64 // 1.0 when degenerate
	DF          int
	Degenerate  bool
	Reason      string
}

// StudentTTest compares treated against control with equal variances assumed.
// Non-finite values are dropped per group. A group with fewer than two values,
// zero pooled variance or a non-finite statistic yields a degenerate result
// with P = 1 and T = NaN.
func StudentTTest(treated, control []float64) TTestResult {
	tr := finite(treated)
	ct := finite(control)

	res := TTestResult{
		TreatedMean: mean(tr),
		ControlMean: mean(ct),
		T:           math.NaN(),
		P:           1.0,
	}

	n1, n2 := len(tr), len(ct)
	if n1 < 2 || n2 < 2 {
		res.Degenerate = true
		res.Reason = "fewer than two finite values in a group"
		return res
	}

	v1, err1 := stats.SampleVariance(tr)
	v2, err2 := stats.SampleVariance(ct)
	if err1 != nil || err2 != nil {
		res.Degenerate = true
		res.Reason = "variance undefined"
		return res
	}

	res.DF = n1 + n2 - 2
	pooled := (float64(n1-1)*v1 + float64(n2-1)*v2) / float64(res.DF)
	se := math.Sqrt(pooled * (1/float64(n1) + 1/float64(n2)))
	if se == 0 || math.IsNaN(se) {
		res.Degenerate = true
		res.Reason = "zero pooled variance"
		return res
	}

	t := (res.TreatedMean - res.ControlMean) / se
	if math.IsNaN(t) || math.IsInf(t, 0) {
		res.Degenerate = true
		res.Reason = "non-finite statistic"
		return res
	}

	res.T = t
	res.P = twoTailedP(t, res.DF)
	return res
}

// twoTailedP returns 2*P(T > |t|) under Student's t with df degrees of freedom.
func twoTailedP(t float64, df int) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		return 1
	}
	return p
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
