// Package diffexpr scores every feature of an expression matrix for
// differential expression between treated and control samples.
package diffexpr

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/internal"
	"degpredict/internal/errors"
)

const (
	stage            = "differential_expression"
	defaultChunkSize = 512
)

// Engine runs per-feature t-tests in parallel, then applies the BH correction
// and classification over the whole result set.
type Engine struct {
	workers   int
	chunkSize int
	logger    *internal.Logger
}

// NewEngine creates an engine bounded to workers goroutines (GOMAXPROCS when < 1).
func NewEngine(workers int, logger *internal.Logger) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{workers: workers, chunkSize: defaultChunkSize, logger: logger.With("DEG")}
}

// WithChunkSize overrides how many features one task scores.
func (e *Engine) WithChunkSize(n int) *Engine {
	c := *e
	if n > 0 {
		c.chunkSize = n
	}
	return &c
}

// Analyze scores, corrects and classifies every feature. Results are ordered by
// adjusted p-value ascending, ties by original feature index.
func (e *Engine) Analyze(ctx context.Context, m *expression.Matrix, groups expression.GroupAssignment, thr deg.Thresholds) ([]deg.Result, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.StageInput(stage, "expression matrix", err)
	}
	if err := groups.Validate(m.SampleIDs); err != nil {
		return nil, errors.StageInput(stage, "group assignment", err)
	}
	treatedCols, err := m.ColumnIndex(groups.Treated)
	if err != nil {
		return nil, errors.StageInput(stage, "treated samples", err)
	}
	controlCols, err := m.ColumnIndex(groups.Control)
	if err != nil {
		return nil, errors.StageInput(stage, "control samples", err)
	}

	results, err := e.score(ctx, m, treatedCols, controlCols)
	if err != nil {
		return nil, err
	}

	pValues := make([]float64, len(results))
	for i := range results {
		pValues[i] = results[i].PValue
	}
	for i, q := range BenjaminiHochberg(pValues) {
		results[i].AdjPValue = q
		results[i].Regulation = deg.Classify(q, results[i].Log2FoldChange, thr)
	}

	sorted := deg.SortByAdjustedP(results)
	s := deg.Summarize(sorted)
	e.logger.Info("scored %d features: %d up, %d down, %d not significant (%d degenerate)",
		s.Total, s.Upregulated, s.Downregulated, s.NotSignificant, s.Degenerate)
	return sorted, nil
}

// score fills one result slot per feature. Each task owns a disjoint index
// range, so no locking is needed.
func (e *Engine) score(ctx context.Context, m *expression.Matrix, treatedCols, controlCols []int) ([]deg.Result, error) {
	n := m.Features()
	results := make([]deg.Result, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for start := 0; start < n; start += e.chunkSize {
		end := start + e.chunkSize
		if end > n {
			end = n
		}
		lo, hi := start, end
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tbuf := make([]float64, 0, len(treatedCols))
			cbuf := make([]float64, 0, len(controlCols))
			for i := lo; i < hi; i++ {
				tbuf = m.Row(i, treatedCols, tbuf)
				cbuf = m.Row(i, controlCols, cbuf)
				results[i] = e.scoreFeature(m, i, tbuf, cbuf)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) scoreFeature(m *expression.Matrix, i int, treated, control []float64) deg.Result {
	tt := StudentTTest(treated, control)
	if tt.Degenerate {
		e.logger.Debug("feature %s degenerate: %s", m.FeatureIDs[i], tt.Reason)
	}
	return deg.Result{
		Index:          i,
		ProbeID:        m.FeatureIDs[i],
		GeneSymbol:     m.Symbol(i),
		ControlMean:    tt.ControlMean,
		TreatedMean:    tt.TreatedMean,
		Log2FoldChange: tt.TreatedMean - tt.ControlMean,
		TStatistic:     tt.T,
		PValue:         tt.P,
		Degenerate:     tt.Degenerate,
	}
}
