// Package mechanism turns panel entries into mechanistic predictions using a
// data-driven rule table.
package mechanism

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"degpredict/domain/panel"
	"degpredict/domain/prediction"
	"degpredict/internal"
)

// Engine applies a RuleTable to panel entries. It holds no mutable state.
type Engine struct {
	table   *RuleTable
	tissue  string
	workers int
	logger  *internal.Logger
}

// NewEngine creates an engine predicting for the given target tissue.
func NewEngine(table *RuleTable, tissue string, workers int) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if tissue == "" {
		tissue = "the target tissue"
	}
	return &Engine{table: table, tissue: tissue, workers: workers, logger: internal.DefaultLogger.With("Inference")}
}

// WithLogger returns a copy of the engine logging to logger.
func (e *Engine) WithLogger(logger *internal.Logger) *Engine {
	c := *e
	if logger != nil {
		c.logger = logger.With("Inference")
	}
	return &c
}

// Variant is the name of the rule table in use.
func (e *Engine) Variant() string { return e.table.Name() }

// Predict derives one record from one entry. A gene not expressed in the target
// tissue is downgraded to very_low with a caveat; predicted changes are kept.
func (e *Engine) Predict(entry panel.Entry) prediction.Record {
	outcome, key := e.table.Lookup(entry.Gene, entry.Pathway, DirectionOf(entry.Regulation))

	rationale := strings.NewReplacer(
		"{gene}", entry.Gene,
		"{pathway}", entry.Pathway,
		"{tissue}", e.tissue,
	).Replace(outcome.Rationale)

	rec := prediction.Record{
		Gene:             entry.Gene,
		Pathway:          entry.Pathway,
		ProxyRegulation:  entry.Regulation,
		Expressed:        entry.Expressed,
		SignalingChange:  outcome.Signaling,
		TranscriptChange: outcome.Transcript,
		Confidence:       outcome.Confidence,
		Rationale:        rationale,
		RuleKey:          key.String(),
	}
	if entry.Log2FoldChange != nil {
		rec.ProxyLog2FC = panel.Finite(*entry.Log2FoldChange)
	}
	e.logger.Trace("%s (%s, %s) matched %s", entry.Gene, entry.Pathway, entry.Regulation, rec.RuleKey)
	if !entry.Expressed {
		rec.Confidence = prediction.VeryLow
		rec.Rationale += "; Gene not highly expressed in " + e.tissue
	}
	return rec
}

// PredictAll predicts every entry, fanning out across workers. The output is
// in input order.
func (e *Engine) PredictAll(ctx context.Context, entries []panel.Entry) ([]prediction.Record, error) {
	out := make([]prediction.Record, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.Predict(entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if e.logger.GetLevel() >= internal.LogLevelDebug {
		e.logRuleUsage(out)
	}
	return out, nil
}

func (e *Engine) logRuleUsage(records []prediction.Record) {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.RuleKey]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.logger.Debug("rule %s applied to %d genes", k, counts[k])
	}
}

// SortForPersistence returns a copy ordered by pathway ascending, then
// confidence tier descending; ties keep input order.
func SortForPersistence(records []prediction.Record) []prediction.Record {
	out := make([]prediction.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pathway != out[j].Pathway {
			return out[i].Pathway < out[j].Pathway
		}
		return out[i].Confidence.Rank() > out[j].Confidence.Rank()
	})
	return out
}
