// Package panelmap projects DEG results onto the curated gene panel and joins
// baseline tissue expression.
package panelmap

import (
	"strings"

	"degpredict/domain/deg"
	"degpredict/domain/panel"
	"degpredict/internal"
)

// PathwayLookup maps a gene symbol to its pathway.
type PathwayLookup interface {
	PathwayOf(gene string) string
}

// Mapper builds one panel entry per unique panel gene.
type Mapper struct {
	genes               []string
	pathways            PathwayLookup
	expressionThreshold float64
	logger              *internal.Logger
}

// NewMapper creates a mapper for genes (de-duplicated, order kept).
func NewMapper(genes []string, pathways PathwayLookup, expressionThreshold float64, logger *internal.Logger) *Mapper {
	seen := make(map[string]bool, len(genes))
	unique := make([]string, 0, len(genes))
	for _, g := range genes {
		key := strings.ToUpper(strings.TrimSpace(g))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, key)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Mapper{
		genes:               unique,
		pathways:            pathways,
		expressionThreshold: expressionThreshold,
		logger:              logger.With("PanelMapper"),
	}
}

// Genes returns the de-duplicated panel.
func (m *Mapper) Genes() []string {
	out := make([]string, len(m.genes))
	copy(out, m.genes)
	return out
}

// Map returns exactly one entry per panel gene, in panel order. A nil baseline
// means no baseline table: every gene counts as expressed.
func (m *Mapper) Map(results []deg.Result, baseline *panel.Baseline) []panel.Entry {
	best := bestProbePerGene(results)

	entries := make([]panel.Entry, 0, len(m.genes))
	found, missing := 0, make([]string, 0)
	for _, gene := range m.genes {
		e := panel.Entry{Gene: gene, Pathway: m.pathways.PathwayOf(gene), Regulation: deg.NotFound}
		if r, ok := best[gene]; ok {
			found++
			e.ProbeID = r.ProbeID
			e.Regulation = r.Regulation
			e.ControlMean = panel.Finite(r.ControlMean)
			e.TreatedMean = panel.Finite(r.TreatedMean)
			e.Log2FoldChange = panel.Finite(r.Log2FoldChange)
			e.PValue = panel.Finite(r.PValue)
			e.AdjPValue = panel.Finite(r.AdjPValue)
		} else {
			missing = append(missing, gene)
		}
		m.applyBaseline(&e, baseline)
		entries = append(entries, e)
	}

	m.logger.Info("panel genes found in DEG results: %d/%d", found, len(m.genes))
	if len(missing) > 0 {
		m.logger.Debug("panel genes missing from DEG results: %s", strings.Join(missing, ", "))
	}
	return entries
}

func (m *Mapper) applyBaseline(e *panel.Entry, baseline *panel.Baseline) {
	e.Expressed = true
	if !baseline.Available() {
		return
	}
	rec, ok := baseline.Lookup(e.Gene)
	if !ok {
		return
	}
	e.BaselineMatched = true
	switch {
	case rec.Level != nil:
		e.ExpressionLevel = panel.Finite(*rec.Level)
		e.Expressed = *rec.Level > m.expressionThreshold
	case rec.Flag != nil:
		e.Expressed = *rec.Flag
	}
}

// bestProbePerGene keeps, per upper-cased symbol, the result with the lowest
// adjusted p-value; ties go to the lower original index.
func bestProbePerGene(results []deg.Result) map[string]deg.Result {
	best := make(map[string]deg.Result, len(results))
	for _, r := range results {
		key := strings.ToUpper(strings.TrimSpace(r.GeneSymbol))
		if key == "" {
			continue
		}
		cur, ok := best[key]
		if !ok || better(r, cur) {
			best[key] = r
		}
	}
	return best
}

func better(a, b deg.Result) bool {
	if a.AdjPValue != b.AdjPValue {
		return a.AdjPValue < b.AdjPValue
	}
	return a.Index < b.Index
}
