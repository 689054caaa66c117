// Package panel describes the curated gene panel view of a DEG result set.
package panel

import (
	"math"
	"strings"

	"degpredict/domain/deg"
)

// OtherPathway is assigned to panel genes the pathway map does not cover.
const OtherPathway = "Other"

// Entry is one panel gene joined with its DEG evidence and baseline expression.
// Numeric DEG fields are nil when the gene was not found in the DEG table or
// the statistic is undefined (NaN or infinite).
type Entry struct {
	Gene            string         `json:"gene"`
	ProbeID         string         `json:"probe_id,omitempty"`
	Pathway         string         `json:"pathway"`
	Regulation      deg.Regulation `json:"regulation"`
	ControlMean     *float64       `json:"control_mean"`
	TreatedMean     *float64       `json:"treated_mean"`
	Log2FoldChange  *float64       `json:"log2_fold_change"`
	PValue          *float64       `json:"p_value"`
	AdjPValue       *float64       `json:"adj_p_value"`
	ExpressionLevel *float64       `json:"expression_level"`
	Expressed       bool           `json:"expressed"`
	BaselineMatched bool           `json:"baseline_matched"`
}

// Found reports whether the gene had a DEG row.
func (e Entry) Found() bool {
	return e.Regulation != deg.NotFound
}

// BaselineRecord is one gene of a tissue baseline expression table. Either
// field may be nil when the table lacks the corresponding column.
type BaselineRecord struct {
	Gene  string
	Level *float64
	Flag  *bool
}

// Baseline is an immutable gene -> baseline lookup. A nil *Baseline means no
// baseline table was supplied.
type Baseline struct {
	records map[string]BaselineRecord
}

// NewBaseline indexes records by upper-cased gene symbol; the first record
// for a gene wins.
func NewBaseline(records []BaselineRecord) *Baseline {
	b := &Baseline{records: make(map[string]BaselineRecord, len(records))}
	for _, r := range records {
		key := normalizeGene(r.Gene)
		if key == "" {
			continue
		}
		if _, dup := b.records[key]; dup {
			continue
		}
		b.records[key] = r
	}
	return b
}

// Available reports whether a baseline table was supplied.
func (b *Baseline) Available() bool { return b != nil }

// Len returns the number of distinct genes.
func (b *Baseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.records)
}

// Lookup finds a gene, case-insensitively.
func (b *Baseline) Lookup(gene string) (BaselineRecord, bool) {
	if b == nil {
		return BaselineRecord{}, false
	}
	r, ok := b.records[normalizeGene(gene)]
	return r, ok
}

func normalizeGene(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
