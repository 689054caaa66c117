package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
	"degpredict/domain/prediction"
)

// Column name candidates, tried in order.
var (
	probeColumns       = []string{"probe_id", "ID_REF", "ID", "feature_id"}
	symbolColumns      = []string{"gene_symbol", "Gene_Symbol", "symbol", "Symbol"}
	baselineGeneCols   = []string{"gene_symbol", "Gene_Symbol", "gene", "Gene", "symbol", "Symbol"}
	sampleIDColumns    = []string{"sample_id", "geo_accession", "ID"}
	expressionLevelCol = "expression_level"
	isExpressedCol     = "is_expressed"
)

// ParseFloat reads a numeric cell; blanks and NA markers are NaN.
func ParseFloat(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// FormatFloat writes NaN as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

// DecodeMatrix reads a processed expression table: a probe column, an optional
// gene symbol column, then one numeric column per sample.
func DecodeMatrix(t *Table) (*expression.Matrix, error) {
	probeCol, ok := t.Column(probeColumns...)
	if !ok {
		probeCol = 0
	}
	symbolCol, hasSymbols := t.Column(symbolColumns...)

	var sampleCols []int
	m := &expression.Matrix{}
	for i, h := range t.Headers {
		if i == probeCol || (hasSymbols && i == symbolCol) {
			continue
		}
		sampleCols = append(sampleCols, i)
		m.SampleIDs = append(m.SampleIDs, h)
	}
	if len(sampleCols) == 0 {
		return nil, core.NewMissingColumnError("expression table", "sample columns")
	}

	for r, row := range t.Rows {
		id := t.Cell(row, probeCol)
		if id == "" {
			continue
		}
		values := make([]float64, len(sampleCols))
		for k, c := range sampleCols {
			v, err := ParseFloat(t.Cell(row, c))
			if err != nil {
				return nil, fmt.Errorf("row %d, sample %s: %w", r+2, m.SampleIDs[k], err)
			}
			values[k] = v
		}
		m.FeatureIDs = append(m.FeatureIDs, id)
		if hasSymbols {
			m.Symbols = append(m.Symbols, t.Cell(row, symbolCol))
		}
		m.Values = append(m.Values, values)
	}
	return m, nil
}

// EncodeMatrix is the inverse of DecodeMatrix.
func EncodeMatrix(m *expression.Matrix) *Table {
	t := &Table{Headers: append([]string{"probe_id", "gene_symbol"}, m.SampleIDs...)}
	for i, id := range m.FeatureIDs {
		row := make([]string, 0, len(m.SampleIDs)+2)
		sym := ""
		if i < len(m.Symbols) {
			sym = m.Symbols[i]
		}
		row = append(row, id, sym)
		for _, v := range m.Values[i] {
			row = append(row, FormatFloat(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// DecodeSamples reads sample metadata with a sample id column plus optional
// title, source and characteristics columns.
func DecodeSamples(t *Table) ([]expression.Sample, error) {
	idCol, ok := t.Column(sampleIDColumns...)
	if !ok {
		return nil, core.NewMissingColumnError("sample metadata", "sample_id")
	}
	titleCol, _ := t.Column("title")
	sourceCol, _ := t.Column("source", "source_name_ch1")
	charCol, _ := t.Column("characteristics", "characteristics_ch1")

	out := make([]expression.Sample, 0, len(t.Rows))
	for _, row := range t.Rows {
		id := t.Cell(row, idCol)
		if id == "" {
			continue
		}
		out = append(out, expression.Sample{
			ID:              id,
			Title:           t.Cell(row, titleCol),
			Source:          t.Cell(row, sourceCol),
			Characteristics: t.Cell(row, charCol),
		})
	}
	return out, nil
}

// EncodeSamples is the inverse of DecodeSamples.
func EncodeSamples(samples []expression.Sample) *Table {
	t := &Table{Headers: []string{"sample_id", "title", "source", "characteristics"}}
	for _, s := range samples {
		t.Rows = append(t.Rows, []string{s.ID, s.Title, s.Source, s.Characteristics})
	}
	return t
}

// DecodeBaseline reads a tissue expression table. The gene column is detected
// by name, else the first column is used; expression_level and is_expressed
// are both optional.
func DecodeBaseline(t *Table) *panel.Baseline {
	geneCol, ok := t.Column(baselineGeneCols...)
	if !ok {
		geneCol = 0
	}
	levelCol, hasLevel := t.Column(expressionLevelCol)
	flagCol, hasFlag := t.Column(isExpressedCol)

	records := make([]panel.BaselineRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := panel.BaselineRecord{Gene: t.Cell(row, geneCol)}
		if hasLevel {
			if v, err := ParseFloat(t.Cell(row, levelCol)); err == nil && !math.IsNaN(v) {
				rec.Level = panel.Float(v)
			}
		}
		if hasFlag {
			if b, err := strconv.ParseBool(t.Cell(row, flagCol)); err == nil {
				rec.Flag = &b
			}
		}
		records = append(records, rec)
	}
	return panel.NewBaseline(records)
}

// EncodeDEGResults renders the full DEG table.
func EncodeDEGResults(results []deg.Result) *Table {
	t := &Table{Headers: []string{
		"probe_id", "gene_symbol", "control_mean", "treated_mean", "log2_fold_change",
		"t_statistic", "p_value", "adj_p_value", "regulation", "degenerate",
	}}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{
			r.ProbeID, r.GeneSymbol,
			FormatFloat(r.ControlMean), FormatFloat(r.TreatedMean), FormatFloat(r.Log2FoldChange),
			FormatFloat(r.TStatistic), FormatFloat(r.PValue), FormatFloat(r.AdjPValue),
			string(r.Regulation), strconv.FormatBool(r.Degenerate),
		})
	}
	return t
}

// DecodeDEGResults reads a table written by EncodeDEGResults.
func DecodeDEGResults(t *Table) ([]deg.Result, error) {
	cols := make(map[string]int, len(t.Headers))
	for _, name := range []string{"probe_id", "gene_symbol", "control_mean", "treated_mean",
		"log2_fold_change", "t_statistic", "p_value", "adj_p_value", "regulation"} {
		i, ok := t.Column(name)
		if !ok {
			return nil, core.NewMissingColumnError("DEG results", name)
		}
		cols[name] = i
	}
	degCol, hasDeg := t.Column("degenerate")

	out := make([]deg.Result, 0, len(t.Rows))
	for idx, row := range t.Rows {
		r := deg.Result{
			Index:      idx,
			ProbeID:    t.Cell(row, cols["probe_id"]),
			GeneSymbol: t.Cell(row, cols["gene_symbol"]),
			Regulation: deg.Regulation(t.Cell(row, cols["regulation"])),
		}
		fields := []struct {
			col string
			dst *float64
		}{
			{"control_mean", &r.ControlMean}, {"treated_mean", &r.TreatedMean},
			{"log2_fold_change", &r.Log2FoldChange}, {"t_statistic", &r.TStatistic},
			{"p_value", &r.PValue}, {"adj_p_value", &r.AdjPValue},
		}
		for _, f := range fields {
			v, err := ParseFloat(t.Cell(row, cols[f.col]))
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", idx+2, f.col, err)
			}
			*f.dst = v
		}
		if hasDeg {
			r.Degenerate, _ = strconv.ParseBool(t.Cell(row, degCol))
		}
		out = append(out, r)
	}
	return out, nil
}

// EncodePanel renders gene panel entries.
func EncodePanel(entries []panel.Entry) *Table {
	t := &Table{Headers: []string{
		"gene_symbol", "probe_id", "pathway", "regulation", "control_mean", "treated_mean",
		"log2_fold_change", "p_value", "adj_p_value", "expression_level", "is_expressed", "baseline_matched",
	}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.Gene, e.ProbeID, e.Pathway, string(e.Regulation),
			formatPtr(e.ControlMean), formatPtr(e.TreatedMean), formatPtr(e.Log2FoldChange),
			formatPtr(e.PValue), formatPtr(e.AdjPValue), formatPtr(e.ExpressionLevel),
			strconv.FormatBool(e.Expressed), strconv.FormatBool(e.BaselineMatched),
		})
	}
	return t
}

// PredictionHeaders is the column order of the predictions artifacts.
var PredictionHeaders = []string{
	"gene_symbol", "pathway", "proxy_regulation", "proxy_log2fc", "expressed_in_target",
	"predicted_signaling_change", "predicted_transcript_change", "confidence", "rationale", "rule",
}

// EncodePredictions renders prediction records.
func EncodePredictions(records []prediction.Record) *Table {
	t := &Table{Headers: PredictionHeaders}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Gene, r.Pathway, string(r.ProxyRegulation), formatPtr(r.ProxyLog2FC),
			strconv.FormatBool(r.Expressed), string(r.SignalingChange), string(r.TranscriptChange),
			string(r.Confidence), r.Rationale, r.RuleKey,
		})
	}
	return t
}

// EncodeSummary renders the per-pathway summary with one column per category
// seen across all pathways.
func EncodeSummary(summaries []prediction.PathwaySummary) *Table {
	sig := []prediction.SignalingChange{
		prediction.LossOfFunction, prediction.IncreasedActivity, prediction.DecreasedActivity,
		prediction.NoActivityChange, prediction.UnknownSignaling, prediction.NotAssessed,
	}
	tr := []prediction.TranscriptChange{
		prediction.TranscriptUp, prediction.TranscriptDown, prediction.TranscriptNoChange, prediction.TranscriptUnknown,
	}
	conf := []prediction.Confidence{prediction.High, prediction.Medium, prediction.Low, prediction.VeryLow}

	t := &Table{Headers: []string{"pathway", "total_genes"}}
	for _, s := range sig {
		t.Headers = append(t.Headers, "signaling_"+string(s))
	}
	for _, c := range tr {
		t.Headers = append(t.Headers, "transcript_"+string(c))
	}
	for _, c := range conf {
		t.Headers = append(t.Headers, "confidence_"+string(c))
	}

	for _, s := range summaries {
		row := []string{s.Pathway, strconv.Itoa(s.TotalGenes)}
		for _, k := range sig {
			row = append(row, strconv.Itoa(s.Signaling[k]))
		}
		for _, k := range tr {
			row = append(row, strconv.Itoa(s.Transcript[k]))
		}
		for _, k := range conf {
			row = append(row, strconv.Itoa(s.Confidence[k]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
