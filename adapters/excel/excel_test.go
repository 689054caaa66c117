package excel

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
	"degpredict/domain/prediction"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeAt(t, path, content)
	return path
}

func writeAt(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadTableCSV(t *testing.T) {
	path := writeFile(t, "m.csv", "\ufeffprobe_id, gene_symbol ,GSM1,GSM2\np1,ITPR1,1.5, 2\n")
	tbl, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"probe_id", "gene_symbol", "GSM1", "GSM2"}, tbl.Headers)
	assert.Equal(t, [][]string{{"p1", "ITPR1", "1.5", "2"}}, tbl.Rows)

	_, err = NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadTable()
	assert.Error(t, err)
}

func TestReadTableTSV(t *testing.T) {
	path := writeFile(t, "b.tsv", "Gene\texpression_level\nITPR1\t3.2\n")
	tbl, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	col, ok := tbl.Column("gene")
	assert.True(t, ok)
	assert.Equal(t, 0, col)
}

func TestMatrixRoundTrip(t *testing.T) {
	m := &expression.Matrix{
		FeatureIDs: []string{"p1", "p2"},
		Symbols:    []string{"ITPR1", ""},
		SampleIDs:  []string{"GSM1", "GSM2", "GSM3"},
		Values:     [][]float64{{1.25, 2, math.NaN()}, {0, -1.5, 3}},
	}
	data, err := CSVBytes(EncodeMatrix(m))
	require.NoError(t, err)

	tbl, err := ReadDelimited(bytes.NewReader(data), ',')
	require.NoError(t, err)
	got, err := DecodeMatrix(tbl)
	require.NoError(t, err)

	assert.Equal(t, m.FeatureIDs, got.FeatureIDs)
	assert.Equal(t, m.Symbols, got.Symbols)
	assert.Equal(t, m.SampleIDs, got.SampleIDs)
	assert.Equal(t, 1.25, got.Values[0][0])
	assert.True(t, math.IsNaN(got.Values[0][2]))
	assert.Equal(t, -1.5, got.Values[1][1])
	assert.NoError(t, got.Validate())
}

func TestDecodeMatrixWithoutSymbols(t *testing.T) {
	tbl := &Table{Headers: []string{"ID_REF", "GSM1", "GSM2"}, Rows: [][]string{{"p1", "1", "NA"}}}
	m, err := DecodeMatrix(tbl)
	require.NoError(t, err)
	assert.Nil(t, m.Symbols)
	assert.Equal(t, "p1", m.Symbol(0))

	_, err = DecodeMatrix(&Table{Headers: []string{"ID_REF", "GSM1"}, Rows: [][]string{{"p1", "abc"}}})
	assert.Error(t, err)
}

func TestSamplesRoundTrip(t *testing.T) {
	in := []expression.Sample{{ID: "GSM1", Title: "ctrl rep1", Source: "HT1080", Characteristics: "treatment: DMSO"}}
	tbl := EncodeSamples(in)
	got, err := DecodeSamples(tbl)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = DecodeSamples(&Table{Headers: []string{"title"}, Rows: [][]string{{"x"}}})
	assert.Error(t, err)
}

func TestDecodeBaselineColumnDetection(t *testing.T) {
	tbl := &Table{
		Headers: []string{"Symbol", "expression_level", "is_expressed"},
		Rows: [][]string{
			{"ITPR1", "5.5", "true"},
			{"PRKCA", "", "false"},
		},
	}
	b := DecodeBaseline(tbl)
	r, ok := b.Lookup("ITPR1")
	require.True(t, ok)
	assert.Equal(t, 5.5, *r.Level)

	r, ok = b.Lookup("PRKCA")
	require.True(t, ok)
	assert.Nil(t, r.Level)
	assert.False(t, *r.Flag)

	// unknown gene column falls back to the first column
	fallback := DecodeBaseline(&Table{Headers: []string{"hgnc", "tpm"}, Rows: [][]string{{"STIM1", "9"}}})
	_, ok = fallback.Lookup("STIM1")
	assert.True(t, ok)
}

func TestDEGResultsRoundTrip(t *testing.T) {
	in := []deg.Result{
		{Index: 0, ProbeID: "p1", GeneSymbol: "ITPR1", ControlMean: 5, TreatedMean: 6.5, Log2FoldChange: 1.5,
			TStatistic: 4.2, PValue: 0.001, AdjPValue: 0.01, Regulation: deg.Upregulated},
		{Index: 1, ProbeID: "p2", GeneSymbol: "GAPDH", ControlMean: 3, TreatedMean: 3, TStatistic: math.NaN(),
			PValue: 1, AdjPValue: 1, Regulation: deg.NotSignificant, Degenerate: true},
	}
	got, err := DecodeDEGResults(EncodeDEGResults(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, in[0], got[0])
	assert.True(t, math.IsNaN(got[1].TStatistic))
	assert.True(t, got[1].Degenerate)

	_, err = DecodeDEGResults(&Table{Headers: []string{"probe_id"}})
	assert.Error(t, err)
}

func TestEncodePanelAndPredictions(t *testing.T) {
	entries := []panel.Entry{{Gene: "PRKCA", Pathway: "PKC Isoform", Regulation: deg.NotFound, Expressed: true}}
	pt := EncodePanel(entries)
	assert.Equal(t, "", pt.Rows[0][4], "nil numerics are blank")
	assert.Equal(t, "true", pt.Rows[0][10])

	recs := []prediction.Record{{Gene: "ITPR1", Pathway: "IP3 Receptor", ProxyRegulation: deg.Upregulated,
		ProxyLog2FC: panel.Float(1.2), Expressed: true, SignalingChange: prediction.IncreasedActivity,
		TranscriptChange: prediction.TranscriptUp, Confidence: prediction.High, Rationale: "r, with comma", RuleKey: "pathway:IP3 Receptor:up"}}
	data, err := CSVBytes(EncodePredictions(recs))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "gene_symbol,pathway,"))
	assert.Contains(t, lines[1], `"r, with comma"`)
}

func TestEncodeSummary(t *testing.T) {
	s := prediction.Summarize([]prediction.Record{
		{Pathway: "SOCE", SignalingChange: prediction.IncreasedActivity, TranscriptChange: prediction.TranscriptUp, Confidence: prediction.Medium},
	})
	tbl := EncodeSummary(s)
	col, ok := tbl.Column("signaling_increased_activity")
	require.True(t, ok)
	assert.Equal(t, "1", tbl.Rows[0][col])
	col, _ = tbl.Column("confidence_high")
	assert.Equal(t, "0", tbl.Rows[0][col])
}

func TestWriteXLSXReadBack(t *testing.T) {
	tbl := &Table{Headers: []string{"gene_symbol", "proxy_log2fc"}, Rows: [][]string{{"ITPR1", "1.5"}, {"PRKCA", ""}}}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf,
		Sheet{Name: "Predictions", Table: tbl},
		Sheet{Name: "Summary", Table: &Table{Headers: []string{"pathway"}, Rows: [][]string{{"SOCE"}}}},
	))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	read, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, tbl.Headers, read.Headers)
	assert.Equal(t, "ITPR1", read.Rows[0][0])
	assert.Equal(t, "1.5", read.Rows[0][1])

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Predictions", "Summary"}, f.GetSheetList())

	assert.Error(t, WriteXLSX(&bytes.Buffer{}))
}
