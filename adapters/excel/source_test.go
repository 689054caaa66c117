package excel

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedSourceLoad(t *testing.T) {
	dir := t.TempDir()
	expr := filepath.Join(dir, "processed.csv")
	meta := filepath.Join(dir, "meta.csv")
	writeAt(t, expr, "probe_id,gene_symbol,GSM1,GSM2\np1,ITPR1,1,2\np2,PRKCA,3,4\n")
	writeAt(t, meta, "sample_id,title,source,characteristics\nGSM1,DMSO,HT1080,\nGSM2,Go6983,HT1080,\n")

	src := &ProcessedSource{Accession: "GSE43217", ExpressionPath: expr, MetadataPath: meta}
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GSE43217", ds.Accession)
	assert.Equal(t, 2, ds.Matrix.Features())
	assert.Equal(t, "Go6983", ds.Samples[1].Title)

	again, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ds.InputHash, again.InputHash)

	writeAt(t, expr, "probe_id,gene_symbol,GSM1,GSM2\np1,ITPR1,1,2\np2,PRKCA,3,5\n")
	changed, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, ds.InputHash, changed.InputHash)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaselineFile(t *testing.T) {
	b, err := BaselineFile{}.LoadBaseline(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.False(t, b.Available())

	path := filepath.Join(t.TempDir(), "astro.csv")
	writeAt(t, path, "gene,expression_level\nitpr1,4.0\n")
	b, err = BaselineFile{Path: path}.LoadBaseline(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Available())
	_, ok := b.Lookup("ITPR1")
	assert.True(t, ok)
}
