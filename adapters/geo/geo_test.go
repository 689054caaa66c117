package geo

import (
	"bytes"
	"compress/gzip"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "degpredict/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seriesFixture = `!Series_title	"PKC inhibition in HT1080"
!Series_geo_accession	"GSE43217"
!Series_platform_id	"GPL570"
!Sample_title	"DMSO rep1"	"DMSO rep2"	"Go6983 rep1"	"Go6983 rep2"
!Sample_geo_accession	"GSM1"	"GSM2"	"GSM3"	"GSM4"
!Sample_source_name_ch1	"HT1080"	"HT1080"	"HT1080"	"HT1080"
!Sample_characteristics_ch1	"cell line: HT1080"	"cell line: HT1080"	"cell line: HT1080"	"cell line: HT1080"
!Sample_characteristics_ch1	"treatment: DMSO"	"treatment: DMSO"	"treatment: Go6983"	"treatment: Go6983"
!series_matrix_table_begin
"ID_REF"	"GSM1"	"GSM2"	"GSM3"	"GSM4"
"1007_s_at"	10.5	11	12	null
"1053_at"	3	4	5	6
!series_matrix_table_end
`

const annotationFixture = `#ID = probe
^Annotation = GPL570
!platform_table_begin
ID	Gene Symbol	Gene Title
1007_s_at	DDR1 /// MIR4640	discoidin domain receptor
1053_at	---	
!platform_table_end
`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseSeriesMatrix(t *testing.T) {
	for name, input := range map[string][]byte{
		"plain": []byte(seriesFixture),
		"gzip":  gzipBytes(t, seriesFixture),
	} {
		t.Run(name, func(t *testing.T) {
			sm, err := ParseSeriesMatrix(bytes.NewReader(input))
			require.NoError(t, err)
			assert.Equal(t, "GSE43217", sm.Accession)
			assert.Equal(t, "GPL570", sm.PlatformID)
			assert.Equal(t, []string{"GSM1", "GSM2", "GSM3", "GSM4"}, sm.SampleIDs)
			assert.Equal(t, []string{"1007_s_at", "1053_at"}, sm.ProbeIDs)
			assert.True(t, math.IsNaN(sm.Values[0][3]))
			assert.Equal(t, 4.0, sm.Values[1][1])

			require.Len(t, sm.Samples, 4)
			assert.Equal(t, "Go6983 rep1", sm.Samples[2].Title)
			assert.Equal(t, "HT1080", sm.Samples[2].Source)
			assert.Equal(t, "cell line: HT1080; treatment: Go6983", sm.Samples[2].Characteristics)
		})
	}
}

func TestParseSeriesMatrixWithoutTable(t *testing.T) {
	_, err := ParseSeriesMatrix(strings.NewReader("!Series_geo_accession\t\"GSE1\"\n"))
	assert.Error(t, err)
}

func TestParseAnnotation(t *testing.T) {
	a, err := ParseAnnotation(bytes.NewReader(gzipBytes(t, annotationFixture)))
	require.NoError(t, err)
	assert.Equal(t, "Gene Symbol", a.Column())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, "DDR1", a.Symbol("1007_s_at"))
	assert.Equal(t, "1053_at", a.Symbol("1053_at"), "placeholder falls back to probe")
	assert.Equal(t, "unknown", a.Symbol("unknown"))
}

func TestParseAnnotationWithoutSymbolColumn(t *testing.T) {
	a, err := ParseAnnotation(strings.NewReader("ID\tSEQUENCE\np1\tACGT\n"))
	require.NoError(t, err)
	assert.Equal(t, "", a.Column())
	assert.Equal(t, []string{"p1"}, a.Symbols([]string{"p1"}))
}

func TestFirstSymbol(t *testing.T) {
	tests := map[string]string{
		"ITPR1":                                "ITPR1",
		" PRKCA /// PRKCB ":                    "PRKCA",
		"NM_002222 // ITPR1 // inositol /// x": "ITPR1",
		"---":                                  "",
		"":                                     "",
		"nan":                                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FirstSymbol(in), in)
	}
}

func TestSeriesMatrixToMatrix(t *testing.T) {
	sm, err := ParseSeriesMatrix(strings.NewReader(seriesFixture))
	require.NoError(t, err)
	a, err := ParseAnnotation(strings.NewReader(annotationFixture))
	require.NoError(t, err)

	m := sm.Matrix(a)
	assert.Equal(t, []string{"DDR1", "1053_at"}, m.Symbols)
	m.Values[1][0] = 99
	assert.Equal(t, 3.0, sm.Values[1][0], "matrix values are copied")
	assert.NoError(t, m.Validate())
}

func TestQuantileNormalize(t *testing.T) {
	in := [][]float64{
		{5, 4, 3},
		{2, 1, 4},
		{3, 4, 6},
		{4, 2, 8},
	}
	want := [][]float64{
		{17.0 / 3, 14.0 / 3, 2},
		{2, 2, 3},
		{3, 14.0 / 3, 14.0 / 3},
		{14.0 / 3, 3, 17.0 / 3},
	}
	got := QuantileNormalize(in)
	for i := range want {
		assert.InDeltaSlice(t, want[i], got[i], 1e-12, "row %d", i)
	}
	assert.Equal(t, 5.0, in[0][0], "input untouched")
}

func TestQuantileNormalizeKeepsMissing(t *testing.T) {
	got := QuantileNormalize([][]float64{{1, math.NaN()}, {2, 3}})
	assert.True(t, math.IsNaN(got[0][1]))
	// rank 0 averages 1 and 3; rank 1 only exists in the first column
	assert.InDelta(t, 2.0, got[0][0], 1e-12)
	assert.InDelta(t, 2.0, got[1][0], 1e-12)
	assert.InDelta(t, 2.0, got[1][1], 1e-12)
	assert.Nil(t, QuantileNormalize(nil))
}

func TestLog2Transform(t *testing.T) {
	got := Log2Transform([][]float64{{0, 1, 3, -2, math.Inf(1)}})
	assert.Equal(t, 0.0, got[0][0])
	assert.Equal(t, 1.0, got[0][1])
	assert.Equal(t, 2.0, got[0][2])
	assert.True(t, math.IsNaN(got[0][3]))
	assert.True(t, math.IsNaN(got[0][4]))
}

func TestURLs(t *testing.T) {
	u, err := SeriesMatrixURL("https://ftp.ncbi.nlm.nih.gov/geo/series/", "gse43217")
	require.NoError(t, err)
	assert.Equal(t, "https://ftp.ncbi.nlm.nih.gov/geo/series/GSE43nnn/GSE43217/matrix/GSE43217_series_matrix.txt.gz", u)

	u, err = SeriesMatrixURL("http://h/geo/series", "GSE12")
	require.NoError(t, err)
	assert.Equal(t, "http://h/geo/series/GSEnnn/GSE12/matrix/GSE12_series_matrix.txt.gz", u)

	u, err = PlatformAnnotationURL("https://ftp.ncbi.nlm.nih.gov/geo/series", "GPL570")
	require.NoError(t, err)
	assert.Equal(t, "https://ftp.ncbi.nlm.nih.gov/geo/platforms/GPLnnn/GPL570/annot/GPL570.annot.gz", u)

	_, err = SeriesMatrixURL("http://h", "GSE12; rm -rf")
	assert.Error(t, err)
	_, err = PlatformAnnotationURL("http://h", "570")
	assert.Error(t, err)
}

func TestFetcherDownloadsOnceAndCaches(t *testing.T) {
	payload := gzipBytes(t, seriesFixture)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/geo/series/GSE43nnn/GSE43217/matrix/GSE43217_series_matrix.txt.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(srv.URL+"/geo/series", dir, 5*time.Second)

	path, err := f.FetchSeriesMatrix(context.Background(), "GSE43217")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "GSE43217_series_matrix.txt.gz"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = f.FetchSeriesMatrix(context.Background(), "GSE43217")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = f.FetchPlatformAnnotation(context.Background(), "GPL570")
	assert.Error(t, err, "404 is an error")
	assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1, "failed downloads leave nothing behind")
}

func TestSeriesSourceLoad(t *testing.T) {
	dir := t.TempDir()
	series := filepath.Join(dir, "s.txt.gz")
	annot := filepath.Join(dir, "a.annot")
	require.NoError(t, os.WriteFile(series, gzipBytes(t, seriesFixture), 0o644))
	require.NoError(t, os.WriteFile(annot, []byte(annotationFixture), 0o644))

	ds, err := (&SeriesSource{SeriesPath: series, AnnotationPath: annot}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GSE43217", ds.Accession)
	assert.Equal(t, "DDR1", ds.Matrix.Symbol(0))
	assert.Len(t, ds.Samples, 4)
	assert.False(t, ds.InputHash.IsEmpty())

	raw, err := (&SeriesSource{SeriesPath: series, SkipNormalize: true}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.5, raw.Matrix.Values[0][0])
	assert.NotEqual(t, ds.InputHash, raw.InputHash)

	_, err = (&SeriesSource{SeriesPath: filepath.Join(dir, "missing")}).Load(context.Background())
	assert.Error(t, err)
}
