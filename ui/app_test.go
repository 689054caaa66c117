package ui

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpredict/adapters/blob"
	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	"degpredict/internal/metrics"
	"degpredict/internal/testkit"
	"degpredict/ports"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	repo := testkit.NewInMemoryRunRepository()
	m := run.Manifest{
		RunID:        "run-1",
		Accession:    "GSE43217",
		CreatedAt:    time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
		GroupMethod:  expression.GroupKeyword,
		ControlCount: 3,
		TreatedCount: 3,
		Fingerprint:  run.NewFingerprint(core.NewHash([]byte("x")), "test", "signaling", "astrocytes", deg.DefaultThresholds(), 1),
	}
	records := []prediction.Record{
		{Gene: "ITPR1", Pathway: "IP3 Receptor", ProxyRegulation: deg.Upregulated, Expressed: true,
			SignalingChange: prediction.IncreasedActivity, Confidence: prediction.High, Rationale: "<b>removed</b>"},
		{Gene: "PRKCG", Pathway: "PKC Isoform", ProxyRegulation: deg.NotFound, Expressed: true,
			SignalingChange: prediction.NoActivityChange, Confidence: prediction.Low},
	}
	require.NoError(t, repo.SaveRun(context.Background(), m, records))

	store := blob.NewMemory()
	_, err := store.Put(context.Background(), core.ArtifactReport.Key("run-1"),
		bytes.NewReader([]byte("<html>report</html>")), ports.PutOptions{ContentType: "text/html"})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	rec.RecordRun("success")

	app, err := NewApp(Config{Runs: repo, Store: store, Gatherer: reg})
	require.NoError(t, err)
	return app
}

func serve(app http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestApp_Pages(t *testing.T) {
	app := newTestApp(t)

	w := serve(app, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/runs/run-1"`)
	assert.Contains(t, w.Body.String(), "2025-02-01 09:30:00")

	w = serve(app, "/runs/run-1")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "ITPR1")
	assert.Contains(t, body, "increased_activity")
	assert.Contains(t, body, "&lt;b&gt;removed&lt;/b&gt;")
	assert.Contains(t, body, "/runs/run-1/report")
	assert.Contains(t, body, "<td>NA</td>")

	assert.Equal(t, http.StatusNotFound, serve(app, "/runs/nope").Code)
}

func TestApp_Report(t *testing.T) {
	app := newTestApp(t)

	w := serve(app, "/runs/run-1/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>report</html>", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(app, "/runs/run-2/report").Code)
}

func TestApp_MetricsAndAPI(t *testing.T) {
	app := newTestApp(t)

	w := serve(app, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "degpredict_")

	w = serve(app, "/api/runs/run-1/predictions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestNewApp_RequiresRepository(t *testing.T) {
	_, err := NewApp(Config{})
	assert.Error(t, err)
}
