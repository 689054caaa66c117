package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	"degpredict/internal/config"
	apperrors "degpredict/internal/errors"
	"degpredict/internal/migration"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testManifest(createdAt time.Time) run.Manifest {
	return run.Manifest{
		RunID:        core.NewRunID(),
		Accession:    "GSE43217",
		CreatedAt:    createdAt,
		GroupMethod:  expression.GroupKeyword,
		ControlCount: 3,
		TreatedCount: 3,
		FeatureCount: 100,
		PanelSize:    41,
		DEG:          deg.Summary{Total: 100, Upregulated: 4, Downregulated: 2, NotSignificant: 94},
		Fingerprint:  run.NewFingerprint(core.NewHash([]byte("x")), "2025.1", "signaling", "astrocytes", deg.DefaultThresholds(), 1.0),
		Artifacts:    []string{"predictions.csv"},
	}
}

func testRecords() []prediction.Record {
	return []prediction.Record{
		{Gene: "ITPR1", Pathway: "IP3 Receptor", ProxyRegulation: deg.Upregulated, ProxyLog2FC: panel.Float(1.25),
			Expressed: true, SignalingChange: prediction.IncreasedActivity, TranscriptChange: prediction.TranscriptUp,
			Confidence: prediction.High, Rationale: "up", RuleKey: "pathway:IP3 Receptor:up"},
		{Gene: "PRKCA", Pathway: "PKC Isoform", ProxyRegulation: deg.NotFound,
			Expressed: false, SignalingChange: prediction.LossOfFunction, TranscriptChange: prediction.TranscriptUnknown,
			Confidence: prediction.VeryLow, Rationale: "knockout", RuleKey: "gene:PRKCA"},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	m := testManifest(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveRun(ctx, m, testRecords()))

	got, err := repo.GetRun(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, m.Fingerprint, got.Fingerprint)
	assert.NoError(t, got.Fingerprint.Verify())
	assert.Equal(t, m.DEG, got.DEG)

	recs, err := repo.GetPredictions(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, testRecords(), recs)

	assert.Error(t, repo.SaveRun(ctx, m, nil), "run ids are unique")
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []core.RunID
	for i := 0; i < 3; i++ {
		m := testManifest(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, repo.SaveRun(ctx, m, nil))
		ids = append(ids, m.RunID)
	}

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	runs, err = repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestMissingRun(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.GetRun(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	_, err = repo.GetPredictions(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestSaveRunRejectsInvalidManifest(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	m := testManifest(time.Now())
	m.ControlCount = 0
	assert.Error(t, repo.SaveRun(context.Background(), m, nil))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	runner := migration.NewRunner()
	assert.NoError(t, runner.Run(context.Background(), db))
	assert.Equal(t, "1.0.0", runner.Version())
}
