package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degpredict/internal/config"
	"degpredict/internal/testkit"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			AdjPValueThreshold:  0.05,
			Log2FCThreshold:     0.5,
			ExpressionThreshold: 1.0,
			TreatedKeywords:     []string{"inhibitor"},
			Workers:             2,
			RuleVariant:         "transcript",
		},
		Blob:     config.BlobConfig{Driver: "memory"},
		LogLevel: "ERROR",
	}
}

func TestContainer_InitAndRun(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Shutdown(context.Background())

	assert.Equal(t, "memory", c.Store.Driver())
	assert.Nil(t, c.DB)

	svc, err := c.Pipeline()
	require.NoError(t, err)

	src := &testkit.Source{Config: testkit.DefaultExpressionConfig(c.Knowledge.Panel())}
	res, err := svc.Run(context.Background(), src, src)
	require.NoError(t, err)
	assert.Equal(t, "transcript", res.Manifest.Fingerprint.RuleVariant)

	runs, err := c.Runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "degpredict_runs_total")
}

func TestContainer_SQLiteRepository(t *testing.T) {
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", URL: "file:" + t.TempDir() + "/runs.db"}

	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Shutdown(context.Background())
	assert.NotNil(t, c.DB)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Analysis.KnowledgeFile = "/does/not/exist.yaml"
	_, err = New(cfg)
	assert.Error(t, err)
}
