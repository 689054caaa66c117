package ports

import (
	"context"

	"degpredict/domain/core"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
)

// RunRepository records completed runs for the results viewer.
type RunRepository interface {
	SaveRun(ctx context.Context, manifest run.Manifest, records []prediction.Record) error
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
	GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error)
	// GetPredictions returns records in persisted order.
	GetPredictions(ctx context.Context, id core.RunID) ([]prediction.Record, error)
}
