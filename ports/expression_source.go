package ports

import (
	"context"

	"degpredict/domain/core"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
)

// ExpressionDataset is one loaded proxy dataset.
type ExpressionDataset struct {
	Accession string
	Matrix    *expression.Matrix
	Samples   []expression.Sample
	// InputHash fingerprints the raw bytes the dataset was read from.
	InputHash core.Hash
}

// ExpressionSource loads a dataset ready for differential expression.
type ExpressionSource interface {
	Load(ctx context.Context) (*ExpressionDataset, error)
}

// BaselineSource loads target-tissue baseline expression. It returns a nil
// baseline, without error, when no table is configured.
type BaselineSource interface {
	LoadBaseline(ctx context.Context) (*panel.Baseline, error)
}
