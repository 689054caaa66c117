package excel

import (
	"context"
	"fmt"
	"os"

	"degpredict/domain/core"
	"degpredict/domain/panel"
	"degpredict/ports"
)

// ProcessedSource loads an already normalised expression table plus its
// sample metadata (CSV, TSV or XLSX).
type ProcessedSource struct {
	Accession      string
	ExpressionPath string
	MetadataPath   string
}

var _ ports.ExpressionSource = (*ProcessedSource)(nil)

// Load reads both tables.
func (s *ProcessedSource) Load(ctx context.Context) (*ports.ExpressionDataset, error) {
	exprRaw, err := os.ReadFile(s.ExpressionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read expression table: %w", err)
	}
	metaRaw, err := os.ReadFile(s.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample metadata: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exprTable, err := NewDataReader(s.ExpressionPath).ReadTable()
	if err != nil {
		return nil, err
	}
	m, err := DecodeMatrix(exprTable)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	metaTable, err := NewDataReader(s.MetadataPath).ReadTable()
	if err != nil {
		return nil, err
	}
	samples, err := DecodeSamples(metaTable)
	if err != nil {
		return nil, err
	}

	return &ports.ExpressionDataset{
		Accession: s.Accession,
		Matrix:    m,
		Samples:   samples,
		InputHash: core.NewHash(append(exprRaw, metaRaw...)),
	}, nil
}

// BaselineFile loads target-tissue baseline expression from a table. An
// empty path means no baseline.
type BaselineFile struct {
	Path string
}

var _ ports.BaselineSource = BaselineFile{}

// LoadBaseline reads the table, or returns nil when no path is set.
func (b BaselineFile) LoadBaseline(ctx context.Context) (*panel.Baseline, error) {
	if b.Path == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := NewDataReader(b.Path).ReadTable()
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline expression: %w", err)
	}
	return DecodeBaseline(t), nil
}
