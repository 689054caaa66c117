package geo

import (
	"bytes"
	"context"
	"log"
	"os"

	"degpredict/domain/core"
	"degpredict/internal/errors"
	"degpredict/ports"
)

// SeriesSource loads a dataset from a GEO series matrix plus an optional
// platform annotation, applying the fixed normalisation.
type SeriesSource struct {
	SeriesPath     string
	AnnotationPath string
	// SkipNormalize keeps the values as published.
	SkipNormalize bool
}

var _ ports.ExpressionSource = (*SeriesSource)(nil)

// Load reads, annotates and normalises the series.
func (s *SeriesSource) Load(ctx context.Context) (*ports.ExpressionDataset, error) {
	raw, err := os.ReadFile(s.SeriesPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read series matrix %s", s.SeriesPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	series, err := ParseSeriesMatrix(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	hashed := raw
	var annotation *Annotation
	if s.AnnotationPath != "" {
		annotRaw, err := os.ReadFile(s.AnnotationPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read platform annotation %s", s.AnnotationPath)
		}
		if annotation, err = ParseAnnotation(bytes.NewReader(annotRaw)); err != nil {
			return nil, err
		}
		hashed = append(append([]byte(nil), raw...), annotRaw...)
	} else {
		log.Printf("[GEO] No platform annotation configured; probe IDs used as gene symbols")
	}

	m := series.Matrix(annotation)
	if !s.SkipNormalize {
		m.Values = Normalize(m.Values)
		log.Printf("[GEO] Normalization complete")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &ports.ExpressionDataset{
		Accession: series.Accession,
		Matrix:    m,
		Samples:   series.Samples,
		InputHash: core.NewHash(hashed),
	}, nil
}
