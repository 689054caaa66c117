package testkit

import (
	"context"
	"fmt"
	"math/rand"

	"degpredict/domain/core"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
	"degpredict/ports"
)

// ExpressionGeneratorConfig configures the synthetic proxy dataset generator
type ExpressionGeneratorConfig struct {
	Seed               int64              `json:"seed"`
	ControlSamples     int                `json:"control_samples"`
	TreatedSamples     int                `json:"treated_samples"`
	BackgroundFeatures int                `json:"background_features"`
	PanelGenes         []string           `json:"panel_genes"`
	BaseLevel          float64            `json:"base_level"` // mean log2 expression
	Noise              float64            `json:"noise"`      // per-sample standard deviation
	Effects            map[string]float64 `json:"effects"`    // gene -> log2 shift in treated samples
	Missing            []string           `json:"missing"`    // panel genes left off the array
	NotExpressed       []string           `json:"not_expressed"`
	DuplicateProbes    bool               `json:"duplicate_probes"` // add a null second probe per panel gene
}

// DefaultExpressionConfig returns a small dataset over the given panel with
// a handful of clear effects in both directions.
func DefaultExpressionConfig(panelGenes []string) ExpressionGeneratorConfig {
	return ExpressionGeneratorConfig{
		Seed:               42,
		ControlSamples:     4,
		TreatedSamples:     4,
		BackgroundFeatures: 200,
		PanelGenes:         panelGenes,
		BaseLevel:          8,
		Noise:              0.15,
		Effects: map[string]float64{
			"ITPR1":  1.5,
			"ITPR2":  1.1,
			"ATP2A2": -1.2,
			"ORAI1":  0.9,
			"STIM1":  -0.8,
			"PLCB1":  1.0,
		},
		Missing:         []string{"PRKCG"},
		NotExpressed:    []string{"ITPR2", "CACNA1A"},
		DuplicateProbes: true,
	}
}

// ExpressionGenerator generates seeded expression matrices, sample metadata
// and a matching target-tissue baseline.
type ExpressionGenerator struct {
	config ExpressionGeneratorConfig
	rng    *rand.Rand
}

// NewExpressionGenerator creates a new generator
func NewExpressionGenerator(config ExpressionGeneratorConfig) *ExpressionGenerator {
	return &ExpressionGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Samples returns control samples first, then treated, with descriptors the
// default keyword resolver separates.
func (g *ExpressionGenerator) Samples() []expression.Sample {
	var out []expression.Sample
	for i := 0; i < g.config.ControlSamples; i++ {
		out = append(out, expression.Sample{
			ID:              fmt.Sprintf("GSM9%04d", i+1),
			Title:           fmt.Sprintf("HT1080 vehicle rep%d", i+1),
			Source:          "HT1080 fibrosarcoma cells",
			Characteristics: "treatment: DMSO",
		})
	}
	for i := 0; i < g.config.TreatedSamples; i++ {
		out = append(out, expression.Sample{
			ID:              fmt.Sprintf("GSM9%04d", g.config.ControlSamples+i+1),
			Title:           fmt.Sprintf("HT1080 Go6983 rep%d", i+1),
			Source:          "HT1080 fibrosarcoma cells",
			Characteristics: "treatment: PKC inhibitor Go6983",
		})
	}
	return out
}

// Matrix generates the expression matrix. Panel genes come first, each as
// probe <GENE>_at, then background probes BG_<n>.
func (g *ExpressionGenerator) Matrix() *expression.Matrix {
	samples := g.Samples()
	m := &expression.Matrix{}
	for _, s := range samples {
		m.SampleIDs = append(m.SampleIDs, s.ID)
	}

	missing := toSet(g.config.Missing)
	for _, gene := range g.config.PanelGenes {
		if missing[gene] {
			continue
		}
		g.addFeature(m, gene+"_at", gene, g.config.Effects[gene])
		if g.config.DuplicateProbes {
			g.addFeature(m, gene+"_s_at", gene, 0)
		}
	}
	for i := 0; i < g.config.BackgroundFeatures; i++ {
		g.addFeature(m, fmt.Sprintf("BG_%05d", i+1), fmt.Sprintf("BG%d", i+1), 0)
	}
	return m
}

func (g *ExpressionGenerator) addFeature(m *expression.Matrix, probe, symbol string, effect float64) {
	level := g.config.BaseLevel + g.rng.NormFloat64()
	row := make([]float64, g.config.ControlSamples+g.config.TreatedSamples)
	for j := range row {
		v := level + g.rng.NormFloat64()*g.config.Noise
		if j >= g.config.ControlSamples {
			v += effect
		}
		row[j] = v
	}
	m.FeatureIDs = append(m.FeatureIDs, probe)
	m.Symbols = append(m.Symbols, symbol)
	m.Values = append(m.Values, row)
}

// Baseline returns a tissue table covering the panel: genes listed in
// NotExpressed get level 0.2, the rest 5.0.
func (g *ExpressionGenerator) Baseline() *panel.Baseline {
	off := toSet(g.config.NotExpressed)
	records := make([]panel.BaselineRecord, 0, len(g.config.PanelGenes))
	for _, gene := range g.config.PanelGenes {
		level := 5.0
		if off[gene] {
			level = 0.2
		}
		records = append(records, panel.BaselineRecord{Gene: gene, Level: panel.Float(level)})
	}
	return panel.NewBaseline(records)
}

// Dataset bundles matrix and samples. Generation is deterministic for a
// seed, so the input hash is derived from the configuration.
func (g *ExpressionGenerator) Dataset() *ports.ExpressionDataset {
	return &ports.ExpressionDataset{
		Accession: "SYNTHETIC",
		Matrix:    g.Matrix(),
		Samples:   g.Samples(),
		InputHash: core.NewHash([]byte(fmt.Sprintf("%+v", g.config))),
	}
}

// Source adapts a generator to the pipeline's input ports.
type Source struct {
	Config ExpressionGeneratorConfig
	// WithoutBaseline makes LoadBaseline return nil.
	WithoutBaseline bool
}

var (
	_ ports.ExpressionSource = (*Source)(nil)
	_ ports.BaselineSource   = (*Source)(nil)
)

// Load generates the dataset.
func (s *Source) Load(ctx context.Context) (*ports.ExpressionDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewExpressionGenerator(s.Config).Dataset(), nil
}

// LoadBaseline generates the baseline table.
func (s *Source) LoadBaseline(ctx context.Context) (*panel.Baseline, error) {
	if s.WithoutBaseline {
		return nil, nil
	}
	return NewExpressionGenerator(s.Config).Baseline(), nil
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
