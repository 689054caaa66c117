package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"degpredict/adapters/excel"
	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/panel"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	"degpredict/internal"
	"degpredict/internal/config"
	"degpredict/internal/diffexpr"
	"degpredict/internal/errors"
	"degpredict/internal/grouping"
	"degpredict/internal/knowledge"
	"degpredict/internal/mechanism"
	"degpredict/internal/metrics"
	"degpredict/internal/panelmap"
	"degpredict/internal/report"
	"degpredict/ports"
)

// Stage names used in logs, metrics and input errors.
const (
	StageLoad        = "load"
	StageGroups      = "group_assignment"
	StageDiffExpr    = "differential_expression"
	StagePanel       = "panel_mapping"
	StageInference   = "mechanistic_inference"
	StagePersistence = "persistence"
)

// PipelineConfig holds the analysis parameters of a run.
type PipelineConfig struct {
	Thresholds          deg.Thresholds
	ExpressionThreshold float64
	Variant             string
	TargetTissue        string // empty means the knowledge default
	TreatedKeywords     []string
	Workers             int
}

// PipelineConfigFrom converts the environment analysis settings.
func PipelineConfigFrom(cfg config.AnalysisConfig) PipelineConfig {
	return PipelineConfig{
		Thresholds:          deg.Thresholds{AdjPValue: cfg.AdjPValueThreshold, Log2FC: cfg.Log2FCThreshold},
		ExpressionThreshold: cfg.ExpressionThreshold,
		Variant:             cfg.RuleVariant,
		TargetTissue:        cfg.TargetTissue,
		TreatedKeywords:     cfg.TreatedKeywords,
		Workers:             cfg.Workers,
	}
}

// PipelineService runs group assignment, differential expression, panel
// mapping and mechanistic inference, then persists the run.
type PipelineService struct {
	config    PipelineConfig
	knowledge *knowledge.Knowledge
	resolver  *grouping.Resolver
	diffExpr  *diffexpr.Engine
	mapper    *panelmap.Mapper
	inference *mechanism.Engine
	store     ports.ArtifactStore
	runs      ports.RunRepository // optional
	metrics   *metrics.Recorder   // optional
	logger    *internal.Logger
	now       func() time.Time
}

// Analysis is the in-memory output of one pipeline pass.
type Analysis struct {
	Accession string
	InputHash core.Hash
	Features  int
	Groups    expression.GroupAssignment
	Results   []deg.Result // sorted by adjusted p-value
	Panel     []panel.Entry
	Records   []prediction.Record // persistence order
	Summaries []prediction.PathwaySummary
}

// RunResult describes a persisted run.
type RunResult struct {
	RunID     core.RunID           `json:"run_id"`
	Manifest  run.Manifest         `json:"manifest"`
	Artifacts []ports.ArtifactInfo `json:"artifacts"`
	Warnings  []string             `json:"warnings,omitempty"`
	Analysis  *Analysis            `json:"-"`
}

// NewPipelineService wires the engines from knowledge and config. runs and
// rec may be nil.
func NewPipelineService(k *knowledge.Knowledge, cfg PipelineConfig, store ports.ArtifactStore,
	runs ports.RunRepository, rec *metrics.Recorder, logger *internal.Logger) (*PipelineService, error) {

	if logger == nil {
		logger = internal.DefaultLogger
	}
	if cfg.Thresholds == (deg.Thresholds{}) {
		cfg.Thresholds = deg.DefaultThresholds()
	}
	if cfg.Variant == "" {
		cfg.Variant = "signaling"
	}
	if cfg.TargetTissue == "" {
		cfg.TargetTissue = k.TargetTissue()
	}
	table, err := mechanism.LoadRuleTable(k, cfg.Variant)
	if err != nil {
		return nil, err
	}

	return &PipelineService{
		config:    cfg,
		knowledge: k,
		resolver:  grouping.NewResolver(cfg.TreatedKeywords, logger),
		diffExpr:  diffexpr.NewEngine(cfg.Workers, logger),
		mapper:    panelmap.NewMapper(k.Panel(), k, cfg.ExpressionThreshold, logger),
		inference: mechanism.NewEngine(table, cfg.TargetTissue, cfg.Workers).WithLogger(logger),
		store:     store,
		runs:      runs,
		metrics:   rec,
		logger:    logger.With("Pipeline"),
		now:       time.Now,
	}, nil
}

// Run loads inputs, analyses and persists.
func (s *PipelineService) Run(ctx context.Context, source ports.ExpressionSource, baselines ports.BaselineSource) (*RunResult, error) {
	start := time.Now()
	ds, err := source.Load(ctx)
	if err != nil {
		s.metrics.RecordRun("failure")
		return nil, errors.Wrap(err, "failed to load expression data")
	}
	var baseline *panel.Baseline
	if baselines != nil {
		if baseline, err = baselines.LoadBaseline(ctx); err != nil {
			s.metrics.RecordRun("failure")
			return nil, errors.Wrap(err, "failed to load baseline expression")
		}
	}
	s.metrics.ObserveStage(StageLoad, time.Since(start))

	analysis, err := s.Analyze(ctx, ds, baseline)
	if err != nil {
		s.metrics.RecordRun("failure")
		return nil, err
	}
	result, err := s.Persist(ctx, analysis)
	if err != nil {
		s.metrics.RecordRun("failure")
		return nil, err
	}
	s.metrics.RecordRun("success")
	return result, nil
}

// Analyze runs the four stages in order. Input-shape problems abort with an
// INVALID_INPUT error naming the stage.
func (s *PipelineService) Analyze(ctx context.Context, ds *ports.ExpressionDataset, baseline *panel.Baseline) (*Analysis, error) {
	if ds == nil || ds.Matrix == nil {
		return nil, errors.StageInput(StageLoad, "expression dataset", core.ErrEmptyMatrix)
	}

	t := time.Now()
	groups, err := s.resolver.Resolve(ds.Samples)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStage(StageGroups, time.Since(t))
	s.logger.Info("Groups: %d control, %d treated (%s)", len(groups.Control), len(groups.Treated), groups.Method)

	t = time.Now()
	results, err := s.diffExpr.Analyze(ctx, ds.Matrix, groups, s.config.Thresholds)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStage(StageDiffExpr, time.Since(t))
	s.metrics.RecordDEG(deg.Summarize(results))

	t = time.Now()
	entries := s.mapper.Map(results, baseline)
	s.metrics.ObserveStage(StagePanel, time.Since(t))

	t = time.Now()
	records, err := s.inference.PredictAll(ctx, entries)
	if err != nil {
		return nil, err
	}
	records = mechanism.SortForPersistence(records)
	s.metrics.ObserveStage(StageInference, time.Since(t))
	s.metrics.RecordPredictions(records)

	dist := prediction.ConfidenceDistribution(records)
	s.logger.Info("Predictions: %d genes (high %d, medium %d, low %d, very_low %d)", len(records),
		dist[prediction.High], dist[prediction.Medium], dist[prediction.Low], dist[prediction.VeryLow])

	return &Analysis{
		Accession: ds.Accession,
		InputHash: ds.InputHash,
		Features:  ds.Matrix.Features(),
		Groups:    groups,
		Results:   results,
		Panel:     entries,
		Records:   records,
		Summaries: prediction.Summarize(records),
	}, nil
}

// Persist writes every artifact of the run, then the manifest, then the run
// repository entry. Only a failure to write predictions.csv is returned as
// an error; other failures become warnings.
func (s *PipelineService) Persist(ctx context.Context, a *Analysis) (*RunResult, error) {
	start := time.Now()
	runID := core.NewRunID()
	manifest := run.Manifest{
		RunID:        runID,
		Accession:    a.Accession,
		CreatedAt:    s.now().UTC(),
		GroupMethod:  a.Groups.Method,
		ControlCount: len(a.Groups.Control),
		TreatedCount: len(a.Groups.Treated),
		FeatureCount: a.Features,
		PanelSize:    len(a.Panel),
		DEG:          deg.Summarize(a.Results),
		Fingerprint: run.NewFingerprint(a.InputHash, s.knowledge.Version(), s.config.Variant,
			s.config.TargetTissue, s.config.Thresholds, s.config.ExpressionThreshold),
	}
	result := &RunResult{RunID: runID, Analysis: a}

	for _, art := range s.artifacts(a, manifest) {
		info, err := s.write(ctx, runID, art.kind, art.contentType, art.render)
		if err != nil {
			s.metrics.RecordArtifactError(string(art.kind))
			if art.kind.Primary() {
				return nil, errors.StorageError(art.kind.Key(runID), err)
			}
			s.logger.Warn("Failed to write %s: %v", art.kind, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", art.kind, err))
			continue
		}
		result.Artifacts = append(result.Artifacts, info)
		manifest.Artifacts = append(manifest.Artifacts, string(art.kind))
	}

	manifest.Warnings = append([]string(nil), result.Warnings...)
	info, err := s.write(ctx, runID, core.ArtifactManifest, "application/json", func() ([]byte, error) {
		return json.MarshalIndent(manifest, "", "  ")
	})
	if err != nil {
		s.metrics.RecordArtifactError(string(core.ArtifactManifest))
		s.logger.Warn("Failed to write manifest: %v", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", core.ArtifactManifest, err))
	} else {
		result.Artifacts = append(result.Artifacts, info)
	}

	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, manifest, a.Records); err != nil {
			s.logger.Warn("Failed to record run %s: %v", runID, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("run repository: %v", err))
		}
	}

	s.metrics.ObserveStage(StagePersistence, time.Since(start))
	s.logger.Info("Run %s persisted to %s (%d artifacts, %d warnings)", runID, s.store.Driver(), len(result.Artifacts), len(result.Warnings))
	result.Manifest = manifest
	return result, nil
}

type artifactSpec struct {
	kind        core.ArtifactKind
	contentType string
	render      func() ([]byte, error)
}

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeHTML = "text/html; charset=utf-8"
)

func (s *PipelineService) artifacts(a *Analysis, manifest run.Manifest) []artifactSpec {
	csvOf := func(t func() *excel.Table) func() ([]byte, error) {
		return func() ([]byte, error) { return excel.CSVBytes(t()) }
	}
	return []artifactSpec{
		{core.ArtifactDEGResults, contentTypeCSV, csvOf(func() *excel.Table { return excel.EncodeDEGResults(a.Results) })},
		{core.ArtifactDEGSignificant, contentTypeCSV, csvOf(func() *excel.Table { return excel.EncodeDEGResults(deg.Significant(a.Results)) })},
		{core.ArtifactPanelExpression, contentTypeCSV, csvOf(func() *excel.Table { return excel.EncodePanel(a.Panel) })},
		{core.ArtifactPredictions, contentTypeCSV, csvOf(func() *excel.Table { return excel.EncodePredictions(a.Records) })},
		{core.ArtifactPredictionsXLSX, contentTypeXLSX, func() ([]byte, error) {
			var buf bytes.Buffer
			err := excel.WriteXLSX(&buf,
				excel.Sheet{Name: "Predictions", Table: excel.EncodePredictions(a.Records)},
				excel.Sheet{Name: "Pathway Summary", Table: excel.EncodeSummary(a.Summaries)},
				excel.Sheet{Name: "Gene Panel", Table: excel.EncodePanel(a.Panel)},
			)
			return buf.Bytes(), err
		}},
		{core.ArtifactPathwaySummary, contentTypeCSV, csvOf(func() *excel.Table { return excel.EncodeSummary(a.Summaries) })},
		{core.ArtifactReport, contentTypeHTML, func() ([]byte, error) {
			return report.HTML(report.Input{Manifest: manifest, Results: a.Results, Records: a.Records}), nil
		}},
	}
}

func (s *PipelineService) write(ctx context.Context, runID core.RunID, kind core.ArtifactKind, contentType string, render func() ([]byte, error)) (ports.ArtifactInfo, error) {
	data, err := render()
	if err != nil {
		return ports.ArtifactInfo{}, fmt.Errorf("render: %w", err)
	}
	return s.store.Put(ctx, kind.Key(runID), bytes.NewReader(data), ports.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"run_id": runID.String()},
	})
}
