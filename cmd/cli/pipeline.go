package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"degpredict/adapters/excel"
	"degpredict/adapters/geo"
	"degpredict/app"
	"degpredict/domain/core"
	"degpredict/domain/prediction"
	"degpredict/internal/config"
	"degpredict/internal/testkit"
	"degpredict/ports"
)

func newFetchCmd() *cobra.Command {
	var skipAnnotation bool

	cmd := &cobra.Command{
		Use:   "fetch [accession]",
		Short: "Download a GEO series matrix and its platform annotation",
		Long: `Download the series matrix of a GEO accession (default GEO_ACCESSION) into
DATA_DIR, then the annotation of the platform it names. Files already in
DATA_DIR are reused.

Example: degpredict fetch GSE43217`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			accession := cfg.Data.GEOAccession
			if len(args) == 1 {
				accession = args[0]
			}
			return runFetch(cmd.Context(), cmd.OutOrStdout(), cfg.Data, accession, skipAnnotation)
		},
	}

	cmd.Flags().BoolVar(&skipAnnotation, "no-annotation", false, "Skip the platform annotation download")
	return cmd
}

func runFetch(ctx context.Context, out io.Writer, data config.DataConfig, accession string, skipAnnotation bool) error {
	fetcher := geo.NewFetcher(data.GEOBaseURL, data.Dir, data.DownloadTimeout)

	seriesPath, err := fetcher.FetchSeriesMatrix(ctx, accession)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "series matrix: %s\n", seriesPath)
	if skipAnnotation {
		return nil
	}

	f, err := os.Open(seriesPath)
	if err != nil {
		return err
	}
	defer f.Close()
	series, err := geo.ParseSeriesMatrix(f)
	if err != nil {
		return err
	}
	if series.PlatformID == "" {
		return fmt.Errorf("series matrix %s names no platform", seriesPath)
	}
	annotPath, err := fetcher.FetchPlatformAnnotation(ctx, series.PlatformID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "platform annotation (%s): %s\n", series.PlatformID, annotPath)
	return nil
}

// inputFlags select the dataset a run reads.
type inputFlags struct {
	series     string
	annotation string
	expression string
	metadata   string
	baseline   string
	raw        bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.series, "series", "", "GEO series matrix file (plain or gzip)")
	cmd.Flags().StringVar(&f.annotation, "annotation", "", "GEO platform annotation file")
	cmd.Flags().StringVar(&f.expression, "expression", "", "Processed expression table (CSV, TSV or XLSX)")
	cmd.Flags().StringVar(&f.metadata, "metadata", "", "Sample metadata table for --expression")
	cmd.Flags().StringVar(&f.baseline, "baseline", "", "Target-tissue baseline expression table")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Skip log2 and quantile normalisation of the series matrix")
}

func (f *inputFlags) apply(data *config.DataConfig) {
	if f.series != "" {
		data.SeriesMatrixFile = f.series
	}
	if f.annotation != "" {
		data.PlatformAnnotationFile = f.annotation
	}
	if f.expression != "" {
		data.ExpressionFile = f.expression
	}
	if f.metadata != "" {
		data.MetadataFile = f.metadata
	}
	if f.baseline != "" {
		data.BaselineFile = f.baseline
	}
}

// expressionSource prefers a processed table over a raw series matrix.
func expressionSource(data config.DataConfig, raw bool) (ports.ExpressionSource, error) {
	switch {
	case data.ExpressionFile != "":
		if data.MetadataFile == "" {
			return nil, fmt.Errorf("a metadata table is required with a processed expression table")
		}
		return &excel.ProcessedSource{
			Accession:      data.GEOAccession,
			ExpressionPath: data.ExpressionFile,
			MetadataPath:   data.MetadataFile,
		}, nil
	case data.SeriesMatrixFile != "":
		return &geo.SeriesSource{
			SeriesPath:     data.SeriesMatrixFile,
			AnnotationPath: data.PlatformAnnotationFile,
			SkipNormalize:  raw,
		}, nil
	}
	return nil, fmt.Errorf("no input: set --expression/--metadata or --series (or EXPRESSION_FILE / SERIES_MATRIX_FILE)")
}

func newPreprocessCmd() *cobra.Command {
	var inputs inputFlags

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Normalise a series matrix into processed expression and sample tables",
		Long: `Read a GEO series matrix, map probes to gene symbols, apply log2(x+1) and
quantile normalisation, and write processed_expression.csv and
sample_metadata.csv into DATA_DIR.

Example: degpredict preprocess --series data/GSE43217_series_matrix.txt.gz --annotation data/GPL570.annot.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			inputs.apply(&cfg.Data)
			if cfg.Data.SeriesMatrixFile == "" {
				return fmt.Errorf("--series is required")
			}
			src := &geo.SeriesSource{
				SeriesPath:     cfg.Data.SeriesMatrixFile,
				AnnotationPath: cfg.Data.PlatformAnnotationFile,
				SkipNormalize:  inputs.raw,
			}
			return runPreprocess(cmd.Context(), cmd.OutOrStdout(), src, cfg.Data.Dir)
		},
	}

	inputs.register(cmd)
	return cmd
}

func runPreprocess(ctx context.Context, out io.Writer, src ports.ExpressionSource, dir string) error {
	ds, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	outputs := []struct {
		kind  core.ArtifactKind
		table *excel.Table
	}{
		{core.ArtifactProcessedMatrix, excel.EncodeMatrix(ds.Matrix)},
		{core.ArtifactProcessedMetadata, excel.EncodeSamples(ds.Samples)},
	}
	for _, o := range outputs {
		var buf bytes.Buffer
		if err := excel.WriteCSV(&buf, o.table); err != nil {
			return err
		}
		path := filepath.Join(dir, string(o.kind))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	fmt.Fprintf(out, "%s: %d features x %d samples\n", ds.Accession, ds.Matrix.Features(), len(ds.Matrix.SampleIDs))
	return nil
}

func newRunCmd() *cobra.Command {
	var inputs inputFlags
	var analysis analysisFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full prediction pipeline",
		Long: `Resolve control and treated groups, score differential expression, map the
gene panel, apply the mechanistic rule table and persist every artifact.

Example: degpredict run --expression data/processed_expression.csv --metadata data/sample_metadata.csv --baseline data/astrocyte_baseline.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), func(cfg *config.Config) {
				inputs.apply(&cfg.Data)
				analysis.apply(cmd, &cfg.Analysis)
			})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			src, err := expressionSource(c.Config.Data, inputs.raw)
			if err != nil {
				return err
			}
			svc, err := c.Pipeline()
			if err != nil {
				return err
			}
			res, err := svc.Run(cmd.Context(), src, excel.BaselineFile{Path: c.Config.Data.BaselineFile})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	inputs.register(cmd)
	analysis.register(cmd)
	return cmd
}

func newDemoCmd() *cobra.Command {
	var analysis analysisFlags
	var seed int64
	var noBaseline bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the pipeline on a seeded synthetic dataset",
		Long: `Generate a small synthetic proxy dataset over the knowledge panel with known
up- and downregulated genes, then run the full pipeline on it.

Example: degpredict demo --seed 7 --variant transcript`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), func(cfg *config.Config) {
				analysis.apply(cmd, &cfg.Analysis)
			})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			gen := testkit.DefaultExpressionConfig(c.Knowledge.Panel())
			gen.Seed = seed
			src := &testkit.Source{Config: gen, WithoutBaseline: noBaseline}

			svc, err := c.Pipeline()
			if err != nil {
				return err
			}
			res, err := svc.Run(cmd.Context(), src, src)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	analysis.register(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the synthetic dataset")
	cmd.Flags().BoolVar(&noBaseline, "no-baseline", false, "Run without a target-tissue baseline")
	return cmd
}

func printResult(out io.Writer, res *app.RunResult) {
	m := res.Manifest
	fmt.Fprintf(out, "run %s (%s)\n", res.RunID, m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  groups: %d control, %d treated (%s)\n", m.ControlCount, m.TreatedCount, m.GroupMethod)
	fmt.Fprintf(out, "  DEG: %d features, %d up, %d down, %d degenerate\n",
		m.DEG.Total, m.DEG.Upregulated, m.DEG.Downregulated, m.DEG.Degenerate)

	dist := prediction.ConfidenceDistribution(res.Analysis.Records)
	fmt.Fprintf(out, "  predictions: %d genes (high %d, medium %d, low %d, very_low %d)\n", len(res.Analysis.Records),
		dist[prediction.High], dist[prediction.Medium], dist[prediction.Low], dist[prediction.VeryLow])
	fmt.Fprintf(out, "  fingerprint: %s\n", m.Fingerprint.Hash.Short())
	for _, a := range res.Artifacts {
		fmt.Fprintf(out, "  artifact: %s (%d bytes)\n", a.Key, a.Size)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}
