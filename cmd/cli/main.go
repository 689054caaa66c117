package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"degpredict/internal/config"
	"degpredict/internal/container"
	apperrors "degpredict/internal/errors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		if apperrors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "[%s] %v\n", apperrors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "degpredict",
		Short: "Predict knockout effects on a calcium-signalling gene panel from proxy expression data",
		Long: `degpredict runs differential expression on a proxy perturbation dataset,
maps the result onto a curated gene panel and applies mechanistic rules to
predict the effect of a PKC knockout in the target tissue.

Configuration is read from the environment (and a .env file); flags override it.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newFetchCmd(),
		newPreprocessCmd(),
		newRunCmd(),
		newDemoCmd(),
		newRulesCmd(),
		newRunsCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// analysisFlags are the analysis overrides shared by run and demo.
type analysisFlags struct {
	variant   string
	tissue    string
	adjP      float64
	log2FC    float64
	exprLevel float64
	workers   int
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variant, "variant", "", "Rule table variant (signaling|transcript)")
	cmd.Flags().StringVar(&f.tissue, "tissue", "", "Target tissue named in rationales")
	cmd.Flags().Float64Var(&f.adjP, "adj-p", 0, "Adjusted p-value threshold (strict)")
	cmd.Flags().Float64Var(&f.log2FC, "log2fc", 0, "Absolute log2 fold-change threshold (strict)")
	cmd.Flags().Float64Var(&f.exprLevel, "expression-threshold", 0, "Baseline level at or above which a gene counts as expressed")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel workers")
}

func (f *analysisFlags) apply(cmd *cobra.Command, cfg *config.AnalysisConfig) {
	if cmd.Flags().Changed("variant") {
		cfg.RuleVariant = f.variant
	}
	if cmd.Flags().Changed("tissue") {
		cfg.TargetTissue = f.tissue
	}
	if cmd.Flags().Changed("adj-p") {
		cfg.AdjPValueThreshold = f.adjP
	}
	if cmd.Flags().Changed("log2fc") {
		cfg.Log2FCThreshold = f.log2FC
	}
	if cmd.Flags().Changed("expression-threshold") {
		cfg.ExpressionThreshold = f.exprLevel
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = f.workers
	}
}

// bootstrap loads configuration, lets mutate adjust it, and initialises the
// container. The caller must Shutdown the container.
func bootstrap(ctx context.Context, mutate func(*config.Config)) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
