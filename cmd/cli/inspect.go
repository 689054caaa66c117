package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"degpredict/internal/config"
	"degpredict/internal/knowledge"
	"degpredict/internal/mechanism"
	"degpredict/ports"
)

func newRulesCmd() *cobra.Command {
	var knowledgeFile string

	cmd := &cobra.Command{
		Use:   "rules [variant...]",
		Short: "Print mechanistic rule tables in precedence order",
		Long: `Print every rule of the named variants (default: all) in precedence order:
gene rules, then pathway rules, then defaults.

Example: degpredict rules signaling`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := knowledge.Default()
			if knowledgeFile != "" {
				k, err = knowledge.Load(knowledgeFile)
			}
			if err != nil {
				return err
			}
			variants := args
			if len(variants) == 0 {
				variants = k.VariantNames()
			}
			return printRules(cmd.OutOrStdout(), k, variants)
		},
	}

	cmd.Flags().StringVar(&knowledgeFile, "knowledge", "", "Knowledge YAML file (default: embedded tables)")
	return cmd
}

func printRules(out io.Writer, k *knowledge.Knowledge, variants []string) error {
	fmt.Fprintf(out, "knowledge %s, target tissue %s, knockout targets %v\n", k.Version(), k.TargetTissue(), k.KnockoutTargets())
	for _, v := range variants {
		table, err := mechanism.LoadRuleTable(k, v)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n[%s]\n", table.Name())
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tSIGNALING\tTRANSCRIPT\tCONFIDENCE")
		for _, r := range table.Rules() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Key, r.Outcome.Signaling, r.Outcome.Transcript, r.Outcome.Confidence)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs (requires DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), func(cfg *config.Config) {})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			if c.DB == nil {
				return fmt.Errorf("DATABASE_URL is not set; runs are only recorded in a database")
			}
			return printRuns(cmd.Context(), cmd.OutOrStdout(), c.Runs, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 = all)")
	return cmd
}

func printRuns(ctx context.Context, out io.Writer, runs ports.RunRepository, limit int) error {
	list, err := runs.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tACCESSION\tCREATED\tVARIANT\tUP\tDOWN\tPANEL")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n", m.RunID, m.Accession,
			m.CreatedAt.Format("2006-01-02 15:04"), m.Fingerprint.RuleVariant,
			m.DEG.Upregulated, m.DEG.Downregulated, m.PanelSize)
	}
	return tw.Flush()
}
