// Package report renders a run summary as Markdown and as a standalone HTML
// page.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"degpredict/domain/deg"
	"degpredict/domain/expression"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
)

// topGenes caps the differential expression table.
const topGenes = 15

// Input is everything a report shows.
type Input struct {
	Manifest run.Manifest
	// Results sorted by adjusted p-value, as the engine returns them.
	Results []deg.Result
	Records []prediction.Record
}

// Markdown renders the report body.
func Markdown(in Input) []byte {
	m := in.Manifest
	var b strings.Builder

	title := m.Accession
	if title == "" {
		title = "proxy dataset"
	}
	fmt.Fprintf(&b, "# Predicted %s response: %s\n\n", m.Fingerprint.TargetTissue, title)
	fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Rule variant: %s (knowledge %s)\n", m.Fingerprint.RuleVariant, m.Fingerprint.KnowledgeVersion)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n\n", m.Fingerprint.Hash.Short())

	b.WriteString("## Groups\n\n")
	fmt.Fprintf(&b, "%d control and %d treated samples, assigned by %s.\n\n", m.ControlCount, m.TreatedCount, m.GroupMethod)
	if m.GroupMethod == expression.GroupPositionalFallback {
		b.WriteString("> Sample descriptors did not separate the groups; the first half of the samples was used as control.\n\n")
	}

	b.WriteString("## Differential expression\n\n")
	thr := m.Fingerprint.Thresholds
	fmt.Fprintf(&b, "Thresholds: adjusted p < %g and |log2FC| > %g.\n\n", thr.AdjPValue, thr.Log2FC)
	b.WriteString("| Features | Upregulated | Downregulated | Not significant | Degenerate |\n|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", m.DEG.Total, m.DEG.Upregulated, m.DEG.Downregulated, m.DEG.NotSignificant, m.DEG.Degenerate)

	if sig := deg.Significant(in.Results); len(sig) > 0 {
		if len(sig) > topGenes {
			sig = sig[:topGenes]
		}
		fmt.Fprintf(&b, "### Top %d significant features\n\n", len(sig))
		b.WriteString("| Probe | Gene | log2FC | Adj. p | Regulation |\n|---|---|---:|---:|---|\n")
		for _, r := range sig {
			fmt.Fprintf(&b, "| %s | %s | %.3f | %.3g | %s |\n", cell(r.ProbeID), cell(r.GeneSymbol), r.Log2FoldChange, r.AdjPValue, r.Regulation)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Predictions by pathway\n\n")
	b.WriteString("| Pathway | Genes | Signalling | High | Medium | Low | Very low |\n|---|---:|---|---:|---:|---:|---:|\n")
	for _, s := range prediction.Summarize(in.Records) {
		fmt.Fprintf(&b, "| %s | %d | %s | %d | %d | %d | %d |\n", cell(s.Pathway), s.TotalGenes, signalingMix(s.Signaling),
			s.Confidence[prediction.High], s.Confidence[prediction.Medium], s.Confidence[prediction.Low], s.Confidence[prediction.VeryLow])
	}
	b.WriteString("\n")

	b.WriteString("## Gene predictions\n\n")
	b.WriteString("| Gene | Pathway | Proxy | log2FC | Signalling | Transcript | Confidence | Rationale |\n|---|---|---|---:|---|---|---|---|\n")
	for _, r := range in.Records {
		fc := ""
		if r.ProxyLog2FC != nil {
			fc = fmt.Sprintf("%.3f", *r.ProxyLog2FC)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n", cell(r.Gene), cell(r.Pathway), r.ProxyRegulation, fc,
			r.SignalingChange, r.TranscriptChange, r.Confidence, cell(r.Rationale))
	}
	b.WriteString("\n")

	if len(m.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range m.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// HTML renders the report as a complete HTML page.
func HTML(in Input) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Run %s", in.Manifest.RunID),
	})
	return markdown.ToHTML(Markdown(in), p, r)
}

// signalingMix lists signalling categories by count, most frequent first.
func signalingMix(counts map[prediction.SignalingChange]int) string {
	type kv struct {
		k prediction.SignalingChange
		v int
	}
	var items []kv
	for k, v := range counts {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", strings.ReplaceAll(string(it.k), "_", " "), it.v)
	}
	return strings.Join(parts, ", ")
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
