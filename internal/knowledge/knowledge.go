// Package knowledge loads the curated gene panel, pathway map and mechanistic
// rule tables. Tables are versioned YAML, embedded in the binary, parsed once
// and exposed read-only.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"degpredict/domain/core"
	"degpredict/domain/panel"
)

//go:embed data/calcium_pkc.yaml
var embeddedTables []byte

// OutcomeSpec is one rule row as written in the YAML tables.
type OutcomeSpec struct {
	Signaling  string `yaml:"signaling"`
	Transcript string `yaml:"transcript"`
	Confidence string `yaml:"confidence"`
	Rationale  string `yaml:"rationale"`
}

// VariantSpec is one named rule table: gene rules, per-pathway rules keyed by
// direction bucket (up / down / other) and default rules.
type VariantSpec struct {
	Description  string                            `yaml:"description"`
	GeneRules    map[string]OutcomeSpec            `yaml:"gene_rules"`
	PathwayRules map[string]map[string]OutcomeSpec `yaml:"pathway_rules"`
	Default      map[string]OutcomeSpec            `yaml:"default"`
}

type document struct {
	Version         string                 `yaml:"version"`
	TargetTissue    string                 `yaml:"target_tissue"`
	KnockoutTargets []string               `yaml:"knockout_targets"`
	Panel           []string               `yaml:"panel"`
	Pathways        map[string][]string    `yaml:"pathways"`
	Variants        map[string]VariantSpec `yaml:"variants"`
}

// Knowledge is the parsed, immutable knowledge base.
type Knowledge struct {
	version         string
	targetTissue    string
	knockoutTargets []string
	panel           []string
	geneToPathway   map[string]string
	pathways        []string
	variants        map[string]VariantSpec
}

// Default parses the embedded tables.
func Default() (*Knowledge, error) {
	return Parse(embeddedTables)
}

// Load parses a knowledge file from disk. An empty path selects the embedded tables.
func Load(path string) (*Knowledge, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a knowledge document.
func Parse(data []byte) (*Knowledge, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidKnowledge, err)
	}
	if len(doc.Panel) == 0 {
		return nil, fmt.Errorf("%w: empty gene panel", core.ErrInvalidKnowledge)
	}
	if len(doc.Variants) == 0 {
		return nil, fmt.Errorf("%w: no rule variants", core.ErrInvalidKnowledge)
	}

	k := &Knowledge{
		version:         doc.Version,
		targetTissue:    doc.TargetTissue,
		knockoutTargets: normalizeAll(doc.KnockoutTargets),
		geneToPathway:   make(map[string]string),
		variants:        doc.Variants,
	}

	seen := make(map[string]bool, len(doc.Panel))
	for _, g := range doc.Panel {
		g = normalize(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		k.panel = append(k.panel, g)
	}

	for pathway, genes := range doc.Pathways {
		if pathway == panel.OtherPathway {
			return nil, fmt.Errorf("%w: %q is reserved for unmapped genes", core.ErrInvalidKnowledge, pathway)
		}
		k.pathways = append(k.pathways, pathway)
		for _, g := range genes {
			g = normalize(g)
			if prev, dup := k.geneToPathway[g]; dup && prev != pathway {
				return nil, fmt.Errorf("%w: gene %s mapped to both %q and %q", core.ErrInvalidKnowledge, g, prev, pathway)
			}
			k.geneToPathway[g] = pathway
		}
	}
	sort.Strings(k.pathways)

	if err := checkKnockoutRules(k.knockoutTargets, doc.Variants); err != nil {
		return nil, err
	}
	return k, nil
}

// checkKnockoutRules requires a gene rule for every knockout target in every
// variant, so a removed gene is never classified by its pathway.
func checkKnockoutRules(targets []string, variants map[string]VariantSpec) error {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ruled := make(map[string]bool, len(variants[name].GeneRules))
		for g := range variants[name].GeneRules {
			ruled[normalize(g)] = true
		}
		for _, target := range targets {
			if !ruled[target] {
				return fmt.Errorf("%w: variant %q has no gene rule for knockout target %s",
					core.ErrInvalidKnowledge, name, target)
			}
		}
	}
	return nil
}

// Version identifies the table revision; it is part of every run fingerprint.
func (k *Knowledge) Version() string { return k.version }

// TargetTissue is the tissue predictions are made for.
func (k *Knowledge) TargetTissue() string { return k.targetTissue }

// Panel returns the de-duplicated gene panel in declared order.
func (k *Knowledge) Panel() []string {
	out := make([]string, len(k.panel))
	copy(out, k.panel)
	return out
}

// KnockoutTargets returns the genes removed by the knockout.
func (k *Knowledge) KnockoutTargets() []string {
	out := make([]string, len(k.knockoutTargets))
	copy(out, k.knockoutTargets)
	return out
}

// Pathways returns the mapped pathway names, sorted.
func (k *Knowledge) Pathways() []string {
	out := make([]string, len(k.pathways))
	copy(out, k.pathways)
	return out
}

// PathwayOf maps a gene to its pathway, or panel.OtherPathway.
func (k *Knowledge) PathwayOf(gene string) string {
	if p, ok := k.geneToPathway[normalize(gene)]; ok {
		return p
	}
	return panel.OtherPathway
}

// Variant returns the named rule table spec.
func (k *Knowledge) Variant(name string) (VariantSpec, error) {
	v, ok := k.variants[name]
	if !ok {
		return VariantSpec{}, core.NewUnknownVariantError(name)
	}
	return v, nil
}

// VariantNames lists available rule tables, sorted.
func (k *Knowledge) VariantNames() []string {
	names := make([]string, 0, len(k.variants))
	for n := range k.variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalize(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		if g = normalize(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
