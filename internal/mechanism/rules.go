package mechanism

import (
	"fmt"
	"sort"
	"strings"

	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/prediction"
	"degpredict/internal/knowledge"
)

// Direction buckets a regulation label for rule lookup.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionOther Direction = "other"
)

// DirectionOf maps upregulated/downregulated to up/down; everything else,
// including not_found, is other.
func DirectionOf(r deg.Regulation) Direction {
	switch r {
	case deg.Upregulated:
		return DirectionUp
	case deg.Downregulated:
		return DirectionDown
	default:
		return DirectionOther
	}
}

var directions = []Direction{DirectionUp, DirectionDown, DirectionOther}

// Outcome is the fixed prediction a rule assigns.
type Outcome struct {
	Signaling  prediction.SignalingChange
	Transcript prediction.TranscriptChange
	Confidence prediction.Confidence
	Rationale  string // may contain {gene}, {pathway}, {tissue}
}

// Scope names the rule tier that matched.
type Scope string

const (
	ScopeGene    Scope = "gene"
	ScopePathway Scope = "pathway"
	ScopeDefault Scope = "default"
)

// RuleKey identifies the rule that fired, e.g. "pathway:IP3 Receptor:up".
type RuleKey struct {
	Scope     Scope
	Subject   string
	Direction Direction // empty for gene rules
}

func (k RuleKey) String() string {
	switch k.Scope {
	case ScopeGene:
		return "gene:" + k.Subject
	case ScopeDefault:
		return "default:" + string(k.Direction)
	default:
		return "pathway:" + k.Subject + ":" + string(k.Direction)
	}
}

type pathwayKey struct {
	pathway   string
	direction Direction
}

// RuleTable is an immutable lookup with precedence gene > pathway > default.
type RuleTable struct {
	name     string
	genes    map[string]Outcome
	pathways map[pathwayKey]Outcome
	defaults map[Direction]Outcome
}

// NewRuleTable validates a variant spec and indexes it. Default rules must
// cover all three directions; pathway rules may omit a direction, which then
// falls through to the default.
func NewRuleTable(name string, spec knowledge.VariantSpec) (*RuleTable, error) {
	t := &RuleTable{
		name:     name,
		genes:    make(map[string]Outcome, len(spec.GeneRules)),
		pathways: make(map[pathwayKey]Outcome),
		defaults: make(map[Direction]Outcome, 3),
	}
	for gene, o := range spec.GeneRules {
		out, err := parseOutcome(o)
		if err != nil {
			return nil, ruleError(name, "gene "+gene, err)
		}
		t.genes[strings.ToUpper(strings.TrimSpace(gene))] = out
	}
	for pathway, byDir := range spec.PathwayRules {
		for dir, o := range byDir {
			d, err := parseDirection(dir)
			if err != nil {
				return nil, ruleError(name, "pathway "+pathway, err)
			}
			out, err := parseOutcome(o)
			if err != nil {
				return nil, ruleError(name, "pathway "+pathway+"/"+dir, err)
			}
			t.pathways[pathwayKey{pathway, d}] = out
		}
	}
	for dir, o := range spec.Default {
		d, err := parseDirection(dir)
		if err != nil {
			return nil, ruleError(name, "default", err)
		}
		out, err := parseOutcome(o)
		if err != nil {
			return nil, ruleError(name, "default/"+dir, err)
		}
		t.defaults[d] = out
	}
	for _, d := range directions {
		if _, ok := t.defaults[d]; !ok {
			return nil, ruleError(name, "default", fmt.Errorf("missing %q rule", d))
		}
	}
	return t, nil
}

// LoadRuleTable builds the named variant from a knowledge base.
func LoadRuleTable(k *knowledge.Knowledge, variant string) (*RuleTable, error) {
	spec, err := k.Variant(variant)
	if err != nil {
		return nil, err
	}
	return NewRuleTable(variant, spec)
}

// Name is the variant name.
func (t *RuleTable) Name() string { return t.name }

// Lookup resolves the outcome for a gene in a pathway with a direction.
func (t *RuleTable) Lookup(gene, pathway string, dir Direction) (Outcome, RuleKey) {
	if o, ok := t.genes[strings.ToUpper(gene)]; ok {
		return o, RuleKey{Scope: ScopeGene, Subject: strings.ToUpper(gene)}
	}
	if o, ok := t.pathways[pathwayKey{pathway, dir}]; ok {
		return o, RuleKey{Scope: ScopePathway, Subject: pathway, Direction: dir}
	}
	return t.defaults[dir], RuleKey{Scope: ScopeDefault, Direction: dir}
}

// Rule is a flattened table row for display.
type Rule struct {
	Key     RuleKey
	Outcome Outcome
}

// Rules lists every rule in precedence order, then by subject and direction.
func (t *RuleTable) Rules() []Rule {
	var out []Rule
	genes := make([]string, 0, len(t.genes))
	for g := range t.genes {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	for _, g := range genes {
		out = append(out, Rule{Key: RuleKey{Scope: ScopeGene, Subject: g}, Outcome: t.genes[g]})
	}

	keys := make([]pathwayKey, 0, len(t.pathways))
	for k := range t.pathways {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pathway != keys[j].pathway {
			return keys[i].pathway < keys[j].pathway
		}
		return directionRank(keys[i].direction) < directionRank(keys[j].direction)
	})
	for _, k := range keys {
		out = append(out, Rule{Key: RuleKey{Scope: ScopePathway, Subject: k.pathway, Direction: k.direction}, Outcome: t.pathways[k]})
	}
	for _, d := range directions {
		out = append(out, Rule{Key: RuleKey{Scope: ScopeDefault, Direction: d}, Outcome: t.defaults[d]})
	}
	return out
}

func directionRank(d Direction) int {
	for i, x := range directions {
		if x == d {
			return i
		}
	}
	return len(directions)
}

func parseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if directionRank(d) == len(directions) {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

func parseOutcome(o knowledge.OutcomeSpec) (Outcome, error) {
	sig, err := prediction.ParseSignalingChange(o.Signaling)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := prediction.ParseTranscriptChange(o.Transcript)
	if err != nil {
		return Outcome{}, err
	}
	conf, err := prediction.ParseConfidence(o.Confidence)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(o.Rationale) == "" {
		return Outcome{}, fmt.Errorf("empty rationale")
	}
	return Outcome{Signaling: sig, Transcript: tr, Confidence: conf, Rationale: o.Rationale}, nil
}

func ruleError(variant, where string, err error) error {
	return fmt.Errorf("%w: variant %s, %s: %v", core.ErrInvalidKnowledge, variant, where, err)
}
