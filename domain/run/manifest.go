// Package run describes one pipeline execution for replay and audit.
package run

import (
	"fmt"
	"strconv"
	"time"

	"degpredict/domain/core"
	"degpredict/domain/deg"
	"degpredict/domain/expression"
)

// CodeVersion is stamped into every manifest.
const CodeVersion = "degpredict/1"

// Fingerprint pins every input that determines a run's output.
type Fingerprint struct {
	InputHash           core.Hash      `json:"input_hash"`
	KnowledgeVersion    string         `json:"knowledge_version"`
	RuleVariant         string         `json:"rule_variant"`
	TargetTissue        string         `json:"target_tissue"`
	Thresholds          deg.Thresholds `json:"thresholds"`
	ExpressionThreshold float64        `json:"expression_threshold"`
	CodeVersion         string         `json:"code_version"`
	Hash                core.Hash      `json:"hash"`
}

// NewFingerprint computes the fingerprint hash over all parameters.
func NewFingerprint(inputHash core.Hash, knowledgeVersion, variant, tissue string,
	thr deg.Thresholds, exprThreshold float64) Fingerprint {

	fp := Fingerprint{
		InputHash:           inputHash,
		KnowledgeVersion:    knowledgeVersion,
		RuleVariant:         variant,
		TargetTissue:        tissue,
		Thresholds:          thr,
		ExpressionThreshold: exprThreshold,
		CodeVersion:         CodeVersion,
	}
	fp.Hash = fp.compute()
	return fp
}

func (f Fingerprint) compute() core.Hash {
	return core.ComputeFieldsHash(map[string]string{
		"input":      f.InputHash.String(),
		"knowledge":  f.KnowledgeVersion,
		"variant":    f.RuleVariant,
		"tissue":     f.TargetTissue,
		"adj_p":      strconv.FormatFloat(f.Thresholds.AdjPValue, 'g', -1, 64),
		"log2fc":     strconv.FormatFloat(f.Thresholds.Log2FC, 'g', -1, 64),
		"expression": strconv.FormatFloat(f.ExpressionThreshold, 'g', -1, 64),
		"code":       f.CodeVersion,
	})
}

// Verify recomputes the hash and compares it with the stored one.
func (f Fingerprint) Verify() error {
	if got := f.compute(); !got.Equals(f.Hash) {
		return fmt.Errorf("%w: fingerprint %s, recomputed %s", core.ErrHashMismatch, f.Hash.Short(), got.Short())
	}
	return nil
}

// Manifest is the audit record written next to a run's artifacts.
type Manifest struct {
	RunID        core.RunID             `json:"run_id"`
	Accession    string                 `json:"accession"`
	CreatedAt    time.Time              `json:"created_at"`
	GroupMethod  expression.GroupMethod `json:"group_method"`
	ControlCount int                    `json:"control_count"`
	TreatedCount int                    `json:"treated_count"`
	FeatureCount int                    `json:"feature_count"`
	PanelSize    int                    `json:"panel_size"`
	DEG          deg.Summary            `json:"deg_summary"`
	Fingerprint  Fingerprint            `json:"fingerprint"`
	Artifacts    []string               `json:"artifacts"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Fingerprint.Hash.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if m.Fingerprint.RuleVariant == "" {
		return core.NewValidationError("run_manifest", "rule_variant cannot be empty")
	}
	if m.ControlCount == 0 || m.TreatedCount == 0 {
		return core.NewValidationError("run_manifest", "both groups must be non-empty")
	}
	if m.CreatedAt.IsZero() {
		return core.NewValidationError("run_manifest", "created_at cannot be zero")
	}
	return nil
}
