// Package prediction holds mechanistic predictions and their per-pathway summary.
package prediction

import (
	"fmt"

	"degpredict/domain/deg"
)

// Confidence is the ordered tier attached to a prediction.
type Confidence string

const (
	High    Confidence = "high"
	Medium  Confidence = "medium"
	Low     Confidence = "low"
	VeryLow Confidence = "very_low"
)

// Rank orders tiers for sorting: high=4, medium=3, low=2, very_low=1, unknown=0.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case VeryLow:
		return 1
	default:
		return 0
	}
}

// ParseConfidence validates a tier name.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(s)
	if c.Rank() == 0 {
		return "", fmt.Errorf("unknown confidence %q", s)
	}
	return c, nil
}

// SignalingChange is the predicted protein-level activity change.
type SignalingChange string

const (
	LossOfFunction    SignalingChange = "loss_of_function"
	IncreasedActivity SignalingChange = "increased_activity"
	DecreasedActivity SignalingChange = "decreased_activity"
	NoActivityChange  SignalingChange = "no_change"
	UnknownSignaling  SignalingChange = "unknown"
	NotAssessed       SignalingChange = "not_assessed"
)

// ParseSignalingChange validates a signalling change name.
func ParseSignalingChange(s string) (SignalingChange, error) {
	switch c := SignalingChange(s); c {
	case LossOfFunction, IncreasedActivity, DecreasedActivity, NoActivityChange, UnknownSignaling, NotAssessed:
		return c, nil
	}
	return "", fmt.Errorf("unknown signaling change %q", s)
}

// TranscriptChange is the predicted mRNA-level change.
type TranscriptChange string

const (
	TranscriptUp       TranscriptChange = "up"
	TranscriptDown     TranscriptChange = "down"
	TranscriptNoChange TranscriptChange = "no_change"
	TranscriptUnknown  TranscriptChange = "unknown"
)

// ParseTranscriptChange validates a transcript change name.
func ParseTranscriptChange(s string) (TranscriptChange, error) {
	switch c := TranscriptChange(s); c {
	case TranscriptUp, TranscriptDown, TranscriptNoChange, TranscriptUnknown:
		return c, nil
	}
	return "", fmt.Errorf("unknown transcript change %q", s)
}

// Record is one per-gene prediction.
type Record struct {
	Gene             string           `json:"gene" db:"gene"`
	Pathway          string           `json:"pathway" db:"pathway"`
	ProxyRegulation  deg.Regulation   `json:"proxy_regulation" db:"proxy_regulation"`
	ProxyLog2FC      *float64         `json:"proxy_log2fc" db:"proxy_log2fc"`
	Expressed        bool             `json:"expressed" db:"expressed"`
	SignalingChange  SignalingChange  `json:"signaling_change" db:"signaling_change"`
	TranscriptChange TranscriptChange `json:"transcript_change" db:"transcript_change"`
	Confidence       Confidence       `json:"confidence" db:"confidence"`
	Rationale        string           `json:"rationale" db:"rationale"`
	RuleKey          string           `json:"rule_key" db:"rule_key"`
}
