package core

import (
	"errors"
	"strings"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"valid-id", RunID("valid-id"), false},
		{"  padded ", RunID("padded"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRunID(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for input %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestArtifactKindKey(t *testing.T) {
	key := ArtifactPredictions.Key(RunID("abc"))
	if key != "runs/abc/predictions.csv" {
		t.Errorf("unexpected key %s", key)
	}
	if !ArtifactPredictions.Primary() {
		t.Error("predictions.csv must be the primary artifact")
	}
	if ArtifactPredictionsXLSX.Primary() {
		t.Error("predictions.xlsx must not be primary")
	}
}

func TestComputeFieldsHashOrderIndependent(t *testing.T) {
	a := ComputeFieldsHash(map[string]string{"x": "1", "y": "2"})
	b := ComputeFieldsHash(map[string]string{"y": "2", "x": "1"})
	if !a.Equals(b) {
		t.Errorf("hash depends on map order: %s vs %s", a, b)
	}
	c := ComputeFieldsHash(map[string]string{"x": "1", "y": "3"})
	if a.Equals(c) {
		t.Error("different values produced the same hash")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Short() length = %d", len(a.Short()))
	}
}

func TestHashReaderMatchesNewHash(t *testing.T) {
	h, err := HashReader(strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if h != NewHash([]byte("payload")) {
		t.Errorf("HashReader and NewHash disagree")
	}
}

func TestInputShapeErrors(t *testing.T) {
	if !IsInputShapeError(NewMissingSampleError("GSM1")) {
		t.Error("missing sample should be an input shape error")
	}
	if !errors.Is(NewUnknownVariantError("x"), ErrUnknownVariant) {
		t.Error("unknown variant should wrap ErrUnknownVariant")
	}
	if IsInputShapeError(ErrRunNotFound) {
		t.Error("not found is not an input shape error")
	}
	if !IsNotFoundError(NewNotFoundError("run", "r1")) {
		t.Error("expected not found")
	}
}
