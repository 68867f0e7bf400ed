package recognize_test

import (
	"testing"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

func TestBest_PicksHighestEligible(t *testing.T) {
	cands := []types.Candidate{
		{Value: "LOW", Confidence: 99, LowConfidence: true},
		{Value: "A", Confidence: 70, Eligible: true},
		{Value: "B", Confidence: 88, Eligible: true},
		{Value: "", Confidence: 95, Eligible: true},
	}
	got, ok := recognize.Best(cands)
	if !ok {
		t.Fatal("expected a best candidate")
	}
	if got.Value != "B" {
		t.Errorf("expected B, got %q", got.Value)
	}
}

func TestBest_NoneEligible(t *testing.T) {
	if _, ok := recognize.Best([]types.Candidate{{Value: "X", Confidence: 40, LowConfidence: true}}); ok {
		t.Error("expected no best candidate when nothing is eligible")
	}
	if _, ok := recognize.Best(nil); ok {
		t.Error("expected no best candidate for empty input")
	}
}

func TestClampConfidence(t *testing.T) {
	for in, want := range map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 130: 100} {
		if got := recognize.ClampConfidence(in); got != want {
			t.Errorf("ClampConfidence(%v): expected %v, got %v", in, want, got)
		}
	}
}
