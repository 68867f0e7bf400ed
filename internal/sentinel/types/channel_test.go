package types_test

import (
	"testing"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

func TestNormalizePlate(t *testing.T) {
	cases := map[string]string{
		"mh12ab1234":     "MH12AB1234",
		" MH-12 AB.1234": "MH12AB1234",
		"":               "",
		"xx 99\tzz0001":  "XX99ZZ0001",
	}
	for in, want := range cases {
		if got := types.NormalizePlate(in); got != want {
			t.Errorf("NormalizePlate(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalizeFaceLabel(t *testing.T) {
	if got := types.NormalizeFaceLabel("  Alice "); got != "alice" {
		t.Errorf("expected alice, got %q", got)
	}
}

func TestEventChannel(t *testing.T) {
	d := types.AccessDecision{Channel: types.ChannelPlate}
	if got := (types.Event{Kind: types.EventDecision, Decision: &d}).Channel(); got != types.ChannelPlate {
		t.Errorf("expected %q, got %q", types.ChannelPlate, got)
	}
	a := types.Alert{Channel: types.ChannelFace}
	if got := (types.Event{Kind: types.EventAlert, Alert: &a}).Channel(); got != types.ChannelFace {
		t.Errorf("expected %q, got %q", types.ChannelFace, got)
	}
	if got := (types.Event{}).Channel(); got != "" {
		t.Errorf("expected empty channel, got %q", got)
	}
}
