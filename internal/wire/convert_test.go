package wire_test

import (
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/wire"
)

func TestScanRequestFromStruct(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"code": "S1"})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	if got := wire.ScanRequestFromStruct(s).Code; got != "S1" {
		t.Errorf("expected code=S1, got %q", got)
	}

	wrongType, _ := structpb.NewStruct(map[string]any{"code": 42})
	if got := wire.ScanRequestFromStruct(wrongType).Code; got != "" {
		t.Errorf("expected empty code for a number, got %q", got)
	}
	if got := wire.ScanRequestFromStruct(nil).Code; got != "" {
		t.Errorf("expected empty code for nil, got %q", got)
	}
}

func TestScanResponseToStruct_FieldNames(t *testing.T) {
	s, err := wire.ScanResponseToStruct(types.ScanResponse{
		OK: true, Granted: true, Status: types.StatusGranted, IdentityName: "Asha Patil",
	})
	if err != nil {
		t.Fatalf("ScanResponseToStruct: %v", err)
	}
	f := s.GetFields()
	if !f["granted"].GetBoolValue() {
		t.Error("expected granted=true")
	}
	if got := f["status"].GetStringValue(); got != string(types.StatusGranted) {
		t.Errorf("expected status=%s, got %q", types.StatusGranted, got)
	}
	if got := f["identity_name"].GetStringValue(); got != "Asha Patil" {
		t.Errorf("expected identity_name, got %q", got)
	}
}

func TestEventStruct_DecisionSurvives(t *testing.T) {
	conf := 91.0
	in := types.Event{Kind: types.EventDecision, Decision: &types.AccessDecision{
		ID:            7,
		Timestamp:     time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Channel:       types.ChannelPlate,
		DetectedValue: "MH12AB1234",
		IdentityID:    "S1",
		Status:        types.StatusGranted,
		Confidence:    &conf,
	}}

	s, err := wire.EventToStruct(in)
	if err != nil {
		t.Fatalf("EventToStruct: %v", err)
	}
	out, err := wire.EventFromStruct(s)
	if err != nil {
		t.Fatalf("EventFromStruct: %v", err)
	}
	if out.Kind != types.EventDecision || out.Decision == nil {
		t.Fatalf("unexpected event: %+v", out)
	}
	d := out.Decision
	if d.ID != 7 || d.DetectedValue != "MH12AB1234" || !d.Timestamp.Equal(in.Decision.Timestamp) {
		t.Errorf("decision changed in transit: %+v", d)
	}
	if d.Confidence == nil || *d.Confidence != 91 {
		t.Errorf("expected confidence 91, got %v", d.Confidence)
	}
}
