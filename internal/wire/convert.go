// Package wire converts API types to and from protobuf well-known types.
//
// Scan bodies and live events travel as google.protobuf.Struct so HTTP
// protobuf clients and gRPC clients see the same field names as the JSON API.
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// ── Scan ─────────────────────────────────────────────────────────────────────

// ScanRequestFromStruct reads the "code" field. A missing or non-string
// code yields an empty request, which the scan service rejects.
func ScanRequestFromStruct(s *structpb.Struct) types.ScanRequest {
	v, ok := s.GetFields()["code"]
	if !ok {
		return types.ScanRequest{}
	}
	return types.ScanRequest{Code: v.GetStringValue()}
}

func ScanRequestToStruct(r types.ScanRequest) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"code": structpb.NewStringValue(r.Code),
	}}
}

func ScanResponseToStruct(r types.ScanResponse) (*structpb.Struct, error) {
	return ToStruct(r)
}

// ── Events ───────────────────────────────────────────────────────────────────

func EventToStruct(ev types.Event) (*structpb.Struct, error) {
	return ToStruct(ev)
}

func EventFromStruct(s *structpb.Struct) (types.Event, error) {
	var ev types.Event
	err := FromStruct(s, &ev)
	return ev, err
}

// ── Generic ──────────────────────────────────────────────────────────────────

// ToStruct converts v through its JSON form. v must encode to a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("struct from %T: %w", v, err)
	}
	return s, nil
}

// FromStruct decodes s into v through JSON.
func FromStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
