package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// ScanService handles externally scanned codes. Each call is a discrete
// event, so there is no debouncing.
type ScanService struct {
	registry *Registry
	recorder *Recorder
}

func NewScanService(reg *Registry, rec *Recorder) *ScanService {
	return &ScanService{registry: reg, recorder: rec}
}

func (s *ScanService) Scan(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return types.ScanResponse{}, ErrInvalidCode
	}

	ident, ok, err := s.registry.ResolveByCode(ctx, code)
	if err != nil {
		return types.ScanResponse{}, err
	}

	d := types.AccessDecision{
		Timestamp:     time.Now().UTC(),
		Channel:       types.ChannelScan,
		DetectedValue: code,
		Status:        types.StatusDenied,
	}
	if ok {
		d.Status = types.StatusGranted
		d.IdentityID = ident.IdentityID
		d.IdentityName = ident.DisplayName
	}

	// A failed append is logged by the recorder; the caller still gets the
	// decision.
	d, _ = s.recorder.Record(ctx, d)

	resp := types.ScanResponse{
		OK:           true,
		Granted:      d.Granted(),
		Status:       d.Status,
		IdentityName: d.IdentityName,
		Decision:     &d,
		ServerTime:   d.Timestamp.Format(time.RFC3339Nano),
	}
	if resp.Granted {
		resp.Message = "access granted for " + d.IdentityName
	} else {
		resp.Message = "access denied: code not registered"
	}
	return resp, nil
}
