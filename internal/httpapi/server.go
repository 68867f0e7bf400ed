package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/sentinel/internal/broadcast"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/service"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/wire"
)

type Dependencies struct {
	Logger     *slog.Logger
	Addr       string
	Scan       *service.ScanService
	Queries    *service.QueryService
	Controller *service.StreamController
	Hub        *broadcast.Hub
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	router     *mux.Router
	scan       *service.ScanService
	queries    *service.QueryService
	controller *service.StreamController
	hub        *broadcast.Hub
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := mux.NewRouter()

	s := &Server{
		logger:     d.Logger,
		router:     r,
		scan:       d.Scan,
		queries:    d.Queries,
		controller: d.Controller,
		hub:        d.Hub,
	}

	r.HandleFunc("/v1/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/v1/access_logs", s.handleAccessLogs).Methods(http.MethodGet)
	r.HandleFunc("/v1/recent_detections", s.handleRecentDetections).Methods(http.MethodGet)
	r.HandleFunc("/v1/detection_stats", s.handleDetectionStats).Methods(http.MethodGet)
	r.HandleFunc("/v1/identities", s.handleIdentities).Methods(http.MethodGet)

	r.HandleFunc("/v1/camera/status", s.handleCameraStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/camera/start", s.handleCameraStart).Methods(http.MethodPost)
	r.HandleFunc("/v1/camera/stop", s.handleCameraStop).Methods(http.MethodPost)
	r.HandleFunc("/v1/detection/toggle", s.handleDetectionToggle).Methods(http.MethodPost)

	r.HandleFunc("/v1/live", s.handleLive).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           loggingMiddleware(d.Logger, r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Scan ─────────────────────────────────────────────────────────────────────

// handleScan answers 200 for a granted code and 404 for a denied one. Both
// are recorded.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	asProto := isProtobuf(r)

	var req types.ScanRequest
	if asProto {
		msg := &structpb.Struct{}
		if err := readProto(r, msg); err != nil {
			writeError(w, http.StatusBadRequest, "bad_protobuf", "invalid protobuf body")
			return
		}
		req = wire.ScanRequestFromStruct(msg)
	} else {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	resp, err := s.scan.Scan(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			writeError(w, http.StatusBadRequest, "invalid_code", err.Error())
			return
		}
		s.logger.Error("scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	status := http.StatusOK
	if !resp.Granted {
		status = http.StatusNotFound
	}

	if asProto {
		msg, err := wire.ScanResponseToStruct(resp)
		if err != nil {
			s.logger.Error("scan response encode failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, status, msg)
		return
	}
	writeJSON(w, status, resp)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.queries.Recent(r.Context(), service.MaxRecentLimit)
	if err != nil {
		s.internalError(w, "access_logs", err)
		return
	}
	writeJSON(w, http.StatusOK, types.AccessLogResponse{Logs: logs})
}

func (s *Server) handleRecentDetections(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	logs, err := s.queries.Recent(r.Context(), limit)
	if err != nil {
		s.internalError(w, "recent_detections", err)
		return
	}
	writeJSON(w, http.StatusOK, types.AccessLogResponse{Logs: logs})
}

func (s *Server) handleDetectionStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.queries.Stats(r.Context())
	if err != nil {
		s.internalError(w, "detection_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := s.queries.Identities(r.Context())
	if err != nil {
		s.internalError(w, "identities", err)
		return
	}
	writeJSON(w, http.StatusOK, types.IdentitiesResponse{Identities: ids})
}

// ── Camera control ───────────────────────────────────────────────────────────

func (s *Server) handleCameraStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	err := s.controller.Start(r.Context())
	switch {
	case err == nil:
		st := s.controller.Status()
		st.Message = "camera started"
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, service.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "already_running", err.Error())
	case errors.Is(err, service.ErrSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "camera_unavailable", err.Error())
	default:
		s.internalError(w, "camera_start", err)
	}
}

func (s *Server) handleCameraStop(w http.ResponseWriter, _ *http.Request) {
	err := s.controller.Stop()
	switch {
	case err == nil:
		st := s.controller.Status()
		st.Message = "camera stopped"
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, service.ErrNotRunning):
		writeError(w, http.StatusConflict, "not_running", err.Error())
	default:
		s.internalError(w, "camera_stop", err)
	}
}

func (s *Server) handleDetectionToggle(w http.ResponseWriter, _ *http.Request) {
	s.controller.ToggleDetection()
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
