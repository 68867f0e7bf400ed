// Package grpcapi exposes the scan channel and the live decision feed over
// gRPC.
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/sentinel/internal/broadcast"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/service"
	"github.com/BrandonDHaskell/sentinel/internal/wire"
)

const watchBuffer = 64

type Dependencies struct {
	Logger *slog.Logger
	Addr   string
	Scan   *service.ScanService
	Hub    *broadcast.Hub
}

type Server struct {
	grpcServer *grpc.Server
	addr       string
	logger     *slog.Logger
	scan       *service.ScanService
	hub        *broadcast.Hub
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &Server{addr: d.Addr, logger: d.Logger, scan: d.Scan, hub: d.Hub}
	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryLogging(d.Logger)),
		grpc.ChainStreamInterceptor(streamLogging(d.Logger)),
	)
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Shutdown stops gracefully, falling back to a hard stop when ctx expires.
// Watch streams only end once the hub is closed or the client leaves.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Scan decides an externally scanned code. A denial is a normal response
// with granted=false.
func (s *Server) Scan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	resp, err := s.scan.Scan(ctx, wire.ScanRequestFromStruct(in))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("grpc scan failed", "error", err)
		return nil, status.Error(codes.Internal, "unexpected server error")
	}
	out, err := wire.ScanResponseToStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WatchDecisions streams live events until the client cancels or the hub
// closes. Events the client is too slow to take are dropped.
func (s *Server) WatchDecisions(_ *emptypb.Empty, stream grpc.ServerStream) error {
	if s.hub == nil {
		return status.Error(codes.Unavailable, "live updates are disabled")
	}
	sub := s.hub.Subscribe(watchBuffer)
	defer sub.Close()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			msg, err := wire.EventToStruct(ev)
			if err != nil {
				s.logger.Warn("event encode failed", "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request", "method", info.FullMethod, "code", status.Code(err), "dur", time.Since(start))
		return resp, err
	}
}

func streamLogging(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logger.Info("grpc stream", "method", info.FullMethod, "code", status.Code(err), "dur", time.Since(start))
		return err
	}
}
