package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/wire"
)

// Client is a thin typed client for the Sentinel service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Scan(ctx context.Context, code string) (types.ScanResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, scanMethod, wire.ScanRequestToStruct(types.ScanRequest{Code: code}), out); err != nil {
		return types.ScanResponse{}, err
	}
	var resp types.ScanResponse
	err := wire.FromStruct(out, &resp)
	return resp, err
}

// EventStream receives live events from WatchDecisions.
type EventStream struct {
	stream grpc.ClientStream
}

func (c *Client) WatchDecisions(ctx context.Context) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

// Recv blocks for the next event. It returns io.EOF when the server ends
// the stream.
func (s *EventStream) Recv() (types.Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return types.Event{}, err
	}
	return wire.EventFromStruct(msg)
}
