package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sentinel.v1.Sentinel"

const (
	scanMethod  = "/" + ServiceName + "/Scan"
	watchMethod = "/" + ServiceName + "/WatchDecisions"
)

// sentinelService is the server contract. Messages are protobuf well-known
// types carrying the same fields as the JSON API.
type sentinelService interface {
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchDecisions(*emptypb.Empty, grpc.ServerStream) error
}

func scanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(sentinelService).Scan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scanMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(sentinelService).Scan(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(sentinelService).WatchDecisions(in, stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*sentinelService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Scan", Handler: scanHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchDecisions", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "sentinel/v1/sentinel.proto",
}
