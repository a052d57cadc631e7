// Package rpc defines the gRPC shuffle service workers use to serve their
// intermediate partitions to reducers. Messages are protobuf well-known
// wrapper types so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ShuffleServiceName = "tripcount.rpc.Shuffle"

const (
	fetchPartitionMethod = "/" + ShuffleServiceName + "/FetchPartition"
	healthMethod         = "/" + ShuffleServiceName + "/Health"
)

// ShuffleServer is implemented by workers.
type ShuffleServer interface {
	// FetchPartition returns the encoded pairs of one intermediate file.
	FetchPartition(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	// Health reports the worker state.
	Health(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterShuffleServer attaches srv to s.
func RegisterShuffleServer(s grpc.ServiceRegistrar, srv ShuffleServer) {
	s.RegisterService(&shuffleServiceDesc, srv)
}

var shuffleServiceDesc = grpc.ServiceDesc{
	ServiceName: ShuffleServiceName,
	HandlerType: (*ShuffleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FetchPartition", Handler: fetchPartitionHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tripcount/rpc/shuffle.proto",
}

func fetchPartitionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShuffleServer).FetchPartition(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fetchPartitionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShuffleServer).FetchPartition(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShuffleServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ShuffleServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ShuffleClient is the reducer side of the service.
type ShuffleClient interface {
	FetchPartition(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type shuffleClient struct {
	cc grpc.ClientConnInterface
}

func NewShuffleClient(cc grpc.ClientConnInterface) ShuffleClient {
	return &shuffleClient{cc: cc}
}

func (c *shuffleClient) FetchPartition(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fetchPartitionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *shuffleClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, healthMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
