// Package control exposes the globe engine over gRPC. Messages are protobuf
// well-known types, so the service needs no generated code.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "peerglobe.control.v1.GlobeControl"

// GlobeControlServer is the server API for the GlobeControl service.
type GlobeControlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLayout(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	NavigateTo(context.Context, *wrapperspb.Int32Value) (*wrapperspb.BoolValue, error)
	Next(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Previous(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	NavigateByExternalID(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	SelectEntity(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	ClearSelection(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	CenterOn(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SetScan(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ClearScan(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	OpenDetail(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	ResetRotation(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }
func newInt32() *wrapperspb.Int32Value   { return new(wrapperspb.Int32Value) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func fullMethod(name string) string      { return "/" + ServiceName + "/" + name }

func unary[Req, Resp proto.Message](name string, newReq func() Req, call func(GlobeControlServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(GlobeControlServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(Req))
			})
		},
	}
}

// ServiceDesc describes GlobeControl for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GlobeControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetState", newEmpty, GlobeControlServer.GetState),
		unary("GetLayout", newEmpty, GlobeControlServer.GetLayout),
		unary("NavigateTo", newInt32, GlobeControlServer.NavigateTo),
		unary("Next", newEmpty, GlobeControlServer.Next),
		unary("Previous", newEmpty, GlobeControlServer.Previous),
		unary("NavigateByExternalID", newString, GlobeControlServer.NavigateByExternalID),
		unary("SelectEntity", newString, GlobeControlServer.SelectEntity),
		unary("ClearSelection", newEmpty, GlobeControlServer.ClearSelection),
		unary("CenterOn", newStruct, GlobeControlServer.CenterOn),
		unary("SetScan", newStruct, GlobeControlServer.SetScan),
		unary("ClearScan", newEmpty, GlobeControlServer.ClearScan),
		unary("OpenDetail", newEmpty, GlobeControlServer.OpenDetail),
		unary("ResetRotation", newEmpty, GlobeControlServer.ResetRotation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peerglobe/control/v1/control.proto",
}

// RegisterGlobeControlServer registers srv on s.
func RegisterGlobeControlServer(s grpc.ServiceRegistrar, srv GlobeControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}
