package renderer

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified renderer service name, also used for
// health checks.
const ServiceName = "viewscore.renderer.v1.RendererService"

const (
	loadConfigMethod     = "/" + ServiceName + "/LoadConfig"
	loadVolumeMethod     = "/" + ServiceName + "/LoadVolume"
	renderToFileMethod   = "/" + ServiceName + "/RenderToFile"
	scoreViewpointMethod = "/" + ServiceName + "/ScoreViewpoint"
)

// RendererServiceServer is the server API for the renderer service.
//
// Requests are structpb.Struct messages: path operations carry a "path"
// string, ScoreViewpoint carries "x", "y", "z" and "k" numbers.
type RendererServiceServer interface {
	LoadConfig(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	LoadVolume(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RenderToFile(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ScoreViewpoint(context.Context, *structpb.Struct) (*wrapperspb.DoubleValue, error)
}

// UnimplementedRendererServiceServer can be embedded for forward
// compatibility.
type UnimplementedRendererServiceServer struct{}

func (UnimplementedRendererServiceServer) LoadConfig(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadConfig not implemented")
}

func (UnimplementedRendererServiceServer) LoadVolume(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadVolume not implemented")
}

func (UnimplementedRendererServiceServer) RenderToFile(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RenderToFile not implemented")
}

func (UnimplementedRendererServiceServer) ScoreViewpoint(context.Context, *structpb.Struct) (*wrapperspb.DoubleValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ScoreViewpoint not implemented")
}

// RegisterRendererServiceServer registers srv on s.
func RegisterRendererServiceServer(s grpc.ServiceRegistrar, srv RendererServiceServer) {
	s.RegisterService(&rendererServiceDesc, srv)
}

type pathHandler func(RendererServiceServer, context.Context, *structpb.Struct) (*emptypb.Empty, error)

func unaryPathHandler(fullMethod string, call pathHandler) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RendererServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RendererServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func scoreViewpointHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RendererServiceServer).ScoreViewpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scoreViewpointMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RendererServiceServer).ScoreViewpoint(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var rendererServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RendererServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "LoadConfig",
			Handler: unaryPathHandler(loadConfigMethod, func(s RendererServiceServer, ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
				return s.LoadConfig(ctx, in)
			}),
		},
		{
			MethodName: "LoadVolume",
			Handler: unaryPathHandler(loadVolumeMethod, func(s RendererServiceServer, ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
				return s.LoadVolume(ctx, in)
			}),
		},
		{
			MethodName: "RenderToFile",
			Handler: unaryPathHandler(renderToFileMethod, func(s RendererServiceServer, ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
				return s.RenderToFile(ctx, in)
			}),
		},
		{
			MethodName: "ScoreViewpoint",
			Handler:    scoreViewpointHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "viewscore/renderer/v1/renderer.proto",
}
