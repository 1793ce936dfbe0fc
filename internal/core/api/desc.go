package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "dialkeeper.rewrite.v1.RewriteService"

// Method names.
const (
	MethodRewrite              = "Rewrite"
	MethodRewriteProgressively = "RewriteProgressively"
	MethodGetRuleSet           = "GetRuleSet"
	MethodPutRuleSet           = "PutRuleSet"
)

// FullMethod returns the "/service/method" path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RewriteServer is the server API of the rewrite service.
type RewriteServer interface {
	Rewrite(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RewriteProgressively(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRuleSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutRuleSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RewriteServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts call to a grpc.MethodHandler, running the server's
// interceptor chain when one is installed.
func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RewriteServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RewriteServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the rewrite service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RewriteServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodRewrite,
			Handler:    unaryHandler(MethodRewrite, RewriteServer.Rewrite),
		},
		{
			MethodName: MethodRewriteProgressively,
			Handler:    unaryHandler(MethodRewriteProgressively, RewriteServer.RewriteProgressively),
		},
		{
			MethodName: MethodGetRuleSet,
			Handler:    unaryHandler(MethodGetRuleSet, RewriteServer.GetRuleSet),
		},
		{
			MethodName: MethodPutRuleSet,
			Handler:    unaryHandler(MethodPutRuleSet, RewriteServer.PutRuleSet),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dialkeeper/rewrite/v1/rewrite.proto",
}

// Register registers srv with s.
func Register(s grpc.ServiceRegistrar, srv RewriteServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the rewrite service over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Rewrite calls RewriteService.Rewrite.
func (c *Client) Rewrite(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRewrite, in, opts...)
}

// RewriteProgressively calls RewriteService.RewriteProgressively.
func (c *Client) RewriteProgressively(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRewriteProgressively, in, opts...)
}

// GetRuleSet calls RewriteService.GetRuleSet.
func (c *Client) GetRuleSet(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetRuleSet, in, opts...)
}

// PutRuleSet calls RewriteService.PutRuleSet.
func (c *Client) PutRuleSet(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPutRuleSet, in, opts...)
}
