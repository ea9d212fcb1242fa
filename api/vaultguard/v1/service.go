package vaultguardv1

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const ServiceName = "vaultguard.v1.ActionService"

// ActionServiceServer is the server-side interface of ActionService.
type ActionServiceServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Inspect(context.Context, *InspectRequest) (*InspectResponse, error)
	Events(context.Context, *EventsRequest) (*EventsResponse, error)
	ListActions(context.Context, *ListActionsRequest) (*ListActionsResponse, error)
}

// RegisterActionServiceServer registers srv on s.
func RegisterActionServiceServer(s grpc.ServiceRegistrar, srv ActionServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerExecute(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ExecuteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ActionServiceServer).Execute(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("Execute")}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ActionServiceServer).Execute(ctx, req.(*ExecuteRequest))
	})
}

func handlerInspect(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(InspectRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ActionServiceServer).Inspect(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("Inspect")}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ActionServiceServer).Inspect(ctx, req.(*InspectRequest))
	})
}

func handlerEvents(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(EventsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ActionServiceServer).Events(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("Events")}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ActionServiceServer).Events(ctx, req.(*EventsRequest))
	})
}

func handlerListActions(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ListActionsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ActionServiceServer).ListActions(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("ListActions")}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ActionServiceServer).ListActions(ctx, req.(*ListActionsRequest))
	})
}

// FullMethod builds the full gRPC method path.
func FullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, method)
}

// serviceDesc is the manual gRPC service descriptor for ActionService.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ActionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: handlerExecute},
		{MethodName: "Inspect", Handler: handlerInspect},
		{MethodName: "Events", Handler: handlerEvents},
		{MethodName: "ListActions", Handler: handlerListActions},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaultguard/v1/service.cramberry",
}

// ActionServiceClient is the client-side interface of ActionService.
type ActionServiceClient interface {
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error)
	Inspect(ctx context.Context, in *InspectRequest, opts ...grpc.CallOption) (*InspectResponse, error)
	Events(ctx context.Context, in *EventsRequest, opts ...grpc.CallOption) (*EventsResponse, error)
	ListActions(ctx context.Context, in *ListActionsRequest, opts ...grpc.CallOption) (*ListActionsResponse, error)
}

type actionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewActionServiceClient wraps cc. Every call is forced onto the JSON codec.
func NewActionServiceClient(cc grpc.ClientConnInterface) ActionServiceClient {
	return &actionServiceClient{cc: cc}
}

func (c *actionServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

func (c *actionServiceClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error) {
	out := new(ExecuteResponse)
	if err := c.invoke(ctx, "Execute", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actionServiceClient) Inspect(ctx context.Context, in *InspectRequest, opts ...grpc.CallOption) (*InspectResponse, error) {
	out := new(InspectResponse)
	if err := c.invoke(ctx, "Inspect", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actionServiceClient) Events(ctx context.Context, in *EventsRequest, opts ...grpc.CallOption) (*EventsResponse, error) {
	out := new(EventsResponse)
	if err := c.invoke(ctx, "Events", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actionServiceClient) ListActions(ctx context.Context, in *ListActionsRequest, opts ...grpc.CallOption) (*ListActionsResponse, error) {
	out := new(ListActionsResponse)
	if err := c.invoke(ctx, "ListActions", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
