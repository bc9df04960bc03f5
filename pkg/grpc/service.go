package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Requests and responses are google.protobuf.Struct messages so the service
// needs no generated code.
const ServiceName = "household.v1.HouseholdService"

const (
	MethodRegisterHousehold = "RegisterHousehold"
	MethodDeleteHousehold   = "DeleteHousehold"
	MethodListHouseholds    = "ListHouseholds"
	MethodFindHousehold     = "FindHousehold"
	MethodActivateHousehold = "ActivateHousehold"
	MethodGetActive         = "GetActive"
	MethodSetActive         = "SetActive"
	MethodAggregateReadings = "AggregateReadings"
	MethodPostReading       = "PostReading"
	MethodPostLimiter       = "PostLimiter"
)

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type HouseholdServiceServer interface {
	RegisterHousehold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteHousehold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHouseholds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindHousehold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivateHousehold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetActive(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetActive(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AggregateReadings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(HouseholdServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HouseholdServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(HouseholdServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func methodDesc(method string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: method, Handler: unaryHandler(method, call)}
}

var HouseholdService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HouseholdServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodRegisterHousehold, HouseholdServiceServer.RegisterHousehold),
		methodDesc(MethodDeleteHousehold, HouseholdServiceServer.DeleteHousehold),
		methodDesc(MethodListHouseholds, HouseholdServiceServer.ListHouseholds),
		methodDesc(MethodFindHousehold, HouseholdServiceServer.FindHousehold),
		methodDesc(MethodActivateHousehold, HouseholdServiceServer.ActivateHousehold),
		methodDesc(MethodGetActive, HouseholdServiceServer.GetActive),
		methodDesc(MethodSetActive, HouseholdServiceServer.SetActive),
		methodDesc(MethodAggregateReadings, HouseholdServiceServer.AggregateReadings),
		methodDesc(MethodPostReading, HouseholdServiceServer.PostReading),
		methodDesc(MethodPostLimiter, HouseholdServiceServer.PostLimiter),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "household/v1/household_service.proto",
}

func RegisterHouseholdServiceServer(s grpc.ServiceRegistrar, srv HouseholdServiceServer) {
	s.RegisterService(&HouseholdService_ServiceDesc, srv)
}

type HouseholdServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHouseholdServiceClient(cc grpc.ClientConnInterface) *HouseholdServiceClient {
	return &HouseholdServiceClient{cc: cc}
}

// Call invokes method with the given fields as the request body.
func (c *HouseholdServiceClient) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
