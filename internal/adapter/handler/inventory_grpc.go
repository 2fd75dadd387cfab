package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const InventoryServiceName = "stockkeeper.v1.InventoryService"

const (
	InventoryService_OpenSession_FullMethodName      = "/" + InventoryServiceName + "/OpenSession"
	InventoryService_CloseSession_FullMethodName     = "/" + InventoryServiceName + "/CloseSession"
	InventoryService_AddRecord_FullMethodName        = "/" + InventoryServiceName + "/AddRecord"
	InventoryService_RemoveRecord_FullMethodName     = "/" + InventoryServiceName + "/RemoveRecord"
	InventoryService_RemoveRecordByID_FullMethodName = "/" + InventoryServiceName + "/RemoveRecordByID"
	InventoryService_ListRecords_FullMethodName      = "/" + InventoryServiceName + "/ListRecords"
	InventoryService_Summary_FullMethodName          = "/" + InventoryServiceName + "/Summary"
)

type OpenSessionRequest struct {
	Seed bool `json:"seed"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

type CloseSessionRequest struct {
	SessionID string `json:"session_id"`
}

type CloseSessionResponse struct{}

type AddRecordRequest struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id,omitempty"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type RecordMessage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type AddRecordResponse struct {
	Record *RecordMessage `json:"record"`
}

type RemoveRecordRequest struct {
	SessionID string `json:"session_id"`
	Position  int64  `json:"position"`
}

type RemoveRecordByIDRequest struct {
	SessionID string `json:"session_id"`
	RecordID  string `json:"record_id"`
}

type RemoveRecordResponse struct {
	RemovedName string `json:"removed_name"`
}

type ListRecordsRequest struct {
	SessionID string `json:"session_id"`
}

type LineMessage struct {
	Index int32 `json:"index"`
	RecordMessage
}

type ListRecordsResponse struct {
	Lines []*LineMessage `json:"lines"`
}

type SummaryRequest struct {
	SessionID string `json:"session_id"`
}

type SummaryResponse struct {
	Count         int64  `json:"count"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
}

// InventoryServiceServer is the server API for the inventory service.
type InventoryServiceServer interface {
	OpenSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error)
	CloseSession(context.Context, *CloseSessionRequest) (*CloseSessionResponse, error)
	AddRecord(context.Context, *AddRecordRequest) (*AddRecordResponse, error)
	RemoveRecord(context.Context, *RemoveRecordRequest) (*RemoveRecordResponse, error)
	RemoveRecordByID(context.Context, *RemoveRecordByIDRequest) (*RemoveRecordResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	Summary(context.Context, *SummaryRequest) (*SummaryResponse, error)
}

// UnimplementedInventoryServiceServer can be embedded for forward compatibility.
type UnimplementedInventoryServiceServer struct{}

func (UnimplementedInventoryServiceServer) OpenSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method OpenSession not implemented")
}
func (UnimplementedInventoryServiceServer) CloseSession(context.Context, *CloseSessionRequest) (*CloseSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CloseSession not implemented")
}
func (UnimplementedInventoryServiceServer) AddRecord(context.Context, *AddRecordRequest) (*AddRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddRecord not implemented")
}
func (UnimplementedInventoryServiceServer) RemoveRecord(context.Context, *RemoveRecordRequest) (*RemoveRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveRecord not implemented")
}
func (UnimplementedInventoryServiceServer) RemoveRecordByID(context.Context, *RemoveRecordByIDRequest) (*RemoveRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveRecordByID not implemented")
}
func (UnimplementedInventoryServiceServer) ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}
func (UnimplementedInventoryServiceServer) Summary(context.Context, *SummaryRequest) (*SummaryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Summary not implemented")
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(InventoryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InventoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OpenSession",
			Handler:    unaryHandler(InventoryService_OpenSession_FullMethodName, InventoryServiceServer.OpenSession),
		},
		{
			MethodName: "CloseSession",
			Handler:    unaryHandler(InventoryService_CloseSession_FullMethodName, InventoryServiceServer.CloseSession),
		},
		{
			MethodName: "AddRecord",
			Handler:    unaryHandler(InventoryService_AddRecord_FullMethodName, InventoryServiceServer.AddRecord),
		},
		{
			MethodName: "RemoveRecord",
			Handler:    unaryHandler(InventoryService_RemoveRecord_FullMethodName, InventoryServiceServer.RemoveRecord),
		},
		{
			MethodName: "RemoveRecordByID",
			Handler:    unaryHandler(InventoryService_RemoveRecordByID_FullMethodName, InventoryServiceServer.RemoveRecordByID),
		},
		{
			MethodName: "ListRecords",
			Handler:    unaryHandler(InventoryService_ListRecords_FullMethodName, InventoryServiceServer.ListRecords),
		},
		{
			MethodName: "Summary",
			Handler:    unaryHandler(InventoryService_Summary_FullMethodName, InventoryServiceServer.Summary),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockkeeper/v1/inventory.proto",
}

// InventoryServiceClient calls the inventory service using the JSON codec.
type InventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryServiceClient(cc grpc.ClientConnInterface) *InventoryServiceClient {
	return &InventoryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryServiceClient) OpenSession(ctx context.Context, in *OpenSessionRequest, opts ...grpc.CallOption) (*OpenSessionResponse, error) {
	return invoke[OpenSessionResponse](ctx, c.cc, InventoryService_OpenSession_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) CloseSession(ctx context.Context, in *CloseSessionRequest, opts ...grpc.CallOption) (*CloseSessionResponse, error) {
	return invoke[CloseSessionResponse](ctx, c.cc, InventoryService_CloseSession_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) AddRecord(ctx context.Context, in *AddRecordRequest, opts ...grpc.CallOption) (*AddRecordResponse, error) {
	return invoke[AddRecordResponse](ctx, c.cc, InventoryService_AddRecord_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) RemoveRecord(ctx context.Context, in *RemoveRecordRequest, opts ...grpc.CallOption) (*RemoveRecordResponse, error) {
	return invoke[RemoveRecordResponse](ctx, c.cc, InventoryService_RemoveRecord_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) RemoveRecordByID(ctx context.Context, in *RemoveRecordByIDRequest, opts ...grpc.CallOption) (*RemoveRecordResponse, error) {
	return invoke[RemoveRecordResponse](ctx, c.cc, InventoryService_RemoveRecordByID_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	return invoke[ListRecordsResponse](ctx, c.cc, InventoryService_ListRecords_FullMethodName, in, opts)
}

func (c *InventoryServiceClient) Summary(ctx context.Context, in *SummaryRequest, opts ...grpc.CallOption) (*SummaryResponse, error) {
	return invoke[SummaryResponse](ctx, c.cc, InventoryService_Summary_FullMethodName, in, opts)
}
