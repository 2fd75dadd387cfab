package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
)

type GRPCHandler struct {
	UnimplementedInventoryServiceServer
	sessions *service.SessionService
	logger   *zap.Logger
}

func NewGRPCHandler(sessions *service.SessionService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{sessions: sessions, logger: logger}
}

func (h *GRPCHandler) OpenSession(ctx context.Context, req *OpenSessionRequest) (*OpenSessionResponse, error) {
	id, err := h.sessions.Open(ctx, req.Seed)
	if err != nil {
		return nil, h.statusError("open session", err)
	}
	return &OpenSessionResponse{SessionID: id}, nil
}

func (h *GRPCHandler) CloseSession(ctx context.Context, req *CloseSessionRequest) (*CloseSessionResponse, error) {
	if err := h.sessions.Close(ctx, req.SessionID); err != nil {
		return nil, h.statusError("close session", err)
	}
	return &CloseSessionResponse{}, nil
}

func (h *GRPCHandler) AddRecord(ctx context.Context, req *AddRecordRequest) (*AddRecordResponse, error) {
	rec, err := h.sessions.AddRecord(ctx, req.SessionID, req.RequestID, req.Name, req.Quantity, req.UnitPrice)
	if err != nil {
		return nil, h.statusError("add record", err)
	}

	return &AddRecordResponse{Record: &RecordMessage{
		ID:        rec.ID,
		Name:      rec.Name,
		Quantity:  int64(rec.Quantity),
		UnitPrice: rec.UnitPrice.StringFixed(domain.MoneyPlaces),
		LineTotal: rec.LineTotal().StringFixed(domain.MoneyPlaces),
	}}, nil
}

func (h *GRPCHandler) RemoveRecord(ctx context.Context, req *RemoveRecordRequest) (*RemoveRecordResponse, error) {
	name, err := h.sessions.RemoveRecord(ctx, req.SessionID, int(req.Position))
	if err != nil {
		return nil, h.statusError("remove record", err)
	}
	return &RemoveRecordResponse{RemovedName: name}, nil
}

func (h *GRPCHandler) RemoveRecordByID(ctx context.Context, req *RemoveRecordByIDRequest) (*RemoveRecordResponse, error) {
	name, err := h.sessions.RemoveRecordByID(ctx, req.SessionID, req.RecordID)
	if err != nil {
		return nil, h.statusError("remove record", err)
	}
	return &RemoveRecordResponse{RemovedName: name}, nil
}

func (h *GRPCHandler) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResponse, error) {
	lines, err := h.sessions.ListRecords(ctx, req.SessionID)
	if err != nil {
		return nil, h.statusError("list records", err)
	}

	resp := &ListRecordsResponse{Lines: make([]*LineMessage, 0, len(lines))}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, &LineMessage{
			Index: int32(l.DisplayIndex),
			RecordMessage: RecordMessage{
				ID:        l.ID,
				Name:      l.Name,
				Quantity:  int64(l.Quantity),
				UnitPrice: l.UnitPrice.StringFixed(domain.MoneyPlaces),
				LineTotal: l.LineTotal.StringFixed(domain.MoneyPlaces),
			},
		})
	}
	return resp, nil
}

func (h *GRPCHandler) Summary(ctx context.Context, req *SummaryRequest) (*SummaryResponse, error) {
	agg, err := h.sessions.Aggregates(ctx, req.SessionID)
	if err != nil {
		return nil, h.statusError("summary", err)
	}

	return &SummaryResponse{
		Count:         int64(agg.DistinctRecordCount),
		TotalQuantity: int64(agg.TotalQuantity),
		TotalValue:    agg.TotalValue.StringFixed(domain.MoneyPlaces),
	}, nil
}

// statusError converts a service error to a gRPC status error.
// Errors without a domain kind are reported as Internal.
func (h *GRPCHandler) statusError(op string, err error) error {
	kind, ok := domain.KindOf(err)
	if !ok {
		h.logger.Error(op+" failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}

	h.logger.Debug(op+" rejected", zap.String("kind", string(kind)))
	return status.Error(grpcCode(kind), err.Error())
}

func grpcCode(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindSessionNotFound, domain.KindIndexOutOfRange, domain.KindRecordNotFound:
		return codes.NotFound
	case domain.KindDuplicateRequest:
		return codes.AlreadyExists
	default:
		return codes.InvalidArgument
	}
}
