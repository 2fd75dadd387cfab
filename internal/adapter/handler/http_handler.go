package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
)

type HTTPHandler struct {
	sessions    *service.SessionService
	logger      *zap.Logger
	seedDefault bool
}

// rawInput accepts a JSON number or string and keeps its text so the store
// performs the parsing.
type rawInput string

func (r *rawInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = rawInput(s)
		return nil
	}
	*r = rawInput(data)
	return nil
}

type OpenSessionHTTPRequest struct {
	Seed *bool `json:"seed"`
}

type OpenSessionHTTPResponse struct {
	SessionID string `json:"session_id"`
}

type AddRecordHTTPRequest struct {
	RequestID string   `json:"request_id"`
	Name      string   `json:"name"`
	Quantity  rawInput `json:"quantity"`
	UnitPrice rawInput `json:"unit_price"`
}

type RecordHTTPResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
	CreatedAt time.Time `json:"created_at"`
}

type LineHTTPResponse struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type SummaryHTTPResponse struct {
	Count         int    `json:"count"`
	TotalQuantity int    `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
}

type ErrorHTTPResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHTTPHandler(sessions *service.SessionService, logger *zap.Logger, seedDefault bool) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{sessions: sessions, logger: logger, seedDefault: seedDefault}
}

// Register installs the inventory routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /sessions", h.OpenSession)
	mux.HandleFunc("DELETE /sessions/{session}", h.CloseSession)
	mux.HandleFunc("POST /sessions/{session}/items", h.AddRecord)
	mux.HandleFunc("GET /sessions/{session}/items", h.ListRecords)
	mux.HandleFunc("GET /sessions/{session}/items/summary", h.Summary)
	mux.HandleFunc("DELETE /sessions/{session}/items/{position}", h.RemoveRecord)
	mux.HandleFunc("DELETE /sessions/{session}/items/by-id/{id}", h.RemoveRecordByID)
}

func (h *HTTPHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Error:   "BadRequest",
			Message: "invalid request body",
		})
		return
	}

	seed := h.seedDefault
	if req.Seed != nil {
		seed = *req.Seed
	}

	id, err := h.sessions.Open(r.Context(), seed)
	if err != nil {
		h.writeError(w, "open session", err)
		return
	}

	writeJSON(w, http.StatusCreated, OpenSessionHTTPResponse{SessionID: id})
}

func (h *HTTPHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), r.PathValue("session")); err != nil {
		h.writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	var req AddRecordHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Error:   "BadRequest",
			Message: "invalid request body",
		})
		return
	}

	rec, err := h.sessions.AddRecord(r.Context(), r.PathValue("session"), req.RequestID,
		req.Name, string(req.Quantity), string(req.UnitPrice))
	if err != nil {
		h.writeError(w, "add record", err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordHTTPResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Quantity:  rec.Quantity,
		UnitPrice: rec.UnitPrice.StringFixed(domain.MoneyPlaces),
		LineTotal: rec.LineTotal().StringFixed(domain.MoneyPlaces),
		CreatedAt: rec.CreatedAt,
	})
}

func (h *HTTPHandler) RemoveRecord(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Error:   "BadRequest",
			Message: "position must be an integer",
		})
		return
	}

	if _, err := h.sessions.RemoveRecord(r.Context(), r.PathValue("session"), position); err != nil {
		h.writeError(w, "remove record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) RemoveRecordByID(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.RemoveRecordByID(r.Context(), r.PathValue("session"), r.PathValue("id")); err != nil {
		h.writeError(w, "remove record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	lines, err := h.sessions.ListRecords(r.Context(), r.PathValue("session"))
	if err != nil {
		h.writeError(w, "list records", err)
		return
	}

	resp := make([]LineHTTPResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, LineHTTPResponse{
			Index:     l.DisplayIndex,
			ID:        l.ID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(domain.MoneyPlaces),
			LineTotal: l.LineTotal.StringFixed(domain.MoneyPlaces),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Summary(w http.ResponseWriter, r *http.Request) {
	agg, err := h.sessions.Aggregates(r.Context(), r.PathValue("session"))
	if err != nil {
		h.writeError(w, "summary", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryHTTPResponse{
		Count:         agg.DistinctRecordCount,
		TotalQuantity: agg.TotalQuantity,
		TotalValue:    agg.TotalValue.StringFixed(domain.MoneyPlaces),
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, op string, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		h.logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{
			Error:   "Internal",
			Message: "internal error",
		})
		return
	}

	h.logger.Debug(op+" rejected", zap.String("kind", string(kind)))
	writeJSON(w, httpStatus(kind), ErrorHTTPResponse{
		Error:   string(kind),
		Message: err.Error(),
	})
}

func httpStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindSessionNotFound, domain.KindIndexOutOfRange, domain.KindRecordNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateRequest:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
