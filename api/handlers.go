/*
handlers.go - HTTP handlers for the inventory reservation engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response and JSON
  serialization, delegates all decisions to the engine and matching
  packages.

ENDPOINTS:
  POST /api/branches/{branchID}/availability/{itemID}   Single availability
  POST /api/branches/{branchID}/availability/batch      Batch availability
  POST /api/branches/{branchID}/reservations            Commit a reservation
  PUT  /api/transfers/{transferID}/status               Terminal transition
  POST /api/branches/{branchID}/lots                    Record stock intake
  GET  /api/branches/{branchID}/aid-items/search        Ranked aid item search
  POST /api/admin/sweep                                 Manual sweep trigger

ERROR HANDLING:
  engine.IsClientError  -> 400 (409 for insufficient availability and for
                           serialization conflicts, both retryable)
  engine.IsNotFound     -> 404
  everything else       -> 500 with a generic catalog message; internals are
                           logged, never leaked

QUERY STRING (search):
  q, urgency, sortKey, sortDir, page, pageSize — all optional.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/matching"
)

// CandidateSource loads the searchable aid items for a branch. Both SQL
// stores satisfy it.
type CandidateSource interface {
	AidCandidates(ctx context.Context, branchID engine.BranchID) ([]matching.Candidate, error)
}

// Handler holds all dependencies for the HTTP layer.
type Handler struct {
	Store      engine.TxStore
	Candidates CandidateSource
	Calculator *engine.Calculator
	Sweeper    *engine.Sweeper
	Clock      engine.Clock
	Catalog    engine.MessageCatalog
}

// NewHandler wires the engine around a transactional store.
func NewHandler(store engine.TxStore, candidates CandidateSource, notifier engine.Notifier, clock engine.Clock) *Handler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	catalog := engine.DefaultCatalog()
	return &Handler{
		Store:      store,
		Candidates: candidates,
		Calculator: engine.NewCalculator(store),
		Sweeper:    engine.NewSweeper(store, notifier, catalog),
		Clock:      clock,
		Catalog:    catalog,
	}
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	branchID := engine.BranchID(chi.URLParam(r, "branchID"))
	itemID := engine.ItemID(chi.URLParam(r, "itemID"))

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	windows, err := parseWindows(req.Windows)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	result, err := h.Calculator.AvailableQuantity(r.Context(), itemID, branchID, windows, h.Clock.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAvailabilityResponse(result))
}

func (h *Handler) GetAvailabilityBatch(w http.ResponseWriter, r *http.Request) {
	branchID := engine.BranchID(chi.URLParam(r, "branchID"))

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	windows, err := parseWindows(req.Windows)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	itemIDs := make([]engine.ItemID, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		itemIDs[i] = engine.ItemID(id)
	}

	results, err := h.Calculator.AvailableQuantityBatch(r.Context(), itemIDs, branchID, windows, h.Clock.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	responses := make([]AvailabilityResponse, len(results))
	for i, res := range results {
		responses[i] = toAvailabilityResponse(res)
	}
	h.writeJSON(w, http.StatusOK, responses)
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	branchID := engine.BranchID(chi.URLParam(r, "branchID"))

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	windows, err := parseWindows(req.Windows)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	transfer, err := h.Calculator.Reserve(r.Context(), engine.TransferRequest{
		ItemID:   engine.ItemID(req.ItemID),
		BranchID: branchID,
		Quantity: decimal.NewFromFloat(req.Quantity),
	}, windows, h.Clock.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	qty, _ := transfer.Quantity.Float64()
	h.writeJSON(w, http.StatusCreated, ReserveResponse{
		TransferID: string(transfer.ID),
		ItemID:     string(transfer.ItemID),
		BranchID:   string(transfer.BranchID),
		Quantity:   qty,
		Status:     string(transfer.Status),
	})
}

func (h *Handler) SetTransferStatus(w http.ResponseWriter, r *http.Request) {
	transferID := engine.TransferID(chi.URLParam(r, "transferID"))

	var req TransferStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := engine.TransferStatus(req.Status)
	if !status.Terminal() {
		h.writeError(w, http.StatusBadRequest, "status must be fulfilled, cancelled, or rejected")
		return
	}

	if err := h.Store.SetTransferStatus(r.Context(), transferID, status); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STOCK INTAKE
// =============================================================================

func (h *Handler) AddLot(w http.ResponseWriter, r *http.Request) {
	branchID := engine.BranchID(chi.URLParam(r, "branchID"))

	var req AddLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	expiration, err := engine.ParseDay(req.ExpirationDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "expirationDate must be YYYY-MM-DD")
		return
	}

	now := h.Clock.Now()
	lotID := engine.LotID(req.LotID)
	if lotID == "" {
		lotID = engine.LotID("lot-" + strconv.FormatInt(now.UnixNano(), 10))
	}

	lot := engine.StockLot{
		ID:             lotID,
		ItemID:         engine.ItemID(req.ItemID),
		BranchID:       branchID,
		Quantity:       decimal.NewFromFloat(req.Quantity),
		ExpirationDate: expiration,
		CreatedAt:      now,
		Status:         engine.LotValid,
	}
	if err := h.Store.AddLot(r.Context(), lot); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"lotId": string(lot.ID)})
}

// =============================================================================
// SEARCH
// =============================================================================

func (h *Handler) SearchAidItems(w http.ResponseWriter, r *http.Request) {
	branchID := engine.BranchID(chi.URLParam(r, "branchID"))

	candidates, err := h.Candidates.AidCandidates(r.Context(), branchID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	q := r.URL.Query()
	params := matching.SearchParams{
		Query:   q.Get("q"),
		Urgency: engine.Urgency(q.Get("urgency")),
		SortKey: q.Get("sortKey"),
		SortDir: matching.SortDirection(q.Get("sortDir")),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	result, err := matching.Search(candidates, params, h.Clock.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	items := make([]SearchResultItem, len(result.Items))
	for i, ranked := range result.Items {
		qty, _ := ranked.Item.Quantity.Float64()
		items[i] = SearchResultItem{
			ItemID:       ranked.Item.ID,
			RequestID:    ranked.Item.RequestID,
			TemplateName: ranked.Item.TemplateName,
			Attributes:   ranked.Item.Attributes,
			Quantity:     qty,
			Urgency:      string(ranked.Urgency),
			Score:        ranked.Score,
			AidPeriodEnd: ranked.AidPeriodEnd.Format(time.RFC3339),
		}
	}
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Items:    items,
		Page:     result.Page,
		PageSize: result.PageSize,
		Total:    result.Total,
	})
}

// =============================================================================
// SWEEP
// =============================================================================

func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.Sweeper.Run(r.Context(), h.Clock.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	failed := make([]string, len(report.FailedBranches))
	for i, b := range report.FailedBranches {
		failed[i] = string(b)
	}
	h.writeJSON(w, http.StatusOK, SweepResponse{
		Branches:       report.Branches,
		Warned:         report.Warned,
		Retired:        report.Retired,
		FailedBranches: failed,
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWindows(dtos []WindowDTO) ([]engine.ScheduledWindow, error) {
	windows := make([]engine.ScheduledWindow, 0, len(dtos))
	for _, dto := range dtos {
		w, err := engine.ParseWindow(dto.Day, dto.StartTime, dto.EndTime)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func toAvailabilityResponse(res engine.AvailabilityResult) AvailabilityResponse {
	available, _ := res.Available.Float64()
	out := AvailabilityResponse{
		ItemID:           string(res.ItemID),
		Available:        available,
		NoUpcomingWindow: res.NoUpcomingWindow,
	}
	if !res.WindowEnd.IsZero() {
		out.WindowEnd = res.WindowEnd.Format(time.RFC3339)
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// writeEngineError maps engine error categories to HTTP status classes.
// Infrastructure details are logged, never surfaced.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInsufficientAvailability):
		h.writeError(w, http.StatusConflict, h.Catalog.Lookup(engine.MsgInsufficient))
	case errors.Is(err, engine.ErrTxConflict):
		h.writeError(w, http.StatusConflict, h.Catalog.Lookup(engine.MsgTryAgain))
	case engine.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case engine.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[API] internal error: %v", err)
		h.writeError(w, http.StatusInternalServerError, h.Catalog.Lookup(engine.MsgTryAgain))
	}
}
