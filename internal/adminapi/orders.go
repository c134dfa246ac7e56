package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rtxbroker/fixcore/internal/coreerr"
	"github.com/rtxbroker/fixcore/logging"
	"github.com/rtxbroker/fixcore/store"
)

// orderView is the JSON projection of a store.Order returned by
// list_orders/get_order.
type orderView struct {
	InternalID        int64  `json:"order_internal_id"`
	ClOrdID           string `json:"cl_ord_id"`
	SenderID          string `json:"sender_id"`
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	OrderType         string `json:"order_type"`
	Quantity          int64  `json:"quantity"`
	LimitPrice        string `json:"limit_price,omitempty"`
	TimeInForce       string `json:"time_in_force"`
	Status            string `json:"status"`
	FilledQuantity    int64  `json:"filled_quantity"`
	RemainingQuantity int64  `json:"remaining_quantity"`
	RejectReason      string `json:"reject_reason,omitempty"`
}

func toOrderView(o *store.Order) orderView {
	v := orderView{
		InternalID:        o.InternalID,
		ClOrdID:            o.ClOrdID,
		SenderID:           o.SenderID,
		Symbol:             o.Symbol,
		Side:               string(o.Side),
		OrderType:          string(o.OrderType),
		Quantity:           o.Quantity,
		TimeInForce:        string(o.TimeInForce),
		Status:             string(o.Status),
		FilledQuantity:     o.FilledQuantity,
		RemainingQuantity:  o.RemainingQuantity,
		RejectReason:       o.RejectReason,
	}
	if o.HasLimitPrice {
		v.LimitPrice = o.LimitPrice.String()
	}
	return v
}

// handleListOrders implements the list_orders collaborator operation.
func (s *Server) handleListOrders(operator string, w http.ResponseWriter, r *http.Request) {
	ctx := logging.ContextWithAdminUser(r.Context(), operator)
	orders, err := s.orders.List(ctx)
	if err != nil {
		s.log.Error("list orders failed", err, logging.FieldsFromContext(ctx)...)
		respondError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	respondJSON(w, http.StatusOK, views)
}

// handleGetOrder implements get_order.
func (s *Server) handleGetOrder(operator string, w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order_internal_id")
		return
	}
	ctx := logging.ContextWithAdminUser(r.Context(), operator)
	order, err := s.orders.GetByInternalID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondJSON(w, http.StatusOK, nil)
			return
		}
		s.log.Error("get order failed", err, logging.FieldsFromContext(ctx)...)
		respondError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, toOrderView(order))
}

// handleSubmitFill implements submit_fill (§4.5). quantity is optional;
// omitting it fills the full remaining quantity.
func (s *Server) handleSubmitFill(operator string, w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderInternalID int64  `json:"order_internal_id"`
		Quantity        *int64 `json:"quantity,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transitions, err := s.router.SubmitFill(r.Context(), req.OrderInternalID, req.Quantity)
	if err != nil {
		s.respondCoreErr(w, err)
		return
	}
	ctx := logging.ContextWithAdminUser(r.Context(), operator)
	for _, t := range transitions {
		if !t.HasLastFill {
			continue
		}
		s.audit.LogOrderFilled(ctx, toID(req.OrderInternalID), t.SenderID, t.LastQty, t.LastPx.String(), t.CumQty, t.LeavesQty)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitCancel implements submit_cancel.
func (s *Server) handleSubmitCancel(operator string, w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderInternalID int64 `json:"order_internal_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.router.SubmitCancel(r.Context(), req.OrderInternalID); err != nil {
		s.respondCoreErr(w, err)
		return
	}
	ctx := logging.ContextWithAdminUser(r.Context(), operator)
	if order, err := s.orders.GetByInternalID(ctx, req.OrderInternalID); err == nil {
		s.audit.LogOrderCanceled(ctx, toID(req.OrderInternalID), order.SenderID, "admin cancel")
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitReject implements submit_reject.
func (s *Server) handleSubmitReject(operator string, w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderInternalID int64  `json:"order_internal_id"`
		Reason          string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.router.SubmitReject(r.Context(), req.OrderInternalID, req.Reason); err != nil {
		s.respondCoreErr(w, err)
		return
	}
	ctx := logging.ContextWithAdminUser(r.Context(), operator)
	if order, err := s.orders.GetByInternalID(ctx, req.OrderInternalID); err == nil {
		s.audit.LogOrderRejected(ctx, toID(req.OrderInternalID), order.SenderID, req.Reason)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondCoreErr maps a coreerr.Error to the HTTP status and body the
// admin console expects (§7: illegal_transition/limit_not_crossed/
// symbol_unknown/fok_not_fully_fillable/cancel_too_late/cancel_unknown
// are all "error to admin caller").
func (s *Server) respondCoreErr(w http.ResponseWriter, err error) {
	kind, ok := coreerr.Of(err)
	if !ok {
		s.log.Error("admin action failed", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": string(kind), "detail": err.Error()})
}

func toID(id int64) string {
	return strconv.FormatInt(id, 10)
}
