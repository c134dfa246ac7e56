// Package router implements the execution router (C7): on any
// externally observable lifecycle transition, it constructs an
// ExecutionReport and dispatches it to the originating session (§4.6).
package router

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/rtxbroker/fixcore/fix/schema"
	"github.com/rtxbroker/fixcore/internal/coreerr"
	"github.com/rtxbroker/fixcore/internal/metrics"
	"github.com/rtxbroker/fixcore/lifecycle"
	"github.com/rtxbroker/fixcore/logging"
	"github.com/rtxbroker/fixcore/session"
)

// Router dispatches lifecycle transitions to live sessions. It
// implements session.OrderHandler, so the acceptor hands it decoded
// NewOrderSingle/OrderCancelRequest messages directly.
type Router struct {
	engine   *lifecycle.Engine
	registry *session.Registry
	log      *logging.Logger
	audit    *logging.AuditLogger
}

// New builds a Router. audit may be nil, which disables the router's
// order_submitted and order_canceled audit events (used by tests that
// have no audit dir).
func New(engine *lifecycle.Engine, registry *session.Registry, log *logging.Logger, audit *logging.AuditLogger) *Router {
	return &Router{engine: engine, registry: registry, log: log, audit: audit}
}

// HandleNewOrderSingle implements session.OrderHandler (§4.5 submit
// admission).
func (r *Router) HandleNewOrderSingle(sess *session.Session, order *schema.NewOrderSingle) {
	ctx := logging.ContextWithSessionID(context.Background(), sess.PeerID)
	transition, err := r.engine.Submit(ctx, order)
	if err != nil {
		r.log.Error("submit failed", err, logging.ClOrdID(order.ClOrdID))
		return
	}

	accepted := transition.OrdStatus != schema.OrdStatusRejected
	if !accepted {
		reason := coreerr.KindUnsupportedOrderType
		if transition.Text == "duplicate ClOrdID" {
			reason = coreerr.KindDuplicateClOrdID
		}
		metrics.RecordOrderRejected(string(reason))
	} else {
		metrics.RecordOrderAccepted(order.Symbol, string(order.Side))
	}
	if r.audit != nil {
		r.audit.LogOrderSubmitted(ctx, toID(transition.OrderInternalID), order.ClOrdID, order.SenderCompID, order.Symbol, string(order.Side), order.OrderQty, string(order.OrdType), accepted, transition.Text)
	}
	r.dispatchReport(*transition)
}

// HandleOrderCancelRequest implements session.OrderHandler (§4.5 cancel
// admission). A business rejection (cancel_too_late/cancel_unknown)
// goes back to the requesting session as an OrderCancelReject rather
// than an ExecutionReport, since that session is waiting on a direct
// reply to its request.
func (r *Router) HandleOrderCancelRequest(sess *session.Session, req *schema.OrderCancelRequest) {
	ctx := logging.ContextWithSessionID(context.Background(), sess.PeerID)
	transition, err := r.engine.CancelViaFix(ctx, req.OrigClOrdID)
	if err != nil {
		kind, ok := coreerr.Of(err)
		reason := schema.CxlRejReasonOther
		switch {
		case ok && kind == coreerr.KindCancelTooLate:
			reason = schema.CxlRejReasonTooLateToCancel
		case ok && kind == coreerr.KindCancelUnknown:
			reason = schema.CxlRejReasonUnknownOrder
		}
		reject := &schema.OrderCancelReject{
			ClOrdID:          req.ClOrdID,
			OrigClOrdID:      req.OrigClOrdID,
			CxlRejResponseTo: schema.MsgTypeOrderCancelRequest,
			CxlRejReason:     reason,
			Text:             err.Error(),
		}
		if sendErr := sess.Send(schema.MsgTypeOrderCancelReject, schema.EncodeOrderCancelReject(reject)); sendErr != nil {
			r.log.Warn("failed to send OrderCancelReject", logging.SessionID(sess.PeerID), logging.String("error", sendErr.Error()))
		}
		return
	}
	if r.audit != nil {
		r.audit.LogOrderCanceled(ctx, toID(transition.OrderInternalID), transition.SenderID, "client cancel request")
	}
	r.dispatchReport(*transition)
}

// SubmitFill runs an administrative fill and dispatches its resulting
// report(s), for the admin command interface (§6's submit_fill). It
// returns the produced transitions so the caller can audit-log the
// actual execution price/quantity rather than re-deriving them from the
// post-fill order.
func (r *Router) SubmitFill(ctx context.Context, orderInternalID int64, qty *int64) ([]lifecycle.Transition, error) {
	transitions, err := r.engine.Fill(ctx, orderInternalID, qty)
	if err != nil {
		return nil, err
	}
	for _, t := range transitions {
		r.dispatchReport(t)
	}
	return transitions, nil
}

// SubmitCancel runs an administrative cancel (§6's submit_cancel).
func (r *Router) SubmitCancel(ctx context.Context, orderInternalID int64) error {
	transition, err := r.engine.Cancel(ctx, orderInternalID)
	if err != nil {
		return err
	}
	r.dispatchReport(*transition)
	return nil
}

// SubmitReject runs an administrative reject (§6's submit_reject).
func (r *Router) SubmitReject(ctx context.Context, orderInternalID int64, reason string) error {
	transition, err := r.engine.Reject(ctx, orderInternalID, reason)
	if err != nil {
		return err
	}
	r.dispatchReport(*transition)
	return nil
}

// dispatchReport builds an ExecutionReport from a transition and sends
// it to t.SenderID's live session, if any. A missing session drops the
// report silently, logged — this system has no store-and-forward
// guarantee (§4.6).
func (r *Router) dispatchReport(t lifecycle.Transition) {
	if t.ExecType == schema.ExecTypeFill || t.ExecType == schema.ExecTypePartialFill {
		metrics.RecordExecution(t.Symbol)
	}

	sess, ok := r.registry.Get(t.SenderID)
	if !ok {
		r.log.Info("dropping execution report, no live session", logging.SenderID(t.SenderID), logging.ClOrdID(t.ClOrdID))
		return
	}

	report := &schema.ExecutionReport{
		ExecID:      uuid.NewString(),
		ClOrdID:     t.ClOrdID,
		Symbol:      t.Symbol,
		Side:        t.Side,
		ExecType:    t.ExecType,
		OrdStatus:   t.OrdStatus,
		CumQty:      t.CumQty,
		LeavesQty:   t.LeavesQty,
		AvgPx:       t.AvgPx,
		HasLastFill: t.HasLastFill,
		LastQty:     t.LastQty,
		LastPx:      t.LastPx,
		Text:        t.Text,
	}
	if err := sess.Send(schema.MsgTypeExecutionReport, schema.EncodeExecutionReport(report)); err != nil {
		r.log.Warn("failed to send ExecutionReport", logging.SenderID(t.SenderID), logging.String("error", err.Error()))
	}
}

func toID(id int64) string {
	return strconv.FormatInt(id, 10)
}
