// Package lifecycle implements the order lifecycle engine (C6): the
// state machine over a persisted order that decides whether an action
// is admissible and applies it atomically (§4.5).
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/rtxbroker/fixcore/fix/schema"
	"github.com/rtxbroker/fixcore/internal/coreerr"
	"github.com/rtxbroker/fixcore/store"
)

// Observer is notified after every committed order mutation (an accepted
// submit, a fill, a cancel, a reject); a submit rejected before it is
// persisted, or an action that fails, sends no notification. It is the
// dashboard push collaborator from §6 (on_order_changed).
type Observer interface {
	OnOrderChanged(orderInternalID int64)
}

// Engine is the lifecycle engine. It owns no state of its own; all
// durable state lives in the order store and symbol registry, and every
// mutating method commits through them inside a single transaction
// (§4.4, §5).
type Engine struct {
	orders   *store.OrderStore
	symbols  *store.SymbolRegistry
	observer Observer
}

// NewEngine builds an Engine. observer may be nil.
func NewEngine(orders *store.OrderStore, symbols *store.SymbolRegistry, observer Observer) *Engine {
	return &Engine{orders: orders, symbols: symbols, observer: observer}
}

func (e *Engine) notify(orderInternalID int64) {
	if e.observer != nil && orderInternalID != 0 {
		e.observer.OnOrderChanged(orderInternalID)
	}
}

// Submit admits a NewOrderSingle (§4.5 "Admission of a NewOrderSingle").
// It always returns a Transition describing either the acceptance or
// the rejection; err is non-nil only for infrastructure failures.
func (e *Engine) Submit(ctx context.Context, o *schema.NewOrderSingle) (*Transition, error) {
	if o.OrdType != schema.OrdTypeMarket && o.OrdType != schema.OrdTypeLimit {
		return rejectedSubmit(o, "unsupported order type"), nil
	}

	inserted, err := e.orders.Insert(ctx, &store.Order{
		ClOrdID:       o.ClOrdID,
		SenderID:      o.SenderCompID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		OrderType:     o.OrdType,
		Quantity:      o.OrderQty,
		LimitPrice:    o.LimitPrice,
		HasLimitPrice: o.HasLimitPrice,
		TimeInForce:   o.TimeInForce,
	})
	if err != nil {
		if kind, ok := coreerr.Of(err); ok && kind == coreerr.KindDuplicateClOrdID {
			return rejectedSubmit(o, "duplicate ClOrdID"), nil
		}
		return nil, fmt.Errorf("lifecycle: submit: %w", err)
	}

	e.notify(inserted.InternalID)
	return &Transition{
		OrderInternalID: inserted.InternalID,
		SenderID:        inserted.SenderID,
		ClOrdID:         inserted.ClOrdID,
		Symbol:          inserted.Symbol,
		Side:            inserted.Side,
		ExecType:        schema.ExecTypeNew,
		OrdStatus:       schema.OrdStatusNew,
		CumQty:          0,
		LeavesQty:       inserted.Quantity,
		AvgPx:           decimal.Decimal{},
	}, nil
}

func rejectedSubmit(o *schema.NewOrderSingle, reason string) *Transition {
	return &Transition{
		SenderID:  o.SenderCompID,
		ClOrdID:   o.ClOrdID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		ExecType:  schema.ExecTypeRejected,
		OrdStatus: schema.OrdStatusRejected,
		AvgPx:     decimal.Decimal{},
		Text:      reason,
	}
}

// Fill admits an administrative fill (§4.5 "Admission of a fill"). qty
// is the requested fill size; nil means "fill the remainder". It
// returns one Transition, or two when an IOC fill leaves a residual
// that is canceled in the same commit.
func (e *Engine) Fill(ctx context.Context, orderInternalID int64, qty *int64) ([]Transition, error) {
	order, err := e.orders.GetByInternalID(ctx, orderInternalID)
	if err != nil {
		return nil, mapLookupErr(err)
	}

	if order.Status != store.StatusNew && order.Status != store.StatusPartiallyFilled {
		return nil, coreerr.New(coreerr.KindIllegalTransition, "order cannot be executed in status "+string(order.Status))
	}

	sym, ok, err := e.symbols.Lookup(ctx, order.Symbol)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: symbol lookup: %w", err)
	}
	if !ok {
		return nil, coreerr.New(coreerr.KindSymbolUnknown, "symbol not in universe: "+order.Symbol)
	}
	execPrice := sym.LastPrice

	if order.HasLimitPrice {
		crossed := false
		switch order.Side {
		case schema.SideBuy:
			crossed = order.LimitPrice.Cmp(execPrice) >= 0
		case schema.SideSell:
			crossed = order.LimitPrice.Cmp(execPrice) <= 0
		}
		if !crossed {
			return nil, coreerr.New(coreerr.KindLimitNotCrossed, "limit price not crossed")
		}
	}

	effectiveQty := order.RemainingQuantity
	if qty != nil {
		effectiveQty = *qty
		if effectiveQty > order.RemainingQuantity {
			effectiveQty = order.RemainingQuantity
		}
	}

	if order.TimeInForce == schema.TimeInForceFOK && effectiveQty != order.RemainingQuantity {
		return nil, coreerr.New(coreerr.KindFOKNotFullyFillable, "FOK not fully fillable")
	}

	newFilled := order.FilledQuantity + effectiveQty
	newRemaining := order.RemainingQuantity - effectiveQty
	fillStatus := store.StatusPartiallyFilled
	if newRemaining == 0 {
		fillStatus = store.StatusFilled
	}
	// An IOC residual is persisted as canceled by the fill's own commit.
	iocResidual := order.TimeInForce == schema.TimeInForceIOC && newRemaining > 0
	persistedStatus := fillStatus
	if iocResidual {
		persistedStatus = store.StatusCanceled
	}

	execID := uuid.NewString()[:8]
	if err := e.orders.ApplyFill(ctx, order.InternalID, &store.Execution{
		ExecID:       execID,
		ExecQuantity: effectiveQty,
		ExecPrice:    execPrice,
	}, newFilled, newRemaining, persistedStatus); err != nil {
		return nil, fmt.Errorf("lifecycle: apply fill: %w", err)
	}

	avgPx, err := e.recomputeAvgPx(ctx, order.InternalID, newFilled)
	if err != nil {
		return nil, err
	}

	fillExecType := schema.ExecTypePartialFill
	fillOrdStatus := schema.OrdStatusPartiallyFilled
	if fillStatus == store.StatusFilled {
		fillExecType = schema.ExecTypeFill
		fillOrdStatus = schema.OrdStatusFilled
	}

	fillTransition := Transition{
		OrderInternalID: order.InternalID,
		SenderID:        order.SenderID,
		ClOrdID:         order.ClOrdID,
		Symbol:          order.Symbol,
		Side:            order.Side,
		ExecType:        fillExecType,
		OrdStatus:       fillOrdStatus,
		CumQty:          newFilled,
		LeavesQty:       newRemaining,
		AvgPx:           avgPx,
		HasLastFill:     true,
		LastQty:         effectiveQty,
		LastPx:          execPrice,
	}
	transitions := []Transition{fillTransition}

	// IOC completion: a residual after this fill is canceled in the
	// same commit (§4.5).
	if iocResidual {
		transitions = append(transitions, Transition{
			OrderInternalID: order.InternalID,
			SenderID:        order.SenderID,
			ClOrdID:         order.ClOrdID,
			Symbol:          order.Symbol,
			Side:            order.Side,
			ExecType:        schema.ExecTypeCanceled,
			OrdStatus:       schema.OrdStatusCanceled,
			CumQty:          newFilled,
			LeavesQty:       newRemaining,
			AvgPx:           avgPx,
		})
	}

	e.notify(order.InternalID)
	return transitions, nil
}

// recomputeAvgPx computes Σ(exec_quantity·exec_price) / filled_quantity
// over all of an order's executions (§3 invariant 9).
func (e *Engine) recomputeAvgPx(ctx context.Context, orderInternalID int64, filledQty int64) (decimal.Decimal, error) {
	if filledQty == 0 {
		return decimal.Decimal{}, nil
	}
	executions, err := e.orders.Executions(ctx, orderInternalID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("lifecycle: load executions for AvgPx: %w", err)
	}

	var total decimal.Decimal
	for _, ex := range executions {
		qty, err := decimal.NewFromInt64(ex.ExecQuantity, 0, 0)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("lifecycle: exec quantity to decimal: %w", err)
		}
		contribution, err := qty.Mul(ex.ExecPrice)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("lifecycle: AvgPx multiply: %w", err)
		}
		total, err = total.Add(contribution)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("lifecycle: AvgPx accumulate: %w", err)
		}
	}

	filled, err := decimal.NewFromInt64(filledQty, 0, 0)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("lifecycle: filled quantity to decimal: %w", err)
	}
	avg, err := total.Quo(filled)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("lifecycle: AvgPx divide: %w", err)
	}
	return avg, nil
}

// Cancel admits an administrative cancel (§4.5 "Admission of a
// cancel").
func (e *Engine) Cancel(ctx context.Context, orderInternalID int64) (*Transition, error) {
	order, err := e.orders.GetByInternalID(ctx, orderInternalID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return e.cancelOrder(ctx, order, coreerr.KindIllegalTransition)
}

// CancelViaFix admits a cancel originating from a FIX OrderCancelRequest
// (§4.5). On a business rejection it returns a *coreerr.Error with Kind
// cancel_too_late or cancel_unknown, which the router turns into an
// OrderCancelReject rather than an ExecutionReport.
func (e *Engine) CancelViaFix(ctx context.Context, origClOrdID string) (*Transition, error) {
	order, err := e.orders.GetByClOrdID(ctx, origClOrdID)
	if err != nil {
		if err == store.ErrOrderNotFound {
			return nil, coreerr.New(coreerr.KindCancelUnknown, "unknown order "+origClOrdID)
		}
		return nil, fmt.Errorf("lifecycle: lookup for cancel: %w", err)
	}
	return e.cancelOrder(ctx, order, coreerr.KindCancelTooLate)
}

func (e *Engine) cancelOrder(ctx context.Context, order *store.Order, terminalKind coreerr.Kind) (*Transition, error) {
	if order.Status != store.StatusNew && order.Status != store.StatusPartiallyFilled {
		return nil, coreerr.New(terminalKind, "order already in terminal status "+string(order.Status))
	}

	preCancelRemaining := order.RemainingQuantity
	if err := e.orders.UpdateStatus(ctx, order.InternalID, store.StatusCanceled, ""); err != nil {
		return nil, fmt.Errorf("lifecycle: cancel: %w", err)
	}

	avgPx, err := e.recomputeAvgPx(ctx, order.InternalID, order.FilledQuantity)
	if err != nil {
		return nil, err
	}

	e.notify(order.InternalID)
	return &Transition{
		OrderInternalID: order.InternalID,
		SenderID:        order.SenderID,
		ClOrdID:         order.ClOrdID,
		Symbol:          order.Symbol,
		Side:            order.Side,
		ExecType:        schema.ExecTypeCanceled,
		OrdStatus:       schema.OrdStatusCanceled,
		CumQty:          order.FilledQuantity,
		LeavesQty:       preCancelRemaining,
		AvgPx:           avgPx,
	}, nil
}

// Reject admits an administrative reject (§4.5 "Admission of a
// reject"). Only orders in new may be rejected.
func (e *Engine) Reject(ctx context.Context, orderInternalID int64, reason string) (*Transition, error) {
	order, err := e.orders.GetByInternalID(ctx, orderInternalID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if order.Status != store.StatusNew {
		return nil, coreerr.New(coreerr.KindIllegalTransition, "only new orders can be rejected")
	}

	if err := e.orders.UpdateStatus(ctx, order.InternalID, store.StatusRejected, reason); err != nil {
		return nil, fmt.Errorf("lifecycle: reject: %w", err)
	}

	e.notify(order.InternalID)
	return &Transition{
		OrderInternalID: order.InternalID,
		SenderID:        order.SenderID,
		ClOrdID:         order.ClOrdID,
		Symbol:          order.Symbol,
		Side:            order.Side,
		ExecType:        schema.ExecTypeRejected,
		OrdStatus:       schema.OrdStatusRejected,
		CumQty:          0,
		LeavesQty:       0,
		AvgPx:           decimal.Decimal{},
		Text:            reason,
	}, nil
}

func mapLookupErr(err error) error {
	if err == store.ErrOrderNotFound {
		return coreerr.New(coreerr.KindIllegalTransition, "order not found")
	}
	return fmt.Errorf("lifecycle: lookup order: %w", err)
}
