// Package store implements the order store (C4) and symbol registry
// (C5): durable, transactional persistence over pgx (§4.4, §6).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rtxbroker/fixcore/fix/schema"
	"github.com/rtxbroker/fixcore/internal/coreerr"
)

// ErrOrderNotFound is returned by lookups that find no matching order.
var ErrOrderNotFound = errors.New("store: order not found")

// Order is the durable representation of a single client instruction
// (§3).
type Order struct {
	InternalID        int64
	ClOrdID           string
	SenderID          string
	Symbol            string
	Side              schema.Side
	OrderType         schema.OrdType
	Quantity          int64
	LimitPrice        decimal.Decimal
	HasLimitPrice     bool
	TimeInForce       schema.TimeInForce
	Status            OrderStatus
	FilledQuantity    int64
	RemainingQuantity int64
	RejectReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderStatus is an order's lifecycle state (§3, §4.5).
type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
)

// Execution is an immutable fill record owned by exactly one order
// (§3).
type Execution struct {
	ExecID       string
	OrderID      int64
	ExecQuantity int64
	ExecPrice    decimal.Decimal
	ExecutedAt   time.Time
}

// OrderStore persists orders and their executions.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore wraps a pgx pool as an OrderStore.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Insert atomically checks cl_ord_id uniqueness and inserts a new order
// in status=new (§4.4, §4.5's submit admission). It returns
// coreerr.KindDuplicateClOrdID if cl_ord_id already exists.
func (s *OrderStore) Insert(ctx context.Context, o *Order) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO orders (
			cl_ord_id, sender_id, symbol, side, order_type, quantity,
			limit_price, time_in_force, status, filled_quantity, remaining_quantity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $6)
		ON CONFLICT (cl_ord_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`,
		o.ClOrdID, o.SenderID, o.Symbol, string(o.Side), string(o.OrderType), o.Quantity,
		limitPriceParam(o), string(o.TimeInForce), string(StatusNew),
	)

	var id int64
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerr.New(coreerr.KindDuplicateClOrdID, "duplicate ClOrdID "+o.ClOrdID)
		}
		return nil, fmt.Errorf("store: insert order: %w", err)
	}

	out := *o
	out.InternalID = id
	out.Status = StatusNew
	out.FilledQuantity = 0
	out.RemainingQuantity = o.Quantity
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return &out, nil
}

func limitPriceParam(o *Order) any {
	if !o.HasLimitPrice {
		return nil
	}
	return o.LimitPrice.String()
}

// GetByInternalID looks up an order by its internal id.
func (s *OrderStore) GetByInternalID(ctx context.Context, id int64) (*Order, error) {
	return s.scanOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// GetByClOrdID looks up an order by its client-supplied id.
func (s *OrderStore) GetByClOrdID(ctx context.Context, clOrdID string) (*Order, error) {
	return s.scanOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE cl_ord_id = $1", clOrdID)
}

// List returns all orders in insertion order.
func (s *OrderStore) List(ctx context.Context) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const orderColumns = `id, cl_ord_id, sender_id, symbol, side, order_type, quantity,
	limit_price, time_in_force, status, filled_quantity, remaining_quantity,
	reject_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (*Order, error) {
	var o Order
	var limitPrice *string
	var rejectReason *string
	var side, orderType, tif, status string

	if err := r.Scan(
		&o.InternalID, &o.ClOrdID, &o.SenderID, &o.Symbol, &side, &orderType, &o.Quantity,
		&limitPrice, &tif, &status, &o.FilledQuantity, &o.RemainingQuantity,
		&rejectReason, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	o.Side = schema.Side(side)
	o.OrderType = schema.OrdType(orderType)
	o.TimeInForce = schema.TimeInForce(tif)
	o.Status = OrderStatus(status)
	if rejectReason != nil {
		o.RejectReason = *rejectReason
	}
	if limitPrice != nil {
		p, err := decimal.Parse(*limitPrice)
		if err != nil {
			return nil, fmt.Errorf("store: parse limit_price: %w", err)
		}
		o.LimitPrice = p
		o.HasLimitPrice = true
	}
	return &o, nil
}

func (s *OrderStore) scanOne(ctx context.Context, query string, arg any) (*Order, error) {
	row := s.pool.QueryRow(ctx, query, arg)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: get order: %w", err)
	}
	return o, nil
}

// ApplyFill atomically appends an execution and updates the order's
// filled/remaining quantity and status, per §4.4's atomicity requirement
// and §3's invariants. newStatus is the caller-computed post-fill status
// (partially_filled, filled, or canceled for the IOC-residual case).
func (s *OrderStore) ApplyFill(ctx context.Context, orderID int64, exec *Execution, newFilled, newRemaining int64, newStatus OrderStatus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin fill: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO executions (order_id, exec_id, exec_quantity, exec_price)
		VALUES ($1, $2, $3, $4)
	`, orderID, exec.ExecID, exec.ExecQuantity, exec.ExecPrice.String()); err != nil {
		return fmt.Errorf("store: insert execution: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET filled_quantity = $1, remaining_quantity = $2, status = $3, updated_at = now()
		WHERE id = $4
	`, newFilled, newRemaining, string(newStatus), orderID); err != nil {
		return fmt.Errorf("store: update order after fill: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateStatus transitions an order to newStatus (cancel, reject) with
// no accompanying execution, in a single commit (§4.5).
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID int64, newStatus OrderStatus, rejectReason string) error {
	var reason any
	if rejectReason != "" {
		reason = rejectReason
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, reject_reason = $2, updated_at = now()
		WHERE id = $3
	`, string(newStatus), reason, orderID)
	if err != nil {
		return fmt.Errorf("store: update order status: %w", err)
	}
	return nil
}

// Executions returns all executions for an order, in the order they were
// applied, used to recompute AvgPx (§3 invariant 9).
func (s *OrderStore) Executions(ctx context.Context, orderID int64) ([]*Execution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exec_id, order_id, exec_quantity, exec_price, executed_at
		FROM executions WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("store: list executions: %w", err)
	}
	defer rows.Close()

	var out []*Execution
	for rows.Next() {
		var e Execution
		var priceStr string
		if err := rows.Scan(&e.ExecID, &e.OrderID, &e.ExecQuantity, &priceStr, &e.ExecutedAt); err != nil {
			return nil, err
		}
		p, err := decimal.Parse(priceStr)
		if err != nil {
			return nil, fmt.Errorf("store: parse exec_price: %w", err)
		}
		e.ExecPrice = p
		out = append(out, &e)
	}
	return out, rows.Err()
}
