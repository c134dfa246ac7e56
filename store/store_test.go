package store

import (
	"context"
	"os"
	"testing"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rtxbroker/fixcore/fix/schema"
)

// testPool connects to DATABASE_URL and runs migrations. Tests in this
// file are skipped when DATABASE_URL is unset, since they need a real
// Postgres instance (§4.4).
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	m := NewMigrator(pool, nil)
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize migrations: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	for _, table := range []string{"executions", "orders", "symbols"} {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return pool
}

func TestOrderStoreInsertAndDuplicateClOrdID(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	order := &Order{
		ClOrdID:     "O1",
		SenderID:    "C1",
		Symbol:      "AAPL",
		Side:        schema.SideBuy,
		OrderType:   schema.OrdTypeMarket,
		Quantity:    100,
		TimeInForce: schema.TimeInForceDay,
	}

	inserted, err := store.Insert(ctx, order)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted.Status != StatusNew || inserted.RemainingQuantity != 100 {
		t.Fatalf("unexpected inserted order: %+v", inserted)
	}

	if _, err := store.Insert(ctx, order); err == nil {
		t.Fatal("expected duplicate ClOrdID error")
	}

	fetched, err := store.GetByClOrdID(ctx, "O1")
	if err != nil {
		t.Fatalf("get by cl_ord_id: %v", err)
	}
	if fetched.InternalID != inserted.InternalID {
		t.Fatalf("InternalID mismatch: %d vs %d", fetched.InternalID, inserted.InternalID)
	}
}

func TestOrderStoreApplyFill(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	order, err := store.Insert(ctx, &Order{
		ClOrdID:     "O2",
		SenderID:    "C1",
		Symbol:      "MSFT",
		Side:        schema.SideBuy,
		OrderType:   schema.OrdTypeMarket,
		Quantity:    100,
		TimeInForce: schema.TimeInForceDay,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	exec := &Execution{ExecID: "E1", OrderID: order.InternalID, ExecQuantity: 30}
	exec.ExecPrice = mustDecimal(t, "400.00")
	if err := store.ApplyFill(ctx, order.InternalID, exec, 30, 70, StatusPartiallyFilled); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	updated, err := store.GetByInternalID(ctx, order.InternalID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.FilledQuantity != 30 || updated.RemainingQuantity != 70 || updated.Status != StatusPartiallyFilled {
		t.Fatalf("unexpected state after fill: %+v", updated)
	}

	execs, err := store.Executions(ctx, order.InternalID)
	if err != nil {
		t.Fatalf("executions: %v", err)
	}
	if len(execs) != 1 || execs[0].ExecQuantity != 30 {
		t.Fatalf("unexpected executions: %+v", execs)
	}
}

func TestSymbolRegistryReloadIsAtomic(t *testing.T) {
	pool := testPool(t)
	registry := NewSymbolRegistry(pool, nil)
	ctx := context.Background()

	src := staticSource{
		{Symbol: "AAPL", LastPrice: mustDecimal(t, "150.00")},
		{Symbol: "MSFT", LastPrice: mustDecimal(t, "400.00")},
	}
	count, err := registry.Reload(ctx, src)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}

	sym, ok, err := registry.Lookup(ctx, "AAPL")
	if err != nil || !ok {
		t.Fatalf("lookup AAPL: ok=%v err=%v", ok, err)
	}
	if sym.LastPrice.Cmp(mustDecimal(t, "150.00")) != 0 {
		t.Fatalf("AAPL price = %v", sym.LastPrice)
	}

	src2 := staticSource{{Symbol: "GOOGL", LastPrice: mustDecimal(t, "140.00")}}
	if _, err := registry.Reload(ctx, src2); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if _, ok, _ := registry.Lookup(ctx, "AAPL"); ok {
		t.Fatal("AAPL should have been replaced by the second reload")
	}
}

type staticSource []Symbol

func (s staticSource) Symbols(ctx context.Context) ([]Symbol, error) { return s, nil }

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}
