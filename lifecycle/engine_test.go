package lifecycle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rtxbroker/fixcore/fix/schema"
	"github.com/rtxbroker/fixcore/internal/coreerr"
	"github.com/rtxbroker/fixcore/store"
)

type countingObserver struct{ count int }

func (o *countingObserver) OnOrderChanged(int64) { o.count++ }

type priceSource []store.Symbol

func (s priceSource) Symbols(ctx context.Context) ([]store.Symbol, error) { return s, nil }

func setupEngine(t *testing.T) (*Engine, *store.OrderStore, *store.SymbolRegistry) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping lifecycle integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	m := store.NewMigrator(pool, nil)
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("init migrations: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range []string{"executions", "orders", "symbols"} {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}

	orders := store.NewOrderStore(pool)
	symbols := store.NewSymbolRegistry(pool, nil)
	obs := &countingObserver{}
	return NewEngine(orders, symbols, obs), orders, symbols
}

func seedSymbol(t *testing.T, symbols *store.SymbolRegistry, symbol, price string) {
	t.Helper()
	p := mustDec(t, price)
	if _, err := symbols.Reload(context.Background(), priceSource{{Symbol: symbol, LastPrice: p}}); err != nil {
		t.Fatalf("seed symbol %s: %v", symbol, err)
	}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func newOrder(clOrdID, symbol string, side schema.Side, ordType schema.OrdType, qty int64, tif schema.TimeInForce) *schema.NewOrderSingle {
	o := &schema.NewOrderSingle{
		SenderCompID: "C1",
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		Side:         side,
		OrdType:      ordType,
		OrderQty:     qty,
		TimeInForce:  tif,
		TransactTime: time.Now(),
	}
	return o
}

func TestScenarioMarketBuyFullFill(t *testing.T) {
	engine, _, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "AAPL", "150.00")

	ack, err := engine.Submit(ctx, newOrder("O1", "AAPL", schema.SideBuy, schema.OrdTypeMarket, 100, schema.TimeInForceDay))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.OrdStatus != schema.OrdStatusNew {
		t.Fatalf("expected new ack, got %+v", ack)
	}

	fills, err := engine.Fill(ctx, ack.OrderInternalID, nil)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(fills))
	}
	f := fills[0]
	if f.ExecType != schema.ExecTypeFill || f.CumQty != 100 || f.LeavesQty != 0 {
		t.Fatalf("unexpected fill transition: %+v", f)
	}
	if f.AvgPx.Cmp(mustDec(t, "150.00")) != 0 {
		t.Fatalf("AvgPx = %v", f.AvgPx)
	}
}

func TestScenarioLimitSellNotCrossed(t *testing.T) {
	engine, _, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "AAPL", "150.00")

	order := newOrder("O2", "AAPL", schema.SideSell, schema.OrdTypeLimit, 50, schema.TimeInForceGTC)
	order.HasLimitPrice = true
	order.LimitPrice = mustDec(t, "160.00")

	ack, err := engine.Submit(ctx, order)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = engine.Fill(ctx, ack.OrderInternalID, nil)
	if kind, ok := coreerr.Of(err); !ok || kind != coreerr.KindLimitNotCrossed {
		t.Fatalf("expected limit_not_crossed, got %v", err)
	}
}

func TestScenarioTwoPartialFillsThenCompletion(t *testing.T) {
	engine, _, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "MSFT", "400.00")

	ack, err := engine.Submit(ctx, newOrder("O3", "MSFT", schema.SideBuy, schema.OrdTypeMarket, 100, schema.TimeInForceDay))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	q30 := int64(30)
	fills, err := engine.Fill(ctx, ack.OrderInternalID, &q30)
	if err != nil {
		t.Fatalf("fill 30: %v", err)
	}
	if fills[0].CumQty != 30 || fills[0].LeavesQty != 70 {
		t.Fatalf("unexpected first fill: %+v", fills[0])
	}

	q40 := int64(40)
	fills, err = engine.Fill(ctx, ack.OrderInternalID, &q40)
	if err != nil {
		t.Fatalf("fill 40: %v", err)
	}
	if fills[0].CumQty != 70 || fills[0].LeavesQty != 30 {
		t.Fatalf("unexpected second fill: %+v", fills[0])
	}

	fills, err = engine.Fill(ctx, ack.OrderInternalID, nil)
	if err != nil {
		t.Fatalf("fill rest: %v", err)
	}
	if fills[0].CumQty != 100 || fills[0].LeavesQty != 0 || fills[0].ExecType != schema.ExecTypeFill {
		t.Fatalf("unexpected final fill: %+v", fills[0])
	}
}

func TestScenarioIOCResidualCancel(t *testing.T) {
	engine, _, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "GOOGL", "140.00")

	ack, err := engine.Submit(ctx, newOrder("O4", "GOOGL", schema.SideBuy, schema.OrdTypeMarket, 100, schema.TimeInForceIOC))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	q40 := int64(40)
	transitions, err := engine.Fill(ctx, ack.OrderInternalID, &q40)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(transitions))
	}
	if transitions[0].ExecType != schema.ExecTypePartialFill || transitions[0].CumQty != 40 || transitions[0].LeavesQty != 60 {
		t.Fatalf("unexpected partial fill: %+v", transitions[0])
	}
	if transitions[1].ExecType != schema.ExecTypeCanceled || transitions[1].OrdStatus != schema.OrdStatusCanceled {
		t.Fatalf("unexpected cancel: %+v", transitions[1])
	}
}

func TestScenarioFOKRejectionWithoutStateChange(t *testing.T) {
	engine, orders, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "AAPL", "150.00")

	ack, err := engine.Submit(ctx, newOrder("O5", "AAPL", schema.SideBuy, schema.OrdTypeMarket, 100, schema.TimeInForceFOK))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	q50 := int64(50)
	_, err = engine.Fill(ctx, ack.OrderInternalID, &q50)
	if kind, ok := coreerr.Of(err); !ok || kind != coreerr.KindFOKNotFullyFillable {
		t.Fatalf("expected fok_not_fully_fillable, got %v", err)
	}

	unchanged, err := orders.GetByInternalID(ctx, ack.OrderInternalID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if unchanged.Status != store.StatusNew || unchanged.FilledQuantity != 0 {
		t.Fatalf("order should be unchanged after FOK rejection: %+v", unchanged)
	}

	fills, err := engine.Fill(ctx, ack.OrderInternalID, nil)
	if err != nil {
		t.Fatalf("full fill: %v", err)
	}
	if fills[0].CumQty != 100 {
		t.Fatalf("CumQty = %d", fills[0].CumQty)
	}
}

func TestScenarioDuplicateClOrdID(t *testing.T) {
	engine, orders, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "AAPL", "150.00")

	first, err := engine.Submit(ctx, newOrder("DUP", "AAPL", schema.SideBuy, schema.OrdTypeMarket, 10, schema.TimeInForceDay))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.OrdStatus != schema.OrdStatusNew {
		t.Fatalf("first order should be accepted: %+v", first)
	}

	second, err := engine.Submit(ctx, newOrder("DUP", "AAPL", schema.SideSell, schema.OrdTypeMarket, 10, schema.TimeInForceDay))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.OrdStatus != schema.OrdStatusRejected {
		t.Fatalf("second order should be rejected, got %+v", second)
	}

	all, err := orders.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one accepted order, got %d", len(all))
	}
}

func TestCancelOfFilledOrderViaFixIsTooLate(t *testing.T) {
	engine, _, symbols := setupEngine(t)
	ctx := context.Background()
	seedSymbol(t, symbols, "AAPL", "150.00")

	ack, err := engine.Submit(ctx, newOrder("O6", "AAPL", schema.SideBuy, schema.OrdTypeMarket, 10, schema.TimeInForceDay))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.Fill(ctx, ack.OrderInternalID, nil); err != nil {
		t.Fatalf("fill: %v", err)
	}

	_, err = engine.CancelViaFix(ctx, "O6")
	if kind, ok := coreerr.Of(err); !ok || kind != coreerr.KindCancelTooLate {
		t.Fatalf("expected cancel_too_late, got %v", err)
	}
}

func TestUnsupportedOrderTypeRejected(t *testing.T) {
	engine, orders, _ := setupEngine(t)
	ctx := context.Background()

	order := newOrder("O7", "AAPL", schema.SideBuy, schema.OrdTypeStop, 10, schema.TimeInForceDay)
	ack, err := engine.Submit(ctx, order)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.OrdStatus != schema.OrdStatusRejected {
		t.Fatalf("expected rejection, got %+v", ack)
	}

	all, err := orders.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("stop order should not have been persisted, got %d orders", len(all))
	}
}
