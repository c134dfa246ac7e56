package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rtxbroker/fixcore/fix/schema"
)

// Symbol is a tradable instrument and its last reference price (§3).
type Symbol struct {
	Symbol    string
	LastPrice decimal.Decimal
	UpdatedAt time.Time
}

// SymbolSource yields (symbol, last_price) pairs for a reload, e.g. the
// CSV/HTTP collaborator described in §6.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]Symbol, error)
}

// SymbolRegistry is the persistent symbol universe (C5, §4.4). Lookup
// reads are served from a Redis cache population that is invalidated on
// every reload; cache misses and cache-down fall back to Postgres so a
// Redis outage degrades latency, not correctness. All always reads
// Postgres.
type SymbolRegistry struct {
	pool  *pgxpool.Pool
	cache *redis.Client
}

// NewSymbolRegistry wraps a pgx pool and an optional Redis client (nil
// disables caching) as a SymbolRegistry.
func NewSymbolRegistry(pool *pgxpool.Pool, cache *redis.Client) *SymbolRegistry {
	return &SymbolRegistry{pool: pool, cache: cache}
}

const symbolCacheKeyPrefix = "fixcore:symbol:"

// Reload atomically replaces the entire symbol universe: all existing
// rows are deleted and the rows yielded by src are inserted, in one
// transaction, so readers never observe a partial mix (§4.4, §5). Rows
// whose symbol fails schema.ValidSymbol are skipped, not corrected. The
// returned count is the number of rows src yielded, skipped rows included.
func (r *SymbolRegistry) Reload(ctx context.Context, src SymbolSource) (int, error) {
	symbols, err := src.Symbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: load symbol source: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin symbol reload: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM symbols"); err != nil {
		return 0, fmt.Errorf("store: clear symbols: %w", err)
	}
	for _, s := range symbols {
		normalized := schema.ValidSymbol(s.Symbol)
		if !normalized {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO symbols (symbol, last_price) VALUES ($1, $2)
		`, s.Symbol, s.LastPrice.String()); err != nil {
			return 0, fmt.Errorf("store: insert symbol %s: %w", s.Symbol, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit symbol reload: %w", err)
	}

	r.invalidateCache(ctx)
	return len(symbols), nil
}

// Lookup returns a symbol's current reference price. Cache misses fall
// through to Postgres; a found row is written back to the cache.
func (r *SymbolRegistry) Lookup(ctx context.Context, symbol string) (*Symbol, bool, error) {
	if r.cache != nil {
		if sym, ok := r.lookupCache(ctx, symbol); ok {
			return sym, true, nil
		}
	}

	row := r.pool.QueryRow(ctx, "SELECT symbol, last_price, updated_at FROM symbols WHERE symbol = $1", symbol)
	var sym Symbol
	var priceStr string
	if err := row.Scan(&sym.Symbol, &priceStr, &sym.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: lookup symbol: %w", err)
	}
	p, err := decimal.Parse(priceStr)
	if err != nil {
		return nil, false, fmt.Errorf("store: parse last_price: %w", err)
	}
	sym.LastPrice = p

	if r.cache != nil {
		r.storeCache(ctx, &sym)
	}
	return &sym, true, nil
}

// All returns every known symbol.
func (r *SymbolRegistry) All(ctx context.Context) ([]*Symbol, error) {
	rows, err := r.pool.Query(ctx, "SELECT symbol, last_price, updated_at FROM symbols ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("store: list symbols: %w", err)
	}
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		var sym Symbol
		var priceStr string
		if err := rows.Scan(&sym.Symbol, &priceStr, &sym.UpdatedAt); err != nil {
			return nil, err
		}
		p, err := decimal.Parse(priceStr)
		if err != nil {
			return nil, fmt.Errorf("store: parse last_price: %w", err)
		}
		sym.LastPrice = p
		out = append(out, &sym)
	}
	return out, rows.Err()
}

func (r *SymbolRegistry) lookupCache(ctx context.Context, symbol string) (*Symbol, bool) {
	data, err := r.cache.Get(ctx, symbolCacheKeyPrefix+symbol).Bytes()
	if err != nil {
		return nil, false
	}
	var sym Symbol
	var wire cachedSymbol
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, false
	}
	p, err := decimal.Parse(wire.LastPrice)
	if err != nil {
		return nil, false
	}
	sym.Symbol = wire.Symbol
	sym.LastPrice = p
	sym.UpdatedAt = wire.UpdatedAt
	return &sym, true
}

func (r *SymbolRegistry) storeCache(ctx context.Context, sym *Symbol) {
	wire := cachedSymbol{Symbol: sym.Symbol, LastPrice: sym.LastPrice.String(), UpdatedAt: sym.UpdatedAt}
	data, err := json.Marshal(wire)
	if err != nil {
		return
	}
	r.cache.Set(ctx, symbolCacheKeyPrefix+sym.Symbol, data, 5*time.Minute)
}

func (r *SymbolRegistry) invalidateCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	iter := r.cache.Scan(ctx, 0, symbolCacheKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		r.cache.Del(ctx, keys...)
	}
}

type cachedSymbol struct {
	Symbol    string    `json:"symbol"`
	LastPrice string    `json:"last_price"`
	UpdatedAt time.Time `json:"updated_at"`
}
