// Package symbols holds the symbol source collaborator (§6): a
// provider yielding (symbol, last_price) pairs consumed by
// store.SymbolRegistry.Reload. Grounded in original_source's
// scripts/update_stock_prices.py, which maintains a
// "symbol,last_price" CSV as the broker's tradable universe; the
// ingestion pipeline that refreshes the CSV from a market-data feed is
// explicitly out of scope (spec.md's "CSV ingestion of the symbol
// universe" Non-goal), but reading that CSV format into the registry
// is the boundary the core depends on.
package symbols

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/govalues/decimal"

	"github.com/rtxbroker/fixcore/store"
)

// CSVSource implements store.SymbolSource by reading a
// "symbol,last_price" CSV file with a header row, the format
// stock_universe.csv uses.
type CSVSource struct {
	Path string
}

// Symbols satisfies store.SymbolSource.
func (c CSVSource) Symbols(ctx context.Context) ([]store.Symbol, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("symbols: open %s: %w", c.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("symbols: read header: %w", err)
	}
	symbolCol, priceCol, err := columnIndices(header)
	if err != nil {
		return nil, err
	}

	var out []store.Symbol
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("symbols: read row: %w", err)
		}
		price, err := decimal.Parse(record[priceCol])
		if err != nil {
			return nil, fmt.Errorf("symbols: parse last_price %q: %w", record[priceCol], err)
		}
		out = append(out, store.Symbol{Symbol: record[symbolCol], LastPrice: price})
	}
	return out, nil
}

func columnIndices(header []string) (symbolCol, priceCol int, err error) {
	symbolCol, priceCol = -1, -1
	for i, col := range header {
		switch col {
		case "symbol":
			symbolCol = i
		case "last_price":
			priceCol = i
		}
	}
	if symbolCol == -1 || priceCol == -1 {
		return 0, 0, fmt.Errorf("symbols: csv header missing symbol/last_price columns: %v", header)
	}
	return symbolCol, priceCol, nil
}
