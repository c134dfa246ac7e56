package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/rtxbroker/fixcore/internal/symbols"
)

type symbolView struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last_price"`
}

// handleListSymbols implements list_symbols.
func (s *Server) handleListSymbols(operator string, w http.ResponseWriter, r *http.Request) {
	all, err := s.symbols.All(r.Context())
	if err != nil {
		s.log.Error("list symbols failed", err)
		respondError(w, http.StatusInternalServerError, "failed to list symbols")
		return
	}
	views := make([]symbolView, 0, len(all))
	for _, sym := range all {
		views = append(views, symbolView{Symbol: sym.Symbol, LastPrice: sym.LastPrice.String()})
	}
	respondJSON(w, http.StatusOK, views)
}

// handleReloadSymbols implements reload_symbols, taking a CSV path to
// the symbol source collaborator (§6).
func (s *Server) handleReloadSymbols(operator string, w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSVPath string `json:"csv_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	count, err := s.symbols.Reload(r.Context(), symbols.CSVSource{Path: req.CSVPath})
	if err != nil {
		s.log.Error("reload symbols failed", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.audit.LogSymbolReload(r.Context(), operator, count)
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}
