// Package adminapi is the thin HTTP/JSON adapter over the administrative
// command interface (§6's "Collaborator: administrative command
// interface"): submit_fill, submit_cancel, submit_reject, list_orders,
// get_order, list_symbols, reload_symbols, each mapped to one endpoint.
// Grounded in the teacher's admin.AdminHandler (net/http, HandleFunc
// routing, CORS headers, JSON request/response bodies).
package adminapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rtxbroker/fixcore/config"
	"github.com/rtxbroker/fixcore/internal/auth"
	"github.com/rtxbroker/fixcore/logging"
	"github.com/rtxbroker/fixcore/router"
	"github.com/rtxbroker/fixcore/store"
)

// Server wires the admin HTTP handlers to the core.
type Server struct {
	router      *router.Router
	orders      *store.OrderStore
	symbols     *store.SymbolRegistry
	credentials *auth.CredentialStore
	issuer      *auth.TokenIssuer
	audit       *logging.AuditLogger
	log         *logging.Logger
	limiter     *endpointLimiter
}

// New builds an adminapi Server.
func New(rt *router.Router, orders *store.OrderStore, symbols *store.SymbolRegistry, credentials *auth.CredentialStore, issuer *auth.TokenIssuer, audit *logging.AuditLogger, log *logging.Logger, rl config.RateLimitConfig) *Server {
	return &Server{
		router:      rt,
		orders:      orders,
		symbols:     symbols,
		credentials: credentials,
		issuer:      issuer,
		audit:       audit,
		log:         log,
		limiter:     newEndpointLimiter(rl),
	}
}

// Mux builds the *http.ServeMux routing every admin endpoint, the way
// the teacher's main() registers each admin.AdminHandler method with
// http.HandleFunc.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/login", s.handleLogin)
	mux.HandleFunc("/admin/orders", s.withAuth("list_orders", s.handleListOrders))
	mux.HandleFunc("/admin/orders/get", s.withAuth("get_order", s.handleGetOrder))
	mux.HandleFunc("/admin/orders/submit_fill", s.withAuth("submit_fill", s.handleSubmitFill))
	mux.HandleFunc("/admin/orders/submit_cancel", s.withAuth("submit_cancel", s.handleSubmitCancel))
	mux.HandleFunc("/admin/orders/submit_reject", s.withAuth("submit_reject", s.handleSubmitReject))
	mux.HandleFunc("/admin/symbols", s.withAuth("list_symbols", s.handleListSymbols))
	mux.HandleFunc("/admin/symbols/reload", s.withAuth("reload_symbols", s.handleReloadSymbols))
	return mux
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// handleLogin exchanges operator credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.credentials.Verify(req.Username, req.Password); err != nil {
		s.audit.LogAuthenticationFailed(r.Context(), req.Username, clientIP(r), err.Error())
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issuer.Issue(req.Username)
	if err != nil {
		s.log.Error("failed to issue token", err)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.audit.LogAuthentication(r.Context(), req.Username, clientIP(r))
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// withAuth enforces bearer-token auth and the per-endpoint rate limit
// before delegating to next.
func (s *Server) withAuth(endpoint string, next func(operator string, w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cors(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.issuer.Validate(parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if !s.limiter.Allow(endpoint) {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next(claims.Operator, w, r)
	}
}

func parseOrderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get("order_internal_id"), 10, 64)
}
