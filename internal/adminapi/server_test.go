package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rtxbroker/fixcore/config"
	"github.com/rtxbroker/fixcore/internal/auth"
	"github.com/rtxbroker/fixcore/lifecycle"
	"github.com/rtxbroker/fixcore/logging"
	"github.com/rtxbroker/fixcore/router"
	"github.com/rtxbroker/fixcore/session"
	"github.com/rtxbroker/fixcore/store"
)

type noopSource struct{}

func (noopSource) Symbols(ctx context.Context) ([]store.Symbol, error) { return nil, nil }

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping adminapi integration test")
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
	symbolRegistry := store.NewSymbolRegistry(pool, nil)
	if _, err := symbolRegistry.Reload(ctx, noopSource{}); err != nil {
		t.Fatalf("reload symbols: %v", err)
	}

	log := logging.NewLogger(logging.INFO)
	engine := lifecycle.NewEngine(orders, symbolRegistry, nil)
	registry := session.NewRegistry()

	auditDir := t.TempDir()
	audit, err := logging.NewAuditLogger(auditDir)
	if err != nil {
		t.Fatalf("new audit logger: %v", err)
	}
	t.Cleanup(func() { audit.Close() })

	rt := router.New(engine, registry, log, audit)

	creds, err := auth.NewCredentialStore("operator", "secret123")
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)

	rl := config.RateLimitConfig{Enabled: false}
	srv := New(rt, orders, symbolRegistry, creds, issuer, audit, log, rl)

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func loginToken(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	body := strings.NewReader(`{"username":"operator","password":"secret123"}`)
	resp, err := http.Post(ts.URL+"/admin/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return out.Token
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := startTestServer(t)

	body := strings.NewReader(`{"username":"operator","password":"wrong"}`)
	resp, err := http.Post(ts.URL+"/admin/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrdersRequiresBearerToken(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/admin/orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrdersWithValidToken(t *testing.T) {
	ts := startTestServer(t)
	token := loginToken(t, ts)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin/orders", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var orders []orderView
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}
