// Command brokerd is the simulated brokerage's entrypoint: it wires the
// FIX acceptor (C3), lifecycle engine (C6), execution router (C7), order
// store/symbol registry (C4/C5), and the administrative command
// interface/dashboard (§6) into one running process. Grounded in the
// teacher's cmd/server/main.go startup sequence (config load, then
// logging, then each service in dependency order, then serve), trimmed
// to this broker's much smaller surface — no LP routing, tick stores,
// or CFD account management.
package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rtxbroker/fixcore/config"
	"github.com/rtxbroker/fixcore/internal/adminapi"
	"github.com/rtxbroker/fixcore/internal/auth"
	"github.com/rtxbroker/fixcore/internal/dashboard"
	"github.com/rtxbroker/fixcore/internal/metrics"
	"github.com/rtxbroker/fixcore/lifecycle"
	"github.com/rtxbroker/fixcore/logging"
	"github.com/rtxbroker/fixcore/router"
	"github.com/rtxbroker/fixcore/session"
	"github.com/rtxbroker/fixcore/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.NewLogger(logging.INFO)
	log.Info("starting", logging.String("environment", cfg.Environment))

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("connect to database", err)
		return
	}
	defer pool.Close()

	migrator := store.NewMigrator(pool, log, store.WithVerbose(true))
	if err := migrator.Initialize(ctx); err != nil {
		log.Error("initialize migrations", err)
		return
	}
	if err := migrator.Up(ctx); err != nil {
		log.Error("apply migrations", err)
		return
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
		})
	}

	orders := store.NewOrderStore(pool)
	symbols := store.NewSymbolRegistry(pool, cache)

	auditLog, err := logging.NewAuditLogger("audit")
	if err != nil {
		log.Error("open audit log", err)
		return
	}

	issuer := auth.NewTokenIssuer([]byte(cfg.Admin.JWTSecret), 8*time.Hour)
	credentials, err := auth.NewCredentialStore(cfg.Admin.OperatorUser, cfg.Admin.OperatorPassword)
	if err != nil {
		log.Error("build credential store", err)
		return
	}

	dashboardHub := dashboard.NewHub(issuer, log)
	engine := lifecycle.NewEngine(orders, symbols, dashboardHub)

	registry := session.NewRegistry()
	rt := router.New(engine, registry, log, auditLog)
	acceptor := session.NewAcceptor(registry, rt, cfg.FIX.SenderCompID, log)

	ln, err := net.Listen("tcp", cfg.FIX.ListenAddr)
	if err != nil {
		log.Error("listen for FIX connections", err, logging.String("addr", cfg.FIX.ListenAddr))
		return
	}
	go func() {
		log.Info("FIX acceptor listening", logging.String("addr", cfg.FIX.ListenAddr))
		if err := acceptor.Serve(ln); err != nil {
			log.Error("FIX acceptor stopped", err)
		}
	}()

	rl, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Error("load rate limit config", err)
		return
	}
	adminSrv := adminapi.New(rt, orders, symbols, credentials, issuer, auditLog, log, rl)

	adminMux := adminSrv.Mux()
	adminMux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Info("admin API listening", logging.String("addr", cfg.Admin.ListenAddr))
		if err := http.ListenAndServe(cfg.Admin.ListenAddr, adminMux); err != nil {
			log.Error("admin API stopped", err)
		}
	}()

	dashboardMux := http.NewServeMux()
	dashboardMux.HandleFunc("/dashboard/ws", dashboardHub.ServeWs)
	log.Info("dashboard listening", logging.String("addr", cfg.Dashboard.ListenAddr))
	if err := http.ListenAndServe(cfg.Dashboard.ListenAddr, dashboardMux); err != nil {
		log.Error("dashboard server stopped", err)
	}
}
