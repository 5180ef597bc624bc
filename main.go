package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/example/learnboard/internal/config"
	"github.com/example/learnboard/internal/tokens"
	"github.com/gorilla/mux"
	_ "modernc.org/sqlite"
)

// App wires the store, token service, throttles, and analytics client into
// the route handlers.
type App struct {
	store         Store
	tokens        *tokens.Service
	loginLimiter  *LoginLimiter
	analytics     *AnalyticsClient
	secureCookies bool
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tokenService, err := tokens.NewService(tokens.Config{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
	})
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	var store Store
	var closer interface{ close() error }
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(c.SQLiteFile)
		if err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		store = s
		closer = s
	case "postgres":
		if err := ApplyMigrations("./migrations", c.PostgresDSN); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		p, err := NewPostgresDB(c.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		store = p
		closer = p
		log.Println("connected to PostgreSQL")
	case "memory":
		log.Println("using in-memory store (not recommended for production)")
		m := NewMemoryDB()
		store = m
		closer = m
	default:
		log.Fatalf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	app := &App{
		store:         store,
		tokens:        tokenService,
		loginLimiter:  NewLoginLimiter(c.LoginMaxAttempts, time.Duration(c.LoginBlockMinutes)*time.Minute),
		analytics:     NewAnalyticsClient(AnalyticsConfig{BaseURL: c.AnalyticsAPIURL, APIKey: c.AnalyticsAPIKey}),
		secureCookies: c.Production(),
	}

	r := app.Routes(NewRateLimiter(c.RateLimitPerMinute, c.RateLimitBurst))

	srv := &http.Server{
		Handler:      r,
		Addr:         ":" + c.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("learnboard listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer != nil {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("server exited")
}

// Routes builds the router: public auth endpoints under /api, dashboard
// endpoints behind the session gate, health probes outside the limiter.
func (a *App) Routes(limiter *RateLimiter) http.Handler {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if p, ok := a.store.(interface{ ping() bool }); ok && !p.ping() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	api.HandleFunc("/sign-up", a.HandleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/log-in", a.HandleLogin).Methods(http.MethodPost)
	api.HandleFunc("/log-out", a.HandleLogout).Methods(http.MethodPost)
	api.HandleFunc("/fetch-user", a.HandleFetchUser).Methods(http.MethodGet)
	api.HandleFunc("/add-admin", a.HandleAddAdmin).Methods(http.MethodPost)

	dashboard := api.PathPrefix("/dashboard").Subrouter()
	dashboard.Use(a.RequireAuth)
	dashboard.HandleFunc("/metrics", a.HandleDashboardMetrics).Methods(http.MethodGet)
	dashboard.HandleFunc("/learners", a.HandleDashboardLearners).Methods(http.MethodGet)
	dashboard.HandleFunc("/learners.csv", a.HandleDashboardLearnersCSV).Methods(http.MethodGet)

	return r
}
