package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/sketchpad/internal/collab"
	"github.com/inamate/sketchpad/internal/config"
	"github.com/inamate/sketchpad/internal/db"
	"github.com/inamate/sketchpad/internal/drawing"
	mw "github.com/inamate/sketchpad/internal/middleware"
	"github.com/inamate/sketchpad/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open drawing store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	drawingService := drawing.NewService(store)
	drawingHandler := drawing.NewHandler(drawingService)

	hub := collab.NewHub(drawingService, collab.Options{
		MenuTimeout:  cfg.MenuTimeout,
		HitTolerance: cfg.HitTolerance,
	})
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.CORSOrigins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	drawingHandler.Register(api)

	// WebSocket endpoint
	originPatterns := cfg.Origins()
	r.HandleFunc("/ws/drawing/{drawingId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, originPatterns)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		// Sessions save unsaved drawings before the listener goes away.
		if err := hub.Stop(shutdownCtx); err != nil {
			slog.Warn("sessions did not finish saving", "error", err)
		}
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore picks Postgres when DATABASE_URL is set and the file store
// otherwise.
func openStore(ctx context.Context, cfg *config.Config) (drawing.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := drawing.NewFileStore(cfg.DrawingDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using file store", "dir", cfg.DrawingDir)
		return store, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("using postgres store")
	return drawing.NewPostgresStore(pool), pool.Close, nil
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, originPatterns []string) {
	drawingID := mux.Vars(r)["drawingId"]
	if err := typeid.Validate(drawingID, typeid.PrefixDrawing); err != nil {
		http.Error(w, "invalid drawing id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		clientID = "anon-" + uuid.New().String()[:8]
	}

	session := hub.NewSession(conn, drawingID, clientID)
	session.Serve(r.Context())
}
