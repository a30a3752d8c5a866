package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/planner"
)

// NewServer creates and configures the HTTP server for the NeverMiss JSON API.
// pipeline may be nil; the submit, command and transcribe routes then report CONFIG.
func NewServer(db *sql.DB, cfg *config.Config, pipeline *planner.Pipeline, version, bind string, port int) *http.Server {
	h := &Handlers{
		db:       db,
		cfg:      cfg,
		pipeline: pipeline,
		version:  version,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(h.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// routes registers the API using Go 1.22+ pattern syntax.
func (h *Handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("POST /api/submit", h.HandleSubmit)
	mux.HandleFunc("POST /api/command", h.HandleCommand)
	mux.HandleFunc("POST /api/transcribe", h.HandleTranscribe)
	mux.HandleFunc("GET /api/tasks", h.HandleList)
	mux.HandleFunc("GET /api/tasks/{id}", h.HandleShow)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.HandleComplete)
	mux.HandleFunc("POST /api/tasks/{id}/snooze", h.HandleSnooze)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.HandleDelete)
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("NeverMiss API listening on http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		// In-flight submissions finish their batch before the listener closes.
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
