package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/graphdeck/graphdeck/engine-go/internal/config"
	mw "github.com/graphdeck/graphdeck/engine-go/internal/middleware"
	"github.com/graphdeck/graphdeck/engine-go/internal/session"
	"github.com/graphdeck/graphdeck/engine-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	origins := splitOrigins(cfg.AllowedOrigins)

	hub := session.NewHub(session.RoomConfig{
		HistoryCapacity: cfg.HistoryCapacity,
		MergeWindow:     time.Duration(cfg.MergeWindowMS) * time.Millisecond,
	})
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Document endpoints. Rooms are created lazily and held in memory;
	// the snapshot endpoints serialize and load the room document as JSON.
	r.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		handleCreateDocument(w, r, hub)
	}).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/documents/{docId}", func(w http.ResponseWriter, r *http.Request) {
		handleGetDocument(w, r, hub)
	}).Methods("GET")
	r.HandleFunc("/api/documents/{docId}", func(w http.ResponseWriter, r *http.Request) {
		handlePutDocument(w, r, hub)
	}).Methods("PUT", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/doc/{docId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, originPatterns(origins))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleCreateDocument(w http.ResponseWriter, r *http.Request, hub *session.Hub) {
	docID := typeid.NewDocumentID()
	room := hub.Room(docID)

	// An optional request body seeds the document; ?sample=1 loads the
	// built-in sample instead.
	if r.URL.Query().Get("sample") == "1" {
		room.State().LoadSample()
	} else if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := room.State().Load(string(body)); err != nil {
			http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"docId": docID})
}

func handleGetDocument(w http.ResponseWriter, r *http.Request, hub *session.Hub) {
	docID := mux.Vars(r)["docId"]
	if err := typeid.Validate(docID, typeid.PrefixDocument); err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	snap, err := hub.Room(docID).State().Snapshot()
	if err != nil {
		http.Error(w, "snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(snap))
}

func handlePutDocument(w http.ResponseWriter, r *http.Request, hub *session.Hub) {
	docID := mux.Vars(r)["docId"]
	if err := typeid.Validate(docID, typeid.PrefixDocument); err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if err := hub.Room(docID).State().Load(string(body)); err != nil {
		http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, patterns []string) {
	docID := mux.Vars(r)["docId"]
	if err := typeid.Validate(docID, typeid.PrefixDocument); err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := session.NewClient(hub, conn, typeid.NewClientID(), name, docID)
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// originPatterns strips the scheme from configured origins; the websocket
// accept options match on host patterns, not full origins.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}
