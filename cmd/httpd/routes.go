package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vinaxue/cs5510-project3/internal/telemetry"
	"github.com/vinaxue/cs5510-project3/pkg/engine"
)

// handlers holds the resources routes need, grounded on the teacher
// repo's internal/api.WSHandler shape (DB/Registry/Log fields injected
// rather than read from globals).
type handlers struct {
	eng *engine.Engine
	tel *telemetry.Registry
	log *zap.Logger
}

func setupRoutes(h *handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/query", h.handleQuery)
	r.Get("/debug/ws", h.handleDebugWS)

	return r
}

func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	res := h.eng.Execute(string(body))

	w.Header().Set("Content-Type", "application/json")
	if res.Error != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(res)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleDebugWS upgrades the connection and registers it to receive every
// StatementExecuted event published after this point, until it
// disconnects.
func (h *handlers) handleDebugWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	h.tel.Add(id, conn)
	defer h.tel.Remove(id)

	conn.SetReadDeadline(time.Now().Add(24 * time.Hour))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
