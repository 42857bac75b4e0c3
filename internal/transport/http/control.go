// Package http exposes the operator control surface: the start-game command,
// lobby inspection, and a WebSocket feed of live game events for the control
// panel.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/game"
)

type ControlHandler struct {
	log      zerolog.Logger
	engine   *game.Engine
	registry *game.Registry
	bus      *game.EventBus
	upgrader websocket.Upgrader
}

func NewControlHandler(engine *game.Engine, registry *game.Registry, bus *game.EventBus, log zerolog.Logger) *ControlHandler {
	return &ControlHandler{
		log:      log.With().Str("component", "control").Logger(),
		engine:   engine,
		registry: registry,
		bus:      bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the control API mux.
func (h *ControlHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/game/start", h.startGame)
	mux.HandleFunc("/players", h.players)
	mux.HandleFunc("/ws", h.serveEvents)
	return mux
}

type startRequest struct {
	Rounds int `json:"rounds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *ControlHandler) startGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.engine.Start(req.Rounds); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrGameInProgress),
			errors.Is(err, domain.ErrInsufficientPlayers),
			errors.Is(err, domain.ErrNoQuestionsLoaded),
			errors.Is(err, domain.ErrInvalidRoundCount):
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "rounds": req.Rounds})
}

func (h *ControlHandler) players(w http.ResponseWriter, r *http.Request) {
	players := h.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"count":   len(players),
		"state":   h.engine.State().String(),
	})
}

// serveEvents streams game events to an observer, the control panel's live
// log. The read loop exists only to notice the peer going away.
func (h *ControlHandler) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.bus.Subscribe()
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug().Err(err).Msg("observer write failed")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
