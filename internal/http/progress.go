package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/service"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscribe maps coordinator errors onto HTTP status codes.
func (s *Server) subscribe(ctx context.Context, w http.ResponseWriter, id string) (<-chan models.ProgressEvent, bool) {
	events, err := s.tasks.Subscribe(ctx, id)
	switch {
	case err == nil:
		return events, true
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, "Task already has a progress subscriber")
	default:
		log.GetLogger().Errorf("Failed to subscribe to task %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
	}
	return nil, false
}

// ProgressHandler streams task progress via Server-Sent Events.
// GET /progress/{task_id}
func (s *Server) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events, ok := s.subscribe(r.Context(), w, id)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Send an initial comment to establish the stream
	fmt.Fprintf(w, ": connected to task %s\n\n", id)
	flusher.Flush()

	// The channel closes after the terminal event or once the client goes away.
	for ev := range events {
		if ev.Seq > 0 {
			fmt.Fprintf(w, "id: %d\n", ev.Seq)
		}
		fmt.Fprintf(w, "event: %s\n", ev.Status)
		fmt.Fprintf(w, "data: %s\n\n", ev.Marshal())
		flusher.Flush()
	}
	log.GetLogger().Debugf("SSE stream for task %s closed", id)
}

// WebSocketHandler streams the same events as ProgressHandler as JSON text frames.
// GET /ws/progress/{task_id}
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")

	// A hijacked connection does not cancel the request context, so the reader pump does.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, ok := s.subscribe(ctx, w, id)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.GetLogger().Warnf("WebSocket upgrade for task %s failed: %v", id, err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader pump (discard client messages)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream finished")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.GetLogger().Debugf("WebSocket write for task %s failed: %v", id, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
