package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tasks is the coordinator surface used by the handlers.
type Tasks interface {
	Submit(question string, opts models.ResearchOptions) (string, error)
	Subscribe(ctx context.Context, id string) (<-chan models.ProgressEvent, error)
	GetResult(id string) (models.TaskSnapshot, error)
	Wait(ctx context.Context, id string) (models.TaskSnapshot, error)
	Len() int
}

// History is the persisted research log.
type History interface {
	Get(ctx context.Context, id string) (models.HistoryRecord, error)
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Clear(ctx context.Context) error
}

const (
	defaultMaxWait  = 5 * time.Minute
	historyPageSize = 100
)

type Server struct {
	tasks   Tasks
	history History
	pages   *pages
	maxWait time.Duration
}

// NewServer builds the web server. maxWait caps the long-poll of GET /result; zero means 5m.
func NewServer(tasks Tasks, history History, maxWait time.Duration) *Server {
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Server{
		tasks:   tasks,
		history: history,
		pages:   loadPages(),
		maxWait: maxWait,
	}
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /research", s.ResearchHandler)
	mux.HandleFunc("GET /progress/{task_id}", s.ProgressHandler)
	mux.HandleFunc("GET /ws/progress/{task_id}", s.WebSocketHandler)
	mux.HandleFunc("GET /result/{task_id}", s.ResultHandler)

	mux.HandleFunc("GET /{$}", s.IndexHandler)
	mux.HandleFunc("GET /history", s.HistoryPageHandler)
	mux.HandleFunc("GET /research/{id}", s.ResearchPageHandler)
	mux.HandleFunc("GET /api/history", s.APIHistoryHandler)
	mux.HandleFunc("GET /api/research/{id}", s.APIResearchHandler)
	mux.HandleFunc("POST /clear_history", s.ClearHistoryHandler)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Infof("Starting DeepResearchAI server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.GetLogger().Infof("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	return nil
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "DeepResearchAI server is running (%d tasks tracked)", s.tasks.Len())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
