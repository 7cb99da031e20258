package http

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
)

type pageData struct {
	Title   string
	Now     time.Time
	History []models.HistoryRecord
	Record  *models.HistoryRecord
	Answer  template.HTML
}

// recentHistory tolerates a broken store so the index page still renders.
func (s *Server) recentHistory(r *http.Request, limit int) []models.HistoryRecord {
	recs, err := s.history.List(r.Context(), limit)
	if err != nil {
		log.GetLogger().Errorf("Failed to list history: %v", err)
		return nil
	}
	return recs
}

func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	s.pages.execute(w, s.pages.index, pageData{
		Title:   "Deep Research AI",
		Now:     time.Now(),
		History: s.recentHistory(r, 10),
	})
}

func (s *Server) HistoryPageHandler(w http.ResponseWriter, r *http.Request) {
	s.pages.execute(w, s.pages.history, pageData{
		Title:   "Research History",
		Now:     time.Now(),
		History: s.recentHistory(r, historyPageSize),
	})
}

// ResearchPageHandler renders one stored result; unknown ids go back to the history page.
func (s *Server) ResearchPageHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.GetLogger().Errorf("Failed to load research %s: %v", r.PathValue("id"), err)
		}
		http.Redirect(w, r, "/history", http.StatusFound)
		return
	}
	s.pages.execute(w, s.pages.research, pageData{
		Title:  rec.Question,
		Now:    time.Now(),
		Record: &rec,
		Answer: s.pages.render(rec.Answer),
	})
}

func (s *Server) APIResearchHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.history.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Research not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load research")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// APIHistoryHandler handles GET /api/history[?limit=n].
func (s *Server) APIHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := historyPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if recs == nil {
		recs = []models.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}
