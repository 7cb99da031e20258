package http

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/service"
	"github.com/pkg/errors"
)

// researchRequest is accepted as JSON or as form fields of the same names.
type researchRequest struct {
	Question     string `json:"question"`
	MaxSources   int    `json:"max_sources"`
	SearchDepth  string `json:"search_depth"`
	UseLanggraph bool   `json:"use_langgraph"`
}

func parseResearchRequest(r *http.Request) (researchRequest, error) {
	var req researchRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.Wrap(err, "invalid JSON body")
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, errors.Wrap(err, "invalid form body")
	}
	req.Question = r.FormValue("question")
	req.SearchDepth = r.FormValue("search_depth")
	req.UseLanggraph = strings.EqualFold(r.FormValue("use_langgraph"), "true")
	if v := strings.TrimSpace(r.FormValue("max_sources")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, errors.Errorf("invalid max_sources %q", v)
		}
		req.MaxSources = n
	}
	return req, nil
}

// ResearchHandler handles POST /research and answers with the new task id.
func (s *Server) ResearchHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseResearchRequest(r)
	if err != nil {
		log.GetLogger().Warnf("Bad POST /research: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		log.GetLogger().Error("Missing 'question' parameter in POST /research")
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}
	if req.UseLanggraph || req.SearchDepth != "" {
		log.GetLogger().Debugf("Ignoring use_langgraph=%v search_depth=%q", req.UseLanggraph, req.SearchDepth)
	}

	id, err := s.tasks.Submit(req.Question, models.ResearchOptions{MaxSources: req.MaxSources})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "No question provided")
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrPoolStopped):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "Server is busy, try again shortly")
	default:
		log.GetLogger().Errorf("Failed to submit research: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start research")
	}
}

// parseWait accepts a Go duration ("30s") or a number of seconds.
func parseWait(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0, errors.Errorf("invalid wait %q", v)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, errors.Errorf("invalid wait %q", v)
	}
	return d, nil
}

// ResultHandler handles GET /result/{task_id}[?wait=]. With wait it long-polls until the
// task is terminal or the wait elapses, then returns whatever state was reached.
func (s *Server) ResultHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if wait > s.maxWait {
		wait = s.maxWait
	}

	var snap models.TaskSnapshot
	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		snap, err = s.tasks.Wait(ctx, id)
		if err != nil && ctx.Err() != nil && !errors.Is(err, service.ErrNotFound) {
			err = nil
		}
	} else {
		snap, err = s.tasks.GetResult(id)
	}

	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Failed to read task %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to read task")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
