package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/query"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lazytodo_http_request_duration_seconds",
		Help:    "Duration of API requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

type HistoryLister interface {
	ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error)
}

// Server exposes a Store over HTTP. All handlers run under one mutex so the
// store keeps a single writer.
type Server struct {
	mu      sync.Mutex
	store   *store.Store
	history HistoryLister
	now     func() time.Time
}

type taskRow struct {
	Task    model.Task
	Overdue bool
}

func NewServer(s *store.Store, history HistoryLister) *Server {
	return &Server{store: s, history: history, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.serialize)
	r.Get("/", s.indexHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", s.listTasksHandler)
		r.Post("/tasks", s.createTaskHandler)
		r.Post("/tasks/clear-completed", s.clearCompletedHandler)
		r.Get("/tasks/{id}", s.getTaskHandler)
		r.Patch("/tasks/{id}", s.updateTaskHandler)
		r.Delete("/tasks/{id}", s.deleteTaskHandler)
		r.Post("/tasks/{id}/toggle", s.toggleCompletedHandler)
		r.Post("/tasks/{id}/pin", s.togglePinnedHandler)
		r.Get("/tasks/{id}/history", s.historyHandler)
		r.Get("/tags", s.tagsHandler)
		r.Get("/stats", s.statsHandler)
	})
	return r
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		s.mu.Lock()
		defer func() {
			s.mu.Unlock()
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)
	tasks := s.store.Tasks()
	today := s.now()

	visible := query.Evaluate(tasks, q)
	rows := make([]taskRow, 0, len(visible))
	for _, task := range visible {
		rows = append(rows, taskRow{Task: task, Overdue: query.IsOverdue(task, today)})
	}

	data := struct {
		Query           model.Query
		Rows            []taskRow
		Tags            []string
		Stats           query.Stats
		Statuses        []model.StatusFilter
		PriorityFilters []model.PriorityFilter
		SortKeys        []model.SortKey
	}{
		Query:           q,
		Rows:            rows,
		Tags:            query.AvailableTags(tasks),
		Stats:           query.Summarize(tasks),
		Statuses:        model.StatusFilters,
		PriorityFilters: model.PriorityFilters,
		SortKeys:        model.SortKeys,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logger.Error(err, "render index")
	}
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.Evaluate(s.store.Tasks(), queryFromRequest(r)))
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input model.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	task, err := model.NewTask(input, model.NewID(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Create(task); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	created, _ := s.store.Get(task.ID)
	writeJSON(w, http.StatusCreated, created)
}

type patchRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *string         `json:"priority"`
	Tags        *[]string       `json:"tags"`
	DueDate     json.RawMessage `json:"dueDate"`
	Completed   *bool           `json:"completed"`
	Pinned      *bool           `json:"pinned"`
}

func (p patchRequest) toPatch() (model.Patch, error) {
	patch := model.Patch{
		Title:       p.Title,
		Description: p.Description,
		Completed:   p.Completed,
		Pinned:      p.Pinned,
	}
	if p.Priority != nil {
		priority := model.ParsePriority(*p.Priority)
		patch.Priority = &priority
	}
	if p.Tags != nil {
		patch.SetTags = true
		patch.Tags = model.CleanTags(*p.Tags)
	}
	if len(p.DueDate) > 0 {
		if string(p.DueDate) == "null" {
			patch.ClearDueDate = true
		} else {
			var value string
			if err := json.Unmarshal(p.DueDate, &value); err != nil {
				return model.Patch{}, model.ErrInvalidDate
			}
			due, err := model.ParseDate(value)
			if err != nil {
				return model.Patch{}, err
			}
			if due == nil {
				patch.ClearDueDate = true
			} else {
				patch.DueDate = due
			}
		}
	}
	return patch, nil
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Update(id, patch); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	task, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleCompletedHandler(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, chi.URLParam(r, "id"), s.store.ToggleCompleted)
}

func (s *Server) togglePinnedHandler(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, chi.URLParam(r, "id"), s.store.TogglePinned)
}

func (s *Server) toggle(w http.ResponseWriter, id string, fn func(string) error) {
	if err := fn(id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	task, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) clearCompletedHandler(w http.ResponseWriter, r *http.Request) {
	removed := s.store.ClearCompleted()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []model.HistoryEntry{})
		return
	}
	history, err := s.history.ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) tagsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.TagCounts(s.store.Tasks()))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.Summarize(s.store.Tasks()))
}

func queryFromRequest(r *http.Request) model.Query {
	values := r.URL.Query()
	return model.Query{
		Status:    model.ParseStatusFilter(values.Get("status")),
		Priority:  model.ParsePriorityFilter(values.Get("priority")),
		ActiveTag: strings.TrimSpace(values.Get("tag")),
		Search:    values.Get("q"),
		SortBy:    model.ParseSortKey(values.Get("sort")),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, store.ErrEmptyID), errors.Is(err, model.ErrEmptyTitle), errors.Is(err, model.ErrInvalidDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
