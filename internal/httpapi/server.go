package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/mo"

	"github.com/joshhubert-dsp/recurrent-plus/phrase"
	"github.com/joshhubert-dsp/recurrent-plus/recurrence"
)

// maxBatch bounds the number of items accepted by the batch endpoint.
const maxBatch = 100

type Server struct {
	cache    *recurrence.RuleCache
	config   recurrence.Config
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
	router   *chi.Mux
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLocation sets the zone for start times given without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.location = loc }
}

// WithClock replaces time.Now for requests that omit a start.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cache *recurrence.RuleCache, cfg recurrence.Config, opts ...Option) *Server {
	s := &Server{
		cache:    cache,
		config:   cfg,
		location: time.UTC,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/recurrences", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Post("/reconcile", s.handleReconcile)
		r.Post("/batch", s.handleBatch)
		r.Post("/ics", s.handleICS)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(began),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ruleRequest is the body shared by the recurrence endpoints.
type ruleRequest struct {
	Input              string `json:"input"`
	Start              string `json:"start,omitempty"`
	End                string `json:"end,omitempty"`
	Summary            string `json:"summary,omitempty"`
	NumPreview         *int   `json:"num_preview,omitempty"`
	DailyOrGreaterOnly *bool  `json:"daily_or_greater_only,omitempty"`
}

type windowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Moved bool   `json:"moved"`
}

type batchItem struct {
	Rule  *recurrence.RuleView `json:"rule,omitempty"`
	Error *errorBody           `json:"error,omitempty"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cachedRules":   stats.ActiveEntries,
		"expiredRules":  stats.ExpiredEntries,
		"previewLength": s.config.NumPreview,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := s.build(req)
	if err != nil {
		s.respondRuleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rule.View())
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Start == "" || req.End == "" {
		respondError(w, http.StatusBadRequest, "start and end are required", nil)
		return
	}

	rule, err := s.build(req)
	if err != nil {
		s.respondRuleError(w, err)
		return
	}
	start, end, err := s.window(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event window", err)
		return
	}

	newStart, newEnd, err := rule.Reconcile(start, end)
	if err != nil {
		s.respondRuleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rule": rule.View(),
		"window": windowResponse{
			Start: newStart.Format(time.RFC3339),
			End:   newEnd.Format(time.RFC3339),
			Moved: !newStart.Equal(start),
		},
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []ruleRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items are required", nil)
		return
	}
	if len(req.Items) > maxBatch {
		respondError(w, http.StatusRequestEntityTooLarge, "too many items", nil)
		return
	}

	results := make([]mo.Result[*recurrence.Rule], len(req.Items))
	for i, item := range req.Items {
		rule, err := s.build(item)
		results[i] = mo.TupleToResult(rule, err)
	}

	items := make([]batchItem, len(results))
	for i, res := range results {
		if res.IsError() {
			items[i] = batchItem{Error: toErrorBody(res.Error())}
			continue
		}
		view := res.MustGet().View()
		items[i] = batchItem{Rule: &view}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := s.build(req)
	if err != nil {
		s.respondRuleError(w, err)
		return
	}
	start, end, err := s.window(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event window", err)
		return
	}
	start, end, err = rule.Reconcile(start, end)
	if err != nil {
		s.respondRuleError(w, err)
		return
	}

	ics, err := recurrence.EncodeCalendar(rule.Event(start, end, req.Summary))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode calendar", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ics)
}

// build constructs the rule for req through the cache.
func (s *Server) build(req ruleRequest) (*recurrence.Rule, error) {
	cfg := s.config
	if req.NumPreview != nil {
		cfg.NumPreview = *req.NumPreview
	}
	if req.DailyOrGreaterOnly != nil {
		cfg.DailyOrGreaterOnly = *req.DailyOrGreaterOnly
	}

	start, err := s.parseTime(req.Start)
	if err != nil {
		return nil, &recurrence.Error{Type: recurrence.ErrParse, Message: "invalid start", Input: req.Start, Err: err}
	}
	return s.cache.GetOrCreate(req.Input, start, cfg, recurrence.WithLogger(s.logger))
}

// window reads the event window of req. A missing end makes the event
// instantaneous.
func (s *Server) window(req ruleRequest) (time.Time, time.Time, error) {
	start, err := s.parseTime(req.Start)
	if err != nil {
		return start, start, err
	}
	if req.End == "" {
		return start, start, nil
	}
	end, err := s.parseTime(req.End)
	if err != nil {
		return start, end, err
	}
	if end.Before(start) {
		return start, end, errors.New("end precedes start")
	}
	return start, end, nil
}

func (s *Server) parseTime(value string) (time.Time, error) {
	now := s.now().In(s.location).Truncate(time.Second)
	if value == "" {
		return now, nil
	}
	return phrase.ParseDate(value, now)
}

func (s *Server) respondRuleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case recurrence.IsParseError(err):
		status = http.StatusBadRequest
	case recurrence.IsGranularityError(err):
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, map[string]any{
		"error": toErrorBody(err),
	})
}

func toErrorBody(err error) *errorBody {
	var rerr *recurrence.Error
	if errors.As(err, &rerr) {
		return &errorBody{Type: string(rerr.Type), Message: rerr.Error()}
	}
	return &errorBody{Type: "internal", Message: err.Error()}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
