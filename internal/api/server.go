package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/export"
	"github.com/yargnad/The-Crystalizer/internal/merge"
	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/scrape"
)

// maxBody caps request bodies; scrapes of long chats are the largest.
const maxBody = 32 << 20

// Server exposes the controller over loopback HTTP. Every handler holds mu
// for its whole run, so the controller sees one caller at a time.
type Server struct {
	router *chi.Mux
	addr   string
	log    *zap.Logger

	mu   sync.Mutex
	ctrl *controller.Controller
}

func NewServer(addr string, ctrl *controller.Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	router := chi.NewRouter()
	s := &Server{
		router: router,
		addr:   addr,
		log:    log.Named("api"),
		ctrl:   ctrl,
	}

	router.Use(middleware.RequestID)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.state)
		r.Post("/scrape", s.scrape)
		r.Delete("/scrape", s.discardScrape)
		r.Post("/personas", s.savePersona)
		r.Delete("/personas/{id}", s.deletePersona)
		r.Post("/queue/{id}", s.enqueue)
		r.Delete("/queue/{id}", s.dequeue)
		r.Post("/step/{n}", s.gotoStep)
		r.Post("/merge", s.merge)
		r.Route("/prune", func(r chi.Router) {
			r.Post("/select-all", s.selectAll)
			r.Post("/deselect-all", s.deselectAll)
			r.Post("/{index}/toggle", s.toggle)
			r.Post("/{index}/expand", s.expand)
		})
		r.Get("/export", s.export)
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("API server starting", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// scrape stores a scrape result posted by the browser side. With no body it
// asks the configured browser endpoint instead.
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var notice controller.Notice
	if len(body) == 0 {
		notice, err = s.ctrl.Scrape(r.Context(), r.URL.Query().Get("url"))
	} else {
		var res *parse.ScrapeResult
		res, err = parse.DecodeScrape(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		notice, err = s.ctrl.IngestScrape(r.Context(), res)
	}
	if err != nil {
		s.failWithNotice(w, err, notice)
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

func (s *Server) discardScrape(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.DiscardScrape(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type savePersonaRequest struct {
	Name       string `json:"name"`
	AddToQueue bool   `json:"addToQueue"`
}

func (s *Server) savePersona(w http.ResponseWriter, r *http.Request) {
	var req savePersonaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ctrl.SavePersona(r.Context(), req.Name, req.AddToQueue)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) deletePersona(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.DeletePersona(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notice, err := s.ctrl.Enqueue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

func (s *Server) dequeue(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.Dequeue(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stepResponse struct {
	Step   controller.Step    `json:"step"`
	Notice *controller.Notice `json:"notice,omitempty"`
}

func (s *Server) gotoStep(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid step: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	notice, err := s.ctrl.Goto(r.Context(), controller.Step(n))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Step: s.ctrl.Step(), Notice: notice})
}

type mergeRequest struct {
	Strategy string `json:"strategy"`
}

type mergeResponse struct {
	Count int `json:"count"`
}

func (s *Server) merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	strategy := merge.Chronological
	if req.Strategy != "" {
		st, err := merge.ParseStrategy(req.Strategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		strategy = st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.ctrl.ExecuteMerge(r.Context(), strategy)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mergeResponse{Count: n})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.pruneAt(w, r, s.ctrl.ToggleSelection)
}

func (s *Server) expand(w http.ResponseWriter, r *http.Request) {
	s.pruneAt(w, r, s.ctrl.ToggleExpanded)
}

func (s *Server) pruneAt(w http.ResponseWriter, r *http.Request, op func(context.Context, int) error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := op(r.Context(), i); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"selectedCount": s.ctrl.SelectedCount()})
}

func (s *Server) selectAll(w http.ResponseWriter, r *http.Request) {
	s.pruneAll(w, r, s.ctrl.SelectAll)
}

func (s *Server) deselectAll(w http.ResponseWriter, r *http.Request) {
	s.pruneAll(w, r, s.ctrl.DeselectAll)
}

func (s *Server) pruneAll(w http.ResponseWriter, r *http.Request, op func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := op(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"selectedCount": s.ctrl.SelectedCount()})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.ctrl.Export()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps controller errors onto status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrValidation), errors.Is(err, export.ErrNothingSelected):
		return http.StatusBadRequest
	case errors.Is(err, scrape.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, scrape.ErrNoPlatform):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.failWithNotice(w, err, controller.Notice{})
}

func (s *Server) failWithNotice(w http.ResponseWriter, err error, n controller.Notice) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	body := errorBody{Error: err.Error()}
	if n.Message != "" {
		body.Notice = &n
	}
	writeJSON(w, status, body)
}

type errorBody struct {
	Error  string             `json:"error"`
	Notice *controller.Notice `json:"notice,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
