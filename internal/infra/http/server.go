package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
	"github.com/Spok95/wb-tariffs/internal/export"
)

// TariffStore: то, что админке нужно от репозитория.
type TariffStore interface {
	FindAll(ctx context.Context) ([]tariffs.Record, error)
	GetByID(ctx context.Context, id int64) (*tariffs.Record, error)
	Update(ctx context.Context, id int64, p tariffs.Patch) (*tariffs.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SyncTrigger запускает внеплановый цикл в фоне.
type SyncTrigger interface {
	RunNow()
}

type Deps struct {
	Store TariffStore
	Sync  SyncTrigger
	Log   *slog.Logger
}

type Server struct {
	srv *http.Server
}

func New(addr string, exposeMetrics bool, d Deps) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           Router(exposeMetrics, d),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Router собирает маршруты; отдельно от Server, чтобы гонять через httptest.
func Router(exposeMetrics bool, d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	h := &handlers{store: d.Store, sync: d.Sync, log: d.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/tariffs", h.list)
		r.Get("/tariffs/export.xlsx", h.exportXLSX)
		r.Get("/tariffs/{id}", h.get)
		r.Patch("/tariffs/{id}", h.update)
		r.Delete("/tariffs/{id}", h.delete)
		r.Post("/sync", h.triggerSync)
	})
	return r
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type handlers struct {
	store TariffStore
	sync  SyncTrigger
	log   *slog.Logger
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.FindAll(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load tariffs", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load tariff", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "tariff not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var p tariffs.Patch
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Empty() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to update tariff", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "tariff not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to delete tariff", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "tariff not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) exportXLSX(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.FindAll(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load tariffs", err)
		return
	}
	data, err := export.Bytes(items)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to build xlsx", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, export.FileName(time.Now())))
	_, _ = w.Write(data)
}

func (h *handlers) triggerSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	h.sync.RunNow()
	h.log.Info("manual sync requested", "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	h.log.Error(msg, "err", err, "request_id", middleware.GetReqID(r.Context()))
	writeError(w, status, msg)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger пишет строку на запрос со статусом и длительностью.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// IsServerClosed узнаёт штатную ошибку ListenAndServe после Shutdown.
func IsServerClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
