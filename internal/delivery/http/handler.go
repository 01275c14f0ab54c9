// Package http exposes the alarm CRUD API on chi.
package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/internal/scheduler"
	"github.com/Raimguhinov/alarm-go/internal/storage"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/emersion/go-ical"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	sched  *scheduler.Scheduler
	store  storage.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewHandler(sched *scheduler.Scheduler, store storage.Store, l *logger.Logger) *Handler {
	return &Handler{
		sched:  sched,
		store:  store,
		logger: l,
		now:    time.Now,
	}
}

// Routes mounts the alarm endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/alarms", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.remove)
			r.Get("/next", h.next)
			r.Get("/ics", h.ics)
		})
	})
}

type alarmRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Hour    *int   `json:"hour"`
	Minute  *int   `json:"minute"`
	Repeat  []bool `json:"repeat"`
	Enabled bool   `json:"enabled"`
}

func (req *alarmRequest) toDomain(id uuid.UUID) *alarm.Alarm {
	repeat := req.Repeat
	if repeat == nil {
		repeat = make([]bool, alarm.DaysInWeek)
	}
	return &alarm.Alarm{
		ID:      id,
		Title:   req.Title,
		Message: req.Message,
		Hour:    req.Hour,
		Minute:  req.Minute,
		Repeat:  repeat,
		Enabled: req.Enabled,
	}
}

type nextResponse struct {
	ID        uuid.UUID  `json:"id"`
	NextAt    *time.Time `json:"next_at,omitempty"`
	Scheduled bool       `json:"scheduled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req alarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	a := req.toDomain(uuid.New())
	if err := h.sched.Schedule(r.Context(), a); err != nil {
		h.writeScheduleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req alarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	a := req.toDomain(id)
	if err := h.sched.Update(r.Context(), a); err != nil {
		h.writeScheduleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	alarms, err := h.store.GetAll(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if alarms == nil {
		alarms = []alarm.Alarm{}
	}
	h.writeJSON(w, http.StatusOK, alarms)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.sched.Remove(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	resp := nextResponse{ID: a.ID}
	if a.Enabled {
		at, found, err := a.NextTrigger(h.now())
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		if found {
			resp.NextAt = &at
			resp.Scheduled = true
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	cal, err := a.ICalendar(h.now())
	if err != nil {
		h.writeError(w, http.StatusConflict, err)
		return
	}

	var buf bytes.Buffer
	f := bufio.NewWriter(&buf)
	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := f.Flush(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", ical.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.ID.String()+`.ics"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeScheduleError(w http.ResponseWriter, err error) {
	if errors.Is(err, alarm.ErrInvalidConfig) {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if errors.Is(err, alarm.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	h.writeError(w, http.StatusInternalServerError, err)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, alarm.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	h.writeError(w, http.StatusInternalServerError, err)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		h.logger.Error("http handler", logger.Err(err))
	}
	h.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("http encode", logger.Err(err))
	}
}
