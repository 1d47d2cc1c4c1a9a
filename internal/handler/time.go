package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"timeflow/internal/config"
	"timeflow/internal/model"
	"timeflow/internal/service"
)

type TimeHandler struct {
	svc    *service.SessionService
	policy *config.Policy
}

func NewTimeHandler(svc *service.SessionService, pol *config.Policy) *TimeHandler {
	return &TimeHandler{svc: svc, policy: pol}
}

// TimeRequest is the body of the work/break mutation endpoints.
type TimeRequest struct {
	Employee string `json:"employee"`
	Type     string `json:"type,omitempty"` // break type, break/start only
}

func (h *TimeHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeRequest(w, r)
	if !ok {
		return
	}

	tl, err := h.svc.StartWork(r.Context(), req.Employee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, tl)
}

func (h *TimeHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeRequest(w, r)
	if !ok {
		return
	}

	tl, err := h.svc.StopWork(r.Context(), req.Employee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, tl)
}

func (h *TimeHandler) HandleBreakStart(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeRequest(w, r)
	if !ok {
		return
	}

	b, err := h.svc.StartBreak(r.Context(), req.Employee, model.BreakType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, b)
}

func (h *TimeHandler) HandleBreakStop(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeRequest(w, r)
	if !ok {
		return
	}

	b, err := h.svc.StopBreak(r.Context(), req.Employee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, b)
}

// HandleToday returns the live view of today's document. Read-only and
// side-effect free.
func (h *TimeHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee")
	if employee == "" {
		http.Error(w, "employee is required", http.StatusBadRequest)
		return
	}

	snap, err := h.svc.TodaySnapshot(r.Context(), employee, h.policy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

// RegisterRoutes registers all time-tracking routes on the given mux.
func (h *TimeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/time/start", h.HandleStart)
	mux.HandleFunc("POST /api/time/stop", h.HandleStop)
	mux.HandleFunc("POST /api/time/break/start", h.HandleBreakStart)
	mux.HandleFunc("POST /api/time/break/stop", h.HandleBreakStop)
	mux.HandleFunc("GET /api/time/today", h.HandleToday)
}

func decodeTimeRequest(w http.ResponseWriter, r *http.Request) (TimeRequest, bool) {
	var req TimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return req, false
	}
	if req.Employee == "" {
		http.Error(w, "employee is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR encoding response: %v", err)
	}
}

// writeError maps the service error taxonomy onto status codes:
// precondition conflicts are 409, other precondition violations 400, and
// anything else is treated as a transient failure the client may retry.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, service.ErrAlreadyRunning),
		errors.Is(err, service.ErrBreakAlreadyActive),
		errors.Is(err, service.ErrLeaveNotPending),
		errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotRunning),
		errors.Is(err, service.ErrBreakInProgress),
		errors.Is(err, service.ErrNoActiveBreak),
		errors.Is(err, service.ErrDayCompleted),
		errors.Is(err, service.ErrInvalidBreakType),
		errors.Is(err, service.ErrInvalidLeave):
		status = http.StatusBadRequest
	}
	if status == http.StatusServiceUnavailable {
		log.Printf("ERROR request failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
