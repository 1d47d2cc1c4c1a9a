package handler

import (
	"encoding/json"
	"net/http"

	"timeflow/internal/service"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
}

func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// LeaveRequest is the body of the request-leave endpoint.
type LeaveRequest struct {
	Employee      string `json:"employee"`
	LeaveType     string `json:"leaveType"`
	LeaveTimeSlot string `json:"leaveTimeSlot"`
	Notes         string `json:"notes,omitempty"`
}

// LeaveDecision is the body of the approve/reject endpoints.
type LeaveDecision struct {
	Employee string `json:"employee"`
	Date     string `json:"date"` // YYYY-MM-DD
}

// HandleToday returns the attendance verdict for (employee, today).
func (h *AttendanceHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee")
	if employee == "" {
		http.Error(w, "employee is required", http.StatusBadRequest)
		return
	}

	verdict, err := h.svc.Today(r.Context(), employee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, verdict)
}

// HandleMarkPresent records the manual present override.
func (h *AttendanceHandler) HandleMarkPresent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Employee string `json:"employee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Employee == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkPresent(r.Context(), req.Employee); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Attendance marked as present"})
}

// HandleRequestLeave files a pending leave request for today.
func (h *AttendanceHandler) HandleRequestLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Employee == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.svc.RequestLeave(r.Context(), req.Employee, req.LeaveType, req.LeaveTimeSlot, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Leave request submitted"})
}

func (h *AttendanceHandler) HandleApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.resolveLeave(w, r, true)
}

func (h *AttendanceHandler) HandleRejectLeave(w http.ResponseWriter, r *http.Request) {
	h.resolveLeave(w, r, false)
}

func (h *AttendanceHandler) resolveLeave(w http.ResponseWriter, r *http.Request, approve bool) {
	var req LeaveDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Employee == "" || req.Date == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.svc.ResolveLeave(r.Context(), req.Employee, req.Date, approve); err != nil {
		writeError(w, err)
		return
	}
	status := "rejected"
	if approve {
		status = "approved"
	}
	writeJSON(w, map[string]string{"message": "Leave request " + status})
}

// RegisterRoutes registers all attendance routes on the given mux.
func (h *AttendanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/attendance/today", h.HandleToday)
	mux.HandleFunc("POST /api/attendance/mark-present", h.HandleMarkPresent)
	mux.HandleFunc("POST /api/attendance/request-leave", h.HandleRequestLeave)
	mux.HandleFunc("POST /api/attendance/leave/approve", h.HandleApproveLeave)
	mux.HandleFunc("POST /api/attendance/leave/reject", h.HandleRejectLeave)
}
