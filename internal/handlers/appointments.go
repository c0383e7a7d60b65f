package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/counseldesk/apiserver/internal/services"
	"github.com/counseldesk/apiserver/types"
)

// AppointmentHandler provides HTTP handlers for appointment scheduling.
type AppointmentHandler struct {
	appointmentService *services.AppointmentService
	userService        *services.UserService
}

// NewAppointmentHandler constructs a handler with the provided dependencies.
func NewAppointmentHandler(appointmentService *services.AppointmentService, userService *services.UserService) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
		userService:        userService,
	}
}

// AppointmentRouter registers appointment routes on the given router.
func AppointmentRouter(
	r chi.Router,
	appointmentService *services.AppointmentService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAppointmentHandler(appointmentService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListMine)
	r.Post("/", handler.Schedule)
	r.Route("/{appointmentID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Post("/cancel", handler.Cancel)
		r.Post("/reschedule", handler.Reschedule)
		r.Post("/complete", handler.Complete)
	})
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointments, err := h.appointmentService.ListForUser(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "appointmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appointment, err := h.appointmentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch appointment")
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

type scheduleRequest struct {
	CounselorID int       `json:"counselor_id"`
	Kind        string    `json:"kind"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Reason      string    `json:"reason"`
	AttendeeIDs []int     `json:"attendee_ids"`
}

func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	appointment, err := h.appointmentService.Schedule(r.Context(), types.Appointment{
		CounselorID: req.CounselorID,
		Kind:        req.Kind,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Reason:      req.Reason,
		AttendeeIDs: req.AttendeeIDs,
	}, actor)
	if err != nil {
		writeServiceError(w, err, "failed to schedule appointment")
		return
	}
	writeJSON(w, http.StatusCreated, appointment)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "appointmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointment, err := h.appointmentService.Cancel(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err, "failed to cancel appointment")
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

type rescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "appointmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	appointment, err := h.appointmentService.Reschedule(r.Context(), id, req.StartsAt, req.EndsAt, actor)
	if err != nil {
		writeServiceError(w, err, "failed to reschedule appointment")
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "appointmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointment, err := h.appointmentService.Complete(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err, "failed to complete appointment")
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}
