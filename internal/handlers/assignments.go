package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/counseldesk/apiserver/internal/services"
)

// AssignmentHandler provides HTTP handlers for secretary assignments.
type AssignmentHandler struct {
	assignmentService *services.AssignmentService
	userService       *services.UserService
}

// NewAssignmentHandler constructs a handler with the provided dependencies.
func NewAssignmentHandler(assignmentService *services.AssignmentService, userService *services.UserService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		userService:       userService,
	}
}

// AssignmentRouter registers assignment routes on the given router.
func AssignmentRouter(
	r chi.Router,
	assignmentService *services.AssignmentService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAssignmentHandler(assignmentService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Assign)
	r.Delete("/{assignmentID}", handler.Unassign)
}

// List returns assignments filtered by counselor_id or secretary_id.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("counselor_id"); raw != "" {
		counselorID, err := strconv.Atoi(raw)
		if err != nil || counselorID < 1 {
			writeError(w, http.StatusBadRequest, "invalid counselor_id")
			return
		}
		assignments, err := h.assignmentService.ListForCounselor(r.Context(), counselorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list assignments")
			return
		}
		writeJSON(w, http.StatusOK, assignments)
		return
	}

	raw := r.URL.Query().Get("secretary_id")
	secretaryID, err := strconv.Atoi(raw)
	if err != nil || secretaryID < 1 {
		writeError(w, http.StatusBadRequest, "counselor_id or secretary_id is required")
		return
	}
	assignments, err := h.assignmentService.ListForSecretary(r.Context(), secretaryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

type assignRequest struct {
	CounselorID int `json:"counselor_id"`
	SecretaryID int `json:"secretary_id"`
}

// Assign links a secretary to a counselor. Director-only.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CounselorID < 1 || req.SecretaryID < 1 {
		writeError(w, http.StatusBadRequest, "counselor_id and secretary_id are required")
		return
	}

	assignment, err := h.assignmentService.Assign(r.Context(), req.CounselorID, req.SecretaryID, actor)
	if err != nil {
		writeServiceError(w, err, "failed to create assignment")
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

// Unassign removes an assignment by id. Director-only.
func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "assignmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.assignmentService.Unassign(r.Context(), id, actor); err != nil {
		writeServiceError(w, err, "failed to remove assignment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
