package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/counseldesk/apiserver/internal/services"
)

// NotificationHandler provides HTTP handlers for notification broadcasts.
type NotificationHandler struct {
	notificationService *services.NotificationService
	userService         *services.UserService
}

// NewNotificationHandler constructs a handler with the provided dependencies.
func NewNotificationHandler(notificationService *services.NotificationService, userService *services.UserService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		userService:         userService,
	}
}

// NotificationRouter registers notification routes on the given router.
func NotificationRouter(
	r chi.Router,
	notificationService *services.NotificationService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewNotificationHandler(notificationService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListGrouped)
	r.Get("/mine", handler.ListMine)
	r.Post("/", handler.Compose)
	r.Delete("/{notificationID}", handler.DeleteDraft)
}

// ListGrouped returns logical notifications reconstructed from fan-out rows.
func (h *NotificationHandler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	groups, err := h.notificationService.ListGrouped(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// ListMine returns the rows addressed to the authenticated user.
func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.notificationService.ListForRecipient(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type composeRequest struct {
	Content     string `json:"content"`
	TargetGroup string `json:"target_group"`
	Status      string `json:"status"`
}

// Compose creates a broadcast, drafted or sent. Director-only.
func (h *NotificationHandler) Compose(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req composeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	group, err := h.notificationService.Compose(r.Context(), req.Content, req.TargetGroup, req.Status, actor)
	if err != nil {
		writeServiceError(w, err, "failed to compose notification")
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// DeleteDraft removes a single draft row.
func (h *NotificationHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.notificationService.DeleteDraft(r.Context(), id, actor); err != nil {
		writeServiceError(w, err, "failed to delete draft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
