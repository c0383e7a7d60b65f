package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/counseldesk/apiserver/internal/services"
	"github.com/counseldesk/apiserver/internal/storage"
	"github.com/counseldesk/apiserver/internal/store"
	"github.com/counseldesk/apiserver/types"
)

const (
	maxImageMemory = 16 << 20
	formFieldImage = "image"
)

// UserHandler provides HTTP handlers for the user directory and the
// approval workflow.
type UserHandler struct {
	userService     *services.UserService
	approvalService *services.ApprovalService
	uploads         *storage.Storage
}

// NewUserHandler constructs a handler with the provided dependencies.
func NewUserHandler(userService *services.UserService, approvalService *services.ApprovalService, uploads *storage.Storage) *UserHandler {
	return &UserHandler{
		userService:     userService,
		approvalService: approvalService,
		uploads:         uploads,
	}
}

// UserRouter registers user routes on the given router. All routes require
// authentication; role checks happen in the services.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	approvalService *services.ApprovalService,
	uploads *storage.Storage,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, approvalService, uploads)

	r.Use(authMiddleware)
	r.Get("/", handler.ListUsers)
	r.Get("/pending", handler.ListPending)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Get("/history", handler.StatusHistory)
		r.Post("/approve", handler.Approve)
		r.Post("/deny", handler.Deny)
		r.Put("/department", handler.UpdateDepartment)
		r.Get("/profile-image", handler.ServeProfileImage)
		r.Post("/profile-image", handler.UploadProfileImage)
		r.Get("/proof-image", handler.ServeProofImage)
		r.Post("/proof-image", handler.UploadProofImage)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListPending returns registrants awaiting a decision. Counselor-only.
func (h *UserHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !actor.IsApprovedCounselor() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	users, err := h.userService.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// StatusHistory returns the approval audit trail for a user. Counselor-only.
func (h *UserHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !actor.IsApprovedCounselor() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	entries, err := h.approvalService.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, types.StatusApproved)
}

func (h *UserHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, types.StatusDenied)
}

func (h *UserHandler) transition(w http.ResponseWriter, r *http.Request, newStatus string) {
	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.approvalService.Transition(r.Context(), id, newStatus, actor)
	if err != nil {
		writeServiceError(w, err, "failed to update status")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type departmentRequest struct {
	Department string `json:"department"`
}

func (h *UserHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.UpdateDepartment(r.Context(), id, req.Department, actor)
	if err != nil {
		writeServiceError(w, err, "failed to update department")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, store.ColumnProfileImage, "profile")
}

func (h *UserHandler) UploadProofImage(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, store.ColumnProofImage, "proof")
}

func (h *UserHandler) ServeProfileImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, store.ColumnProfileImage)
}

func (h *UserHandler) ServeProofImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, store.ColumnProofImage)
}

func (h *UserHandler) uploadImage(w http.ResponseWriter, r *http.Request, column, kind string) {
	if h.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	key := fmt.Sprintf("users/%d/%s/%s%s", id, kind, uuid.NewString(), filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if err := h.uploads.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, "only jpeg, png, or webp images are accepted")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	previous := imageKey(actor, column)
	if err := h.userService.AttachImage(r.Context(), id, column, key, actor); err != nil {
		writeServiceError(w, err, "failed to attach image")
		return
	}

	// The replaced object is orphaned once the new key is attached.
	if previous != "" {
		if err := h.uploads.Remove(r.Context(), previous); err != nil {
			log.Printf("failed to remove replaced image %q: %v", previous, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (h *UserHandler) serveImage(w http.ResponseWriter, r *http.Request, column string) {
	if h.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	id, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch user")
		return
	}
	key := imageKey(user, column)
	if key == "" {
		writeError(w, http.StatusNotFound, "no image uploaded")
		return
	}

	object, err := h.uploads.Open(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open image")
		return
	}
	defer object.Close()

	if _, err := io.Copy(w, object); err != nil {
		log.Printf("failed to stream image %q: %v", key, err)
	}
}

func imageKey(user types.User, column string) string {
	if column == store.ColumnProofImage {
		return user.ProofImageKey
	}
	return user.ProfileImageKey
}
