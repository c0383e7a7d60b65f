package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/counseldesk/apiserver/internal/services"
)

// ConversationHandler provides HTTP handlers for internal messaging.
type ConversationHandler struct {
	messagingService *services.MessagingService
	userService      *services.UserService
}

// NewConversationHandler constructs a handler with the provided dependencies.
func NewConversationHandler(messagingService *services.MessagingService, userService *services.UserService) *ConversationHandler {
	return &ConversationHandler{
		messagingService: messagingService,
		userService:      userService,
	}
}

// ConversationRouter registers messaging routes on the given router.
func ConversationRouter(
	r chi.Router,
	messagingService *services.MessagingService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewConversationHandler(messagingService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListConversations)
	r.Post("/", handler.StartConversation)
	r.Route("/{conversationID}", func(r chi.Router) {
		r.Get("/messages", handler.ListMessages)
		r.Post("/messages", handler.SendMessage)
	})
}

func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversations, err := h.messagingService.ListConversations(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

type startConversationRequest struct {
	MemberIDs []int  `json:"member_ids"`
	Topic     string `json:"topic"`
}

func (h *ConversationHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req startConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	conversation, err := h.messagingService.StartConversation(r.Context(), actor, req.MemberIDs, req.Topic)
	if err != nil {
		writeServiceError(w, err, "failed to start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "conversationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messages, err := h.messagingService.ListMessages(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "conversationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := currentUser(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	message, err := h.messagingService.SendMessage(r.Context(), id, actor, req.Content)
	if err != nil {
		writeServiceError(w, err, "failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, message)
}
