package handler

import (
	"log/slog"
	"net/http"
	"time"

	domainchat "intelligence/internal/domain/services/chat"
	"intelligence/internal/httputil"
)

// ConversationHandler handles conversation HTTP requests.
// Handlers only talk to services, never repositories.
type ConversationHandler struct {
	conversations domainchat.ConversationService
	logger        *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations domainchat.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        logger,
	}
}

// Create starts a new empty conversation and selects it
// POST /api/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	conv, err := h.conversations.Create(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// List returns the user's conversations, newest first. With ?q= the listing
// filters by case-insensitive title substring.
// GET /api/conversations[?q=...]
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var err error
	if query := r.URL.Query().Get("q"); query != "" {
		convs, searchErr := h.conversations.Search(r.Context(), userID, query)
		if searchErr == nil {
			httputil.RespondJSON(w, http.StatusOK, convs)
			return
		}
		err = searchErr
	} else {
		convs, listErr := h.conversations.List(r.Context(), userID)
		if listErr == nil {
			httputil.RespondJSON(w, http.StatusOK, convs)
			return
		}
		err = listErr
	}
	handleError(w, err)
}

// Grouped returns the sidebar listing bucketed by recency
// GET /api/conversations/grouped
func (h *ConversationHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	groups, err := h.conversations.Grouped(r.Context(), userID, time.Now())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, groups)
}

// Get retrieves a single conversation with its message log
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	conv, err := h.conversations.Get(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// Rename updates a conversation's title
// PATCH /api/conversations/{id}
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	var req struct {
		Title string `json:"title"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.conversations.Rename(r.Context(), userID, id, req.Title); err != nil {
		handleError(w, err)
		return
	}

	conv, err := h.conversations.Get(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// Delete removes a conversation; selection falls back to the next one
// DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.conversations.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	selected, _ := h.conversations.Selected(userID)
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"selected_id": selected,
	})
}

// Select switches the active conversation, clearing the composer
// POST /api/conversations/{id}/select
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.conversations.Select(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Send submits the composer draft. The conversation id "new" addresses the
// new-chat composer; a conversation is created on the fly.
// POST /api/conversations/{id}/messages
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}
	if id == "new" {
		id = ""
	}

	userID := httputil.GetUserID(r)
	result, err := h.conversations.Send(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.RespondJSON(w, status, result)
}

// Stop cancels the in-flight generation and settles the placeholder
// POST /api/conversations/{id}/stop
func (h *ConversationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.conversations.Stop(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
