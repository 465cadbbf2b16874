package handler

import (
	"log/slog"
	"net/http"

	"intelligence/internal/google"
	"intelligence/internal/httputil"
	"intelligence/internal/service/editor"
)

// accessTokenHeader carries the user's Google OAuth access token for People
// and Gmail calls. It is separate from the ID token in Authorization.
const accessTokenHeader = "X-Google-Access-Token"

// GoogleHandler exposes the user's address book and email sending.
type GoogleHandler struct {
	contacts *google.ContactsClient
	sender   *google.EmailSender
	logger   *slog.Logger
}

// NewGoogleHandler creates a new Google integration handler
func NewGoogleHandler(contacts *google.ContactsClient, sender *google.EmailSender, logger *slog.Logger) *GoogleHandler {
	return &GoogleHandler{
		contacts: contacts,
		sender:   sender,
		logger:   logger,
	}
}

// Contacts lists the user's contacts, one entry per email address. With ?q=
// the listing filters by the mention picker's matching rule.
// GET /api/contacts[?q=...]
func (h *GoogleHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get(accessTokenHeader)
	if accessToken == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "missing Google access token")
		return
	}

	contacts, err := h.contacts.List(r.Context(), accessToken)
	if err != nil {
		h.logger.Error("contacts fetch failed", "error", err)
		handleError(w, err)
		return
	}

	if query := r.URL.Query().Get("q"); query != "" {
		contacts = editor.FilterContacts(contacts, query)
	}
	httputil.RespondJSON(w, http.StatusOK, contacts)
}

// SendEmail sends a plain-text email through the user's Gmail account
// POST /api/send-email
func (h *GoogleHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get(accessTokenHeader)
	if accessToken == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "missing Google access token")
		return
	}

	var req google.EmailRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, err)
		return
	}

	if err := h.sender.Send(r.Context(), accessToken, req); err != nil {
		h.logger.Error("email send failed", "error", err, "to", req.To)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
