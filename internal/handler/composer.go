package handler

import (
	"log/slog"
	"net/http"

	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
	domainchat "intelligence/internal/domain/services/chat"
	"intelligence/internal/httputil"
	"intelligence/internal/service/editor"
	"intelligence/internal/service/markdown"
)

// ComposerHandler drives a conversation's composer session: the browser shell
// forwards key events and toolbar commands, the session owns the document.
type ComposerHandler struct {
	sessions      *editor.Manager
	conversations domainchat.ConversationService
	converters    *markdown.ConverterRegistry
	logger        *slog.Logger
}

// NewComposerHandler creates a new composer handler
func NewComposerHandler(sessions *editor.Manager, conversations domainchat.ConversationService, logger *slog.Logger) *ComposerHandler {
	return &ComposerHandler{
		sessions:      sessions,
		conversations: conversations,
		converters:    markdown.NewConverterRegistry(),
		logger:        logger,
	}
}

// ComposerState is the composer snapshot returned after every command.
type ComposerState struct {
	Document     richtext.Document        `json:"document"`
	Selection    richtext.Selection       `json:"selection"`
	ActiveMarks  []string                 `json:"active_marks"`
	AttachedFile *chatModels.AttachedFile `json:"attached_file,omitempty"`
	HasContent   bool                     `json:"has_content"`
	Picker       PickerView               `json:"picker"`
}

// PickerView reports whether the mention picker is open and what the user has
// typed after the trigger.
type PickerView struct {
	Open  bool   `json:"open"`
	Query string `json:"query,omitempty"`
}

// ComposerCommand is one command against the session. Type selects the
// operation; the other fields apply per type.
type ComposerCommand struct {
	Type string `json:"type"`

	// type "key"
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`

	// types "toggle_mark", "toggle_block", "set_alignment"
	Mark      string `json:"mark,omitempty"`
	Block     string `json:"block,omitempty"`
	Alignment string `json:"alignment,omitempty"`

	// types "insert_text"
	Text string `json:"text,omitempty"`

	// type "select"
	Selection *richtext.Selection `json:"selection,omitempty"`

	// type "set_document"
	Document *richtext.Document `json:"document,omitempty"`

	// type "choose_mention"
	Contact *chatModels.Contact `json:"contact,omitempty"`

	// type "attach"
	File *chatModels.AttachedFile `json:"file,omitempty"`
}

// State returns the current composer snapshot
// GET /api/conversations/{id}/composer
func (h *ComposerHandler) State(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	state := h.withSession(r, id, func(s *editor.Session) {})
	httputil.RespondJSON(w, http.StatusOK, state)
}

// Command applies one composer command and returns the new snapshot. An Enter
// that gates through to submit also runs Send and includes its result.
// POST /api/conversations/{id}/composer/commands
func (h *ComposerHandler) Command(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	var cmd ComposerCommand
	if err := httputil.ParseJSON(w, r, &cmd); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if cmd.Type == "attach" && cmd.File != nil {
		if err := cmd.File.Validate(); err != nil {
			handleError(w, err)
			return
		}
	}

	var (
		action     editor.Action
		badCommand bool
	)
	state := h.withSession(r, id, func(s *editor.Session) {
		action = h.apply(s, cmd, &badCommand)
	})
	if badCommand {
		httputil.RespondError(w, http.StatusBadRequest, "unknown composer command: "+cmd.Type)
		return
	}

	// Submit runs outside the session lock; Send re-enters the session to
	// take the document.
	if action == editor.ActionSubmit {
		conversationID := id
		if conversationID == "new" {
			conversationID = ""
		}
		result, err := h.conversations.Send(r.Context(), httputil.GetUserID(r), conversationID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]any{
			"state":  h.withSession(r, id, func(*editor.Session) {}),
			"result": result,
		})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, state)
}

// Ingest converts uploaded content (HTML, Markdown, plain text) into a
// document and loads it into the composer, attaching the file by reference.
// POST /api/conversations/{id}/composer/ingest
func (h *ComposerHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	var req struct {
		Filename string `json:"filename"`
		MIMEType string `json:"mime_type"`
		Content  string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	file := chatModels.AttachedFile{Name: req.Filename, MIMEType: req.MIMEType}
	if err := file.Validate(); err != nil {
		handleError(w, err)
		return
	}

	doc, err := h.converters.ToDocument(r.Context(), req.Filename, []byte(req.Content))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := h.withSession(r, id, func(s *editor.Session) {
		s.SetDocument(doc)
		s.Attach(file)
	})
	httputil.RespondJSON(w, http.StatusOK, state)
}

func (h *ComposerHandler) apply(s *editor.Session, cmd ComposerCommand, bad *bool) editor.Action {
	switch cmd.Type {
	case "key":
		return s.HandleKey(editor.KeyEvent{
			Key:   cmd.Key,
			Ctrl:  cmd.Ctrl,
			Meta:  cmd.Meta,
			Shift: cmd.Shift,
		})
	case "insert_text":
		s.InsertText(cmd.Text)
	case "toggle_mark":
		s.ToggleMark(cmd.Mark)
	case "toggle_block":
		s.ToggleBlock(cmd.Block)
	case "set_alignment":
		s.SetAlignment(richtext.Alignment(cmd.Alignment))
	case "select":
		if cmd.Selection != nil {
			s.Select(*cmd.Selection)
		}
	case "set_document":
		if cmd.Document != nil {
			s.SetDocument(*cmd.Document)
		}
	case "open_picker":
		s.OpenMentionPicker()
	case "choose_mention":
		if cmd.Contact != nil {
			s.ChooseMention(*cmd.Contact)
		}
	case "dismiss_picker":
		s.DismissMentionPicker()
	case "attach":
		if cmd.File != nil {
			s.Attach(*cmd.File)
		}
	case "remove_attachment":
		s.RemoveAttachment()
	default:
		*bad = true
	}
	return editor.ActionNone
}

// withSession runs fn on the addressed session and snapshots it before the
// lock is released.
func (h *ComposerHandler) withSession(r *http.Request, conversationID string, fn func(*editor.Session)) ComposerState {
	if conversationID == "new" {
		conversationID = ""
	}
	key := editor.SessionKey(httputil.GetUserID(r), conversationID)

	var state ComposerState
	h.sessions.With(key, func(s *editor.Session) {
		fn(s)
		state = snapshot(s)
	})
	return state
}

func snapshot(s *editor.Session) ComposerState {
	var active []string
	for _, mark := range []string{
		richtext.MarkBold,
		richtext.MarkItalic,
		richtext.MarkUnderline,
		richtext.MarkStrikethrough,
	} {
		if s.IsMarkActive(mark) {
			active = append(active, mark)
		}
	}

	query, open := s.MentionQuery()
	return ComposerState{
		Document:     s.Document,
		Selection:    s.Selection,
		ActiveMarks:  active,
		AttachedFile: s.AttachedFile(),
		HasContent:   s.HasContent(),
		Picker:       PickerView{Open: open, Query: query},
	}
}
