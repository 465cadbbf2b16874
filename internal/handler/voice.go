package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"intelligence/internal/httputil"
	"intelligence/internal/service/editor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer in front of the mux.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	voiceReadLimit    = 64 << 10
	voiceReadDeadline = 60 * time.Second
)

// VoiceHandler streams dictation into a conversation's composer. The client
// sends cumulative transcripts; only the unseen suffix lands in the document,
// so a re-sent prefix never duplicates text.
type VoiceHandler struct {
	sessions *editor.Manager
	logger   *slog.Logger
}

// NewVoiceHandler creates a new voice dictation handler
func NewVoiceHandler(sessions *editor.Manager, logger *slog.Logger) *VoiceHandler {
	return &VoiceHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// voiceFrame is one inbound websocket message.
type voiceFrame struct {
	Transcript string `json:"transcript"`
}

// voiceAck echoes the document state after each merged transcript.
type voiceAck struct {
	Merged     bool `json:"merged"`
	HasContent bool `json:"has_content"`
}

// Stream upgrades to a websocket and merges transcript frames until the
// client disconnects
// GET /api/conversations/{id}/voice
func (h *VoiceHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}
	if id == "new" {
		id = ""
	}
	key := editor.SessionKey(httputil.GetUserID(r), id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(voiceReadLimit)
	conn.SetReadDeadline(time.Now().Add(voiceReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(voiceReadDeadline))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("voice stream closed unexpectedly", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(voiceReadDeadline))

		var frame voiceFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			h.logger.Warn("dropping malformed voice frame", "error", err)
			continue
		}

		var ack voiceAck
		h.sessions.With(key, func(s *editor.Session) {
			s.MergeTranscript(frame.Transcript)
			ack = voiceAck{Merged: true, HasContent: s.HasContent()}
		})

		if err := conn.WriteJSON(ack); err != nil {
			return
		}
	}
}
