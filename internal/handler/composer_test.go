package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intelligence/internal/config"
	"intelligence/internal/httputil"
	"intelligence/internal/service/editor"
)

func serveComposer(h *ComposerHandler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations/{id}/composer", h.State)
	mux.HandleFunc("POST /api/conversations/{id}/composer/commands", h.Command)
	mux.HandleFunc("POST /api/conversations/{id}/composer/ingest", h.Ingest)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httputil.WithUserID(req, "user-1"))
	return rec
}

func TestComposerState_StartsEmpty(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/new/composer", nil)
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_content":false`)
}

func TestComposerCommand_InsertText(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"insert_text","text":"hello"}`))
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hello")
	assert.Contains(t, body, `"has_content":true`)
}

func TestComposerCommand_ToggleMarkReportsActive(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"toggle_mark","mark":"bold"}`))
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_marks":["bold"]`)
}

func TestComposerCommand_EnterSubmits(t *testing.T) {
	svc := newFakeService()
	h := NewComposerHandler(editor.NewManager(), svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"insert_text","text":"hi"}`))
	rec := serveComposer(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"key","key":"Enter"}`))
	rec = serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result"`)
}

func TestComposerCommand_EnterOnEmptyDraftIsNoSubmit(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"key","key":"Enter"}`))
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"result"`)
}

func TestComposerCommand_MentionPickerLifecycle(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	for _, body := range []string{
		`{"type":"key","key":"@"}`,
		`{"type":"key","key":"a"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
			strings.NewReader(body))
		rec := serveComposer(h, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"choose_mention","contact":{"name":"Ann Chen","email":"ann@example.com"}}`))
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ann Chen")
	assert.Contains(t, body, `"open":false`)
}

func TestComposerCommand_Unknown(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"frobnicate"}`))
	rec := serveComposer(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposerCommand_AttachRejectsOversizedName(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	name := strings.Repeat("n", config.MaxAttachmentNameLength+1)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/commands",
		strings.NewReader(`{"type":"attach","file":{"name":"`+name+`","mime_type":"text/plain"}}`))
	rec := serveComposer(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposerIngest_RejectsOversizedFilename(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	name := strings.Repeat("n", config.MaxAttachmentNameLength+1) + ".md"
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/ingest",
		strings.NewReader(`{"filename":"`+name+`","mime_type":"text/markdown","content":"hi"}`))
	rec := serveComposer(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposerIngest_LoadsConvertedContent(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/ingest",
		strings.NewReader(`{"filename":"notes.md","mime_type":"text/markdown","content":"**important** plans"}`))
	rec := serveComposer(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "important")
	assert.Contains(t, body, "notes.md")
	assert.Contains(t, body, `"has_content":true`)
}

func TestComposerIngest_UnsupportedExtension(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/new/composer/ingest",
		strings.NewReader(`{"filename":"photo.png","mime_type":"image/png","content":"xxxx"}`))
	rec := serveComposer(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposerSessions_IsolatedPerConversation(t *testing.T) {
	h := NewComposerHandler(editor.NewManager(), newFakeService(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/a/composer/commands",
		strings.NewReader(`{"type":"insert_text","text":"draft for a"}`))
	rec := serveComposer(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/conversations/b/composer", nil)
	rec = serveComposer(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "draft for a")
}
