package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/planner"
	"github.com/zealmehta21/nevermiss/internal/task"
)

type stubExtractor struct {
	plan    *intent.Intent
	command *intent.Intent
	texts   []string
}

func (e *stubExtractor) ExtractPlan(ctx context.Context, req intent.PlanRequest) (*intent.Intent, error) {
	e.texts = append(e.texts, req.Text)
	return e.plan, nil
}

func (e *stubExtractor) ExtractCommand(ctx context.Context, req intent.CommandRequest) (*intent.Intent, error) {
	e.texts = append(e.texts, req.Text)
	return e.command, nil
}

type stubTranscriber struct {
	text     string
	mimeType string
	audio    []byte
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	s.audio = audio
	s.mimeType = mimeType
	return s.text, nil
}

type testEnv struct {
	handler http.Handler
	h       *Handlers
	ex      *stubExtractor
	tr      *stubTranscriber
}

func setupTest(t *testing.T, withModel bool) *testEnv {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	env := &testEnv{ex: &stubExtractor{}, tr: &stubTranscriber{text: "buy milk"}}

	var pipeline *planner.Pipeline
	if withModel {
		pipeline = planner.NewPipeline(ops.NewStore(database), env.ex, nil,
			planner.WithLogger(log.New(io.Discard, "", 0)),
			planner.WithTranscriber(env.tr))
	}

	srv := NewServer(database, cfg, pipeline, "test", "127.0.0.1", 0)
	env.handler = srv.Handler
	env.h = &Handlers{db: database, cfg: cfg, pipeline: pipeline, version: "test"}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, user, title string) task.Task {
	t.Helper()
	created, err := ops.Create(context.Background(), e.h.db, ops.CreateInput{UserID: user, Title: title})
	if err != nil {
		t.Fatalf("seed %q: %v", title, err)
	}
	return *created
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeJSON(t, rec, &payload)
	return payload.Error.Code
}

func TestSecurityHeaders(t *testing.T) {
	env := setupTest(t, false)
	rec := env.do(t, "GET", "/api/health", "", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Content-Type":           "application/json",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestHandleSubmit(t *testing.T) {
	env := setupTest(t, true)
	env.ex.plan = &intent.Intent{
		ActionType: intent.ActionAddTasks,
		TasksToAdd: []intent.NewTask{{Title: "buy milk"}},
	}

	rec := env.do(t, "POST", "/api/submit", "u1", strings.NewReader(`{"text":"remember to buy milk"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out planner.Outcome
	decodeJSON(t, rec, &out)
	if len(out.Result.Created) != 1 || out.Result.Created[0].Title != "buy milk" {
		t.Errorf("created = %+v", out.Result.Created)
	}
	if !strings.HasPrefix(out.Summary, "Added 1 task") {
		t.Errorf("summary = %q", out.Summary)
	}
}

func TestHandleCommand(t *testing.T) {
	env := setupTest(t, true)
	target := env.seed(t, "u1", "water plants")
	env.ex.command = &intent.Intent{ActionType: intent.ActionCompleteTask, TasksToComplete: []string{target.ID}}

	rec := env.do(t, "POST", "/api/command", "u1", strings.NewReader(`{"text":"done with the plants"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out planner.Outcome
	decodeJSON(t, rec, &out)
	if len(out.Result.Completed) != 1 {
		t.Errorf("completed = %+v", out.Result.Completed)
	}
}

func TestHandleSubmit_Errors(t *testing.T) {
	tests := []struct {
		name      string
		withModel bool
		user      string
		body      string
		status    int
		code      string
	}{
		{name: "no model", withModel: false, user: "u1", body: `{"text":"hi"}`, status: 500, code: "CONFIG"},
		{name: "missing user header", withModel: true, body: `{"text":"hi"}`, status: 400, code: "INVALID_REQUEST"},
		{name: "empty body", withModel: true, user: "u1", body: ``, status: 400, code: "INVALID_REQUEST"},
		{name: "bad json", withModel: true, user: "u1", body: `{"text":`, status: 400, code: "INVALID_REQUEST"},
		{name: "blank text", withModel: true, user: "u1", body: `{"text":"  "}`, status: 400, code: "INVALID_REQUEST"},
		{name: "utc zone", withModel: true, user: "u1", body: `{"text":"hi","timezone":"UTC"}`, status: 400, code: "INVALID_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t, tt.withModel)
			rec := env.do(t, "POST", "/api/submit", tt.user, strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestHandleTranscribe_RawBody(t *testing.T) {
	env := setupTest(t, true)

	rec := env.do(t, "POST", "/api/transcribe", "u1", bytes.NewReader([]byte("RIFF....")), "audio/wav")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	decodeJSON(t, rec, &out)
	if out["text"] != "buy milk" {
		t.Errorf("text = %q", out["text"])
	}
	if env.tr.mimeType != "audio/wav" || string(env.tr.audio) != "RIFF...." {
		t.Errorf("transcriber got mime %q audio %q", env.tr.mimeType, env.tr.audio)
	}
	if len(env.ex.texts) != 0 {
		t.Errorf("transcribe without mode should not extract, got %v", env.ex.texts)
	}
}

func TestHandleTranscribe_MultipartSubmit(t *testing.T) {
	env := setupTest(t, true)
	env.ex.plan = &intent.Intent{
		ActionType: intent.ActionAddTasks,
		TasksToAdd: []intent.NewTask{{Title: "buy milk"}},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="audio"; filename="note.webm"`},
		"Content-Type":        {"audio/webm"},
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte("webm-bytes"))
	_ = mw.Close()

	rec := env.do(t, "POST", "/api/transcribe?mode=plan", "u1", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out planner.Outcome
	decodeJSON(t, rec, &out)
	if out.Text != "buy milk" || len(out.Result.Created) != 1 {
		t.Errorf("outcome = %+v", out)
	}
	if env.tr.mimeType != "audio/webm" {
		t.Errorf("mime = %q, want audio/webm", env.tr.mimeType)
	}

	transcripts, err := ops.ListTranscripts(context.Background(), env.h.db, ops.ListTranscriptsInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTranscripts: %v", err)
	}
	if len(transcripts.Items) != 1 || transcripts.Items[0].Source != task.SourceVoice {
		t.Errorf("transcripts = %+v", transcripts.Items)
	}
}

func TestHandleTranscribe_Errors(t *testing.T) {
	env := setupTest(t, true)

	rec := env.do(t, "POST", "/api/transcribe", "u1", strings.NewReader(""), "audio/wav")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty audio status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "POST", "/api/transcribe?mode=sing", "u1", strings.NewReader("x"), "audio/wav")
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("bad mode code = %q", code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no audio here")
	_ = mw.Close()
	rec = env.do(t, "POST", "/api/transcribe", "u1", &buf, mw.FormDataContentType())
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("missing field code = %q", code)
	}

	noModel := setupTest(t, false)
	rec = noModel.do(t, "POST", "/api/transcribe", "u1", strings.NewReader("x"), "audio/wav")
	if code := errorCode(t, rec); code != "CONFIG" {
		t.Errorf("no model code = %q", code)
	}
}

func TestHandleList(t *testing.T) {
	env := setupTest(t, false)
	env.seed(t, "u1", "alpha")
	env.seed(t, "u1", "beta")
	env.seed(t, "u2", "gamma")

	rec := env.do(t, "GET", "/api/tasks", "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out ops.ListOutput
	decodeJSON(t, rec, &out)
	if len(out.Items) != 2 {
		t.Errorf("items = %d, want 2", len(out.Items))
	}

	rec = env.do(t, "GET", "/api/tasks?view=today", "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("today status = %d, body = %s", rec.Code, rec.Body.String())
	}
	decodeJSON(t, rec, &out)
	if out.View != "today" || len(out.Items) != 2 {
		t.Errorf("today view = %q with %d items", out.View, len(out.Items))
	}

	rec = env.do(t, "GET", "/api/tasks?limit=abc", "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("invalid limit should fall back, status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/tasks", "", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user status = %d, want 400", rec.Code)
	}
}

func TestHandleTaskLifecycle(t *testing.T) {
	env := setupTest(t, false)
	a := env.seed(t, "u1", "laundry")
	b := env.seed(t, "u1", "dishes")

	rec := env.do(t, "GET", "/api/tasks/"+a.ID, "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("show status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/tasks/"+a.ID, "u2", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("other user show status = %d, want 404", rec.Code)
	}

	rec = env.do(t, "POST", "/api/tasks/"+a.ID+"/complete", "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var done task.Task
	decodeJSON(t, rec, &done)
	if done.Status != task.StatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}

	rec = env.do(t, "POST", "/api/tasks/"+b.ID+"/snooze", "u1",
		strings.NewReader(`{"until":"2025-07-02T08:00:00","timezone":"Europe/Berlin"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("snooze status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var snoozed task.Task
	decodeJSON(t, rec, &snoozed)
	if snoozed.SnoozeUntil == nil || *snoozed.SnoozeUntil != "2025-07-02T08:00:00+02:00" {
		t.Errorf("snooze_until = %v", snoozed.SnoozeUntil)
	}

	rec = env.do(t, "POST", "/api/tasks/"+b.ID+"/snooze", "u1", strings.NewReader(`{"until":"later"}`), "application/json")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unverified snooze status = %d, want 422", rec.Code)
	}

	rec = env.do(t, "DELETE", "/api/tasks/"+b.ID, "u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var deleted ops.DeleteOutput
	decodeJSON(t, rec, &deleted)
	if !deleted.Deleted || deleted.ID != b.ID {
		t.Errorf("delete output = %+v", deleted)
	}

	rec = env.do(t, "DELETE", "/api/tasks/"+b.ID, "u1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestRenderError_InternalHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	renderError(rec, io.ErrUnexpectedEOF)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "unexpected EOF") {
		t.Errorf("internal error text leaked: %s", rec.Body.String())
	}
	if code := errorCode(t, rec); code != "INTERNAL" {
		t.Errorf("code = %q, want INTERNAL", code)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
		{"limit=-1", -1},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/tasks?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"x=true", true},
		{"x=1", true},
		{"x=yes", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/tasks?"+tt.query, nil)
		if got := parseBoolParam(req, "x"); got != tt.want {
			t.Errorf("parseBoolParam(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
