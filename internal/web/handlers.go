package web

import (
	"database/sql"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/planner"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// UserHeader identifies the caller on every API request.
const UserHeader = "X-User-ID"

const (
	maxJSONBytes  = 1 << 20
	maxAudioBytes = 25 << 20
)

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	pipeline *planner.Pipeline
	version  string
}

// submitBody is the JSON body of POST /api/submit and POST /api/command.
type submitBody struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// snoozeBody is the JSON body of POST /api/tasks/{id}/snooze.
type snoozeBody struct {
	Until    string `json:"until"`
	Timezone string `json:"timezone,omitempty"`
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"model":   h.pipeline != nil,
	})
}

// HandleSubmit handles POST /api/submit: free text through the planner.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, planner.ModePlan)
}

// HandleCommand handles POST /api/command: one short command against existing tasks.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, planner.ModeCommand)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, mode planner.Mode) {
	var body submitBody
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}
	if h.pipeline == nil {
		renderError(w, errors.NewConfig("no language model configured (set GEMINI_API_KEY)"))
		return
	}
	user, err := h.user(r, body.Timezone)
	if err != nil {
		renderError(w, err)
		return
	}

	out, err := h.pipeline.Submit(r.Context(), planner.Submission{
		UserID:   user.ID,
		Email:    user.Email,
		Timezone: user.Timezone,
		Text:     body.Text,
		Mode:     mode,
		Source:   task.SourceText,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleTranscribe handles POST /api/transcribe. The audio arrives either as the
// "audio" field of a multipart form or as the raw request body. Without a mode
// query parameter only the transcript is returned; with mode=plan or
// mode=command the transcript is also submitted.
func (h *Handlers) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		renderError(w, errors.NewConfig("no language model configured (set GEMINI_API_KEY)"))
		return
	}

	audio, mimeType, err := readAudio(w, r)
	if err != nil {
		renderError(w, err)
		return
	}

	modeParam := r.URL.Query().Get("mode")
	if modeParam == "" {
		text, err := h.pipeline.Transcribe(r.Context(), audio, mimeType)
		if err != nil {
			renderError(w, err)
			return
		}
		renderJSON(w, http.StatusOK, map[string]any{"text": text})
		return
	}

	mode, ok := planner.ParseMode(modeParam)
	if !ok {
		renderError(w, errors.NewInvalidRequest("mode must be plan or command"))
		return
	}
	user, err := h.user(r, r.URL.Query().Get("timezone"))
	if err != nil {
		renderError(w, err)
		return
	}

	out, err := h.pipeline.SubmitAudio(r.Context(), planner.AudioSubmission{
		UserID:   user.ID,
		Email:    user.Email,
		Timezone: user.Timezone,
		Mode:     mode,
		Audio:    audio,
		MimeType: mimeType,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleList handles GET /api/tasks.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		UserID:           r.Header.Get(UserHeader),
		Status:           q.Get("status"),
		View:             q.Get("view"),
		IncludeCompleted: parseBoolParam(r, "include_completed"),
		IncludeDeleted:   parseBoolParam(r, "include_deleted"),
		Limit:            parseIntParam(r, "limit", 50),
		Offset:           parseIntParam(r, "offset", 0),
	}
	if input.View != "" {
		zone, err := h.zone(r, q.Get("timezone"))
		if err != nil {
			renderError(w, err)
			return
		}
		input.Now = zone.Now()
		input.Location = zone.Location()
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleShow handles GET /api/tasks/{id}.
func (h *Handlers) HandleShow(w http.ResponseWriter, r *http.Request) {
	t, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		UserID:         r.Header.Get(UserHeader),
		ID:             r.PathValue("id"),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, t)
}

// HandleComplete handles POST /api/tasks/{id}/complete.
func (h *Handlers) HandleComplete(w http.ResponseWriter, r *http.Request) {
	t, err := ops.Complete(r.Context(), h.db, ops.CompleteInput{
		UserID: r.Header.Get(UserHeader),
		ID:     r.PathValue("id"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, t)
}

// HandleSnooze handles POST /api/tasks/{id}/snooze.
func (h *Handlers) HandleSnooze(w http.ResponseWriter, r *http.Request) {
	var body snoozeBody
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}
	zone, err := h.zone(r, body.Timezone)
	if err != nil {
		renderError(w, err)
		return
	}
	until, err := zone.Stamp("until", &body.Until)
	if err != nil {
		renderError(w, err)
		return
	}

	t, err := ops.Snooze(r.Context(), h.db, ops.SnoozeInput{
		UserID: r.Header.Get(UserHeader),
		ID:     r.PathValue("id"),
		Until:  *until,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, t)
}

// HandleDelete handles DELETE /api/tasks/{id}: soft-delete a task.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{
		UserID: r.Header.Get(UserHeader),
		ID:     r.PathValue("id"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// user resolves the caller from the X-User-ID header.
func (h *Handlers) user(r *http.Request, zone string) (*task.User, error) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		return nil, errors.NewInvalidRequest(UserHeader + " header is required")
	}
	return ops.ResolveUser(r.Context(), h.db, id, zone, h.cfg.Timezone)
}

// zone returns the normalizer for the caller's effective timezone.
func (h *Handlers) zone(r *http.Request, override string) (*timezone.Normalizer, error) {
	u, err := h.user(r, override)
	if err != nil {
		return nil, err
	}
	return timezone.New(u.Timezone)
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// readAudio returns the uploaded audio and its MIME type.
func readAudio(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", errors.NewInvalidRequest("multipart field \"audio\" is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.NewInvalidRequest("failed to read audio: " + err.Error())
		}
		partType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
		return data, partType, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", errors.NewInvalidRequest("failed to read audio: " + err.Error())
	}
	return data, mediaType, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
