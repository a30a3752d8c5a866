package planner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// Extractor reads text into an Intent.
type Extractor interface {
	ExtractPlan(ctx context.Context, req intent.PlanRequest) (*intent.Intent, error)
	ExtractCommand(ctx context.Context, req intent.CommandRequest) (*intent.Intent, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Store is the TaskStore plus transcript persistence.
type Store interface {
	TaskStore
	SaveTranscript(ctx context.Context, in ops.SaveTranscriptInput) (*task.Transcript, error)
}

// Mode selects which extraction a submission goes through.
type Mode string

const (
	ModePlan    Mode = "plan"    // free text: brain dumps, multi-task plans
	ModeCommand Mode = "command" // one short voice command against existing tasks
)

// ParseMode maps input to a Mode. Empty means plan.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePlan:
		return ModePlan, true
	case ModeCommand:
		return ModeCommand, true
	}
	return "", false
}

// Submission is one piece of user input.
type Submission struct {
	UserID   string
	Email    string
	Timezone string
	Text     string
	Mode     Mode
	Source   task.TranscriptSource
}

// AudioSubmission is a recorded submission that is transcribed first.
type AudioSubmission struct {
	UserID   string
	Email    string
	Timezone string
	Mode     Mode
	Audio    []byte
	MimeType string
}

// Outcome is what a submission produced.
type Outcome struct {
	RequestID    string         `json:"request_id"`
	TranscriptID string         `json:"transcript_id"`
	Text         string         `json:"text"`
	Intent       *intent.Intent `json:"intent"`
	Result       *Result        `json:"result"`
	Summary      string         `json:"summary"`
}

// Pipeline runs one submission end to end: save the transcript, read a fresh
// snapshot, extract an Intent, and apply it.
type Pipeline struct {
	store       Store
	extractor   Extractor
	transcriber Transcriber
	orch        *Orchestrator
	logger      *log.Logger
	now         func() time.Time
	newID       func() string
}

// NewPipeline wires a Pipeline. notifier may be nil.
func NewPipeline(store Store, extractor Extractor, notifier Notifier, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return &Pipeline{
		store:       store,
		extractor:   extractor,
		transcriber: o.transcriber,
		orch:        &Orchestrator{store: store, notifier: notifier, logger: o.logger},
		logger:      o.logger,
		now:         o.now,
		newID:       o.newID,
	}
}

// Submit runs a text submission. An extraction failure returns an UPSTREAM
// error; the transcript has already been saved so the user can retry.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return nil, errors.NewInvalidRequest("user_id is required")
	}
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	mode, ok := ParseMode(string(sub.Mode))
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("mode must be one of: plan, command (got %q)", sub.Mode))
	}
	zone, err := timezone.New(sub.Timezone, timezone.WithClock(p.now))
	if err != nil {
		return nil, err
	}

	requestID := p.newID()
	p.logger.Printf("[%s] %s submission from user %s (%s)", requestID, mode, sub.UserID, zone.Zone())

	tr, err := p.store.SaveTranscript(ctx, ops.SaveTranscriptInput{UserID: sub.UserID, Text: text, Source: sub.Source})
	if err != nil {
		return nil, err
	}

	snapshot, err := p.store.Active(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}

	var in *intent.Intent
	switch mode {
	case ModeCommand:
		in, err = p.extractor.ExtractCommand(ctx, intent.CommandRequest{Text: text, Tasks: snapshot, Now: zone.Now(), Zone: zone.Zone()})
	default:
		in, err = p.extractor.ExtractPlan(ctx, intent.PlanRequest{Text: text, Tasks: snapshot, Now: zone.Now(), Zone: zone.Zone()})
	}
	if err != nil {
		p.logger.Printf("[%s] extraction failed: %v", requestID, err)
		return nil, err
	}

	res, err := p.orch.Apply(ctx, Session{RequestID: requestID, UserID: sub.UserID, Email: sub.Email, Zone: zone}, in, snapshot)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("[%s] %s: created=%d updated=%d completed=%d unresolved=%d errors=%d",
		requestID, in.ActionType, len(res.Created), len(res.Updated), len(res.Completed), len(res.Unresolved), len(res.Errors))

	return &Outcome{
		RequestID:    requestID,
		TranscriptID: tr.ID,
		Text:         text,
		Intent:       in,
		Result:       res,
		Summary:      res.Summary(),
	}, nil
}

// SubmitAudio transcribes a recording and submits the text as a voice submission.
func (p *Pipeline) SubmitAudio(ctx context.Context, sub AudioSubmission) (*Outcome, error) {
	text, err := p.Transcribe(ctx, sub.Audio, sub.MimeType)
	if err != nil {
		return nil, err
	}
	return p.Submit(ctx, Submission{
		UserID:   sub.UserID,
		Email:    sub.Email,
		Timezone: sub.Timezone,
		Text:     text,
		Mode:     sub.Mode,
		Source:   task.SourceVoice,
	})
}

// Transcribe converts audio to text without submitting it.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if p.transcriber == nil {
		return "", errors.NewConfig("speech-to-text is not configured")
	}
	if len(audio) == 0 {
		return "", errors.NewInvalidRequest("audio is required")
	}
	if strings.TrimSpace(mimeType) == "" {
		return "", errors.NewInvalidRequest("mime_type is required")
	}

	text, err := p.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, errors.ErrUpstream) {
			return "", err
		}
		return "", errors.NewUpstream("transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewUpstream("transcription returned no text", nil)
	}
	return text, nil
}
