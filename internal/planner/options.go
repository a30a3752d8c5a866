package planner

import (
	"log"
	"time"

	"github.com/google/uuid"
)

type options struct {
	logger      *log.Logger
	now         func() time.Time
	newID       func() string
	transcriber Transcriber
}

// Option configures an Orchestrator or Pipeline.
type Option func(*options)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the clock used for "now" in prompts and date-only values.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithTranscriber enables audio submissions.
func WithTranscriber(t Transcriber) Option {
	return func(o *options) { o.transcriber = t }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: log.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
