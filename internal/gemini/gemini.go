// Package gemini is the language-model and speech-to-text collaborator,
// backed by the Generative Language API.
package gemini

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// Default model names.
const (
	DefaultModel           = "models/gemini-flash-latest"
	DefaultTranscribeModel = "models/gemini-2.5-flash"
	DefaultTimeout         = 30 * time.Second
)

const transcribeInstruction = "Please transcribe this audio file word for word. " +
	"Return only the transcribed text, nothing else. Do not add any explanations or formatting."

// Options configures a Client.
type Options struct {
	APIKey          string
	Model           string        // planner model; default DefaultModel
	TranscribeModel string        // speech-to-text model; default DefaultTranscribeModel
	Timeout         time.Duration // per call; default DefaultTimeout

	// ClientOptions are appended after the API key (endpoint or HTTP client overrides).
	ClientOptions []option.ClientOption
}

// Client calls Gemini models. It is safe for concurrent use.
type Client struct {
	svc             *generativelanguage.Service
	model           string
	transcribeModel string
	timeout         time.Duration
}

// New creates a Client. A missing API key is a CONFIG error.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" && len(opts.ClientOptions) == 0 {
		return nil, errors.NewConfig("gemini api key is required (set GEMINI_API_KEY or gemini_api_key)")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.NewConfig("unable to create gemini client: " + err.Error())
	}

	c := &Client{
		svc:             svc,
		model:           modelName(opts.Model, DefaultModel),
		transcribeModel: modelName(opts.TranscribeModel, DefaultTranscribeModel),
		timeout:         opts.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

// Generate sends one prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
	}
	return c.generate(ctx, c.model, req)
}

// Transcribe returns the words spoken in audio.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.NewInvalidRequest("audio is required")
	}
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role: "user",
			Parts: []*generativelanguage.Part{
				{Text: transcribeInstruction},
				{InlineData: &generativelanguage.Blob{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}
	text, err := c.generate(ctx, c.transcribeModel, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generate(ctx context.Context, model string, req *generativelanguage.GenerateContentRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Models.GenerateContent(model, req).Context(ctx).Do()
	if err != nil {
		return "", errors.NewUpstream("gemini request failed", err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.NewUpstream("gemini returned an empty response", nil)
	}
	return text, nil
}

// responseText joins the text parts of the first candidate that has any.
func responseText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// modelName applies the default and the "models/" resource prefix.
func modelName(name, def string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = def
	}
	if !strings.HasPrefix(name, "models/") && !strings.HasPrefix(name, "tunedModels/") {
		name = "models/" + name
	}
	return name
}
