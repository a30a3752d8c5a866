package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	nmerrors "github.com/zealmehta21/nevermiss/internal/errors"
)

// Environment variables that override file values. Secrets normally live here.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvTimezone     = "NEVERMISS_TIMEZONE"
	EnvEmailFrom    = "NEVERMISS_EMAIL_FROM"
)

// Config holds application configuration.
type Config struct {
	// Timezone is the IANA zone used when a user has none recorded.
	// Universal-time tokens ("UTC", "Z", ...) are rejected by the normalizer.
	Timezone string `json:"timezone"`

	// GeminiAPIKey authenticates the language model and transcription calls.
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	// PlannerModel is the model used for intent extraction.
	PlannerModel string `json:"planner_model"`

	// TranscribeModel is the model used for speech-to-text.
	TranscribeModel string `json:"transcribe_model"`

	// LLMTimeoutSeconds bounds every language model request.
	LLMTimeoutSeconds int `json:"llm_timeout_seconds"`

	// Email configures the Gmail notification collaborator.
	Email EmailConfig `json:"email"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// HTTPBind and HTTPPort control the JSON API listener.
	HTTPBind string `json:"http_bind"`
	HTTPPort int    `json:"http_port"`
}

// EmailConfig holds Gmail API settings. Relative paths resolve against the base dir.
type EmailConfig struct {
	Enabled         bool   `json:"enabled,omitempty"`
	From            string `json:"from,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`
	TokenFile       string `json:"token_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:          "America/Los_Angeles",
		PlannerModel:      "models/gemini-flash-latest",
		TranscribeModel:   "models/gemini-2.5-flash",
		LLMTimeoutSeconds: 30,
		Email: EmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		HTTPBind: "127.0.0.1",
		HTTPPort: 8484,
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.nevermiss.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	cfg.Email.CredentialsFile = resolvePath(baseDir, cfg.Email.CredentialsFile)
	cfg.Email.TokenFile = resolvePath(baseDir, cfg.Email.TokenFile)
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// applyEnv overlays non-empty environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimezone)); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEmailFrom)); v != "" {
		cfg.Email.From = v
	}
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Timezone = firstString(overlay.Timezone, base.Timezone)
	result.GeminiAPIKey = firstString(overlay.GeminiAPIKey, base.GeminiAPIKey)
	result.PlannerModel = firstString(overlay.PlannerModel, base.PlannerModel)
	result.TranscribeModel = firstString(overlay.TranscribeModel, base.TranscribeModel)
	result.HTTPBind = firstString(overlay.HTTPBind, base.HTTPBind)

	result.LLMTimeoutSeconds = firstInt(overlay.LLMTimeoutSeconds, base.LLMTimeoutSeconds)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.HTTPPort = firstInt(overlay.HTTPPort, base.HTTPPort)

	result.Email = EmailConfig{
		Enabled:         base.Email.Enabled || overlay.Email.Enabled,
		From:            firstString(overlay.Email.From, base.Email.From),
		CredentialsFile: firstString(overlay.Email.CredentialsFile, base.Email.CredentialsFile),
		TokenFile:       firstString(overlay.Email.TokenFile, base.Email.TokenFile),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// ValidateForModel checks the settings every language model call needs.
func (c *Config) ValidateForModel() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return nmerrors.NewConfig(EnvGeminiAPIKey + " is not configured")
	}
	if c.LLMTimeoutSeconds <= 0 {
		return nmerrors.NewConfig("llm_timeout_seconds must be positive")
	}
	return nil
}

// ValidateForEmail checks the Gmail settings. Only meaningful when Email.Enabled.
func (c *Config) ValidateForEmail() error {
	if !c.Email.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Email.From) == "" {
		return nmerrors.NewConfig("email.from is required when email is enabled")
	}
	if c.Email.CredentialsFile == "" || c.Email.TokenFile == "" {
		return nmerrors.NewConfig("email.credentials_file and email.token_file are required when email is enabled")
	}
	return nil
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
