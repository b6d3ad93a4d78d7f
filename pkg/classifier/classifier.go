// Package classifier sends skill content to an external language model and
// returns its free-text verdict. The gate only sees the Classifier
// interface; which backend answers is a configuration choice.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendGoogle    = "google"
	BackendProcess   = "process"

	// DefaultTimeout bounds a single classifier call.
	DefaultTimeout = 2 * time.Minute
)

// Classifier produces a raw text verdict for a piece of skill content.
type Classifier interface {
	Classify(ctx context.Context, content string) (string, error)
	Name() string
}

// Backend is the raw capability behind a Classifier: produce text from a
// prompt. Backends do not apply timeouts or retries themselves.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures the classifier backend.
type Config struct {
	Backend   string        `mapstructure:"backend"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Command   string        `mapstructure:"command"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retry     RetryConfig   `mapstructure:"retry"`
}

// RetryConfig controls retries of failed calls. One attempt means no retry.
type RetryConfig struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// DefaultRetryConfig performs a single attempt.
var DefaultRetryConfig = RetryConfig{
	Attempts:     1,
	InitialDelay: time.Second,
	MaxDelay:     10 * time.Second,
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(backend string) string {
	switch backend {
	case BackendAnthropic:
		return defaultAnthropicModel
	case BackendGoogle:
		return defaultGoogleModel
	case BackendProcess:
		return ""
	default:
		return defaultOpenAIModel
	}
}

// Error is returned for every classifier failure: transport errors, process
// launch failures, non-zero exits and timeouts. All of them are fatal to a
// scan since later verdicts would be meaningless.
type Error struct {
	Backend string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s classifier timed out: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s classifier failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a classifier timeout.
func IsTimeout(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Timeout
}

// New builds the classifier described by cfg.
func New(cfg Config) (Classifier, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewAdapter(backend, cfg.Timeout, cfg.Retry), nil
}

// NewBackend builds only the raw backend described by cfg.
func NewBackend(cfg Config) (Backend, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Backend)
	}

	switch cfg.Backend {
	case "", BackendOpenAI:
		return NewOpenAI(cfg)
	case BackendAnthropic:
		return NewAnthropic(cfg)
	case BackendGoogle:
		return NewGoogle(cfg)
	case BackendProcess:
		return NewProcess(cfg)
	default:
		return nil, errors.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}
