package classifier

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Adapter turns a Backend into a Classifier: it builds the prompt, bounds
// every attempt with a timeout and classifies failures as *Error.
type Adapter struct {
	backend Backend
	timeout time.Duration
	retry   RetryConfig
}

// NewAdapter wraps backend. Zero values fall back to DefaultTimeout and
// DefaultRetryConfig.
func NewAdapter(backend Backend, timeout time.Duration, retryConfig RetryConfig) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryConfig.Attempts <= 0 {
		retryConfig.Attempts = DefaultRetryConfig.Attempts
	}
	if retryConfig.InitialDelay <= 0 {
		retryConfig.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if retryConfig.MaxDelay <= 0 {
		retryConfig.MaxDelay = DefaultRetryConfig.MaxDelay
	}

	return &Adapter{
		backend: backend,
		timeout: timeout,
		retry:   retryConfig,
	}
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return a.backend.Name()
}

// Classify sends content to the backend and returns its raw verdict text.
func (a *Adapter) Classify(ctx context.Context, content string) (string, error) {
	prompt := BuildPrompt(content)

	var verdict string
	err := telemetry.WithSpan(ctx, "classifier.classify", func(ctx context.Context) error {
		var err error
		verdict, err = a.completeWithRetry(ctx, prompt)
		return err
	}, attribute.String("classifier.backend", a.backend.Name()), attribute.Int("classifier.prompt_bytes", len(prompt)))

	return verdict, err
}

func (a *Adapter) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var verdict string
	var timedOut bool

	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			out, err := a.backend.Complete(attemptCtx, prompt)
			if err != nil {
				timedOut = errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
				return err
			}
			timedOut = false
			verdict = out
			return nil
		},
		retry.Attempts(uint(a.retry.Attempts)),
		retry.Delay(a.retry.InitialDelay),
		retry.MaxDelay(a.retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("backend", a.backend.Name()).
				WithField("attempt", n+1).
				WithField("max_attempts", a.retry.Attempts).
				Warn("retrying classifier call")
		}),
	)
	if err != nil {
		return "", &Error{Backend: a.backend.Name(), Timeout: timedOut, Err: err}
	}

	return verdict, nil
}
