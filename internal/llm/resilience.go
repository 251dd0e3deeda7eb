package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/metrics"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

type ResilienceOptions struct {
	Timeout         time.Duration // per attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures uint32 // consecutive failures before the breaker opens
	BreakerCooldown time.Duration
}

func (o ResilienceOptions) withDefaults() ResilienceOptions {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
	return o
}

// ResilientProvider wraps a Provider with a per-attempt timeout, exponential
// backoff retries and a circuit breaker shared by all operations.
type ResilientProvider struct {
	next    Provider
	opts    ResilienceOptions
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ Provider = (*ResilientProvider)(nil)

func NewResilientProvider(next Provider, opts ResilienceOptions, logger *zap.Logger) *ResilientProvider {
	opts = opts.withDefaults()
	name := next.GetProviderName()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// bad input says nothing about the health of the service
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("AI circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, int(to))
		},
	})

	return &ResilientProvider{next: next, opts: opts, breaker: breaker, logger: logger}
}

func (p *ResilientProvider) GetProviderName() string { return p.next.GetProviderName() }

// State exposes the breaker state for readiness checks.
func (p *ResilientProvider) State() gobreaker.State { return p.breaker.State() }

// Ping fails while the breaker is open. It never calls the provider.
func (p *ResilientProvider) Ping(context.Context) error {
	if p.breaker.State() == gobreaker.StateOpen {
		return &ProviderError{Provider: p.GetProviderName(), Code: ErrCodeCircuitOpen, Message: "circuit breaker is open"}
	}
	return nil
}

func (p *ResilientProvider) GenerateQuestions(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
	return call(ctx, p, "generate_questions", func(ctx context.Context) ([]string, error) {
		return p.next.GenerateQuestions(ctx, req)
	})
}

func (p *ResilientProvider) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return call(ctx, p, "transcribe", func(ctx context.Context) (string, error) {
		return p.next.Transcribe(ctx, filename, audio)
	})
}

func (p *ResilientProvider) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
	return call(ctx, p, "evaluate", func(ctx context.Context) (*models.EvaluationResult, error) {
		return p.next.Evaluate(ctx, req)
	})
}

func call[T any](ctx context.Context, p *ResilientProvider, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	provider := p.GetProviderName()

	expo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.opts.InitialInterval),
		backoff.WithMaxInterval(p.opts.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.opts.MaxRetries)), ctx)

	attempt := func() (T, error) {
		var zero T
		out, err := p.breaker.Execute(func() (interface{}, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
			defer cancel()

			res, err := fn(attemptCtx)
			if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = &ProviderError{Provider: provider, Code: ErrCodeTimeout, Message: op + " timed out", Err: err}
			}
			return res, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, backoff.Permanent(&ProviderError{
				Provider: provider,
				Code:     ErrCodeCircuitOpen,
				Message:  "circuit breaker is open",
				Err:      err,
			})
		}
		if err != nil {
			if !IsRetryable(err) {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		return out.(T), nil
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("AI call failed, retrying",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	res, err := backoff.RetryNotifyWithData(attempt, policy, notify)

	outcome := "success"
	if err != nil {
		outcome = ErrorCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.ObserveAICall(provider, op, outcome, time.Since(start))
	return res, err
}
