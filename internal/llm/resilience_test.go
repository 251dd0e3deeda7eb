package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

type stubProvider struct {
	generateFn   func(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error)
	transcribeFn func(ctx context.Context, filename string, audio []byte) (string, error)
	evaluateFn   func(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error)
}

func (s *stubProvider) GenerateQuestions(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
	if s.generateFn == nil {
		panic("unexpected call to GenerateQuestions")
	}
	return s.generateFn(ctx, req)
}

func (s *stubProvider) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if s.transcribeFn == nil {
		panic("unexpected call to Transcribe")
	}
	return s.transcribeFn(ctx, filename, audio)
}

func (s *stubProvider) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
	if s.evaluateFn == nil {
		panic("unexpected call to Evaluate")
	}
	return s.evaluateFn(ctx, req)
}

func (s *stubProvider) GetProviderName() string { return "stub" }

func fastOptions() ResilienceOptions {
	return ResilienceOptions{
		Timeout:         50 * time.Millisecond,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		BreakerFailures: 100,
		BreakerCooldown: time.Minute,
	}
}

func TestResilientProviderRetriesTransientErrors(t *testing.T) {
	var calls int32
	stub := &stubProvider{
		generateFn: func(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, &ProviderError{Provider: "stub", Code: ErrCodeServiceDown, Message: "down"}
			}
			return []string{"q1", "q2"}, nil
		},
	}

	p := NewResilientProvider(stub, fastOptions(), zap.NewNop())
	got, err := p.GenerateQuestions(context.Background(), models.QuestionGenerationRequest{Count: 2})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestResilientProviderGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	stub := &stubProvider{
		transcribeFn: func(ctx context.Context, filename string, audio []byte) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "", &ProviderError{Provider: "stub", Code: ErrCodeRateLimit, Message: "slow down"}
		},
	}

	p := NewResilientProvider(stub, fastOptions(), zap.NewNop())
	_, err := p.Transcribe(context.Background(), "a.webm", []byte("x"))
	if ErrorCode(err) != ErrCodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 attempt plus 2 retries, got %d", calls)
	}
}

func TestResilientProviderDoesNotRetryInvalidInput(t *testing.T) {
	var calls int32
	stub := &stubProvider{
		evaluateFn: func(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
			atomic.AddInt32(&calls, 1)
			return nil, &ProviderError{Provider: "stub", Code: ErrCodeInvalidInput, Message: "bad"}
		},
	}

	p := NewResilientProvider(stub, fastOptions(), zap.NewNop())
	_, err := p.Evaluate(context.Background(), models.EvaluationRequest{})
	if ErrorCode(err) != ErrCodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if p.State() != gobreaker.StateClosed {
		t.Fatalf("invalid input must not count against the breaker, state %v", p.State())
	}
}

func TestResilientProviderTimesOutSlowAttempts(t *testing.T) {
	stub := &stubProvider{
		evaluateFn: func(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	opts := fastOptions()
	opts.Timeout = 5 * time.Millisecond
	opts.MaxRetries = 0

	p := NewResilientProvider(stub, opts, zap.NewNop())
	_, err := p.Evaluate(context.Background(), models.EvaluationRequest{})
	if ErrorCode(err) != ErrCodeTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be wrapped, got %v", err)
	}
}

func TestResilientProviderOpensBreaker(t *testing.T) {
	var calls int32
	stub := &stubProvider{
		generateFn: func(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
			atomic.AddInt32(&calls, 1)
			return nil, &ProviderError{Provider: "stub", Code: ErrCodeServiceDown, Message: "down"}
		},
	}

	opts := fastOptions()
	opts.MaxRetries = 0
	opts.BreakerFailures = 2

	p := NewResilientProvider(stub, opts, zap.NewNop())
	for i := 0; i < 2; i++ {
		if _, err := p.GenerateQuestions(context.Background(), models.QuestionGenerationRequest{}); ErrorCode(err) != ErrCodeServiceDown {
			t.Fatalf("attempt %d: expected service down, got %v", i, err)
		}
	}

	_, err := p.GenerateQuestions(context.Background(), models.QuestionGenerationRequest{})
	if ErrorCode(err) != ErrCodeCircuitOpen {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatal("circuit open errors must not be retryable")
	}
	if calls != 2 {
		t.Fatalf("expected breaker to short-circuit the third call, got %d calls", calls)
	}
	if err := p.Ping(context.Background()); ErrorCode(err) != ErrCodeCircuitOpen {
		t.Fatalf("expected Ping to report the open breaker, got %v", err)
	}
}

func TestResilientProviderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubProvider{
		transcribeFn: func(ctx context.Context, filename string, audio []byte) (string, error) {
			cancel()
			return "", &ProviderError{Provider: "stub", Code: ErrCodeServiceDown, Message: "down"}
		},
	}

	opts := fastOptions()
	opts.MaxRetries = 5

	p := NewResilientProvider(stub, opts, zap.NewNop())
	if _, err := p.Transcribe(ctx, "a.webm", nil); err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"api key", &ProviderError{Code: ErrCodeAPIKey}, false},
		{"invalid input", &ProviderError{Code: ErrCodeInvalidInput}, false},
		{"circuit open", &ProviderError{Code: ErrCodeCircuitOpen}, false},
		{"rate limit", &ProviderError{Code: ErrCodeRateLimit}, true},
		{"timeout", &ProviderError{Code: ErrCodeTimeout}, true},
		{"plain", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	RegisterProvider("stub-registry", func() (Provider, error) { return &stubProvider{}, nil })

	p, err := NewProvider("stub-registry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GetProviderName() != "stub" {
		t.Fatalf("unexpected provider %q", p.GetProviderName())
	}

	if _, err := NewProvider("missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
