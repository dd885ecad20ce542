package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"litinsight/internal/metrics"
)

const DefaultRetryBackoff = 2 * time.Second

// Attempt describes a single provider call made by a FallbackClient.
type Attempt struct {
	CandidateID string
	Backend     string
	Model       string
	Secondary   bool
	Retry       bool
	Outcome     string
	Duration    time.Duration
	Err         error
}

type AttemptObserver func(ctx context.Context, a Attempt)

// FallbackClient walks an ordered candidate list until one succeeds. It holds
// no mutable state and is safe for concurrent use.
type FallbackClient struct {
	primaries []Candidate
	secondary *Candidate
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	observers []AttemptObserver
	log       *zap.Logger
}

type FallbackOption func(*FallbackClient)

func WithRetryBackoff(d time.Duration) FallbackOption {
	return func(c *FallbackClient) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) FallbackOption {
	return func(c *FallbackClient) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

func WithAttemptObserver(fn AttemptObserver) FallbackOption {
	return func(c *FallbackClient) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

func WithLogger(log *zap.Logger) FallbackOption {
	return func(c *FallbackClient) {
		if log != nil {
			c.log = log
		}
	}
}

func NewFallbackClient(primaries []Candidate, secondary *Candidate, opts ...FallbackOption) *FallbackClient {
	c := &FallbackClient{
		primaries: append([]Candidate(nil), primaries...),
		secondary: secondary,
		backoff:   DefaultRetryBackoff,
		sleep:     sleepContext,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Candidates returns the primary candidate ids in order.
func (c *FallbackClient) Candidates() []string {
	out := make([]string, 0, len(c.primaries))
	for _, p := range c.primaries {
		out = append(out, p.ID)
	}
	return out
}

// Complete returns the generated text and the id of the candidate that produced it.
func (c *FallbackClient) Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, string, error) {
	req := GenerateRequest{Prompt: prompt, SystemPrompt: systemPrompt, MaxTokens: maxTokens}
	failed := &AllProvidersFailedError{}

	for _, cand := range c.primaries {
		text, err := c.call(ctx, cand, req, false, false)
		if err == nil {
			return text, cand.ID, nil
		}
		kind := ClassifyError(err)
		if kind == ErrorOverloaded || kind == ErrorRateLimited {
			c.log.Warn("provider busy, retrying once",
				zap.String("provider", cand.ID),
				zap.String("error_type", string(kind)),
				zap.Duration("backoff", c.backoff))
			if serr := c.sleep(ctx, c.backoff); serr != nil {
				return "", "", fmt.Errorf("provider backoff: %w", serr)
			}
			text, err = c.call(ctx, cand, req, false, true)
			if err == nil {
				return text, cand.ID, nil
			}
			kind = ClassifyError(err)
		}
		if kind == ErrorAuth {
			return "", "", fmt.Errorf("%w: %s: %v", ErrProviderAuth, cand.ID, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", fmt.Errorf("provider %s: %w", cand.ID, ctxErr)
		}
		c.log.Warn("provider candidate failed, moving on",
			zap.String("provider", cand.ID),
			zap.String("error_type", string(kind)),
			zap.Error(err))
		failed.Attempts = append(failed.Attempts, AttemptError{CandidateID: cand.ID, Type: kind, Err: err})
	}

	if c.secondary != nil {
		text, err := c.call(ctx, *c.secondary, req, true, false)
		if err == nil {
			return text, c.secondary.ID, nil
		}
		failed.Attempts = append(failed.Attempts, AttemptError{CandidateID: c.secondary.ID, Type: ClassifyError(err), Err: err})
	}
	return "", "", failed
}

func (c *FallbackClient) call(ctx context.Context, cand Candidate, req GenerateRequest, secondary, retry bool) (string, error) {
	if cand.Provider == nil {
		return "", fmt.Errorf("provider %s: %w", cand.ID, ErrMissingAPIKey)
	}
	start := time.Now()
	resp, _, err := cand.Provider.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(ClassifyError(err))
	}
	metrics.ProviderCalls.WithLabelValues(cand.ID, outcome).Inc()
	metrics.ProviderLatency.WithLabelValues(cand.ID).Observe(elapsed.Seconds())

	a := Attempt{
		CandidateID: cand.ID,
		Backend:     cand.Backend,
		Model:       cand.Model,
		Secondary:   secondary,
		Retry:       retry,
		Outcome:     outcome,
		Duration:    elapsed,
		Err:         err,
	}
	for _, obs := range c.observers {
		obs(ctx, a)
	}
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
