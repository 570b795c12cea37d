package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	retry "github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// CloudClassifier implements out.CloudClassifier against a hosted model.
// Calls go through a circuit breaker so a provider outage degrades to the
// pipeline's safe fallback quickly instead of stacking up timeouts.
type CloudClassifier struct {
	client *client
	cb     *gobreaker.CircuitBreaker
	log    zerolog.Logger
}

// NewCloudClassifier creates the cloud model caller.
func NewCloudClassifier(cfg ClientConfig, log zerolog.Logger) *CloudClassifier {
	logger := log.With().Str("component", "cloud_classifier").Logger()

	cbSettings := gobreaker.Settings{
		Name:        "cloud-llm",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &CloudClassifier{
		client: newClient(cfg),
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
		log:    logger,
	}
}

// Classify asks the model for a triage decision on one item.
func (c *CloudClassifier) Classify(ctx context.Context, req *out.ClassifyRequest) (string, error) {
	return c.call(ctx, classifySystemPrompt, classifyPrompt(req))
}

// Propose asks the model for rule suggestions over a decision window.
func (c *CloudClassifier) Propose(ctx context.Context, decisionsJSON, rulesJSON string) (string, error) {
	return c.call(ctx, proposeSystemPrompt, proposePrompt(decisionsJSON, rulesJSON))
}

// call runs one completion through the breaker, retrying transient
// failures with a short backoff. An open breaker fails immediately.
func (c *CloudClassifier) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var output string
	b := retry.NewFibonacci(1 * time.Second)
	err := retry.Do(ctx, retry.WithMaxRetries(2, b), func(ctx context.Context) error {
		result, err := c.cb.Execute(func() (interface{}, error) {
			return c.client.completeWithSystem(ctx, systemPrompt, userPrompt)
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return err
			}
			return retry.RetryableError(err)
		}
		output = result.(string)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cloud model call failed: %w", err)
	}
	return output, nil
}
