package llm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// localRecheckInterval is how long a failed local endpoint stays marked
// unavailable before the next call probes it again.
const localRecheckInterval = 2 * time.Minute

// LocalClassifier implements out.LocalClassifier against an
// OpenAI-compatible endpoint on the local network (Ollama, llama.cpp).
// Its absence is normal: with no configured base URL the tier simply
// never runs, and after a failed call the endpoint is considered down
// for a while instead of being re-probed on every item.
type LocalClassifier struct {
	client     *client
	configured bool

	downUntil atomic.Int64 // unix nano, 0 when up
	log       zerolog.Logger
}

// NewLocalClassifier creates the local model caller. An empty BaseURL
// yields a permanently unavailable classifier.
func NewLocalClassifier(cfg ClientConfig, log zerolog.Logger) *LocalClassifier {
	l := &LocalClassifier{
		configured: cfg.BaseURL != "",
		log:        log.With().Str("component", "local_classifier").Logger(),
	}
	if l.configured {
		if cfg.Timeout == 0 {
			cfg.Timeout = 10 * time.Second
		}
		l.client = newClient(cfg)
	}
	return l
}

// Available reports whether the local tier should be attempted.
func (l *LocalClassifier) Available() bool {
	if !l.configured {
		return false
	}
	return time.Now().UnixNano() >= l.downUntil.Load()
}

// Classify asks the local model for a triage decision.
func (l *LocalClassifier) Classify(ctx context.Context, req *out.ClassifyRequest) (string, error) {
	output, err := l.client.completeWithSystem(ctx, fastSystemPrompt, classifyPrompt(req))
	if err != nil {
		l.downUntil.Store(time.Now().Add(localRecheckInterval).UnixNano())
		l.log.Debug().Err(err).Msg("local endpoint marked down")
		return "", err
	}
	l.downUntil.Store(0)
	return output, nil
}
