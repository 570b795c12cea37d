// Package memctx surfaces long-term memory context for cloud-tier
// prompts. The memory system itself lives outside this service; it
// publishes per-sender context into Redis and this adapter only reads it.
package memctx

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

const (
	senderKeyPrefix = "memctx:sender:"
	domainKeyPrefix = "memctx:domain:"
	lookupTimeout   = 2 * time.Second
)

// RedisContextProvider implements out.ContextProvider. Best-effort by
// contract: a miss, a timeout or a dead Redis all come back as "".
type RedisContextProvider struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisContextProvider creates a context provider over an existing
// Redis client. A nil client yields a provider that always returns "".
func NewRedisContextProvider(client *redis.Client, log zerolog.Logger) *RedisContextProvider {
	return &RedisContextProvider{
		client: client,
		log:    log.With().Str("component", "memctx").Logger(),
	}
}

// ContextFor returns stored context for the sender, falling back to the
// sender's domain.
func (p *RedisContextProvider) ContextFor(ctx context.Context, sender string) string {
	if p.client == nil || sender == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	value, err := p.client.Get(ctx, senderKeyPrefix+strings.ToLower(sender)).Result()
	if err == nil && value != "" {
		return value
	}
	if err != nil && err != redis.Nil {
		p.log.Debug().Err(err).Msg("memory context lookup failed")
		return ""
	}

	if senderDomain := domain.SenderDomain(sender); senderDomain != "" {
		value, err = p.client.Get(ctx, domainKeyPrefix+strings.ToLower(senderDomain)).Result()
		if err == nil {
			return value
		}
		if err != redis.Nil {
			p.log.Debug().Err(err).Msg("memory context lookup failed")
		}
	}
	return ""
}
