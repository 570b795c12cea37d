package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/service/common"
)

const (
	activeRulesCacheKey = "rules:active"
	rulesCacheTTL       = 2 * time.Minute
)

// RuleStore manages rule lifecycle and serves the active rule set to the
// pipeline, with a short-lived cache in front of the repository.
type RuleStore struct {
	repo  out.RuleRepository
	cache *common.TTLCache[[]*domain.Rule]
	log   zerolog.Logger
}

// NewRuleStore creates a rule store.
func NewRuleStore(repo out.RuleRepository, log zerolog.Logger) *RuleStore {
	return &RuleStore{
		repo:  repo,
		cache: common.NewTTLCache[[]*domain.Rule](rulesCacheTTL, nil),
		log:   log.With().Str("component", "rule_store").Logger(),
	}
}

// Create persists a new rule and invalidates the active-set cache.
func (s *RuleStore) Create(ctx context.Context, rule *domain.Rule) error {
	if rule.Status == "" {
		rule.Status = domain.RuleStatusActive
	}
	if rule.Version == 0 {
		rule.Version = 1
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	s.cache.Invalidate(activeRulesCacheKey)
	return nil
}

// Update persists rule changes, bumping its version.
func (s *RuleStore) Update(ctx context.Context, rule *domain.Rule) error {
	rule.Version++
	if err := s.repo.Update(ctx, rule); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	s.cache.Invalidate(activeRulesCacheKey)
	return nil
}

// Deactivate soft-deletes a rule. Historical classifications keep
// referencing its id, so rules are never hard-deleted.
func (s *RuleStore) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetStatus(ctx, id, domain.RuleStatusInactive); err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	s.cache.Invalidate(activeRulesCacheKey)
	return nil
}

// ListActive returns the active rule set, served from cache when fresh.
func (s *RuleStore) ListActive(ctx context.Context) ([]*domain.Rule, error) {
	if rules, ok := s.cache.Get(activeRulesCacheKey); ok {
		return rules, nil
	}
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}
	s.cache.Put(activeRulesCacheKey, rules)
	return rules, nil
}

// ListAll returns every rule regardless of status.
func (s *RuleStore) ListAll(ctx context.Context) ([]*domain.Rule, error) {
	rules, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// GuidanceTexts returns the text of all active guidance rules, for prompt
// injection.
func (s *RuleStore) GuidanceTexts(ctx context.Context) ([]string, error) {
	rules, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, r := range rules {
		if r.Type == domain.RuleTypeGuidance && r.Guidance != nil && *r.Guidance != "" {
			texts = append(texts, *r.Guidance)
		}
	}
	return texts, nil
}

// RecordMatch increments a rule's match count. Best-effort: it runs
// detached from the classification path and a failure is only logged,
// never surfaced.
func (s *RuleStore) RecordMatch(ruleID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.IncrementMatchCount(ctx, ruleID); err != nil {
			s.log.Warn().Err(err).Int64("rule_id", ruleID).Msg("match count increment failed")
		}
	}()
}

// SeedDefaults inserts the default rule set, skipping any rule whose name
// already exists. Safe to run on every startup.
func (s *RuleStore) SeedDefaults(ctx context.Context) error {
	seeded := 0
	for _, rule := range defaultRules() {
		existing, err := s.repo.GetByName(ctx, rule.Name)
		if err != nil {
			return fmt.Errorf("failed to check default rule %q: %w", rule.Name, err)
		}
		if existing != nil {
			continue
		}
		if err := s.Create(ctx, rule); err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		s.log.Info().Int("seeded", seeded).Msg("default rules seeded")
	}
	return nil
}

func strPtr(s string) *string { return &s }

// defaultRules is the seed set for a fresh inbox.
func defaultRules() []*domain.Rule {
	return []*domain.Rule{
		{
			Type:   domain.RuleTypeStructured,
			Name:   "Newsletters",
			Source: domain.RuleSourceSeed,
			Trigger: &domain.RuleTrigger{
				SubjectContains: "newsletter",
			},
			Action: &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "newsletters"},
		},
		{
			Type:   domain.RuleTypeStructured,
			Name:   "Unsubscribe footers",
			Source: domain.RuleSourceSeed,
			Trigger: &domain.RuleTrigger{
				ContentContains: "unsubscribe",
			},
			Action: &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "newsletters"},
		},
		{
			Type:   domain.RuleTypeStructured,
			Name:   "GitHub notifications",
			Source: domain.RuleSourceSeed,
			Trigger: &domain.RuleTrigger{
				SenderDomain: "github.com",
			},
			Action: &domain.RuleAction{Type: domain.RuleActionBatch, BatchType: "notifications"},
		},
		{
			Type:     domain.RuleTypeGuidance,
			Name:     "Real people stay individual",
			Source:   domain.RuleSourceSeed,
			Guidance: strPtr("Messages written by a real person, even short ones, should stay in individual review rather than being batched."),
		},
	}
}
