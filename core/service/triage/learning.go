package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

const (
	// DefaultLearningWindow is the trailing window of decisions the loop
	// reviews on each run.
	DefaultLearningWindow = 24 * time.Hour

	// MinSuggestionConfidence filters out low-confidence proposals before
	// they reach a human.
	MinSuggestionConfidence = 0.6
)

// LearningReport is the outcome of one learning run.
type LearningReport struct {
	SuggestionCount int    `json:"suggestion_count"`
	ProposalCardID  *int64 `json:"proposal_card_id,omitempty"`
}

// LearningLoop mines the trailing window of triage decisions against the
// current rule set and proposes new or refined rules. Proposals only ever
// land on a pending card for human approval; the loop never creates or
// activates a rule itself.
type LearningLoop struct {
	decisions out.DecisionRepository
	rules     out.RuleRepository
	cloud     out.CloudClassifier
	cards     out.CardRepository

	window        time.Duration
	minConfidence float64
	now           func() time.Time
	log           zerolog.Logger
}

// NewLearningLoop creates the loop with the default window and confidence
// floor.
func NewLearningLoop(
	decisions out.DecisionRepository,
	rules out.RuleRepository,
	cloud out.CloudClassifier,
	cards out.CardRepository,
	log zerolog.Logger,
) *LearningLoop {
	return &LearningLoop{
		decisions:     decisions,
		rules:         rules,
		cloud:         cloud,
		cards:         cards,
		window:        DefaultLearningWindow,
		minConfidence: MinSuggestionConfidence,
		now:           time.Now,
		log:           log.With().Str("component", "learning_loop").Logger(),
	}
}

// Run executes one learning pass. An empty decision window returns zero
// suggestions without any model call; unparseable model output discards
// the whole proposal batch rather than half-trusting it.
func (l *LearningLoop) Run(ctx context.Context) (*LearningReport, error) {
	since := l.now().Add(-l.window)
	decisions, err := l.decisions.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision window: %w", err)
	}
	if len(decisions) == 0 {
		return &LearningReport{}, nil
	}

	rules, err := l.rules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}

	decisionsJSON, err := json.Marshal(decisions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode decisions: %w", err)
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}

	output, err := l.cloud.Propose(ctx, string(decisionsJSON), string(rulesJSON))
	if err != nil {
		return nil, fmt.Errorf("rule proposal call failed: %w", err)
	}

	suggestions, err := parseSuggestions(output)
	if err != nil {
		l.log.Warn().Err(err).Msg("proposal output unparseable, discarding batch")
		return &LearningReport{}, nil
	}

	kept := suggestions[:0]
	for _, s := range suggestions {
		if s.Confidence >= l.minConfidence {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		l.log.Info().Int("proposed", len(suggestions)).Msg("no proposals above confidence floor")
		return &LearningReport{}, nil
	}

	card := &domain.Card{
		Pattern: domain.CardPatternLearning,
		Status:  domain.CardStatusPending,
		Title:   fmt.Sprintf("%d rule suggestions from recent decisions", len(kept)),
		Data: domain.CardData{
			Explanation: fmt.Sprintf("Mined from %d decisions in the last %s.", len(decisions), l.window),
			Suggestions: kept,
		},
	}
	if err := l.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create proposal card: %w", err)
	}

	l.log.Info().
		Int("suggestions", len(kept)).
		Int64("card_id", card.ID).
		Msg("learning run complete")

	cardID := card.ID
	return &LearningReport{SuggestionCount: len(kept), ProposalCardID: &cardID}, nil
}
