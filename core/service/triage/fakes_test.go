package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

// In-memory fakes for the outbound ports. Each test seeds only what it
// needs.

func testTime() time.Time {
	return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[int64]*domain.Item

	bySender map[domain.TriagePath]int
	byDomain map[domain.TriagePath]int

	failUpdateClassification map[int64]bool
	historyErr               error
}

func newFakeItemRepo(items ...*domain.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: make(map[int64]*domain.Item)}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeItemRepo) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *fakeItemRepo) ListUnclassified(_ context.Context, limit int) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Item
	for _, item := range r.items {
		if item.Classification == nil {
			out = append(out, item)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListReviewPool(_ context.Context, limit int) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Item
	for _, item := range r.items {
		if item.Classification != nil && item.Classification.BatchType == nil && item.Status == domain.ItemStatusNew {
			out = append(out, item)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListUnassigned(_ context.Context) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Item
	for _, item := range r.items {
		if item.Classification != nil && item.Classification.BatchType != nil && item.Classification.BatchCardID == nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) UpdateClassification(_ context.Context, id int64, c *domain.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdateClassification[id] {
		return errors.New("update refused")
	}
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %d not found", id)
	}
	item.Classification = c
	return nil
}

func (r *fakeItemRepo) SetBatchCard(_ context.Context, id int64, cardID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Classification == nil {
		return fmt.Errorf("item %d not assignable", id)
	}
	item.Classification.BatchCardID = &cardID
	return nil
}

func (r *fakeItemRepo) UpdateStatus(_ context.Context, id int64, status domain.ItemStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %d not found", id)
	}
	item.Status = status
	return nil
}

func (r *fakeItemRepo) MergeEnrichment(_ context.Context, id int64, e *domain.Enrichment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("item %d not found", id)
	}
	item.Enrichment = item.Enrichment.Merge(e)
	return nil
}

func (r *fakeItemRepo) HistoryBuckets(_ context.Context, _, _ string) (map[domain.TriagePath]int, map[domain.TriagePath]int, error) {
	if r.historyErr != nil {
		return nil, nil, r.historyErr
	}
	return r.bySender, r.byDomain, nil
}

func (r *fakeItemRepo) get(id int64) *domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

type fakeRuleRepo struct {
	mu     sync.Mutex
	nextID int64
	rules  []*domain.Rule

	incremented chan int64
}

func newFakeRuleRepo(rules ...*domain.Rule) *fakeRuleRepo {
	r := &fakeRuleRepo{incremented: make(chan int64, 16)}
	for _, rule := range rules {
		r.rules = append(r.rules, rule)
		if rule.ID > r.nextID {
			r.nextID = rule.ID
		}
	}
	return r
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rule.ID = r.nextID
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rules {
		if existing.ID == rule.ID {
			r.rules[i] = rule
			return nil
		}
	}
	return fmt.Errorf("rule %d not found", rule.ID)
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id int64) (*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) GetByName(_ context.Context, name string) (*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.Name == name {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *fakeRuleRepo) ListActive(_ context.Context) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Rule
	for _, rule := range r.rules {
		if rule.Status == domain.RuleStatusActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) ListAll(_ context.Context) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Rule(nil), r.rules...), nil
}

func (r *fakeRuleRepo) SetStatus(_ context.Context, id int64, status domain.RuleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			rule.Status = status
			return nil
		}
	}
	return fmt.Errorf("rule %d not found", id)
}

func (r *fakeRuleRepo) IncrementMatchCount(_ context.Context, id int64) error {
	r.mu.Lock()
	for _, rule := range r.rules {
		if rule.ID == id {
			rule.MatchCount++
		}
	}
	r.mu.Unlock()
	select {
	case r.incremented <- id:
	default:
	}
	return nil
}

type fakeCardRepo struct {
	mu     sync.Mutex
	nextID int64
	cards  map[int64]*domain.Card
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[int64]*domain.Card)}
}

func (r *fakeCardRepo) GetOrCreatePending(_ context.Context, pattern domain.CardPattern, batchType string, template *domain.Card) (*domain.Card, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, card := range r.cards {
		if card.Pattern == pattern && card.Status == domain.CardStatusPending && card.Data.BatchType == batchType {
			return card, false, nil
		}
	}
	r.nextID++
	card := *template
	card.ID = r.nextID
	r.cards[card.ID] = &card
	return &card, true, nil
}

func (r *fakeCardRepo) Create(_ context.Context, card *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	card.ID = r.nextID
	cp := *card
	r.cards[card.ID] = &cp
	return nil
}

func (r *fakeCardRepo) GetByID(_ context.Context, id int64) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cards[id], nil
}

func (r *fakeCardRepo) AddItemCount(_ context.Context, id int64, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[id]
	if !ok {
		return fmt.Errorf("card %d not found", id)
	}
	card.Data.ItemCount += n
	return nil
}

func (r *fakeCardRepo) Confirm(_ context.Context, id int64, data domain.CardData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[id]
	if !ok {
		return fmt.Errorf("card %d not found", id)
	}
	card.Status = domain.CardStatusConfirmed
	card.Data = data
	return nil
}

func (r *fakeCardRepo) pending(pattern domain.CardPattern) []*domain.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Card
	for _, card := range r.cards {
		if card.Pattern == pattern && card.Status == domain.CardStatusPending {
			out = append(out, card)
		}
	}
	return out
}

type fakeDecisionRepo struct {
	decisions []*domain.TriageDecision
	err       error
}

func (r *fakeDecisionRepo) ListSince(_ context.Context, _ time.Time) ([]*domain.TriageDecision, error) {
	return r.decisions, r.err
}

// fakeRuleSource is a synchronous RuleSource so pipeline tests can assert
// match recording without racing a goroutine.
type fakeRuleSource struct {
	mu       sync.Mutex
	rules    []*domain.Rule
	guidance []string
	recorded []int64
	listErr  error
}

func (s *fakeRuleSource) ListActive(_ context.Context) ([]*domain.Rule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.rules, nil
}

func (s *fakeRuleSource) GuidanceTexts(_ context.Context) ([]string, error) {
	return s.guidance, nil
}

func (s *fakeRuleSource) RecordMatch(ruleID int64) {
	s.mu.Lock()
	s.recorded = append(s.recorded, ruleID)
	s.mu.Unlock()
}

func (s *fakeRuleSource) recordedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.recorded...)
}

type fakeLocal struct {
	available bool
	output    string
	err       error
	calls     int
}

func (l *fakeLocal) Available() bool { return l.available }

func (l *fakeLocal) Classify(_ context.Context, _ *out.ClassifyRequest) (string, error) {
	l.calls++
	return l.output, l.err
}

type fakeCloud struct {
	output     string
	err        error
	proposeOut string
	proposeErr error

	calls        int
	proposeCalls int
	lastReq      *out.ClassifyRequest
}

func (c *fakeCloud) Classify(_ context.Context, req *out.ClassifyRequest) (string, error) {
	c.calls++
	c.lastReq = req
	return c.output, c.err
}

func (c *fakeCloud) Propose(_ context.Context, _, _ string) (string, error) {
	c.proposeCalls++
	return c.proposeOut, c.proposeErr
}

type fakeMemctx struct {
	context string
}

func (m *fakeMemctx) ContextFor(_ context.Context, _ string) string { return m.context }
