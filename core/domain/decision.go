package domain

import (
	"fmt"
	"strings"
	"time"
)

// TriageDecision is one resolved item from the trailing learning window,
// reduced to the fields the learning loop reasons about.
type TriageDecision struct {
	ItemID    int64      `json:"item_id"`
	Connector string     `json:"connector"`
	Sender    string     `json:"sender"`
	Subject   string     `json:"subject"`
	BatchType *string    `json:"batch_type,omitempty"`
	Tier      Tier       `json:"tier"`
	Path      TriagePath `json:"path"`
	DecidedAt time.Time  `json:"decided_at"`
}

// DecisionSummary is a derived, non-persisted view of a sender's and
// sender-domain's past triage outcomes.
type DecisionSummary struct {
	Sender        string
	SenderDomain  string
	SenderBuckets map[TriagePath]int
	DomainBuckets map[TriagePath]int
}

// SenderTotal is the number of resolved items from the exact sender.
func (s *DecisionSummary) SenderTotal() int { return bucketTotal(s.SenderBuckets) }

// DomainTotal is the number of resolved items from the sender's domain.
func (s *DecisionSummary) DomainTotal() int { return bucketTotal(s.DomainBuckets) }

func bucketTotal(buckets map[TriagePath]int) int {
	total := 0
	for _, n := range buckets {
		total += n
	}
	return total
}

// Render produces the compact textual form injected into classifier
// prompts. Populations with zero resolved items are omitted; within a
// population only non-zero buckets appear, as "<bucket> <n>/<total>".
func (s *DecisionSummary) Render() string {
	senderTotal := s.SenderTotal()
	domainTotal := s.DomainTotal()
	if senderTotal == 0 && domainTotal == 0 {
		return "No prior history for this sender."
	}

	var lines []string
	if senderTotal > 0 {
		lines = append(lines, fmt.Sprintf("Sender %s: %s", s.Sender, renderBuckets(s.SenderBuckets, senderTotal)))
	}
	if domainTotal > 0 {
		lines = append(lines, fmt.Sprintf("Domain %s: %s", s.SenderDomain, renderBuckets(s.DomainBuckets, domainTotal)))
	}
	return strings.Join(lines, "\n")
}

func renderBuckets(buckets map[TriagePath]int, total int) string {
	var parts []string
	for _, path := range TriagePaths {
		if n := buckets[path]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d/%d", path, n, total))
		}
	}
	return strings.Join(parts, ", ")
}
