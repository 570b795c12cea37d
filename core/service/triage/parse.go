package triage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/domain"
)

// Model callers return free text, not structured output. Parsing here is
// deliberately forgiving: fenced output, trailing commas, stray control
// characters and out-of-range confidences all degrade instead of erroring.

var errNoObject = errors.New("no JSON object in model output")

// modelDecision is a parsed classification answer from either model tier.
type modelDecision struct {
	BatchType  *string
	Confidence float64
	Reason     string
	Summary    string
	Priority   *domain.Priority
	Tags       []string
}

type rawDecision struct {
	BatchType  json.RawMessage `json:"batch_type"`
	Confidence json.RawMessage `json:"confidence"`
	Reason     string          `json:"reason"`
	Summary    string          `json:"summary"`
	Priority   json.RawMessage `json:"priority"`
	Tags       []string        `json:"tags"`
}

// parseDecision extracts a classification decision from raw model output.
// An empty or missing batch type means "keep for individual review".
func parseDecision(output string) (*modelDecision, error) {
	cleaned, err := extractObject(output)
	if err != nil {
		return nil, err
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}

	d := &modelDecision{
		Confidence: domain.ClampConfidence(coerceFloat(raw.Confidence)),
		Reason:     raw.Reason,
		Summary:    raw.Summary,
		Tags:       raw.Tags,
	}
	if bt := coerceString(raw.BatchType); bt != "" {
		d.BatchType = &bt
	}
	if len(raw.Priority) > 0 {
		p := domain.Priority(domain.ClampConfidence(coerceFloat(raw.Priority)))
		d.Priority = &p
	}
	return d, nil
}

type rawSuggestion struct {
	Kind       string              `json:"kind"`
	RuleType   string              `json:"rule_type"`
	Name       string              `json:"name"`
	Trigger    *domain.RuleTrigger `json:"trigger"`
	Action     *domain.RuleAction  `json:"action"`
	Guidance   string              `json:"guidance"`
	RefinesID  *int64              `json:"refines_id"`
	Confidence json.RawMessage     `json:"confidence"`
	Rationale  string              `json:"rationale"`
}

// parseSuggestions extracts learning-loop proposals. An unparseable
// payload fails as a whole; individual entries with an unknown kind or
// type are dropped silently rather than half-trusted.
func parseSuggestions(output string) ([]domain.RuleSuggestion, error) {
	cleaned, err := extractObject(output)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Suggestions []rawSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}

	var out []domain.RuleSuggestion
	for _, s := range raw.Suggestions {
		kind := domain.RuleSuggestionKind(s.Kind)
		if kind != domain.SuggestionNewRule && kind != domain.SuggestionRefineRule {
			continue
		}
		ruleType := domain.RuleType(s.RuleType)
		if ruleType != domain.RuleTypeStructured && ruleType != domain.RuleTypeGuidance {
			continue
		}
		out = append(out, domain.RuleSuggestion{
			Kind:       kind,
			RuleType:   ruleType,
			Name:       s.Name,
			Trigger:    s.Trigger,
			Action:     s.Action,
			Guidance:   s.Guidance,
			RefinesID:  s.RefinesID,
			Confidence: domain.ClampConfidence(coerceFloat(s.Confidence)),
			Rationale:  s.Rationale,
		})
	}
	return out, nil
}

// extractObject strips optional code fencing, locates the first top-level
// object and normalizes it enough for decoding.
func extractObject(output string) (string, error) {
	s := strings.TrimSpace(output)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errNoObject
	}
	s = s[start : end+1]

	s = stripControlChars(s)
	s = stripTrailingCommas(s)
	return s, nil
}

// stripControlChars drops raw control characters models occasionally emit
// inside string values, keeping whitespace.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripTrailingCommas removes commas directly before a closing brace or
// bracket, outside of string values.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// coerceFloat reads a JSON value that should be a number but may be a
// quoted number, something else entirely, or absent. Anything non-numeric
// becomes 0.
func coerceFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// coerceString reads a JSON value that should be a string; null and
// non-strings become "".
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
