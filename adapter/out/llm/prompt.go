package llm

import (
	"fmt"
	"strings"

	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
)

const classifySystemPrompt = `You triage an inbox. Decide whether an item can be grouped
into a batch for one bulk decision, or must stay in individual review.

Batch only clearly low-stakes, automated items: newsletters, CI and
service notifications, receipts, marketing. Anything written by a real
person stays individual. When unsure, keep the item individual with a
low confidence.

Respond with a single JSON object:
{
  "batch_type": "<short label like newsletters, notifications, receipts - or null>",
  "confidence": <0.0 to 1.0>,
  "reason": "<one sentence>",
  "summary": "<one-line summary of the item>",
  "priority": <0.0 to 1.0>,
  "tags": ["<up to 3 short tags>"]
}`

const fastSystemPrompt = `You triage automated inbox items. Decide whether the item can be
grouped into a batch for one bulk decision.

Respond with a single JSON object:
{"batch_type": "<short label or null>", "confidence": <0.0 to 1.0>, "reason": "<one sentence>"}`

const proposeSystemPrompt = `You mine inbox triage decisions for rule candidates. Given recent
decisions and the current rules, propose deterministic rules that would
have made the same decisions without a model call, and refinements to
rules that misfire. Only propose a rule when the decisions show a clear
repeated pattern. Never propose rules for items real people wrote.

Respond with a single JSON object:
{
  "suggestions": [
    {
      "kind": "new_rule" | "refine_rule",
      "rule_type": "structured" | "guidance",
      "name": "<short rule name>",
      "trigger": {"connector": "", "sender": "", "sender_domain": "", "subject_contains": "", "content_contains": "", "pattern": ""},
      "action": {"type": "batch", "batch_type": "<label>"},
      "guidance": "<only for guidance rules>",
      "refines_id": <existing rule id, only for refine_rule>,
      "confidence": <0.0 to 1.0>,
      "rationale": "<what in the decisions supports this>"
    }
  ]
}`

// classifyPrompt renders one item, with whatever context the tier
// gathered, as the user message.
func classifyPrompt(req *out.ClassifyRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Connector: %s\nSender: %s\nSubject: %s\n\n%s\n", req.Connector, req.Sender, req.Subject, truncate(req.Content, 4000))

	if len(req.GuidanceTexts) > 0 {
		b.WriteString("\nUser guidance:\n")
		for _, g := range req.GuidanceTexts {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	if req.History != "" {
		fmt.Fprintf(&b, "\nPast decisions:\n%s\n", req.History)
	}
	if req.MemoryContext != "" {
		fmt.Fprintf(&b, "\nKnown context:\n%s\n", req.MemoryContext)
	}
	return b.String()
}

func proposePrompt(decisionsJSON, rulesJSON string) string {
	return fmt.Sprintf("Recent decisions:\n%s\n\nCurrent rules:\n%s\n", decisionsJSON, rulesJSON)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
