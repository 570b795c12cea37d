package out

import (
	"context"
)

// ClassifyRequest is the item view handed to a model caller.
type ClassifyRequest struct {
	Connector string
	Sender    string
	Subject   string
	Content   string

	// GuidanceTexts are the active guidance rules, injected verbatim.
	GuidanceTexts []string

	// History and MemoryContext are only populated for the cloud tier.
	History       string
	MemoryContext string
}

// LocalClassifier is the fast/cheap model caller. It may be unavailable
// (not configured, endpoint down); that is an absence, not an error. The
// returned string is free text the pipeline parses defensively.
type LocalClassifier interface {
	Available() bool
	Classify(ctx context.Context, req *ClassifyRequest) (string, error)
}

// CloudClassifier is the full-context model caller. Classify returns free
// text the pipeline parses defensively; Propose does the same for the
// learning loop.
type CloudClassifier interface {
	Classify(ctx context.Context, req *ClassifyRequest) (string, error)
	Propose(ctx context.Context, decisionsJSON, rulesJSON string) (string, error)
}

// ContextProvider surfaces long-term memory context for a sender. It is
// best-effort by contract: implementations return "" on any failure.
type ContextProvider interface {
	ContextFor(ctx context.Context, sender string) string
}
