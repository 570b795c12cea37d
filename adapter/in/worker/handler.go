package worker

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Handler routes messages to their processor.
type Handler struct {
	triage *TriageProcessor
	log    zerolog.Logger
}

func NewHandler(triage *TriageProcessor, log zerolog.Logger) *Handler {
	return &Handler{
		triage: triage,
		log:    log.With().Str("component", "worker_handler").Logger(),
	}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case JobTriageItem:
		return h.triage.ProcessItem(ctx, msg)
	case JobTriagePass:
		return h.triage.ProcessPass(ctx, msg)
	case JobTriageReclassify:
		return h.triage.ProcessReclassify(ctx, msg)
	case JobBatchAssign:
		return h.triage.ProcessAssign(ctx, msg)
	case JobLearningRun:
		return h.triage.ProcessLearning(ctx, msg)
	default:
		h.log.Warn().Str("job_type", msg.Type).Msg("unknown job type")
		return nil
	}
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
