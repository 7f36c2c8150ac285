package judge

import (
	"context"
	"log"

	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"
)

// Judge decides whether a session's cached artifacts can serve a new
// question. Deterministic for identical inputs: the cheap checks run in a
// fixed order and the model call uses temperature 0.
type Judge struct {
	gateway gateway.Gateway
	logger  *log.Logger
}

func NewJudge(gw gateway.Gateway, logger *log.Logger) *Judge {
	if logger == nil {
		logger = log.Default()
	}
	return &Judge{
		gateway: gw,
		logger:  logger,
	}
}

// ShouldReuse runs the reuse protocol: no artifacts and temporal shifts
// refresh without a model call; everything else asks PlanReuse over the
// cached digest. Unparsable model output falls back to refresh.
func (j *Judge) ShouldReuse(ctx context.Context, question string, recent []router.Turn, entry *router.CacheEntry) router.ReuseVerdict {
	if entry == nil || !entry.HasArtifacts() {
		return router.ReuseVerdict{Reuse: false, Reason: router.ReasonNoHistory}
	}

	if HasTemporalShift(question, entry.Question) {
		j.logger.Printf("[JUDGE] Temporal anchor shift detected, refreshing without model call")
		return router.ReuseVerdict{Reuse: false, Reason: router.ReasonTemporalShift}
	}

	reuse, err := j.gateway.PlanReuse(ctx, question, recent, entry.Digest())
	if err != nil {
		j.logger.Printf("[JUDGE] PlanReuse unparsable (%v), refreshing", err)
		return router.ReuseVerdict{Reuse: false, Reason: router.ReasonParseFallback}
	}

	if reuse {
		return router.ReuseVerdict{Reuse: true, Reason: router.ReasonFollowUp}
	}
	return router.ReuseVerdict{Reuse: false, Reason: router.ReasonModelJudged}
}
