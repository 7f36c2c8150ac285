package classifier

import (
	"context"
	"log"

	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"
)

// Classifier picks the retrieval mode for a fresh turn.
type Classifier struct {
	gateway gateway.Gateway
	logger  *log.Logger
}

func NewClassifier(gw gateway.Gateway, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{
		gateway: gw,
		logger:  logger,
	}
}

// Classify asks the model for a mode. Unparsable output after the retry
// falls back to Hybrid, never History.
func (c *Classifier) Classify(ctx context.Context, question string, recent []router.Turn) router.RoutingPlan {
	mode, err := c.gateway.ClassifyMode(ctx, question, recent)
	if err != nil {
		c.logger.Printf("[CLASSIFY] Mode unparsable (%v), falling back to hybrid", err)
		return router.RoutingPlan{Mode: router.ModeHybrid}
	}
	return router.RoutingPlan{Mode: mode}
}
