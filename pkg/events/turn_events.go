package events

import "time"

const (
	TurnCompletedType = "TURN_COMPLETED"
	TurnRatedType     = "TURN_RATED"
)

// NewTurnCompletedEvent describes a finished chat turn for downstream
// consumers (analytics, audit).
func NewTurnCompletedEvent(sessionID, logID, mode string, sourceCount int) Event {
	return BaseEvent{
		Type: TurnCompletedType,
		Data: map[string]interface{}{
			"session_id":   sessionID,
			"log_id":       logID,
			"mode":         mode,
			"source_count": sourceCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnRatedEvent records a thumbs up/down on a logged turn.
func NewTurnRatedEvent(logID, rating string) Event {
	return BaseEvent{
		Type: TurnRatedType,
		Data: map[string]interface{}{
			"log_id": logID,
			"rating": rating,
		},
		OccurredAt: time.Now(),
	}
}
