package dto

// ConversationTurnDTO is one prior exchange supplied by the client.
type ConversationTurnDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type ChatRequest struct {
	Message             string                `json:"message" validate:"required"`
	SessionId           string                `json:"session_id,omitempty"`
	ConversationHistory []ConversationTurnDTO `json:"conversation_history,omitempty" validate:"max=50,dive"`
}

type SourceDTO struct {
	Type    string `json:"type"`
	Table   string `json:"table,omitempty"`
	Source  string `json:"source,omitempty"`
	DocType string `json:"doc_type,omitempty"`
}

type ChatResponse struct {
	SessionId string      `json:"session_id"`
	Response  string      `json:"response"`
	Sources   []SourceDTO `json:"sources"`
	Mode      string      `json:"mode"`
	LogId     string      `json:"log_id,omitempty"`
}
