package dto

import "github.com/google/uuid"

// PublishInteractionLogMessage is the payload carried on the interaction
// log topic between the chat service and the consumer.
type PublishInteractionLogMessage struct {
	Id             uuid.UUID `json:"id"`
	SessionId      string    `json:"session_id"`
	AppVersion     string    `json:"app_version"`
	DataSelected   string    `json:"data_selected"`
	DataAttributes string    `json:"data_attributes"`
	PromptPreamble string    `json:"prompt_preamble"`
	ClientQuery    string    `json:"client_query"`
	AppResponse    string    `json:"app_response"`
}
