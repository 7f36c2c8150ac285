package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateLogRequest struct {
	SessionId      string `json:"session_id" validate:"required"`
	AppVersion     string `json:"app_version,omitempty"`
	DataSelected   string `json:"data_selected,omitempty"`
	DataAttributes string `json:"data_attributes,omitempty"`
	PromptPreamble string `json:"prompt_preamble,omitempty"`
	ClientQuery    string `json:"client_query" validate:"required"`
	AppResponse    string `json:"app_response,omitempty"`
}

type CreateLogResponse struct {
	Id uuid.UUID `json:"id"`
}

type UpdateLogRatingRequest struct {
	LogId  uuid.UUID `json:"log_id" validate:"required"`
	Rating string    `json:"rating" validate:"required,oneof=up down neutral"`
}

type GetLogResponse struct {
	Id             uuid.UUID `json:"id"`
	SessionId      string    `json:"session_id"`
	AppVersion     string    `json:"app_version"`
	DataSelected   string    `json:"data_selected"`
	DataAttributes string    `json:"data_attributes"`
	ClientQuery    string    `json:"client_query"`
	AppResponse    string    `json:"app_response"`
	Rating         string    `json:"client_response_rating"`
	CreatedAt      time.Time `json:"created_at"`
}
