package entity

import (
	"time"

	"github.com/google/uuid"
)

type InteractionLog struct {
	Id                   uuid.UUID
	SessionId            string
	AppVersion           string
	DataSelected         string
	DataAttributes       string
	PromptPreamble       string
	ClientQuery          string
	AppResponse          string
	ClientResponseRating string
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}
