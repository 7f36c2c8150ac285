package model

import (
	"time"

	"github.com/google/uuid"
)

type InteractionLog struct {
	Id                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId            string    `gorm:"type:varchar(255);index"`
	AppVersion           string    `gorm:"type:varchar(50)"`
	DataSelected         string    `gorm:"type:text"` // Routing mode the turn ran under
	DataAttributes       string    `gorm:"type:text"` // Tables and sources consulted, JSON-encoded
	PromptPreamble       string    `gorm:"type:text"`
	ClientQuery          string    `gorm:"type:text"`
	AppResponse          string    `gorm:"type:text"`
	ClientResponseRating string    `gorm:"type:varchar(50)"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (InteractionLog) TableName() string {
	return "interaction_log"
}
