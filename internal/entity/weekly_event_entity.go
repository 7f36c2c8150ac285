package entity

import (
	"time"
)

type WeeklyEvent struct {
	Id        int64
	EventName string
	EventDate string
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *string
	EndTime   *string
	RawText   string
	SourcePdf string
}
