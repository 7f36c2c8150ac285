package model

import (
	"time"
)

// Civic record tables. The router only ever reads these; ingestion happens
// out of band.

type ServiceRequest struct {
	Id           int64      `gorm:"primaryKey;autoIncrement"`
	Category     string     `gorm:"type:varchar(255);index"`
	Description  string     `gorm:"type:text"`
	Status       string     `gorm:"type:varchar(50);index"`
	Neighborhood string     `gorm:"type:varchar(255);index"`
	OpenedAt     time.Time  `gorm:"index"`
	ClosedAt     *time.Time `gorm:""`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

type IncidentReport struct {
	Id           int64     `gorm:"primaryKey;autoIncrement"`
	Offense      string    `gorm:"type:varchar(255);index"`
	Description  string    `gorm:"type:text"`
	Neighborhood string    `gorm:"type:varchar(255);index"`
	OccurredAt   time.Time `gorm:"index"`
	Disposition  string    `gorm:"type:varchar(100)"`
}

func (IncidentReport) TableName() string {
	return "incident_reports"
}

type WeeklyEvent struct {
	Id        int64      `gorm:"primaryKey;autoIncrement"`
	EventName string     `gorm:"type:varchar(255)"`
	EventDate string     `gorm:"type:varchar(100)"` // As printed in the calendar, e.g. "Saturdays in July"
	StartDate *time.Time `gorm:"type:date;index"`
	EndDate   *time.Time `gorm:"type:date"`
	StartTime *string    `gorm:"type:time"`
	EndTime   *string    `gorm:"type:time"`
	RawText   string     `gorm:"type:text"`
	SourcePdf string     `gorm:"type:varchar(255)"`
}

func (WeeklyEvent) TableName() string {
	return "weekly_events"
}
