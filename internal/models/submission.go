package models

import "time"

// Submission is one completed instance of a form plus its capture metadata.
type Submission struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FormID    int64     `gorm:"index" json:"formId"`
	UniqueID  string    `gorm:"uniqueIndex" json:"uniqueId"`
	Data      Record    `gorm:"type:text" json:"data"`
	Datetime  string    `json:"datetime"`
	Epoch     int64     `json:"epoch"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Submission) TableName() string { return "submissions" }
