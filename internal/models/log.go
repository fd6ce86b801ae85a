package models

import (
	"time"

	"gorm.io/datatypes"
)

type LogType string

const (
	LogMaintenance LogType = "Maintenance"
	LogHealth      LogType = "Health"
	LogFeeding     LogType = "Feeding"
	LogRepair      LogType = "Repair"
	LogObservation LogType = "Observation"
)

var LogTypes = []LogType{LogMaintenance, LogHealth, LogFeeding, LogRepair, LogObservation}

func (t LogType) Valid() bool {
	for _, v := range LogTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Log is a timestamped event against an asset. RelatedAssetID is a plain
// reference; nothing checks that the asset exists.
type Log struct {
	ID             string            `gorm:"primaryKey;size:64" json:"id"`
	Type           LogType           `gorm:"type:varchar(20);not null;index" json:"type"`
	Description    string            `gorm:"type:text;not null" json:"description"`
	RelatedAssetID string            `gorm:"size:64;index" json:"relatedAssetId"`
	TeamMember     string            `gorm:"size:255" json:"teamMember"`
	FeedingData    datatypes.JSONMap `json:"feedingData,omitempty"` // animal name -> ration
	Timestamp      time.Time         `gorm:"column:logged_at;not null;index" json:"timestamp"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
