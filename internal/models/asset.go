package models

import "time"

type AssetStatus string

const (
	StatusActive         AssetStatus = "Active"
	StatusRepair         AssetStatus = "Repair"
	StatusDecommissioned AssetStatus = "Decommissioned"
)

var AssetStatuses = []AssetStatus{StatusActive, StatusRepair, StatusDecommissioned}

func (s AssetStatus) Valid() bool {
	for _, v := range AssetStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Asset is a tracked physical system on the ranch: a pasture, a well pump,
// a solar array, a herd. Writes replace the whole document.
type Asset struct {
	ID           string      `gorm:"primaryKey;size:64" json:"id"`
	Name         string      `gorm:"size:255;not null" json:"name"`
	MainCategory string      `gorm:"size:64;not null;index" json:"mainCategory"`
	SubCategory  string      `gorm:"size:64;not null" json:"subCategory"`
	Specs        string      `gorm:"type:text" json:"specs"`
	SOP          string      `gorm:"column:sop;type:text" json:"sop"`
	Education    string      `gorm:"type:text" json:"education"`
	Status       AssetStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Location     string      `gorm:"size:255" json:"location"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
