package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Assignment is a planned maintenance slot for one client in one week. A
// client visited on several weekdays gets one row per day, distinguished by
// AttendanceDay. Rows with no day planning carry a NULL AttendanceDay.
//
// The natural key is (week_start, client_id, attendance_day); a unique
// expression index over it lives in the migration layer so NULL days collapse
// to a single slot per client and week.
type Assignment struct {
	BaseModel
	WeekStart     datatypes.Date  `gorm:"type:date;not null;index"    json:"weekStart"`
	ClientID      int             `gorm:"not null;index"              json:"clientId"`
	ResponsibleID *int            `gorm:"index"                       json:"responsibleId,omitempty"`
	AttendanceDay *Weekday        `gorm:"type:text"                   json:"attendanceDay,omitempty"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Completed     bool            `gorm:"not null;default:false"      json:"completed"`
	VisitID       *int            `gorm:"index"                       json:"visitId,omitempty"`
	Notes         *string         `gorm:"type:text"                   json:"notes,omitempty"`

	Client      *Client     `gorm:"foreignKey:ClientID"      json:"client,omitempty"`
	Responsible *Technician `gorm:"foreignKey:ResponsibleID" json:"responsible,omitempty"`
	Visit       *Visit      `gorm:"foreignKey:VisitID"       json:"visit,omitempty"`
}

// Untouched reports whether the row carries no execution history and is safe
// to rewrite or delete during reconciliation.
func (a Assignment) Untouched() bool {
	return !a.Completed && a.VisitID == nil
}
