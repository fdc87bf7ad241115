package models

// Technician is a field worker who services client pools. Technicians are
// referenced by clients, assignments and visits as the responsible party.
type Technician struct {
	BaseModel
	Name   string `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Active bool   `gorm:"not null;default:true"          json:"active"`
}
