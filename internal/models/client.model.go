package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType selects the fiscal document issued for a client's visits.
type DocumentType string

const (
	DocumentBoleta  DocumentType = "boleta"
	DocumentFactura DocumentType = "factura"
	DocumentInvoice DocumentType = "invoice"
)

// ValidDocumentType reports whether d is one of the supported document kinds.
func ValidDocumentType(d DocumentType) bool {
	switch d {
	case DocumentBoleta, DocumentFactura, DocumentInvoice:
		return true
	}
	return false
}

// BillingProfile groups the invoicing attributes of a client, including the
// mirrored accounting partner identity.
type BillingProfile struct {
	DocumentType    DocumentType `gorm:"column:billing_document_type;type:text;not null;default:boleta" json:"documentType"`
	PartnerID       *int64       `gorm:"column:partner_id"                                              json:"partnerId,omitempty"`
	PartnerSyncedAt *time.Time   `gorm:"column:partner_synced_at"                                       json:"partnerSyncedAt,omitempty"`
}

// Client is a serviced pool account. AttendanceDays holds the weekdays the
// client receives maintenance visits; assignments are generated from it.
type Client struct {
	BaseModel
	Name           string          `gorm:"type:text;not null;index"       json:"name"`
	TaxID          *string         `gorm:"type:text"                      json:"taxId,omitempty"`
	Address        *string         `gorm:"type:text"                      json:"address,omitempty"`
	Commune        *string         `gorm:"type:text"                      json:"commune,omitempty"`
	Phone          *string         `gorm:"type:text"                      json:"phone,omitempty"`
	Email          *string         `gorm:"type:text"                      json:"email,omitempty"`
	Billing        BillingProfile  `gorm:"embedded"                       json:"billing"`
	ResponsibleID  *int            `gorm:"index"                          json:"responsibleId,omitempty"`
	AttendanceDays Weekdays        `gorm:"type:text"                      json:"attendanceDays"`
	VisitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"visitPrice"`
	Active         bool            `gorm:"not null;default:true;index"    json:"active"`
	Notes          *string         `gorm:"type:text"                      json:"notes,omitempty"`

	Responsible *Technician `gorm:"foreignKey:ResponsibleID" json:"responsible,omitempty"`
}
