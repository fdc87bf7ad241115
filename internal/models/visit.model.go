package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Accounting payment states mirrored from the invoicing backend.
const (
	PaymentStatePaid      = "paid"
	PaymentStateInPayment = "in_payment"
	PaymentStateNotPaid   = "not_paid"
	PaymentStatePartial   = "partial"
)

// PaymentStateSettled reports whether a mirrored payment state counts as
// collected.
func PaymentStateSettled(state string) bool {
	return state == PaymentStatePaid || state == PaymentStateInPayment
}

// InvoiceReference mirrors the accounting document issued for a visit.
// SyncError holds the last failure message when issuing or polling failed;
// NotifiedAt and NotifyCount throttle the failure alerts.
type InvoiceReference struct {
	ExternalID   *int64     `gorm:"column:invoice_external_id;index"  json:"externalId,omitempty"`
	DisplayName  *string    `gorm:"column:invoice_display_name"       json:"displayName,omitempty"`
	PaymentState *string    `gorm:"column:invoice_payment_state"      json:"paymentState,omitempty"`
	SyncError    *string    `gorm:"column:invoice_sync_error"         json:"syncError,omitempty"`
	LastSyncAt   *time.Time `gorm:"column:invoice_last_sync_at"       json:"lastSyncAt,omitempty"`
	NotifiedAt   *time.Time `gorm:"column:invoice_notified_at"        json:"-"`
	NotifyCount  int        `gorm:"column:invoice_notify_count;not null;default:0" json:"-"`
}

// Visit is an executed maintenance service. Visits are the immutable record
// of work done; assignments link to them when completed.
type Visit struct {
	BaseModel
	ClientID      int              `gorm:"not null;index"              json:"clientId"`
	VisitDate     datatypes.Date   `gorm:"type:date;not null;index"    json:"visitDate"`
	ResponsibleID *int             `gorm:"index"                       json:"responsibleId,omitempty"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	Completed     bool             `gorm:"not null;default:true"       json:"completed"`
	Notes         *string          `gorm:"type:text"                   json:"notes,omitempty"`
	Invoice       InvoiceReference `gorm:"embedded"                    json:"invoice"`

	Client      *Client     `gorm:"foreignKey:ClientID"      json:"client,omitempty"`
	Responsible *Technician `gorm:"foreignKey:ResponsibleID" json:"responsible,omitempty"`
}

// Issued reports whether an accounting document exists for the visit.
func (v Visit) Issued() bool {
	return v.Invoice.ExternalID != nil
}

// Paid reports whether the mirrored payment state counts as collected.
func (v Visit) Paid() bool {
	return v.Invoice.PaymentState != nil && PaymentStateSettled(*v.Invoice.PaymentState)
}
