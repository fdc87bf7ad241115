package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Field is an optional update slot. A zero Field leaves the column untouched,
// a set Field writes its value, including explicit NULLs via pointer types.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a populated field.
func Set[T any](value T) Field[T] {
	return Field[T]{value: value, set: true}
}

func (f Field[T]) IsSet() bool {
	return f.set
}

func (f Field[T]) Value() T {
	return f.value
}

// ClientPatch is a sparse update for a client. Only set fields are written.
type ClientPatch struct {
	Name            Field[string]
	TaxID           Field[*string]
	Address         Field[*string]
	Commune         Field[*string]
	Phone           Field[*string]
	Email           Field[*string]
	DocumentType    Field[DocumentType]
	ResponsibleID   Field[*int]
	AttendanceDays  Field[Weekdays]
	VisitPrice      Field[decimal.Decimal]
	Active          Field[bool]
	Notes           Field[*string]
	PartnerID       Field[*int64]
	PartnerSyncedAt Field[*time.Time]
}

func (p ClientPatch) ToUpdates() map[string]any {
	updates := map[string]any{}
	if p.Name.IsSet() {
		updates["name"] = p.Name.Value()
	}
	if p.TaxID.IsSet() {
		updates["tax_id"] = p.TaxID.Value()
	}
	if p.Address.IsSet() {
		updates["address"] = p.Address.Value()
	}
	if p.Commune.IsSet() {
		updates["commune"] = p.Commune.Value()
	}
	if p.Phone.IsSet() {
		updates["phone"] = p.Phone.Value()
	}
	if p.Email.IsSet() {
		updates["email"] = p.Email.Value()
	}
	if p.DocumentType.IsSet() {
		updates["billing_document_type"] = p.DocumentType.Value()
	}
	if p.ResponsibleID.IsSet() {
		updates["responsible_id"] = p.ResponsibleID.Value()
	}
	if p.AttendanceDays.IsSet() {
		updates["attendance_days"] = p.AttendanceDays.Value()
	}
	if p.VisitPrice.IsSet() {
		updates["visit_price"] = p.VisitPrice.Value()
	}
	if p.Active.IsSet() {
		updates["active"] = p.Active.Value()
	}
	if p.Notes.IsSet() {
		updates["notes"] = p.Notes.Value()
	}
	if p.PartnerID.IsSet() {
		updates["partner_id"] = p.PartnerID.Value()
	}
	if p.PartnerSyncedAt.IsSet() {
		updates["partner_synced_at"] = p.PartnerSyncedAt.Value()
	}
	return updates
}

// AssignmentPatch is a sparse update for an assignment row.
type AssignmentPatch struct {
	ResponsibleID Field[*int]
	AttendanceDay Field[*Weekday]
	Price         Field[decimal.Decimal]
	Completed     Field[bool]
	VisitID       Field[*int]
	Notes         Field[*string]
}

func (p AssignmentPatch) ToUpdates() map[string]any {
	updates := map[string]any{}
	if p.ResponsibleID.IsSet() {
		updates["responsible_id"] = p.ResponsibleID.Value()
	}
	if p.AttendanceDay.IsSet() {
		updates["attendance_day"] = p.AttendanceDay.Value()
	}
	if p.Price.IsSet() {
		updates["price"] = p.Price.Value()
	}
	if p.Completed.IsSet() {
		updates["completed"] = p.Completed.Value()
	}
	if p.VisitID.IsSet() {
		updates["visit_id"] = p.VisitID.Value()
	}
	if p.Notes.IsSet() {
		updates["notes"] = p.Notes.Value()
	}
	return updates
}

// VisitPatch is a sparse update for a visit row.
type VisitPatch struct {
	VisitDate     Field[datatypes.Date]
	ResponsibleID Field[*int]
	Price         Field[decimal.Decimal]
	Completed     Field[bool]
	Notes         Field[*string]
	DisplayName   Field[*string]
	PaymentState  Field[*string]
	LastSyncAt    Field[*time.Time]
}

func (p VisitPatch) ToUpdates() map[string]any {
	updates := map[string]any{}
	if p.VisitDate.IsSet() {
		updates["visit_date"] = p.VisitDate.Value()
	}
	if p.ResponsibleID.IsSet() {
		updates["responsible_id"] = p.ResponsibleID.Value()
	}
	if p.Price.IsSet() {
		updates["price"] = p.Price.Value()
	}
	if p.Completed.IsSet() {
		updates["completed"] = p.Completed.Value()
	}
	if p.Notes.IsSet() {
		updates["notes"] = p.Notes.Value()
	}
	if p.DisplayName.IsSet() {
		updates["invoice_display_name"] = p.DisplayName.Value()
	}
	if p.PaymentState.IsSet() {
		updates["invoice_payment_state"] = p.PaymentState.Value()
	}
	if p.LastSyncAt.IsSet() {
		updates["invoice_last_sync_at"] = p.LastSyncAt.Value()
	}
	return updates
}
