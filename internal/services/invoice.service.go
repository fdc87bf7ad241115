package services

import (
	"context"

	. "pooltrack/internal/models"
)

// PartyResult is the accounting partner mirrored for a client.
type PartyResult struct {
	PartnerID int64 `json:"partnerId"`
	Created   bool  `json:"created"`
}

// InvoiceResult is the accounting document issued for a visit.
type InvoiceResult struct {
	ExternalID   int64  `json:"externalId"`
	DisplayName  string `json:"displayName"`
	PaymentState string `json:"paymentState"`
}

// PaymentStatus is a polled payment state snapshot for an issued document.
type PaymentStatus struct {
	ExternalID   int64  `json:"externalId"`
	DisplayName  string `json:"displayName"`
	PaymentState string `json:"paymentState"`
}

// InvoiceService issues fiscal documents in the accounting backend. The
// engine never trusts it to be available; callers persist their own state
// before every call and record failures instead of aborting.
type InvoiceService interface {
	// Enabled reports whether a backend is configured at all.
	Enabled() bool

	// UpsertParty finds or creates the accounting partner for the client
	// and returns its identifier.
	UpsertParty(ctx context.Context, client *Client) (*PartyResult, error)

	// CreateInvoiceForVisit creates and posts a document for the visit,
	// selecting the journal from the client's document type.
	CreateInvoiceForVisit(ctx context.Context, client *Client, visit *Visit) (*InvoiceResult, error)

	// GetPaymentState reads the current payment state of an issued document.
	GetPaymentState(ctx context.Context, externalID int64) (*PaymentStatus, error)
}
