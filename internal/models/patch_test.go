package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClientPatch_EmptyIsNoop(t *testing.T) {
	assert.Empty(t, ClientPatch{}.ToUpdates())
	assert.Empty(t, AssignmentPatch{}.ToUpdates())
	assert.Empty(t, VisitPatch{}.ToUpdates())
}

func TestClientPatch_OnlySetFields(t *testing.T) {
	patch := ClientPatch{
		Name:       Set("Condominio Las Rosas"),
		VisitPrice: Set(decimal.NewFromInt(45000)),
	}

	updates := patch.ToUpdates()
	assert.Len(t, updates, 2)
	assert.Equal(t, "Condominio Las Rosas", updates["name"])
	assert.Equal(t, decimal.NewFromInt(45000), updates["visit_price"])
}

func TestAssignmentPatch_ExplicitNull(t *testing.T) {
	patch := AssignmentPatch{
		VisitID: Set[*int](nil),
		Notes:   Set[*string](nil),
	}

	updates := patch.ToUpdates()
	assert.Len(t, updates, 2)

	visitID, present := updates["visit_id"]
	assert.True(t, present)
	assert.Nil(t, visitID)

	notes, present := updates["notes"]
	assert.True(t, present)
	assert.Nil(t, notes)
}

func TestAssignment_Untouched(t *testing.T) {
	assert.True(t, Assignment{}.Untouched())

	visitID := 7
	assert.False(t, Assignment{VisitID: &visitID}.Untouched())
	assert.False(t, Assignment{Completed: true}.Untouched())
}

func TestVisit_IssuedAndPaid(t *testing.T) {
	assert.False(t, Visit{}.Issued())

	externalID := int64(120)
	paid := PaymentStatePaid
	open := PaymentStateNotPaid

	visit := Visit{Invoice: InvoiceReference{ExternalID: &externalID, PaymentState: &open}}
	assert.True(t, visit.Issued())
	assert.False(t, visit.Paid())

	visit.Invoice.PaymentState = &paid
	assert.True(t, visit.Paid())
}
