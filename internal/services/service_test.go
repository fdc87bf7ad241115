package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"pooltrack/internal/database"
	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type serviceHarness struct {
	db          database.DB
	repos       repositories.Repository
	transaction *TransactionService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	db := database.DB{SQL: gormDB}
	require.NoError(t, db.Migrate())

	t.Cleanup(func() {
		sqlDB, err := gormDB.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return &serviceHarness{
		db:          db,
		repos:       repositories.New(db),
		transaction: NewTransactionService(db),
	}
}

func (h *serviceHarness) seedClient(
	t *testing.T,
	name string,
	days Weekdays,
	responsibleID *int,
) *Client {
	t.Helper()

	client := &Client{
		Name:           name,
		AttendanceDays: days,
		ResponsibleID:  responsibleID,
		VisitPrice:     decimal.NewFromInt(45000),
		Active:         true,
	}
	client.Billing.DocumentType = DocumentBoleta
	require.NoError(t, h.repos.Client.Create(context.Background(), h.db.SQL, client))
	return client
}

func (h *serviceHarness) week(t *testing.T, s string) datatypes.Date {
	t.Helper()
	week, err := ParseWeekStart(s)
	require.NoError(t, err)
	return week
}

func mustTechnician(t *testing.T, h *serviceHarness, name string) *Technician {
	t.Helper()
	technician, err := h.repos.Technician.GetOrCreateByName(context.Background(), h.db.SQL, name)
	require.NoError(t, err)
	return technician
}

func assignmentFilterAll() repositories.AssignmentFilter {
	return repositories.AssignmentFilter{}
}

// fakeInvoiceService scripts invoicing outcomes per call.
type fakeInvoiceService struct {
	mu          sync.Mutex
	failWith    error
	nextID      int64
	created     int
	partyCalls  int
	stateByID   map[int64]string
	createCalls []int
}

func newFakeInvoiceService() *fakeInvoiceService {
	return &fakeInvoiceService{nextID: 100, stateByID: map[int64]string{}}
}

func (f *fakeInvoiceService) Enabled() bool { return true }

func (f *fakeInvoiceService) UpsertParty(ctx context.Context, client *Client) (*PartyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.partyCalls++
	return &PartyResult{PartnerID: int64(9000 + client.ID), Created: true}, nil
}

func (f *fakeInvoiceService) CreateInvoiceForVisit(
	ctx context.Context,
	client *Client,
	visit *Visit,
) (*InvoiceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.created++
	f.createCalls = append(f.createCalls, visit.ID)
	id := f.nextID
	f.nextID++
	f.stateByID[id] = PaymentStateNotPaid
	return &InvoiceResult{
		ExternalID:   id,
		DisplayName:  fmt.Sprintf("BOL %05d", id),
		PaymentState: PaymentStateNotPaid,
	}, nil
}

func (f *fakeInvoiceService) GetPaymentState(
	ctx context.Context,
	externalID int64,
) (*PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	state, ok := f.stateByID[externalID]
	if !ok {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, externalID)
	}
	return &PaymentStatus{
		ExternalID:   externalID,
		DisplayName:  fmt.Sprintf("BOL %05d", externalID),
		PaymentState: state,
	}, nil
}

// fakeNotifier records delivered alerts.
type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeNotifier) Enabled() bool { return true }

func (f *fakeNotifier) Notify(ctx context.Context, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}
