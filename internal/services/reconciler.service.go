package services

import (
	"context"
	"errors"

	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReconcileSummary reports what a reconciliation pass did to a week.
type ReconcileSummary struct {
	WeekStart string `json:"weekStart"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Preserved int    `json:"preserved"`
}

// ReconcilerService materializes the weekly assignment plan from the client
// registry. Running it any number of times against the same week converges
// to the same plan; rows carrying execution history are never rewritten.
type ReconcilerService struct {
	repos       repositories.Repository
	transaction *TransactionService
	log         logger.Logger
}

func NewReconcilerService(
	repos repositories.Repository,
	transaction *TransactionService,
) *ReconcilerService {
	return &ReconcilerService{
		repos:       repos,
		transaction: transaction,
		log:         logger.New("ReconcilerService"),
	}
}

// slotKey identifies one planned slot inside a week.
type slotKey struct {
	clientID int
	day      string
}

func keyFor(clientID int, day *Weekday) slotKey {
	key := slotKey{clientID: clientID}
	if day != nil {
		key.day = string(*day)
	}
	return key
}

// desiredSlots expands a client into its planned slots for a week. A client
// without attendance days still gets a single undated slot so the week plan
// covers every active account.
func desiredSlots(client *Client, weekStart datatypes.Date) []Assignment {
	days := client.AttendanceDays.Dedupe()
	if len(days) == 0 {
		return []Assignment{{
			WeekStart:     weekStart,
			ClientID:      client.ID,
			ResponsibleID: client.ResponsibleID,
			Price:         client.VisitPrice,
		}}
	}

	slots := make([]Assignment, 0, len(days))
	for _, day := range days {
		day := day
		slots = append(slots, Assignment{
			WeekStart:     weekStart,
			ClientID:      client.ID,
			ResponsibleID: client.ResponsibleID,
			AttendanceDay: &day,
			Price:         client.VisitPrice,
		})
	}
	return slots
}

// Reconcile aligns one week's assignments with the current client registry
// in a single transaction.
//
// Existing rows holding a visit link or a completion flag are preserved
// untouched. Untouched rows are refreshed when the client's technician or
// price moved. Missing slots are created. Reconciliation never deletes:
// rows whose slot left the plan, including every row of a deactivated
// client, stay in place until an operator removes them.
func (s *ReconcilerService) Reconcile(
	ctx context.Context,
	weekStart datatypes.Date,
) (*ReconcileSummary, error) {
	log := s.log.Function("Reconcile")

	summary := &ReconcileSummary{WeekStart: FormatDate(weekStart)}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		clients, err := s.repos.Client.ListActive(ctx, tx)
		if err != nil {
			return err
		}

		existing, err := s.repos.Assignment.ListByWeek(ctx, tx, weekStart, repositories.AssignmentFilter{})
		if err != nil {
			return err
		}

		existingByKey := make(map[slotKey]*Assignment, len(existing))
		for _, assignment := range existing {
			existingByKey[keyFor(assignment.ClientID, assignment.AttendanceDay)] = assignment
		}

		desired := make(map[slotKey]Assignment)
		for _, client := range clients {
			for _, slot := range desiredSlots(client, weekStart) {
				desired[keyFor(slot.ClientID, slot.AttendanceDay)] = slot
			}
		}

		for key, slot := range desired {
			current, ok := existingByKey[key]
			if !ok {
				slot := slot
				if err := s.repos.Assignment.Create(ctx, tx, &slot); err != nil {
					return err
				}
				summary.Created++
				continue
			}

			if !current.Untouched() {
				summary.Preserved++
				continue
			}

			patch := AssignmentPatch{}
			if !equalIntPtr(current.ResponsibleID, slot.ResponsibleID) {
				patch.ResponsibleID = Set(slot.ResponsibleID)
			}
			if !current.Price.Equal(slot.Price) {
				patch.Price = Set(slot.Price)
			}

			if len(patch.ToUpdates()) == 0 {
				summary.Preserved++
				continue
			}

			if _, err := s.repos.Assignment.Update(ctx, tx, current.ID, patch); err != nil {
				return err
			}
			summary.Updated++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info(
		"week reconciled",
		"weekStart", summary.WeekStart,
		"created", summary.Created,
		"updated", summary.Updated,
		"preserved", summary.Preserved,
	)

	return summary, nil
}

// CreateAssignmentInput describes a hand-created slot. Responsible and price
// default from the client when not provided.
type CreateAssignmentInput struct {
	WeekStart     datatypes.Date
	ClientID      int
	AttendanceDay *Weekday
	ResponsibleID *int
	Price         *decimal.Decimal
	Notes         *string
}

// CreateAssignment inserts a single slot outside the weekly pass. A slot that
// already exists is merged instead of rejected: an untouched row takes the
// incoming values, a row carrying a visit link or completion flag comes back
// as it stands.
func (s *ReconcilerService) CreateAssignment(
	ctx context.Context,
	input CreateAssignmentInput,
) (*Assignment, error) {
	log := s.log.TraceFromContext(ctx).Function("CreateAssignment")

	var assignment *Assignment
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		client, err := s.repos.Client.GetByID(ctx, tx, input.ClientID)
		if err != nil {
			return err
		}

		slot := Assignment{
			WeekStart:     input.WeekStart,
			ClientID:      client.ID,
			AttendanceDay: input.AttendanceDay,
			ResponsibleID: client.ResponsibleID,
			Price:         client.VisitPrice,
			Notes:         input.Notes,
		}
		if input.ResponsibleID != nil {
			slot.ResponsibleID = input.ResponsibleID
		}
		if input.Price != nil {
			slot.Price = *input.Price
		}

		err = s.repos.Assignment.Create(ctx, tx, &slot)
		if err == nil {
			assignment = &slot
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		existing, err := s.repos.Assignment.GetByNaturalKey(
			ctx, tx, input.WeekStart, client.ID, input.AttendanceDay,
		)
		if err != nil {
			return err
		}
		if !existing.Untouched() {
			assignment = existing
			return nil
		}

		patch := AssignmentPatch{
			ResponsibleID: Set(slot.ResponsibleID),
			Price:         Set(slot.Price),
		}
		if input.Notes != nil {
			patch.Notes = Set(input.Notes)
		}
		assignment, err = s.repos.Assignment.Update(ctx, tx, existing.ID, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info(
		"assignment created",
		"weekStart", FormatDate(input.WeekStart),
		"clientID", input.ClientID,
		"assignmentID", assignment.ID,
	)

	return assignment, nil
}

// EnsureClientAssignments creates the planned slots for one client in one
// week, skipping slots that already exist. Used when repairing weeks where a
// client was added after the reconciliation run.
func (s *ReconcilerService) EnsureClientAssignments(
	ctx context.Context,
	tx *gorm.DB,
	client *Client,
	weekStart datatypes.Date,
) (int, error) {
	created := 0
	for _, slot := range desiredSlots(client, weekStart) {
		slot := slot
		_, err := s.repos.Assignment.GetByNaturalKey(
			ctx, tx, weekStart, client.ID, slot.AttendanceDay,
		)
		if err == nil {
			continue
		}
		if !IsNotFound(err) {
			return created, err
		}
		if err := s.repos.Assignment.Create(ctx, tx, &slot); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
