package services

import (
	"context"

	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TechnicianProgress is one technician's share of a week.
type TechnicianProgress struct {
	TechnicianID   *int   `json:"technicianId,omitempty"`
	TechnicianName string `json:"technicianName"`
	Planned        int    `json:"planned"`
	Completed      int    `json:"completed"`
}

// WeeklyProgress is the execution state of one week's plan.
type WeeklyProgress struct {
	WeekStart   string               `json:"weekStart"`
	Planned     int                  `json:"planned"`
	Completed   int                  `json:"completed"`
	Pending     int                  `json:"pending"`
	ByDay       map[string]int       `json:"byDay"`
	Technicians []TechnicianProgress `json:"technicians"`
}

// UnpaidVisit is one ledger entry still awaiting collection.
type UnpaidVisit struct {
	VisitID      int             `json:"visitId"`
	ClientID     int             `json:"clientId"`
	ClientName   string          `json:"clientName"`
	VisitDate    string          `json:"visitDate"`
	Price        decimal.Decimal `json:"price"`
	DisplayName  string          `json:"displayName,omitempty"`
	PaymentState string          `json:"paymentState,omitempty"`
}

// UnpaidReport lists issued but uncollected visits with their total.
type UnpaidReport struct {
	Visits []UnpaidVisit   `json:"visits"`
	Total  decimal.Decimal `json:"total"`
}

// Summary is the operation-wide snapshot served on the dashboard.
type Summary struct {
	ActiveClients     int64  `json:"activeClients"`
	ActiveTechnicians int    `json:"activeTechnicians"`
	CurrentWeek       string `json:"currentWeek"`
	WeekPlanned       int64  `json:"weekPlanned"`
	WeekCompleted     int64  `json:"weekCompleted"`
}

// StatsService aggregates the plan and the ledger into reports.
type StatsService struct {
	repos       repositories.Repository
	transaction *TransactionService
	log         logger.Logger
}

func NewStatsService(
	repos repositories.Repository,
	transaction *TransactionService,
) *StatsService {
	return &StatsService{
		repos:       repos,
		transaction: transaction,
		log:         logger.New("StatsService"),
	}
}

// WeekProgress breaks one week's plan down by weekday and technician.
func (s *StatsService) WeekProgress(
	ctx context.Context,
	weekStart datatypes.Date,
) (*WeeklyProgress, error) {
	progress := &WeeklyProgress{
		WeekStart: FormatDate(weekStart),
		ByDay:     map[string]int{},
	}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		assignments, err := s.repos.Assignment.ListByWeek(
			ctx, tx, weekStart, repositories.AssignmentFilter{},
		)
		if err != nil {
			return err
		}

		type bucket struct {
			name      string
			planned   int
			completed int
		}
		byTechnician := map[int]*bucket{}
		unassigned := &bucket{name: "unassigned"}

		for _, assignment := range assignments {
			progress.Planned++
			if assignment.Completed {
				progress.Completed++
			}
			if assignment.AttendanceDay != nil {
				progress.ByDay[string(*assignment.AttendanceDay)]++
			}

			b := unassigned
			if assignment.ResponsibleID != nil {
				id := *assignment.ResponsibleID
				if byTechnician[id] == nil {
					name := ""
					if assignment.Responsible != nil {
						name = assignment.Responsible.Name
					}
					byTechnician[id] = &bucket{name: name}
				}
				b = byTechnician[id]
			}
			b.planned++
			if assignment.Completed {
				b.completed++
			}
		}

		for id, b := range byTechnician {
			id := id
			progress.Technicians = append(progress.Technicians, TechnicianProgress{
				TechnicianID:   &id,
				TechnicianName: b.name,
				Planned:        b.planned,
				Completed:      b.completed,
			})
		}
		if unassigned.planned > 0 {
			progress.Technicians = append(progress.Technicians, TechnicianProgress{
				TechnicianName: unassigned.name,
				Planned:        unassigned.planned,
				Completed:      unassigned.completed,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	progress.Pending = progress.Planned - progress.Completed
	return progress, nil
}

// UnpaidVisits lists issued visits whose payment state is still open.
func (s *StatsService) UnpaidVisits(ctx context.Context) (*UnpaidReport, error) {
	report := &UnpaidReport{Total: decimal.Zero}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		visits, err := s.repos.Visit.ListUnpaid(ctx, tx)
		if err != nil {
			return err
		}

		for _, visit := range visits {
			entry := UnpaidVisit{
				VisitID:   visit.ID,
				ClientID:  visit.ClientID,
				VisitDate: FormatDate(visit.VisitDate),
				Price:     visit.Price,
			}
			if visit.Client != nil {
				entry.ClientName = visit.Client.Name
			}
			if visit.Invoice.DisplayName != nil {
				entry.DisplayName = *visit.Invoice.DisplayName
			}
			if visit.Invoice.PaymentState != nil {
				entry.PaymentState = *visit.Invoice.PaymentState
			}
			report.Visits = append(report.Visits, entry)
			report.Total = report.Total.Add(visit.Price)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Overview snapshots the operation for the current week.
func (s *StatsService) Overview(ctx context.Context) (*Summary, error) {
	week := CurrentWeekStart()
	summary := &Summary{CurrentWeek: FormatDate(week)}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		clients, err := s.repos.Client.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		summary.ActiveClients = int64(len(clients))

		technicians, err := s.repos.Technician.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		summary.ActiveTechnicians = len(technicians)

		summary.WeekPlanned, err = s.repos.Assignment.CountByWeek(ctx, tx, week)
		if err != nil {
			return err
		}

		completed := true
		done, err := s.repos.Assignment.ListByWeek(
			ctx, tx, week, repositories.AssignmentFilter{Completed: &completed},
		)
		if err != nil {
			return err
		}
		summary.WeekCompleted = int64(len(done))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}
