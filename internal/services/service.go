package services

import (
	"pooltrack/config"
	"pooltrack/internal/database"
	"pooltrack/internal/repositories"
)

type Service struct {
	Transaction *TransactionService
	Invoices    InvoiceService
	Notifier    Notifier
	Reconciler  *ReconcilerService
	Completion  *CompletionService
	Audit       *AuditService
	Stats       *StatsService
}

func New(db database.DB, config config.Config) (Service, error) {
	transactionService := NewTransactionService(db)
	repos := repositories.New(db)

	odooService, err := NewOdooService(config)
	if err != nil {
		return Service{}, err
	}

	notifier := NewMailNotifier(config)

	reconcilerService := NewReconcilerService(repos, transactionService)
	completionService := NewCompletionService(repos, transactionService, odooService, notifier)
	auditService := NewAuditService(
		repos,
		transactionService,
		reconcilerService,
		completionService,
		odooService,
	)
	statsService := NewStatsService(repos, transactionService)

	return Service{
		Transaction: transactionService,
		Invoices:    odooService,
		Notifier:    notifier,
		Reconciler:  reconcilerService,
		Completion:  completionService,
		Audit:       auditService,
		Stats:       statsService,
	}, nil
}
