package app

import (
	"pooltrack/config"
	"pooltrack/internal/database"
	"pooltrack/internal/handlers/middleware"
	"pooltrack/internal/repositories"
	"pooltrack/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Config     config.Config

	// Services
	Services services.Service

	// Repositories
	Repos repositories.Repository
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	repos := repositories.New(db)

	allServices, err := services.New(db, config)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	middleware := middleware.New(db, config)

	app := &App{
		Database:   db,
		Config:     config,
		Middleware: middleware,
		Services:   allServices,
		Repos:      repos,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Services.Transaction,
		a.Services.Invoices,
		a.Services.Notifier,
		a.Services.Reconciler,
		a.Services.Completion,
		a.Services.Audit,
		a.Services.Stats,
		a.Repos.Technician,
		a.Repos.Client,
		a.Repos.Assignment,
		a.Repos.Visit,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
