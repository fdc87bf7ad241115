package repositories

import (
	"pooltrack/internal/database"
)

type Repository struct {
	Technician TechnicianRepository
	Client     ClientRepository
	Assignment AssignmentRepository
	Visit      VisitRepository
}

func New(db database.DB) Repository {
	return Repository{
		Technician: NewTechnicianRepository(db), // Technician repo caches the active list
		Client:     NewClientRepository(),
		Assignment: NewAssignmentRepository(),
		Visit:      NewVisitRepository(),
	}
}
