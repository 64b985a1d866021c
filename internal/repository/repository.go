// Package repository defines the persistence port the core depends on and
// offers two adapters: an in-memory implementation for tests and local
// development, and a MySQL-backed implementation (optionally fronted by a
// Redis read-through cache) for production use.
package repository

import (
	"context"

	"codejudge/internal/domain"
)

// Repository is the persistence port described in spec §6: users, problems
// and the solve ledger, with atomic counter increments and an idempotent
// set-insert for solves.
type Repository interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	GetUser(ctx context.Context, username string) (*domain.User, error)

	CreateProblem(ctx context.Context, p *domain.Problem) (uint64, error)
	GetProblem(ctx context.Context, id uint64) (*domain.Problem, error)
	ListProblems(ctx context.Context) ([]*domain.Problem, error)

	// IncrementTried atomically increments problems.tried for id.
	IncrementTried(ctx context.Context, id uint64) error
	// IncrementSolved atomically increments problems.solved for id.
	IncrementSolved(ctx context.Context, id uint64) error

	// AddSolve idempotently inserts problemID into username's solve set.
	// Calling it again for an id already present is a no-op.
	AddSolve(ctx context.Context, username string, problemID uint64) error
}
