package repository

import (
	"context"
	"sort"
	"sync"

	"codejudge/internal/domain"
	cjerrors "codejudge/pkg/errors"
)

// Memory is an in-process Repository backed by maps guarded by a single
// mutex. Used by tests and local development; production
// deployments should use the MySQL adapter instead.
type Memory struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	problems map[uint64]*domain.Problem
	nextID   uint64
}

// NewMemory constructs an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]*domain.User),
		problems: make(map[uint64]*domain.Problem),
	}
}

func (m *Memory) CreateUser(ctx context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return cjerrors.New(cjerrors.UsernameAlreadyExists)
	}
	m.users[username] = &domain.User{Username: username, PasswordHash: passwordHash}
	return nil
}

func (m *Memory) GetUser(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return nil, cjerrors.New(cjerrors.UserNotFound)
	}
	cp := *u
	cp.Solves = append([]uint64(nil), u.Solves...)
	return &cp, nil
}

func (m *Memory) CreateProblem(ctx context.Context, p *domain.Problem) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	cp := *p
	cp.ID = id
	m.problems[id] = &cp
	return id, nil
}

func (m *Memory) GetProblem(ctx context.Context, id uint64) (*domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.problems[id]
	if !ok {
		return nil, cjerrors.New(cjerrors.ProblemNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListProblems(ctx context.Context) ([]*domain.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Problem, 0, len(m.problems))
	for _, p := range m.problems {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID }) // newest first
	return out, nil
}

func (m *Memory) IncrementTried(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.problems[id]
	if !ok {
		return cjerrors.New(cjerrors.ProblemNotFound)
	}
	p.Tried++
	return nil
}

func (m *Memory) IncrementSolved(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.problems[id]
	if !ok {
		return cjerrors.New(cjerrors.ProblemNotFound)
	}
	p.Solved++
	return nil
}

func (m *Memory) AddSolve(ctx context.Context, username string, problemID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return cjerrors.New(cjerrors.UserNotFound)
	}
	for _, id := range u.Solves {
		if id == problemID {
			return nil // idempotent: already present
		}
	}
	u.Solves = append(u.Solves, problemID)
	return nil
}
