package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codejudge/internal/domain"
	cjerrors "codejudge/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig mirrors the connection-pool defaults the reference codebase
// applies to every service's database handle.
type MySQLConfig struct {
	DSN                string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
}

// DefaultMySQLConfig applies the reference codebase's pool defaults.
func DefaultMySQLConfig(dsn string) MySQLConfig {
	return MySQLConfig{
		DSN:                dsn,
		MaxOpenConnections: 25,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    5 * time.Minute,
		ConnMaxIdleTime:    10 * time.Minute,
	}
}

// MySQL is the production Repository adapter. The logical schema is:
//
//	users(username PK, password_hash, solves JSON default '[]')
//	problems(id PK auto, creator, title, description, input, output,
//	         solved BIGINT UNSIGNED default 0, tried BIGINT UNSIGNED default 0)
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens a pooled connection per cfg. Callers must Close() the
// returned *sql.DB via MySQL.Close when done.
func NewMySQL(cfg MySQLConfig) (*MySQL, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &MySQL{db: db}, nil
}

func (m *MySQL) Close() error { return m.db.Close() }

func (m *MySQL) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, solves) VALUES (?, ?, JSON_ARRAY())`,
		username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return cjerrors.New(cjerrors.UsernameAlreadyExists)
		}
		return cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	return nil
}

func (m *MySQL) GetUser(ctx context.Context, username string) (*domain.User, error) {
	var passwordHash string
	var solvesJSON []byte

	row := m.db.QueryRowContext(ctx,
		`SELECT password_hash, solves FROM users WHERE username = ?`, username)
	if err := row.Scan(&passwordHash, &solvesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cjerrors.New(cjerrors.UserNotFound)
		}
		return nil, cjerrors.Wrap(err, cjerrors.RepositoryError)
	}

	var solves []uint64
	if len(solvesJSON) > 0 {
		if err := json.Unmarshal(solvesJSON, &solves); err != nil {
			return nil, cjerrors.Wrap(err, cjerrors.RepositoryError)
		}
	}

	return &domain.User{Username: username, PasswordHash: passwordHash, Solves: solves}, nil
}

func (m *MySQL) CreateProblem(ctx context.Context, p *domain.Problem) (uint64, error) {
	res, err := m.db.ExecContext(ctx,
		`INSERT INTO problems (creator, title, description, input, output, solved, tried)
		 VALUES (?, ?, ?, ?, ?, 0, 0)`,
		p.Creator, p.Title, p.Description, p.Input, p.Output)
	if err != nil {
		return 0, cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	return uint64(id), nil
}

func (m *MySQL) GetProblem(ctx context.Context, id uint64) (*domain.Problem, error) {
	p := &domain.Problem{ID: id}
	row := m.db.QueryRowContext(ctx,
		`SELECT creator, title, description, input, output, solved, tried
		 FROM problems WHERE id = ?`, id)
	if err := row.Scan(&p.Creator, &p.Title, &p.Description, &p.Input, &p.Output, &p.Solved, &p.Tried); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cjerrors.New(cjerrors.ProblemNotFound)
		}
		return nil, cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	return p, nil
}

func (m *MySQL) ListProblems(ctx context.Context) ([]*domain.Problem, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, creator, title, description, input, output, solved, tried
		 FROM problems ORDER BY id DESC`)
	if err != nil {
		return nil, cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	defer rows.Close()

	var out []*domain.Problem
	for rows.Next() {
		p := &domain.Problem{}
		if err := rows.Scan(&p.ID, &p.Creator, &p.Title, &p.Description, &p.Input, &p.Output, &p.Solved, &p.Tried); err != nil {
			return nil, cjerrors.Wrap(err, cjerrors.RepositoryError)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (m *MySQL) IncrementTried(ctx context.Context, id uint64) error {
	return m.incrementCounter(ctx, "tried", id)
}

func (m *MySQL) IncrementSolved(ctx context.Context, id uint64) error {
	return m.incrementCounter(ctx, "solved", id)
}

func (m *MySQL) incrementCounter(ctx context.Context, column string, id uint64) error {
	query := fmt.Sprintf(`UPDATE problems SET %s = %s + 1 WHERE id = ?`, column, column)
	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cjerrors.New(cjerrors.ProblemNotFound)
	}
	return nil
}

// AddSolve performs the idempotent set-insert: the UPDATE only touches a row
// whose solves array does not already contain problemID, so a retried or
// concurrently racing Accepted submission never double-appends.
func (m *MySQL) AddSolve(ctx context.Context, username string, problemID uint64) error {
	res, err := m.db.ExecContext(ctx,
		`UPDATE users
		   SET solves = JSON_ARRAY_APPEND(solves, '$', ?)
		 WHERE username = ? AND NOT JSON_CONTAINS(solves, ?)`,
		problemID, username, fmt.Sprintf("%d", problemID))
	if err != nil {
		return cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	if _, err := res.RowsAffected(); err != nil {
		return cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	// 0 rows affected means either the user doesn't exist or the id was
	// already present; both are fine for idempotence, but a missing user is
	// a real error worth surfacing.
	var exists int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&exists); err != nil {
		return cjerrors.Wrap(err, cjerrors.RepositoryError)
	}
	if exists == 0 {
		return cjerrors.New(cjerrors.UserNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// github.com/go-sql-driver/mysql reports duplicate-key errors as
	// *mysql.MySQLError with number 1062; checked by substring to avoid an
	// extra import of the driver's error type in this file.
	return err != nil && containsDuplicateKey(err.Error())
}

func containsDuplicateKey(msg string) bool {
	const marker = "Error 1062"
	for i := 0; i+len(marker) <= len(msg); i++ {
		if msg[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}
