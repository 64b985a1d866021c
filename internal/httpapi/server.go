// Package httpapi is the gin-based HTTP adapter: it shapes the route table
// of §6 onto the Dispatcher, Repository, Identity and Credentials
// capabilities. Business semantics live in those packages; this package
// only binds requests, maps errors to status codes, and shapes responses.
package httpapi

import (
	"context"
	"fmt"

	"codejudge/internal/domain"

	"github.com/gin-gonic/gin"
)

// Dispatcher is the subset of the Submission Dispatcher the HTTP layer
// drives.
type Dispatcher interface {
	SubmitFreeRun(ctx context.Context, code string, language domain.Language, stdin string) (domain.ExecutionResult, error)
	SubmitGraded(ctx context.Context, username string, problemID uint64, code string, language domain.Language) (domain.GradingOutcome, error)
}

// Repository is the subset of the persistence port the HTTP layer needs
// directly, for signup/login and problem listing.
type Repository interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	GetUser(ctx context.Context, username string) (*domain.User, error)
	CreateProblem(ctx context.Context, p *domain.Problem) (uint64, error)
	GetProblem(ctx context.Context, id uint64) (*domain.Problem, error)
	ListProblems(ctx context.Context) ([]*domain.Problem, error)
}

// Identity issues and validates bearer tokens.
type Identity interface {
	IssueToken(username string) (string, error)
	UsernameFromToken(token string) (string, error)
}

// Credentials hashes and verifies passwords.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Config controls the HTTP adapter's CORS policy.
type Config struct {
	AllowedOrigins []string
}

// Server wires the route table of §6 onto its dependencies.
type Server struct {
	engine *gin.Engine

	dispatcher  Dispatcher
	repo        Repository
	identity    Identity
	credentials Credentials
}

// New builds a Server and registers its routes.
func New(dispatcher Dispatcher, repo Repository, identity Identity, credentials Credentials, cfg Config) *Server {
	s := &Server{
		dispatcher:  dispatcher,
		repo:        repo,
		identity:    identity,
		credentials: credentials,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), traceMiddleware(), corsMiddleware(corsConfig{AllowedOrigins: cfg.AllowedOrigins}))
	engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.AbortWithStatus(404)
	})

	engine.GET("/", s.handleRoot)
	engine.POST("/signup", s.handleSignup)
	engine.POST("/login", s.handleLogin)
	engine.POST("/ide", s.handleIDE)

	auth := authMiddleware(identity)
	engine.POST("/addproblem", auth, s.handleAddProblem)
	engine.GET("/getproblems", s.handleGetProblems)
	engine.GET("/problem/:id", s.handleGetProblem)
	engine.POST("/problem/:id/solve", auth, s.handleSolve)

	s.engine = engine
	return s
}

// Handler returns the underlying http.Handler for use with net/http.Server.
func (s *Server) Handler() *gin.Engine { return s.engine }

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": fmt.Sprintf("codejudge online judge backend, host=%s path=%s", c.Request.Host, c.Request.URL.Path),
	})
}
