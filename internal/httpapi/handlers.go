package httpapi

import (
	"net/http"
	"sort"
	"strconv"

	"codejudge/internal/domain"
	cjerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, cjerrors.BadRequest("invalid signup payload"))
		return
	}

	hash, err := s.credentials.Hash(req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := s.repo.CreateUser(c.Request.Context(), req.Username, hash); err != nil {
		response.Error(c, err)
		return
	}

	token, err := s.identity.IssueToken(req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"token": token})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, cjerrors.BadRequest("invalid login payload"))
		return
	}

	user, err := s.repo.GetUser(c.Request.Context(), req.Username)
	if err != nil {
		response.Error(c, cjerrors.UnauthorizedError("invalid username or password"))
		return
	}
	if !s.credentials.Verify(user.PasswordHash, req.Password) {
		response.Error(c, cjerrors.UnauthorizedError("invalid username or password"))
		return
	}

	token, err := s.identity.IssueToken(user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"token": token})
}

type ideRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
	Input    string `json:"input"`
}

func (s *Server) handleIDE(c *gin.Context) {
	var req ideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, cjerrors.BadRequest("invalid ide payload"))
		return
	}

	result, err := s.dispatcher.SubmitFreeRun(c.Request.Context(), req.Code, domain.Language(req.Language), req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"output":  result.Stdout,
		"error":   verdictError(result),
		"runtime": result.Runtime,
		"memory":  result.Memory,
	})
}

// verdictError conveys a non-Ok verdict through the /ide response body
// rather than as an HTTP error, per §6.
func verdictError(result domain.ExecutionResult) string {
	if result.Verdict == domain.VerdictOk {
		return ""
	}
	if result.Stderr != "" {
		return result.Stderr
	}
	return string(result.Verdict)
}

type addProblemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Input       string `json:"input"`
	Output      string `json:"output" binding:"required"`
}

func (s *Server) handleAddProblem(c *gin.Context) {
	var req addProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, cjerrors.BadRequest("invalid problem payload"))
		return
	}

	username := c.GetString("username")
	id, err := s.repo.CreateProblem(c.Request.Context(), &domain.Problem{
		Creator:     username,
		Title:       req.Title,
		Description: req.Description,
		Input:       req.Input,
		Output:      req.Output,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"id": id, "message": "problem created"})
}

func (s *Server) handleGetProblems(c *gin.Context) {
	problems, err := s.repo.ListProblems(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	sort.Slice(problems, func(i, j int) bool { return problems[i].ID > problems[j].ID })

	response.Success(c, gin.H{"problems": problems, "count": len(problems)})
}

func (s *Server) handleGetProblem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, cjerrors.BadRequest("invalid problem id"))
		return
	}

	problem, err := s.repo.GetProblem(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, problem)
}

type solveRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}

func (s *Server) handleSolve(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, cjerrors.BadRequest("invalid problem id"))
		return
	}

	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, cjerrors.BadRequest("invalid solve payload"))
		return
	}

	username := c.GetString("username")
	outcome, err := s.dispatcher.SubmitGraded(c.Request.Context(), username, id, req.Code, domain.Language(req.Language))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(outcomeStatus(outcome.Verdict), gin.H{
		"verdict": outcome.Verdict,
		"output":  outcome.Result.Stdout,
		"error":   verdictError(outcome.Result),
		"runtime": outcome.Result.Runtime,
		"memory":  outcome.Result.Memory,
	})
}

func outcomeStatus(v domain.Outcome) int {
	switch v {
	case domain.OutcomeAccepted:
		return http.StatusOK
	case domain.OutcomeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
