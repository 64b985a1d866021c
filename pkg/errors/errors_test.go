package errors_test

import (
	"errors"
	"testing"

	. "codejudge/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{UserNotFound, "User not found"},
		{InvalidParams, "Invalid parameters"},
		{RepositoryError, "Repository operation failed"},
		{CompileErrorVerdict, "Compile error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{Unauthorized, 401},
		{Forbidden, 403},
		{NotFound, 404},
		{ProblemNotFound, 404},
		{UsernameAlreadyExists, 409},
		{TooManyRequests, 429},
		{SandboxUnavailable, 503},
		{InternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNew(t *testing.T) {
	err := New(UserNotFound)

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != UserNotFound {
		t.Errorf("Code = %v, want %v", err.Code, UserNotFound)
	}
	if err.Error() != UserNotFound.Message() {
		t.Errorf("Error() = %v, want %v", err.Error(), UserNotFound.Message())
	}
}

func TestNewf(t *testing.T) {
	id := uint64(123)
	err := Newf(ProblemNotFound, "problem %d not found", id)

	want := "problem 123 not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, RepositoryError)

	if wrappedErr.Code != RepositoryError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, RepositoryError)
	}
	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(ValidationFailed).
		WithDetail("field", "language").
		WithDetail("reason", "unsupported")

	if err.Details["field"] != "language" {
		t.Error("field detail not set correctly")
	}
	if err.Details["reason"] != "unsupported" {
		t.Error("reason detail not set correctly")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil error", nil, Success},
		{"custom error", New(UserNotFound), UserNotFound},
		{"standard error", errors.New("boom"), InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(UserNotFound)

	if !Is(err, UserNotFound) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, RepositoryError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, UserNotFound) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("BadRequest", func(t *testing.T) {
		if err := BadRequest("invalid input"); err.Code != InvalidParams {
			t.Error("BadRequest should use InvalidParams code")
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		if err := NotFoundError("problem"); err.Code != NotFound {
			t.Error("NotFoundError should use NotFound code")
		}
	})

	t.Run("UnauthorizedError", func(t *testing.T) {
		if err := UnauthorizedError("token expired"); err.Code != Unauthorized {
			t.Error("UnauthorizedError should use Unauthorized code")
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		if err := InternalError(errors.New("db error")); err.Code != InternalServerError {
			t.Error("InternalError should use InternalServerError code")
		}
	})
}
