package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine readable error codes returned to clients
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeCPFNotFound      = "CPF_NOT_FOUND"
	CodeCPFExists        = "CPF_ALREADY_EXISTS"
	CodeJobMismatch      = "JOB_MISMATCH"
	CodeCompanyMismatch  = "COMPANY_MISMATCH"
	CodeUserBlocked      = "USER_BLOCKED"
	CodeModuleLocked     = "MODULE_LOCKED"
	CodeModuleNotVisible = "MODULE_NOT_VISIBLE"
	CodeInvalidState     = "INVALID_TRANSITION"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeSaveFailed       = "SAVE_FAILED"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(msg string) *Error {
	return New(http.StatusBadRequest, CodeValidation, errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, CodeNotFound, errors.New(msg))
}

// From extracts the first *Error in err's chain
func From(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
