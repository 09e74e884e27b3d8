package shared

import (
	"errors"
	"log/slog"
	"strconv"
)

// Code names a typed application failure in logs.
type Code string

const (
	CodeUnknown                    Code = "UNKNOWN"
	CodeLoginFail                  Code = "LOGIN_FAIL"
	CodeTicketDeleteFailIDNotFound Code = "TICKET_DELETE_FAIL_ID_NOT_FOUND"
)

// Coded is implemented by every typed application error.
type Coded interface {
	error
	Code() Code
}

// ErrLoginFail is returned when the submitted credentials are rejected.
var ErrLoginFail = &LoginFailError{}

// LoginFailError reports a failed credential check.
type LoginFailError struct{}

func (*LoginFailError) Error() string { return "login fail" }

// Code implements Coded.
func (*LoginFailError) Code() Code { return CodeLoginFail }

// Unwrap classifies the failure as KindUnauthorized.
func (*LoginFailError) Unwrap() error { return ErrUnauthorized }

// LogValue implements slog.LogValuer.
func (e *LoginFailError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("code", string(e.Code())))
}

// ResourceNotFoundError reports a delete of a ticket id that was never
// assigned or has already been deleted.
type ResourceNotFoundError struct {
	ID int64
}

func (e *ResourceNotFoundError) Error() string {
	return "ticket delete fail: id " + strconv.FormatInt(e.ID, 10) + " not found"
}

// Code implements Coded.
func (*ResourceNotFoundError) Code() Code { return CodeTicketDeleteFailIDNotFound }

// Unwrap classifies the failure as KindNotFound.
func (*ResourceNotFoundError) Unwrap() error { return ErrNotFound }

// LogValue implements slog.LogValuer.
func (e *ResourceNotFoundError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("code", string(e.Code())),
		slog.Int64("id", e.ID),
	)
}

// CodeOf returns the code of the first typed error in err's chain,
// or CodeUnknown.
func CodeOf(err error) Code {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeUnknown
}
