package domain

import "github.com/smallbiznis/mywill/internal/errs"

var (
	ErrInvalidCredentials = errs.New(errs.KindUnauthorized, "invalid_credentials")
	ErrInvalidSession     = errs.New(errs.KindUnauthorized, "invalid_session")
	ErrInvalidResetToken  = errs.New(errs.KindValidationFailed, "invalid_reset_token")
	ErrUserNotFound       = errs.New(errs.KindNotFound, "user_not_found")
	ErrTooManyAttempts    = errs.New(errs.KindTooManyRequests, "too_many_attempts")
)
