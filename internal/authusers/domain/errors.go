package domain

import "github.com/kivabase/kivabase-backend/internal/apperr"

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrUserExists         = apperr.New(apperr.Conflict, "user with this email already exists")
	ErrCredentialsMissing = apperr.New(apperr.Validation, "email and password are required")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid email or password")
)
