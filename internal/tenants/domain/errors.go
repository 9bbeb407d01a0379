package domain

import "github.com/kivabase/kivabase-backend/internal/apperr"

var (
	ErrProjectNotFound = apperr.New(apperr.NotFound, "project not found")
	ErrNameRequired    = apperr.New(apperr.Validation, "project name is required")
)
