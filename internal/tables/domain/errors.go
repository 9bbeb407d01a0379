package domain

import "github.com/kivabase/kivabase-backend/internal/apperr"

var (
	ErrTableNotFound  = apperr.New(apperr.NotFound, "table not found")
	ErrTableExists    = apperr.New(apperr.Conflict, "table with this name already exists")
	ErrTableName      = apperr.New(apperr.Validation, "table name is required")
	ErrColumnNotFound = apperr.New(apperr.NotFound, "column not found")
	ErrColumnExists   = apperr.New(apperr.Conflict, "column with this name already exists")
	ErrColumnSpec     = apperr.New(apperr.Validation, "column name and type are required")
	ErrPrimaryColumn  = apperr.New(apperr.Validation, "the primary column cannot be changed")
	ErrRowNotFound    = apperr.New(apperr.NotFound, "row not found")
)
