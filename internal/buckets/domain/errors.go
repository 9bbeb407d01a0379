package domain

import "github.com/kivabase/kivabase-backend/internal/apperr"

var (
	ErrBucketNotFound = apperr.New(apperr.NotFound, "bucket not found")
	ErrBucketExists   = apperr.New(apperr.Conflict, "bucket with this name already exists")
	ErrBucketName     = apperr.New(apperr.Validation, "bucket name is required")
	ErrFileNotFound   = apperr.New(apperr.NotFound, "file not found")
	ErrFileName       = apperr.New(apperr.Validation, "file name is required")
)
