package documents

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidScope  = errors.New("invalid scope")
	ErrForbidden     = errors.New("forbidden")
	ErrEmptyFile     = errors.New("uploaded file is empty")
	ErrFileTooLarge  = errors.New("file exceeds maximum allowed size")
	ErrExtension     = errors.New("file type not allowed")
	ErrNotConfigured = errors.New("object store not configured")
	ErrStore         = errors.New("store unavailable")
)
