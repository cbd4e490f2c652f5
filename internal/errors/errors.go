package errors

import "errors"

// Common errors used throughout the application
var (
	// Database errors
	ErrNoteNotFound           = errors.New("note not found")
	ErrTagNotFound            = errors.New("tag not found")
	ErrTagAssociationNotFound = errors.New("tag association not found or already removed")
	ErrDatabaseQuery          = errors.New("database query failed")

	// Validation errors
	ErrEmptyTagName     = errors.New("tag name is required")
	ErrNothingToUpdate  = errors.New("title or content is required for update")
	ErrInvalidNoteID    = errors.New("invalid note ID")
	ErrInvalidTagID     = errors.New("invalid tag ID")
	ErrInvalidPage      = errors.New("page and limit must be positive")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)
