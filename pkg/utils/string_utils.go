package utils

import "github.com/google/uuid"

// NewNullString is a helper for string pointers, returning nil if string is empty.
// Useful for fields that are optional and should be NULL in DB if not provided.
func NewNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewSlug returns a fresh public identifier for a created record.
func NewSlug() string {
	return uuid.NewString()
}
