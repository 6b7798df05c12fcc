package db

import "strings"

// IsUniqueViolation reports whether the provided error references a sqlite
// unique constraint. When columnPath is provided (e.g. "starred_messages.
// source_message_id"), the helper looks for that text in the error message.
func IsUniqueViolation(err error, columnPath string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if columnPath != "" {
		return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, columnPath)
	}
	return strings.Contains(msg, "UNIQUE constraint failed")
}
