package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for node and content item fields.
const (
	maxNameLen   = 200
	maxSlugLen   = 200
	maxBodyLen   = 100_000
	maxDetailLen = 1_000
)

// validateNode checks node form inputs and returns the first error found.
func validateNode(name, slug string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 200 characters)."
	}
	return ""
}

// validateItemBody checks a content item's free-form payload.
func validateItemBody(body string) string {
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "Body is too long (max 100,000 characters)."
	}
	return ""
}
