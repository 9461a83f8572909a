package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FieldError is a single rejected field with a human-readable message.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned by the persistence boundary when required fields are missing or
// malformed. Messages are meant to be shown to the user as-is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	sort.Strings(msgs)
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Message
	}
	return out
}

// PageOutOfRangeError means a listing page beyond the last one was requested.
type PageOutOfRangeError struct {
	Requested int
	Last      int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range, last page is %d", e.Requested, e.Last)
}
