package failure

import (
	"errors"
	"fmt"
)

const (
	UnrecognizedEventType  = "unrecognized_event_type"
	MalformedPayload       = "malformed_payload"
	MissingDestination     = "missing_destination"
	EmptyMessage           = "empty_message"
	InvalidCards           = "invalid_cards"
	AuthenticationFailure  = "authentication_failure"
	MessageCreationFailure = "message_creation_failure"
	Internal               = "internal"
)

// Error is a categorized adapter failure. Sentinels built with New are
// compared by identity, so wrapping them with %w keeps errors.Is working.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// New creates a categorized error.
func New(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryOf returns the category of the first categorized error in the chain.
//
// Uncategorized errors report Internal; nil reports an empty string.
func CategoryOf(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return Internal
}
