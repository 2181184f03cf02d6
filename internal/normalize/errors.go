package normalize

import (
	"errors"
	"fmt"
)

// ErrUnknownKind marks a record whose kind no decoder mapping knows.
var ErrUnknownKind = errors.New("unknown record kind")

// MalformedRecordError reports a record with an absent, mistyped or invalid
// field. The record is dropped; the rest of the match is kept.
type MalformedRecordError struct {
	Index  int
	Kind   string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d (%s): field %s: %s", e.Index, e.Kind, e.Field, e.Reason)
}
