package rounds

import (
	"errors"
	"fmt"
)

// ErrRoundSequence is the sentinel wrapped by every RoundSequenceError.
var ErrRoundSequence = errors.New("round sequence violated")

// RoundSequenceError rejects a whole match: its round markers cannot be
// ordered into contiguous, well-formed rounds.
type RoundSequenceError struct {
	RoundNum int
	Reason   string
}

func (e *RoundSequenceError) Error() string {
	return fmt.Sprintf("round %d: %s", e.RoundNum, e.Reason)
}

func (e *RoundSequenceError) Unwrap() error { return ErrRoundSequence }

func sequenceError(round int, format string, args ...any) error {
	return &RoundSequenceError{RoundNum: round, Reason: fmt.Sprintf(format, args...)}
}
