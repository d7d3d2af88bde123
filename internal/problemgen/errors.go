package problemgen

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation attempt.
type ErrorKind string

const (
	KindUpstream          ErrorKind = "upstream_error"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindMissingField      ErrorKind = "missing_field"
	KindInvalidAnswerType ErrorKind = "invalid_answer_type"
	KindEmptyQuestion     ErrorKind = "empty_question"
	KindDuplicateQuestion ErrorKind = "duplicate_question"
)

// GenerationError is a transient failure of one attempt. The controller
// retries all of them.
type GenerationError struct {
	Kind    ErrorKind
	Field   string // set for missing_field and friends
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ErrMaxRetriesExceeded is matched by every *MaxRetriesError.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// UserMessage is what players see when generation gives up.
const UserMessage = "please try again later"

// MaxRetriesError is returned once every attempt has failed.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("question generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() []error { return []error{ErrMaxRetriesExceeded, e.Last} }

// KindOf reports the kind of a transient failure, or "" for anything else.
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
