package learningassistant

import (
	"errors"
	"fmt"
)

var (
	// Loading
	ErrMalformedRecord = errors.New("malformed question record")
	ErrTooManyOptions  = errors.New("too many answer options")
	ErrEmptyBank       = errors.New("question bank is empty")

	// Session state machine
	ErrEmptySelection   = errors.New("selection is empty")
	ErrAlreadySubmitted = errors.New("answer already submitted for current question")
	ErrNotYetGraded     = errors.New("current question has not been graded")
	ErrSessionComplete  = errors.New("session is complete")
	ErrUnknownLetter    = errors.New("unknown answer letter")

	// Assistant
	ErrAdvisoryUnavailable = errors.New("advisory unavailable")
	ErrTranslationMismatch = errors.New("translation does not match question")

	ErrNotFound = errors.New("not found")
)

// RecordError describes a bank record rejected by the loader.
type RecordError struct {
	Index  int    // position of the record in its source
	Source string // file name or bank id, if known
	Err    error
}

func (e *RecordError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: record %d: %v", e.Source, e.Index, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
