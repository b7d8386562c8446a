package services

import (
	"errors"
	"fmt"
	"strings"

	"salespipeline/internal/repositories"
)

// Kind is the machine-checkable class of a rejected operation.
type Kind string

const (
	KindInvalidTransition Kind = "InvalidTransition"
	KindIncompleteData    Kind = "IncompleteData"
	KindLocked            Kind = "Locked"
	KindAlreadyConverted  Kind = "AlreadyConverted"
	KindNotFound          Kind = "NotFound"
	KindValidation        Kind = "ValidationError"
	KindForbidden         Kind = "Forbidden"
	KindConflict          Kind = "Conflict"
)

// Error is returned for every business rejection. Message names the rule
// that fired; Details carries field names where that applies.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ", ")
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func incompleteData(stageCode string, missing []string) *Error {
	return &Error{
		Kind:    KindIncompleteData,
		Message: fmt.Sprintf("stage %s is missing required fields", stageCode),
		Details: missing,
	}
}

// KindOf extracts the kind of a business error. ok is false for
// infrastructure errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// fromRepo turns repository sentinels into business errors and passes
// everything else through.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return newError(KindNotFound, "%s not found", what)
	case errors.Is(err, repositories.ErrConcurrentUpdate):
		return newError(KindConflict, "%s was modified concurrently, retry", what)
	}
	return err
}
