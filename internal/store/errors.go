package store

import (
	"errors"
	"fmt"
)

// Kind classifies an expected, user-facing failure.
type Kind string

const (
	KindSelfLink         Kind = "SelfLink"
	KindProjectMismatch  Kind = "ProjectMismatch"
	KindSameDevice       Kind = "SameDevice"
	KindStructuralPort   Kind = "StructuralPort"
	KindAlreadyLinked    Kind = "AlreadyLinked"
	KindPortInactive     Kind = "PortInactive"
	KindCapacityExceeded Kind = "CapacityExceeded"
	KindTypeMismatch     Kind = "TypeMismatch"
	KindRuleMismatch     Kind = "RuleMismatch"
	KindDirectionInvalid Kind = "DirectionInvalid"
	KindPortNotFound     Kind = "PortNotFound"
	KindInvalidNesting   Kind = "InvalidNesting"
	KindNameConflict     Kind = "NameConflict"
	KindPortInUse        Kind = "PortInUse"
	KindTemplateNotFound Kind = "TemplateNotFound"
	KindDeviceNotFound   Kind = "DeviceNotFound"
	KindProjectNotFound  Kind = "ProjectNotFound"
	KindInvalidInput     Kind = "InvalidInput"
)

// Error is a domain error. Two Errors match under errors.Is when their kinds
// are equal, so callers compare against the Err* sentinels below.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSelfLink         = &Error{Kind: KindSelfLink}
	ErrProjectMismatch  = &Error{Kind: KindProjectMismatch}
	ErrSameDevice       = &Error{Kind: KindSameDevice}
	ErrStructuralPort   = &Error{Kind: KindStructuralPort}
	ErrAlreadyLinked    = &Error{Kind: KindAlreadyLinked}
	ErrPortInactive     = &Error{Kind: KindPortInactive}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
	ErrRuleMismatch     = &Error{Kind: KindRuleMismatch}
	ErrDirectionInvalid = &Error{Kind: KindDirectionInvalid}
	ErrPortNotFound     = &Error{Kind: KindPortNotFound}
	ErrInvalidNesting   = &Error{Kind: KindInvalidNesting}
	ErrNameConflict     = &Error{Kind: KindNameConflict}
	ErrPortInUse        = &Error{Kind: KindPortInUse}
	ErrTemplateNotFound = &Error{Kind: KindTemplateNotFound}
	ErrDeviceNotFound   = &Error{Kind: KindDeviceNotFound}
	ErrProjectNotFound  = &Error{Kind: KindProjectNotFound}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the domain kind from err. It returns "" for infrastructure
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err names a missing entity.
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindPortNotFound, KindTemplateNotFound, KindDeviceNotFound, KindProjectNotFound:
		return true
	}
	return false
}
