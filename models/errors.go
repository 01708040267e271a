package models

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorValidation carries field-level reasons. No state is changed when it is returned.
type ErrorValidation struct {
	Fields map[string][]string
}

func NewErrorValidation() *ErrorValidation {
	return &ErrorValidation{Fields: map[string][]string{}}
}

// Add appends a reason to a field.
func (e *ErrorValidation) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], reason)
}

func (e *ErrorValidation) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Merge copies every reason of other into e, prefixing field names with prefix when given.
func (e *ErrorValidation) Merge(prefix string, other *ErrorValidation) {
	if other.Empty() {
		return
	}
	for field, reasons := range other.Fields {
		name := field
		if prefix != "" {
			name = prefix + "." + field
		}
		for _, r := range reasons {
			e.Add(name, r)
		}
	}
}

// OrNil returns nil when no reason was recorded, so callers can return it as an error directly.
func (e *ErrorValidation) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ErrorValidation) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", f, strings.Join(e.Fields[f], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrorGuardViolation reports a workflow or clone precondition that did not hold.
type ErrorGuardViolation struct {
	Rule string
}

func (e *ErrorGuardViolation) Error() string {
	return e.Rule
}

// ErrorConflict reports a lost race on the version number or on the edition lock.
// The operation can be retried after re-reading.
type ErrorConflict struct {
	Message string
}

func (e *ErrorConflict) Error() string {
	return "conflict: " + e.Message
}

type ErrorNotFound struct {
	Resource string
	ID       interface{}
}

func (e *ErrorNotFound) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ErrorArchivedDocument is returned when an edition of an archived artefact is edited.
type ErrorArchivedDocument struct {
	DocumentID string
}

func (e *ErrorArchivedDocument) Error() string {
	return "editing of an edition with an archived artefact is not allowed"
}

type ErrorUnauthorized struct {
	Message string
}

func (e *ErrorUnauthorized) Error() string {
	return e.Message
}

// ErrorForbidden is returned when the actor's role may not perform a workflow action.
type ErrorForbidden struct {
	Action string
	Role   UserRole
}

func (e *ErrorForbidden) Error() string {
	return fmt.Sprintf("role %q is not permitted to %s", e.Role, e.Action)
}
