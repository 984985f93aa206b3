// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced row does not exist.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// ErrValidation is returned for a missing or malformed input field.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ErrPrecondition is returned when a workflow action is not allowed from
// the campaign's current status.
type ErrPrecondition struct {
	Action string
	Status string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("cannot %s campaign in status: %s", e.Action, e.Status)
}

type ErrUnauthorized struct {
	Reason string
}

func (e *ErrUnauthorized) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

type ErrForbidden struct {
	MemberID string
	Reason   string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("member %s is not allowed to %s", e.MemberID, e.Reason)
}

// ErrPersistence wraps a failed database call.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error { return e.Err }

// ErrUpload wraps a failed object storage write.
type ErrUpload struct {
	Key string
	Err error
}

func (e *ErrUpload) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Key, e.Err)
}

func (e *ErrUpload) Unwrap() error { return e.Err }

// Helper constructors

func NewNotFound(entity, id string) error {
	return &ErrNotFound{Entity: entity, ID: id}
}

func NewCampaignNotFound(id string) error {
	return &ErrNotFound{Entity: "campaign", ID: id}
}

func NewValidation(field, reason string) error {
	return &ErrValidation{Field: field, Reason: reason}
}

func NewPrecondition(action, status string) error {
	return &ErrPrecondition{Action: action, Status: status}
}

func NewUnauthorized(reason string) error {
	return &ErrUnauthorized{Reason: reason}
}

func NewForbidden(memberID, reason string) error {
	return &ErrForbidden{MemberID: memberID, Reason: reason}
}

func NewPersistence(op string, err error) error {
	return &ErrPersistence{Op: op, Err: err}
}

func NewUpload(key string, err error) error {
	return &ErrUpload{Key: key, Err: err}
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ErrValidation
	return errors.As(err, &target)
}

func IsPrecondition(err error) bool {
	var target *ErrPrecondition
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ErrForbidden
	return errors.As(err, &target)
}
