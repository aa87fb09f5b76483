package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced resource does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError indicates malformed caller input. Nothing is
// committed when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFoundf builds a NotFoundError for the named entity.
func NotFoundf(entity, format string, args ...any) error {
	return &NotFoundError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// ConfigurationError indicates a required system account or setting is
// missing. A posting that hits one fails whole, before any write.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }

// Configurationf builds a ConfigurationError.
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError indicates the operation targets a protected or locked
// resource (system account edit, header posting, locked opening).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Conflictf builds a ConflictError.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a batch of deltas that would drive an
// (item, location) on-hand balance negative.
type InsufficientStockError struct {
	ItemID       int64
	LocationType string
	LocationID   int64
	Outlet       string
	Requested    float64
	Available    float64
}

func (e *InsufficientStockError) Error() string {
	loc := fmt.Sprintf("%s %d", e.LocationType, e.LocationID)
	if e.Outlet != "" {
		loc = e.Outlet
	}
	return fmt.Sprintf("insufficient stock for item %d at %s: requested %.2f, available %.2f",
		e.ItemID, loc, e.Requested, e.Available)
}

// InvariantViolation flags a programming defect such as an unbalanced
// posting batch. It always aborts the enclosing transaction.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string { return e.Reason }

// Invariantf builds an InvariantViolation.
func Invariantf(format string, args ...any) error {
	return &InvariantViolation{Reason: fmt.Sprintf(format, args...)}
}
