package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/voyage-billing/internal/validation"
)

var (
	ErrInvalidInput       = errors.New("validation_failed")
	ErrEmptyItems         = errors.New("items_required")
	ErrMultiplePackages   = errors.New("multiple_package_items")
	ErrNonPositiveAmount  = errors.New("amount_must_be_positive")
	ErrExceedsOutstanding = errors.New("amount_exceeds_outstanding")
	ErrAlreadyConverted   = errors.New("quotation_already_converted")
	ErrInvalidTransition  = errors.New("invalid_status_transition")
	ErrDocumentLocked     = errors.New("document_locked")
	ErrTotalBelowPaid     = errors.New("total_below_paid_amount")
	ErrHasReceipts        = errors.New("invoice_has_receipts")
	ErrConcurrentUpdate   = errors.New("concurrent_update")
	ErrPaymentDetails     = errors.New("payment_details_required")
	ErrNoDraft            = errors.New("no_active_draft")
)

// ValidationError is returned when input or the current document state does not allow
// the operation. Nothing is persisted when it is returned.
type ValidationError struct {
	Err     error
	Details string
	Fields  validation.Violations
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing lead or document.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.Entity, e.ID) }

// UpstreamError reports that persistence kept failing after a retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: upstream unavailable: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: err, Details: fmt.Sprintf(format, args...)}
}

func violations(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Err: ErrInvalidInput, Fields: v}
}

func notFound(entity string, id uint) error { return &NotFoundError{Entity: entity, ID: id} }

// isDomainError reports errors that a retry cannot fix.
func isDomainError(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		ue *UpstreamError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ue) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
