package transfer

import (
	"errors"
	"fmt"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

var (
	ErrValidation        = errors.New("invalid amount or recipient")
	ErrNotFound          = models.ErrAccountNotFound
	ErrAuthFailed        = errors.New("invalid PIN")
	ErrSelfTransfer      = errors.New("cannot self-transfer")
	ErrInsufficientFunds = models.ErrInsufficientFunds
	ErrInternal          = errors.New("transfer failed due to server error")

	// ErrIndeterminate marks internal errors raised after a successful debit.
	// Money has left the sender; the journal row is left for the reconciler.
	ErrIndeterminate = errors.New("transfer outcome indeterminate")
)

// IsUnsafe reports whether err may have left a transfer half applied.
func IsUnsafe(err error) bool {
	return errors.Is(err, ErrIndeterminate)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func internalError(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, step, err)
}

// IndeterminateError is returned once the debit may have landed. TransferID
// names the journal row the reconciler will resolve.
type IndeterminateError struct {
	TransferID string
	Step       string
	Err        error
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("%v: %v: transfer %s: %s: %v", ErrInternal, ErrIndeterminate, e.TransferID, e.Step, e.Err)
}

func (e *IndeterminateError) Is(target error) bool {
	return target == ErrInternal || target == ErrIndeterminate
}

func (e *IndeterminateError) Unwrap() error { return e.Err }

// Reference returns the transfer id behind an unsafe error, or "".
func Reference(err error) string {
	var ind *IndeterminateError
	if errors.As(err, &ind) {
		return ind.TransferID
	}
	return ""
}

func unsafeError(id, step string, err error) error {
	return &IndeterminateError{TransferID: id, Step: step, Err: err}
}
