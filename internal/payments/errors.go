package payments

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccountSelected is returned by SendXRP before any network call
	// when no account is selected.
	ErrNoAccountSelected = errors.New("no wallet selected")

	// ErrInvalidPayment wraps problems with the requested amount,
	// destination or destination tag. Nothing is sent to the node.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrKeyMismatch is returned when the signing key does not belong to
	// the selected account.
	ErrKeyMismatch = errors.New("signing key does not match account")

	// ErrExpired is returned when the last validated ledger passed the
	// transaction's LastLedgerSequence without including it.
	ErrExpired = errors.New("transaction expired before validation")
)

// Submission steps reported by SubmissionError.
const (
	StepConnect  = "connect"
	StepAutofill = "autofill"
	StepSign     = "sign"
	StepSubmit   = "submit"
	StepValidate = "validate"
)

// SubmissionError reports the step at which a payment failed. Result holds
// the engine or final transaction result when the node returned one.
type SubmissionError struct {
	Step   string
	Hash   string
	Result string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := "payment " + e.Step + " failed"
	if e.Result != "" {
		msg += fmt.Sprintf(" (%s)", e.Result)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }
