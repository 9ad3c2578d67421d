// Package floats implements the cash float ledger state machine.
//
// A float is cash advanced to a driver, later reconciled against the receipts
// they submit. The receipts total is always recomputed from the attribution
// rows, never hand-maintained, so it cannot drift. Variance is signed:
// positive means money is unaccounted for, negative means the driver
// over-spent and is owed a reimbursement. Neither is ever clamped.
package floats

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a float.
type Status string

const (
	// StatusOutstanding is the initial state on issuance.
	StatusOutstanding Status = "outstanding"
	// StatusReturned means the driver has handed the float back but the
	// shortfall assessment has not run yet.
	StatusReturned Status = "returned"
	// StatusReconciled is terminal: receipts covered the float within tolerance.
	StatusReconciled Status = "reconciled"
	// StatusShortage is terminal for the normal flow: variance exceeded
	// tolerance. Reopening requires an explicit, logged operator action.
	StatusShortage Status = "shortage"
)

// DefaultTolerance is the absolute variance inside which a float reconciles
// clean.
var DefaultTolerance = decimal.RequireFromString("0.01")

// TransitionError reports a state change the ledger does not allow.
type TransitionError struct {
	FloatID string
	From    Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("float %s cannot move from %s to %s", e.FloatID, e.From, e.To)
}

// Variance returns issued - receipts, signed.
func Variance(issued, receipts decimal.Decimal) decimal.Decimal {
	return issued.Sub(receipts)
}

// Evaluate maps a variance to the terminal status under the given tolerance.
func Evaluate(variance, tolerance decimal.Decimal) Status {
	if variance.Abs().LessThanOrEqual(tolerance) {
		return StatusReconciled
	}
	return StatusShortage
}

// CanAttribute reports whether receipts may still be attributed to or
// detached from a float in the given state. Terminal floats must be reopened
// first.
func CanAttribute(s Status) bool {
	return s == StatusOutstanding || s == StatusReturned
}

// MarkReturned validates the Outstanding -> Returned transition.
func MarkReturned(floatID string, current Status) (Status, error) {
	if current != StatusOutstanding {
		return current, &TransitionError{FloatID: floatID, From: current, To: StatusReturned}
	}
	return StatusReturned, nil
}

// Reconcile validates the transition out of Returned and evaluates the
// variance. The result is terminal; it does not auto-retry.
func Reconcile(floatID string, current Status, variance, tolerance decimal.Decimal) (Status, error) {
	if current != StatusReturned {
		return current, &TransitionError{FloatID: floatID, From: current, To: StatusReconciled}
	}
	return Evaluate(variance, tolerance), nil
}

// Reopen validates the Shortage -> Outstanding transition. Only a shortage
// can be reopened, and only via an audited operator action (the caller logs
// the reason).
func Reopen(floatID string, current Status) (Status, error) {
	if current != StatusShortage {
		return current, &TransitionError{FloatID: floatID, From: current, To: StatusOutstanding}
	}
	return StatusOutstanding, nil
}
