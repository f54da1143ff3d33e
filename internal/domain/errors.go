package domain

import "errors"

var (
	// ErrInvalidGauge is returned when targeting the zero address, a gauge that
	// is not registered, or a gauge in the wrong status for the operation
	ErrInvalidGauge = errors.New("invalid gauge")

	// ErrExceedMaxGauges is returned when an allocation would push a non-exempt
	// user past the per-user gauge cap, or a registration past the registry cap
	ErrExceedMaxGauges = errors.New("max gauges exceeded")

	// ErrOverweight is returned when a user's total allocated weight would
	// exceed their balance
	ErrOverweight = errors.New("total weight exceeds balance")

	// ErrFreezePeriod is returned when incrementing weight inside the freeze
	// window before a cycle boundary
	ErrFreezePeriod = errors.New("freeze period active")

	// ErrSizeMismatch is returned when a batched call passes arrays of
	// different lengths
	ErrSizeMismatch = errors.New("array size mismatch")

	// ErrPendingLoss is returned when a user has an unapplied loss blocking the
	// operation
	ErrPendingLoss = errors.New("pending loss unapplied")

	// ErrNoLossToApply is returned when applying a loss the user does not have
	ErrNoLossToApply = errors.New("no loss to apply")

	// ErrDebtCeilingUsed is returned when the issuance collaborator refuses a
	// weight withdrawal because current issuance still needs it
	ErrDebtCeilingUsed = errors.New("debt ceiling used")

	// ErrNotExemptTarget is returned when an exemption update targets an
	// address that cannot take it
	ErrNotExemptTarget = errors.New("not a valid exemption target")

	// ErrUnauthorized is returned when the caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized")

	// ErrArithmeticFault indicates a caller defect such as decrementing below
	// zero; it is a fatal fault, not a business error
	ErrArithmeticFault = errors.New("arithmetic fault")

	// ErrInsufficientBalance is returned by the balance host when a debit
	// exceeds the available balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned by the balance host when a
	// transferFrom exceeds the spender's allowance
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
