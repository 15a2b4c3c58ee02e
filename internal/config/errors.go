package config

import "errors"

// Sentinel errors for internal use. Messages on the first block are part of
// the external contract: callers match on them to distinguish rejection
// causes, so the wording is stable.
var (
	// Arithmetic. Fatal to the computation that raised them; a deposit that
	// trips either is refunded in full.
	ErrMultiplicationOverflow = errors.New("multiplication overflow")
	ErrValueTooLarge          = errors.New("value too large")

	// Configuration / invariant violations.
	ErrPhaseNotFound          = errors.New("phase not found")
	ErrFixedPriceExpected     = errors.New("fixed price mechanic expected")
	ErrPriceDiscoveryExpected = errors.New("price discovery mechanic expected")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrInvalidSaleConfig      = errors.New("invalid sale configuration")

	// Preconditions. Rejected before any mutation; the caller may retry once
	// conditions change.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrPartialWithdrawal  = errors.New("partial withdrawal only allowed in price discovery")
	ErrStillInProgress    = errors.New("still in progress")
	ErrAlreadyDistributed = errors.New("already distributed")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrWrongSaleStatus    = errors.New("operation not allowed in current sale status")
	ErrTGEFrozen          = errors.New("token generation event can no longer be changed")
	ErrZeroAmount         = errors.New("amount must be positive")

	// External transfer.
	ErrTransferFailed     = errors.New("token transfer failed")
	ErrInvalidDestination = errors.New("invalid destination address")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Error codes — shared with API clients via error responses.
const (
	ErrorMultiplicationOverflow = "ERROR_MULTIPLICATION_OVERFLOW"
	ErrorValueTooLarge          = "ERROR_VALUE_TOO_LARGE"
	ErrorPhaseNotFound          = "ERROR_PHASE_NOT_FOUND"
	ErrorFixedPriceExpected     = "ERROR_FIXED_PRICE_EXPECTED"
	ErrorInvalidConfig          = "ERROR_INVALID_CONFIG"
	ErrorInsufficientFunds      = "ERROR_INSUFFICIENT_FUNDS"
	ErrorPartialWithdrawal      = "ERROR_PARTIAL_WITHDRAWAL"
	ErrorStillInProgress        = "ERROR_STILL_IN_PROGRESS"
	ErrorAlreadyDistributed     = "ERROR_ALREADY_DISTRIBUTED"
	ErrorNothingToClaim         = "ERROR_NOTHING_TO_CLAIM"
	ErrorWrongSaleStatus        = "ERROR_WRONG_SALE_STATUS"
	ErrorTGEFrozen              = "ERROR_TGE_FROZEN"
	ErrorTransferFailed         = "ERROR_TRANSFER_FAILED"
	ErrorInvalidDestination     = "ERROR_INVALID_DESTINATION"
	ErrorInvalidRequest         = "ERROR_INVALID_REQUEST"
	ErrorDatabase               = "ERROR_DATABASE"
	ErrorUnauthorized           = "ERROR_UNAUTHORIZED"
	ErrorInternal               = "ERROR_INTERNAL"
)
