package failure

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable classifier for a withdrawal failure.
type Kind string

const (
	KindUnknown                  Kind = "unknown"
	KindFormat                   Kind = "format"
	KindInvalidAddress           Kind = "invalid_address"
	KindInvalidParameters        Kind = "invalid_parameters"
	KindUnsupportedExecutionPath Kind = "unsupported_execution_path"
	KindMissingOnchainState      Kind = "missing_onchain_state"
	KindUnauthorizedSigner       Kind = "unauthorized_signer"
	KindStaleNonce               Kind = "stale_nonce"
	KindSubmissionFailed         Kind = "submission_failed"
)

// Classified is implemented by every error in this package.
type Classified interface {
	error
	Kind() Kind
	Retryable() bool
}

// FormatError indicates malformed input encoding (hex, base64, base58, widths).
type FormatError struct {
	Field   string
	message string
}

func NewFormatError(field, format string, args ...any) FormatError {
	return FormatError{Field: field, message: fmt.Sprintf(format, args...)}
}

func (e FormatError) Error() string {
	return fmt.Sprintf("format error: %s: %s", e.Field, e.message)
}

func (FormatError) Kind() Kind      { return KindFormat }
func (FormatError) Retryable() bool { return false }

// InvalidAddressError indicates an address that could not be parsed as a
// 32 byte public key.
type InvalidAddressError struct {
	Field string
	Value string
}

func NewInvalidAddressError(field, value string) InvalidAddressError {
	return InvalidAddressError{Field: field, Value: value}
}

func (e InvalidAddressError) Error() string {
	return fmt.Sprintf("%s must be a valid solana public key (got %q)", e.Field, e.Value)
}

func (InvalidAddressError) Kind() Kind      { return KindInvalidAddress }
func (InvalidAddressError) Retryable() bool { return false }

// InvalidParametersError indicates a bad or incomplete withdrawal tuple or
// bundle metadata.
type InvalidParametersError struct {
	message string
}

func NewInvalidParametersError(format string, args ...any) InvalidParametersError {
	return InvalidParametersError{message: fmt.Sprintf(format, args...)}
}

func (e InvalidParametersError) Error() string {
	return "invalid parameters: " + e.message
}

func (InvalidParametersError) Kind() Kind      { return KindInvalidParameters }
func (InvalidParametersError) Retryable() bool { return false }

// UnsupportedExecutionPathError indicates the partner's execution hints target
// a different call path than the one this service builds transactions for.
type UnsupportedExecutionPathError struct {
	Expected string
	Actual   string
}

func NewUnsupportedExecutionPathError(expected, actual string) UnsupportedExecutionPathError {
	return UnsupportedExecutionPathError{Expected: expected, Actual: actual}
}

func (e UnsupportedExecutionPathError) Error() string {
	return fmt.Sprintf("withdrawal execution is not marked as %s (got %q)", e.Expected, e.Actual)
}

func (UnsupportedExecutionPathError) Kind() Kind      { return KindUnsupportedExecutionPath }
func (UnsupportedExecutionPathError) Retryable() bool { return false }

// MissingOnchainStateError indicates a pool, coordinator or other required
// account does not exist on chain.
type MissingOnchainStateError struct {
	Account string
	Address string
	message string
}

func NewMissingOnchainStateError(account, address, format string, args ...any) MissingOnchainStateError {
	return MissingOnchainStateError{Account: account, Address: address, message: fmt.Sprintf(format, args...)}
}

func (e MissingOnchainStateError) Error() string {
	return fmt.Sprintf("missing onchain state: %s %s: %s", e.Account, e.Address, e.message)
}

func (MissingOnchainStateError) Kind() Kind      { return KindMissingOnchainState }
func (MissingOnchainStateError) Retryable() bool { return false }

// UnauthorizedSignerError indicates the signer is not in the pool's admin
// allow-list.
type UnauthorizedSignerError struct {
	Signer     string
	Collateral string
}

func NewUnauthorizedSignerError(signer, collateral string) UnauthorizedSignerError {
	return UnauthorizedSignerError{Signer: signer, Collateral: collateral}
}

func (e UnauthorizedSignerError) Error() string {
	return fmt.Sprintf("signer %s is not a collateral admin of %s", e.Signer, e.Collateral)
}

func (UnauthorizedSignerError) Kind() Kind      { return KindUnauthorizedSigner }
func (UnauthorizedSignerError) Retryable() bool { return false }

// StaleNonceError indicates the chain rejected the withdrawal because the
// nonce it was built against is no longer current. Retrying with the same
// parameters cannot succeed; the message must be rebuilt from fresh state.
type StaleNonceError struct {
	Nonce uint32
	cause error
}

func NewStaleNonceError(nonce uint32, cause error) StaleNonceError {
	return StaleNonceError{Nonce: nonce, cause: cause}
}

func (e StaleNonceError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("stale nonce %d", e.Nonce)
	}
	return fmt.Sprintf("stale nonce %d: %s", e.Nonce, e.cause.Error())
}

func (e StaleNonceError) Unwrap() error { return e.cause }
func (StaleNonceError) Kind() Kind      { return KindStaleNonce }
func (StaleNonceError) Retryable() bool { return false }

// SubmissionFailedError wraps any other chain or RPC failure. It is the only
// retryable kind.
type SubmissionFailedError struct {
	Step  string
	cause error
}

func NewSubmissionFailedError(step string, cause error) SubmissionFailedError {
	return SubmissionFailedError{Step: step, cause: cause}
}

func (e SubmissionFailedError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("submission failed: %s", e.Step)
	}
	return fmt.Sprintf("submission failed: %s: %s", e.Step, e.cause.Error())
}

func (e SubmissionFailedError) Unwrap() error { return e.cause }
func (SubmissionFailedError) Kind() Kind      { return KindSubmissionFailed }
func (SubmissionFailedError) Retryable() bool { return true }

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var classified Classified
	if errors.As(err, &classified) {
		return classified.Kind()
	}
	return KindUnknown
}

// IsRetryable reports whether retrying with identical parameters could
// succeed. Unclassified errors are treated as structural.
func IsRetryable(err error) bool {
	var classified Classified
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return false
}
