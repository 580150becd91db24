// Package swaperr defines the typed error kinds the cross-chain wallet,
// HTLC, and orchestrator packages return, mirrored on the AT engine's own
// ATFatalError/RepositoryError pattern (itself grounded on this module's
// teacher's TxError: a stable Code plus free-text Msg, constructed through
// an unexported helper rather than literal struct construction at call
// sites).
package swaperr

import "fmt"

// Kind classifies a swap-side failure for callers that branch on error
// category (the CLI's exit-code mapping, in particular).
type Kind string

const (
	// KindInvalidInput covers malformed keys, bad addresses, and
	// wrong-length hashes — always a local, user-facing mistake.
	KindInvalidInput Kind = "INVALID_INPUT"

	// KindSafetyViolation covers a derived P2SH that doesn't match the
	// advertised one, a too-soon refund, or more than one UTXO where
	// exactly one was required. Never retried automatically.
	KindSafetyViolation Kind = "SAFETY_VIOLATION"

	// KindForeignBlockchainError covers transport/availability failures
	// talking to the external chain's node.
	KindForeignBlockchainError Kind = "FOREIGN_BLOCKCHAIN_ERROR"

	// KindInsufficientFunds is returned in place of a built transaction
	// when a spend can't be covered by the wallet's discovered UTXOs.
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
)

// Error is the single typed-error shape every package in this tree under
// htlc/wallet/foreignchain/swap returns, the same struct-with-stable-code
// discipline atvm uses for ATFatalError.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// InvalidInput constructs a KindInvalidInput error.
func InvalidInput(msg string) error { return newErr(KindInvalidInput, msg) }

// SafetyViolation constructs a KindSafetyViolation error.
func SafetyViolation(msg string) error { return newErr(KindSafetyViolation, msg) }

// ForeignBlockchainError constructs a KindForeignBlockchainError error
// wrapping a transport-level cause.
func ForeignBlockchainError(cause error) error {
	return newErr(KindForeignBlockchainError, cause.Error())
}

// InsufficientFunds constructs a KindInsufficientFunds error.
func InsufficientFunds(msg string) error { return newErr(KindInsufficientFunds, msg) }

// Is reports whether err is a swaperr.Error of the given kind, for callers
// that need to branch (the CLI's exit-code mapping).
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
