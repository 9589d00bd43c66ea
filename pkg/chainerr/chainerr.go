// Package chainerr defines the single rejection type every validation and
// chain-state operation returns: a flat taxonomy the node's callers (peer
// scoring, mempool, RPC, none of which live in this repository) need to
// react correctly to a failure.
package chainerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is the flat rejection taxonomy.
type Code int

const (
	// Invalid is a consensus violation: the block/tx is permanently bad.
	Invalid Code = iota
	// Obsolete marks a superseded version rule; the peer should upgrade.
	Obsolete
	// Duplicate means the object is already known; not an error, but not progress.
	Duplicate
	// Nonstandard is a policy-only rejection, never applied to a block on the active chain.
	Nonstandard
	// InsufficientFee is a policy rejection (mempool-only).
	InsufficientFee
	// Checkpoint means the candidate forked before a built-in checkpoint.
	Checkpoint
	// CorruptionPossible flags merkle/mutation suspicion; do not mark the header permanently invalid.
	CorruptionPossible
	// Internal is an I/O, disk, or programming-invariant failure; triggers shutdown.
	Internal
)

func (c Code) String() string {
	switch c {
	case Invalid:
		return "INVALID"
	case Obsolete:
		return "OBSOLETE"
	case Duplicate:
		return "DUPLICATE"
	case Nonstandard:
		return "NONSTANDARD"
	case InsufficientFee:
		return "INSUFFICIENT_FEE"
	case Checkpoint:
		return "CHECKPOINT"
	case CorruptionPossible:
		return "CORRUPTION_POSSIBLE"
	case Internal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is the rejection every validation predicate and chain-state
// operation returns instead of a bare error: {code, reason, dos_score,
// corruption_possible}.
type Error struct {
	Code               Code
	Reason             string // short machine-readable reason, e.g. "bad-cb-amount"
	DoSScore           int    // 0-100; 100 for mandatory-flag/consensus failures
	CorruptionPossible bool
	cause              error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Unwrap exposes the wrapped internal cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a rejection with no wrapped cause and a DoS score of 0.
func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Invalidf builds an INVALID rejection with DoS score 100, the common case
// for a consensus-rule violation.
func Invalidf(reason string, args ...interface{}) *Error {
	return &Error{Code: Invalid, Reason: fmt.Sprintf(reason, args...), DoSScore: 100}
}

// Nonstandardf builds a NONSTANDARD (policy-only, non-DoS) rejection.
func Nonstandardf(reason string, args ...interface{}) *Error {
	return &Error{Code: Nonstandard, Reason: fmt.Sprintf(reason, args...)}
}

// Mutated builds a CORRUPTION_POSSIBLE rejection: the header must not be
// marked permanently invalid since the same hash might arrive again
// un-mutated.
func Mutated(reason string) *Error {
	return &Error{Code: CorruptionPossible, Reason: reason, CorruptionPossible: true}
}

// Internalf wraps cause with github.com/pkg/errors so the INTERNAL
// variant's stack trace survives the bubble-up to the abort channel.
func Internalf(cause error, reason string, args ...interface{}) *Error {
	return &Error{
		Code:   Internal,
		Reason: fmt.Sprintf(reason, args...),
		cause:  errors.WithStack(cause),
	}
}

// WithDoS overrides the default DoS score (mandatory- vs standard-flag
// script failures carry different scores).
func (e *Error) WithDoS(score int) *Error {
	e.DoSScore = score
	return e
}

// IsInternal reports whether err (possibly nil) is an INTERNAL chainerr,
// i.e. whether the caller must abort rather than mark a branch invalid.
func IsInternal(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == Internal
	}
	return false
}
