package vault

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures that can happen while building or
// spending a vault.
type ErrorKind uint8

const (
	// KindMalformedInput is returned for invalid caller supplied data such
	// as a zero spend delay, bad keys or amounts that don't add up.
	KindMalformedInput ErrorKind = iota + 1

	// KindTreeBuild is returned if a taproot spend tree could not be
	// constructed from the given leaf scripts.
	KindTreeBuild

	// KindSighash is returned if the signature hash of a spending input
	// could not be computed.
	KindSighash

	// KindSigning is returned if a signature could not be produced or
	// doesn't verify.
	KindSigning

	// KindExtract is returned if a final transaction could not be extracted
	// from its PSBT.
	KindExtract

	// KindCollaborator is returned for failures of external collaborators
	// like the bitcoind RPC, the explorer API or the vault store.
	KindCollaborator
)

// String returns a human readable name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"

	case KindTreeBuild:
		return "tree build"

	case KindSighash:
		return "sighash"

	case KindSigning:
		return "signing"

	case KindExtract:
		return "extract"

	case KindCollaborator:
		return "collaborator"

	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Error is the error type returned by all vault operations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError creates a new vault error of the given kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// Errorf creates a new vault error of the given kind with a formatted message.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return NewError(kind, op, fmt.Errorf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%v): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind returns true if any error in the chain of err is a vault error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var vaultErr *Error
	if !errors.As(err, &vaultErr) {
		return false
	}

	return vaultErr.Kind == kind
}
