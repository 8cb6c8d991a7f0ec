// Package errcode centralizes the stable byte error codes surfaced by the
// query layer alongside the sentinel errors tables and
// storage return when a fault occurs. Keeping these in one place avoids
// duplicating error text across tables and query operations.
package errcode

import "github.com/pkg/errors"

// Code is a stable, small-int error code returned by query operations. The
// numeric values are an implementation convenience; callers should compare
// against the named constants, not the underlying integer.
type Code uint8

const (
	Success Code = iota
	OperationFailed
	StoreLockFailure
	Integrity1
	MerkleArguments
	MerkleNotFound
	MerkleProof
	Unvalidated
	Unassociated
	BlockConfirmable
	BlockValid
	BlockUnconfirmable
	TxConnected
	TxDisconnected
	CoinbaseMaturity
	ConfirmedDoubleSpend
)

var names = [...]string{
	"success",
	"operation_failed",
	"store_lock_failure",
	"integrity1",
	"merkle_arguments",
	"merkle_not_found",
	"merkle_proof",
	"unvalidated",
	"unassociated",
	"block_confirmable",
	"block_valid",
	"block_unconfirmable",
	"tx_connected",
	"tx_disconnected",
	"coinbase_maturity",
	"confirmed_double_spend",
}

func (c Code) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// OK reports whether c represents successful completion of a query
// operation. The positive terminal states block_valid/tx_connected are
// their own distinct codes, not folded into Success; callers should
// match on the specific code they expect.
func (c Code) OK() bool { return c == Success }

// Error adapts a Code to the error interface so it can be returned
// alongside, or in place of, a Go error where that is more idiomatic.
func (c Code) Error() string { return c.String() }

// Sentinel faults raised by the storage and table layers. Query operations
// wrap these with github.com/pkg/errors to retain a stack trace while
// still permitting errors.Is/Cause-based matching.
var (
	// ErrFault is a sticky storage I/O fault (disk error, truncated
	// mapping, failed allocate).
	ErrFault = errors.New("storage: sticky fault")

	// ErrEOF is recorded as the fault by Storage.Allocate when the new
	// logical size would overflow uint64.
	ErrEOF = errors.New("storage: allocate would overflow capacity")

	// ErrClosed is returned by any operation against a Storage or table
	// that has been closed or never opened.
	ErrClosed = errors.New("storage: not open")

	// ErrTruncatePastSize is returned when Truncate is asked to grow
	// rather than shrink the logical extent.
	ErrTruncatePastSize = errors.New("storage: truncate size exceeds current size")

	// ErrCorrupt is returned by verify() when a head or body file's size
	// is inconsistent with the table's configured shape.
	ErrCorrupt = errors.New("storage: corrupt table layout")

	// ErrKeyMismatch is an internal iterator signal, surfaced only in
	// diagnostics: the stored key does not match the sought key even
	// though the chain walk has not reached terminal.
	ErrKeyMismatch = errors.New("table: stored key mismatch")

	// ErrChainLoop bounds a chain walk: if more links are visited than
	// the body could possibly contain, the chain is corrupt (a cycle)
	// rather than merely long.
	ErrChainLoop = errors.New("table: chain walk exceeded body element bound")

	// ErrNotFound is returned by query accessors for an unknown key or a
	// terminal link, matching the "get returns null" contract the
	// archival query layer uses throughout.
	ErrNotFound = errors.New("query: not found")

	// ErrDirty is returned by store Open when a flush_lock sentinel from
	// a prior, uncleanly-closed process is present and restore has not
	// yet been run.
	ErrDirty = errors.New("store: dirty flush lock present, restore required")

	// ErrLocked is returned when a second process attempts to open a
	// store already holding the exclusive lock.
	ErrLocked = errors.New("store: exclusive lock held by another process")
)

// Wrap attaches msg as context to err via github.com/pkg/errors, preserving
// a stack trace at the wrap site. A nil err yields a nil result.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Cause unwraps a wrapped error back to its root cause, matching against
// the sentinels declared in this package.
func Cause(err error) error {
	return errors.Cause(err)
}
