// Package errs defines the error taxonomy shared by every read-path component:
// disk I/O, on-disk format violations, catalog lookups, caller misuse, and
// detected on-disk corruption. Components return these types (or wrap a
// sentinel with fmt.Errorf("...: %w", ...)) rather than ad hoc strings so
// callers can classify failures with errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is comparisons.
var (
	ErrIO       = errors.New("io error")
	ErrFormat   = errors.New("format error")
	ErrLookup   = errors.New("lookup error")
	ErrUsage    = errors.New("usage error")
	ErrCorrupt  = errors.New("corrupt error")
	ErrEndOfRow = errors.New("end of stream")
)

// IOError wraps a disk-manager failure: file not found, short read, seek
// past end of file, permission denied.
type IOError struct {
	Operation string // "read", "write", "seek", "open"
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	var cause any = e.Err
	if e.Err == nil {
		cause = e.Message
	}
	if e.Path != "" {
		return fmt.Sprintf("io: failed to %s %s: %v", e.Operation, e.Path, cause)
	}
	return fmt.Sprintf("io: failed to %s: %v", e.Operation, cause)
}

func (e *IOError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrIO
}

// FormatError wraps a violation of the on-disk binary layout: unexpected
// page type, invalid serial type, truncated varint, WAL frame mismatch.
type FormatError struct {
	Context string // what was being parsed, e.g. "page header", "record"
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("format: %s: %s", e.Context, e.Message)
	}
	return fmt.Sprintf("format: %s", e.Message)
}

func (e *FormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrFormat
}

// LookupError wraps a missing catalog entry, missing statistic, or
// out-of-range column index.
type LookupError struct {
	Kind string // "table", "column", "ndv"
	Name string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup: %s %q not found", e.Kind, e.Name)
}

func (e *LookupError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrLookup
}

// UsageError wraps caller misuse: reading a drained cursor, constructing a
// hash join with no equality predicates, N > 20 tables for the optimizer,
// an unknown logical plan node.
type UsageError struct {
	Operation string
	Message   string
	Err       error
}

func (e *UsageError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("usage: %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("usage: %s", e.Message)
}

func (e *UsageError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUsage
}

// CorruptError wraps a detected violation of an on-disk invariant: a page
// whose type is neither leaf nor interior, a cell pointer outside the page,
// a child pointer to a nonexistent page.
type CorruptError struct {
	PageID  uint32
	Message string
	Err     error
}

func (e *CorruptError) Error() string {
	if e.PageID != 0 {
		return fmt.Sprintf("corrupt: page %d: %s", e.PageID, e.Message)
	}
	return fmt.Sprintf("corrupt: %s", e.Message)
}

func (e *CorruptError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrCorrupt
}
