// Package irerr classes every error condition the library reports:
// contract violations panic, recoverable conditions return or accumulate
// an error, and runtime faults surface as a typed Kind. It also provides
// Collector, a buffered accumulate-then-drain sink for verifier and
// parser diagnostics. The mutex on Collector exists for the sharded
// verifier, which appends from worker goroutines.
package irerr

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind classifies a recoverable error for callers that need to branch on
// it without string-matching messages.
type Kind uint8

const (
	// KindVerify is a structural-verifier finding: malformed IR
	// discovered after construction, e.g. via asm/parser.
	KindVerify Kind = iota
	// KindParse is a textual-syntax error from asm/lexer or asm/parser.
	KindParse
	// KindRuntime classes a fault during execution (e.g. division by
	// zero) rather than at construction or verification time. The interp
	// package reports its own faults through interp.Status, not this Kind.
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindVerify:
		return "verify"
	case KindParse:
		return "parse"
	case KindRuntime:
		return "runtime"
	}
	return "unknown"
}

// Error wraps a message with a Kind so callers can branch on what kind of
// problem occurred without string-matching. Cause is set when the Error
// originated from wrapping a lower-level error (e.g. a named-struct
// redefinition error from types.Store.SetBody); it carries a stack trace via
// github.com/pkg/errors so a %+v print shows where it was first wrapped.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/context to a lower-level error, recording a stack
// trace at the wrap site via github.com/pkg/errors.Wrap.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: errors.Wrap(cause, "")}
}

// Collector buffers diagnostics accumulated over a single parse or verify
// pass, so a caller can report every problem found rather than stopping
// at the first.
type Collector struct {
	mu     sync.Mutex
	errors []*Error
}

// NewCollector returns an empty Collector with room for n pre-allocated
// diagnostics (0 uses a sane default).
func NewCollector(n int) *Collector {
	if n < 1 {
		n = 16
	}
	return &Collector{errors: make([]*Error, 0, n)}
}

// Append records a new diagnostic of the given kind.
func (c *Collector) Append(kind Kind, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, New(kind, format, args...))
}

// Len returns the number of diagnostics collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Errors returns every collected diagnostic, in the order they were
// appended.
func (c *Collector) Errors() []*Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Error, len(c.errors))
	copy(out, c.errors)
	return out
}

// Flush empties the collector's buffer, keeping its backing capacity.
func (c *Collector) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = c.errors[:0]
}

// Violation panics with a formatted message, for the contract-violation
// class of error (bad operand types, wrong arity, misuse of an
// interned/invariant-bearing API). Every exported constructor across
// ir/types/asm follows this same discipline.
func Violation(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
