// Package errors provides the error taxonomy for seabattle.
//
// Game errors carry a Kind that decides how they propagate: every kind
// except ConnectionLost is recovered locally and reported to the
// offending connection as an Error message.  Network errors carry the
// operation, address and retryability of a transport failure.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Kinds ────────────────────────────────────────────────────────────

// Kind classifies a game error.
type Kind int

const (
	Internal Kind = iota
	InvalidLayout
	NotYourTurn
	OutOfRange
	ProtocolViolation
	ConnectionLost
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	InvalidLayout:     "invalid_layout",
	NotYourTurn:       "not_your_turn",
	OutOfRange:        "out_of_range",
	ProtocolViolation: "protocol_violation",
	ConnectionLost:    "connection_lost",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a wire name back to its Kind.  Unknown names map to
// Internal.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Internal
}

// ── Sentinel errors ──────────────────────────────────────────────────
//
// errors.Is(err, ErrNotYourTurn) matches any *GameError of that kind.

var (
	ErrInvalidLayout     = &GameError{Kind: InvalidLayout}
	ErrNotYourTurn       = &GameError{Kind: NotYourTurn}
	ErrOutOfRange        = &GameError{Kind: OutOfRange}
	ErrProtocolViolation = &GameError{Kind: ProtocolViolation}
	ErrConnectionLost    = &GameError{Kind: ConnectionLost}
)

// ── Structured error types ───────────────────────────────────────────

// GameError is a failure of a game operation.
type GameError struct {
	Kind Kind
	Op   string // operation: "place", "fire", "submit_layout", "decode"
	Msg  string // human-readable detail, safe to send to the client
	Err  error  // underlying error (optional)
}

func (e *GameError) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *GameError) Unwrap() error { return e.Err }

// Is matches another *GameError by Kind, which is what makes the
// sentinels above work with errors.Is.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Kind == e.Kind
}

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Newf creates a GameError of the given kind.
func Newf(kind Kind, op, format string, args ...interface{}) *GameError {
	return &GameError{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapGame creates a GameError around an underlying cause.
func WrapGame(kind Kind, op string, err error) *GameError {
	return &GameError{Kind: kind, Op: op, Err: err}
}

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// KindOf returns the Kind of the first GameError in err's chain.
// Errors that are not game errors are Internal, except network errors
// which are ConnectionLost.
func KindOf(err error) Kind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ConnectionLost
	}
	return Internal
}

// IsRecoverable reports whether err leaves the connection usable.
func IsRecoverable(err error) bool {
	return err != nil && KindOf(err) != ConnectionLost
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// A refused dial is retryable: the server may still be starting.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return true
		}
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
