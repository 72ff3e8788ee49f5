package core

import (
	"errors"
	"fmt"
)

// QuorumLostError is raised by the Health Arbiter when the surviving set of
// journals no longer satisfies the minimum-copy or minimum-non-local-copy
// invariants, or when a required journal has been disabled.
type QuorumLostError struct {
	Status              string
	MinJournals         int
	ActiveJournals      int
	MinNonLocalJournals int
	ActiveNonLocal      int
}

func (e *QuorumLostError) Error() string {
	return fmt.Sprintf(
		"%s failed for too many journals, minimum: %d current: %d, non-local minimum: %d current: %d",
		e.Status, e.MinJournals, e.ActiveJournals, e.MinNonLocalJournals, e.ActiveNonLocal,
	)
}

// IsQuorumLost reports whether err is (or wraps) a QuorumLostError.
func IsQuorumLost(err error) bool {
	var qle *QuorumLostError
	return errors.As(err, &qle)
}

// CorruptionError is raised by the Input Selector when every journal either
// fails I/O or reports corruption while reading from a txid.
type CorruptionError struct {
	FromTxID uint64
	Cause    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("no non-corrupt logs for txid %d", e.FromTxID)
}

func (e *CorruptionError) Unwrap() error {
	return e.Cause
}

// IsCorruption reports whether err is (or wraps) a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// StreamAlreadyOpenError is a programmer error: start_log_segment was called
// on an entry that already has a current stream.
type StreamAlreadyOpenError struct {
	TxID uint64
}

func (e *StreamAlreadyOpenError) Error() string {
	return fmt.Sprintf("stream already open when starting log segment at txid %d", e.TxID)
}

// InternalPoolError wraps an anomaly in the fan-out executor's worker pool
// itself (a panic recovered inside a submitted task), as distinct from an
// ordinary per-journal failure. Callers treat this as fatal.
type InternalPoolError struct {
	Status string
	Cause  error
}

func (e *InternalPoolError) Error() string {
	return fmt.Sprintf("internal pool error during %s: %v", e.Status, e.Cause)
}

func (e *InternalPoolError) Unwrap() error {
	return e.Cause
}

// IsInternalPoolError reports whether err is (or wraps) an InternalPoolError.
func IsInternalPoolError(err error) bool {
	var ipe *InternalPoolError
	return errors.As(err, &ipe)
}

// UnsupportedError is returned for Facade operations the Journal Set
// explicitly does not offer; the caller is expected to invoke these
// directly on the underlying journal.
type UnsupportedError struct {
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("operation not supported by journal set: %s", e.Operation)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// ValidationError is a custom error type for configuration validation
// failures.
type ValidationError struct {
	Message string
	Field   string
	Value   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s '%s': %s", e.Field, e.Value, e.Message)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
