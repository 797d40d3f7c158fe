package alert

import "errors"

var (
	// ErrNotFound indicates an acknowledge or retract targeted a record
	// that does not exist or has already transitioned.
	ErrNotFound = errors.New("alert not found")
	// ErrStorage indicates a durable read or write failure.
	ErrStorage = errors.New("alert storage failure")
	// ErrSerialization indicates stored alert content could not be decoded.
	ErrSerialization = errors.New("alert serialization failure")
	// ErrResponderAcknowledge indicates an owning subsystem failed to clear
	// its own alert state. The alert stays in the ledger so the
	// acknowledgment can be retried.
	ErrResponderAcknowledge = errors.New("responder could not acknowledge alert")
)
