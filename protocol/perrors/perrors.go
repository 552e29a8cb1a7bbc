// Package perrors defines the named error kinds shared across the panel
// client packages.
//
// Each kind is a sentinel value. Call sites wrap it with additional context
// via github.com/pkg/errors so that callers can still recover the kind with
// errors.Is while getting a descriptive message from Error().
package perrors

import "github.com/pkg/errors"

var (
	// Framing indicates the local wire codec's markers were missing or its
	// body did not parse into the expected two-element shape.
	Framing = errors.New("framing error")

	// Timeout indicates a command received no reply within its retry budget.
	Timeout = errors.New("timeout")

	// Mismatch indicates a reply's code did not match its request, or that it
	// arrived from an unexpected host or port.
	Mismatch = errors.New("mismatch")

	// Pagination indicates a paginated response's item count disagreed with
	// its header or with the requested range.
	Pagination = errors.New("pagination error")

	// CloudFraming indicates a cloud frame was truncated or its payload could
	// not be parsed by any registered message.
	CloudFraming = errors.New("cloud framing error")

	// CloudNoMatch is an internal signal used while probing the cloud message
	// registry for a match; it must never escape to a caller.
	CloudNoMatch = errors.New("cloud message does not match")

	// EntityRegistration indicates a sensor/device registration handshake
	// timed out or otherwise failed to complete.
	EntityRegistration = errors.New("entity registration error")

	// PeripheralDefinitionNotFound indicates a (type, subtype, protocol) or
	// name lookup against the static peripheral table failed.
	PeripheralDefinitionNotFound = errors.New("peripheral definition not found")

	// Validation indicates a config field value violated its declared
	// constraints.
	Validation = errors.New("validation error")

	// PanelCommand indicates the panel returned a recognizable error shape in
	// response to a command.
	PanelCommand = errors.New("panel command failure")
)

// Wrap annotates err as kind, preserving errors.Is / errors.Cause behavior.
func Wrap(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&kindError{kind: kind, cause: err}, msg)
}

// New creates a new kind-tagged error with a message.
func New(kind error, msg string) error {
	return &kindError{kind: kind, cause: errors.New(msg)}
}

// Newf creates a new kind-tagged error with a formatted message.
func Newf(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.cause.Error() }
func (e *kindError) Unwrap() error { return e.cause }
func (e *kindError) Is(target error) bool {
	return target == e.kind
}
