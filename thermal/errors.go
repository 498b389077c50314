package thermal

import "errors"

var (
	// ErrReaderNil indicates a waiter created without a temperature source.
	ErrReaderNil = errors.New("thermal: reader is nil")

	// ErrTelemetryClosed indicates a sample appended after the telemetry log
	// was closed.
	ErrTelemetryClosed = errors.New("thermal: telemetry log closed")
)
