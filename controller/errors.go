package controller

import "errors"

var (
	// ErrChannelNil indicates that a session was created without a device channel.
	ErrChannelNil = errors.New("controller: channel is nil")

	// ErrUnknownParameter indicates a parameter name or value that the
	// controller does not support.
	ErrUnknownParameter = errors.New("controller: unknown parameter")

	// ErrReadOnly indicates a write to a parameter that can only be queried.
	ErrReadOnly = errors.New("controller: parameter is read-only")

	// ErrWriteOnly indicates a query of a parameter that can only be set.
	ErrWriteOnly = errors.New("controller: parameter is write-only")

	// ErrShortWrite indicates that the channel accepted fewer bytes than a
	// full command frame.
	ErrShortWrite = errors.New("controller: short write")
)
