package pcr

import "errors"

var (
	// ErrInvalidProfile indicates a profile that cannot be run.
	ErrInvalidProfile = errors.New("pcr: invalid profile")

	// ErrMissingTrigger indicates a trigger run on a profile whose stage
	// lacks a trigger point.
	ErrMissingTrigger = errors.New("pcr: missing trigger point")

	// ErrDeviceNil indicates a sequencer created without a device or waiter.
	ErrDeviceNil = errors.New("pcr: device or waiter is nil")

	// ErrConfirmationClosed indicates that the exit gate input ended before
	// the run was confirmed.
	ErrConfirmationClosed = errors.New("pcr: confirmation input closed")

	// ErrConfirmationAttempts indicates that the exit gate gave up after its
	// maximum number of prompts.
	ErrConfirmationAttempts = errors.New("pcr: too many confirmation attempts")
)
