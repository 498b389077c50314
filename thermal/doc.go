// Package thermal implements the time-bounded polling loops that sit between
// the PCR sequencer and the controller session: waiting for a steady-state
// temperature, polling until a ramp crosses a trigger point, and holding for a
// fixed incubation time.
//
// Every loop reads the control temperature once per sampling interval, writes
// a console readout and a telemetry sample, and then sleeps on the injected
// clock. Cancellation is therefore observed once per sampling interval.
//
// Timeouts are results, not errors: a wait that runs out of time logs a
// warning and reports OutcomeTimedOut so the caller can continue with the
// temperature that was reached.
package thermal
