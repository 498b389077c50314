// Package pcr sequences a polymerase chain reaction thermal profile on a
// temperature controller.
//
// A run is:
//
//  1. outer denaturation: PID gains, set temperature, steady-state wait, hold
//  2. max(Cycles, 1) passes of inner denaturation (skipped on the first
//     pass), annealing and elongation, each with the same four steps
//  3. final hold: PID gains, set temperature and hold, without a
//     steady-state wait
//  4. the exit gate, which waits for the operator before switching the
//     heater off
//
// RunWithTrigger additionally drives every stage of steps 1 and 2 to an
// overshoot set point first and polls until the ramp reaches the stage's
// trigger temperature before the real target is set.
package pcr
