// Package frame implements the fixed-width ASCII-hex command and response
// frames spoken by 5R7-001 class PID temperature controllers.
//
// # Command Frame
//
// Every command sent to the controller is exactly 16 bytes:
//
//	offset  0      start marker '*'
//	offset  1-2    address "00"
//	offset  3-4    command code, e.g. "1c" (set temperature)
//	offset  5-8    reserved, always "0000"
//	offset  9-12   value, right-justified lowercase hex of ceil(value)
//	offset 13-14   checksum, hex of (sum of bytes 1..12) mod 256
//	offset 15      terminator '\r'
//
// Values are rounded up, never to nearest. A value whose ceiling needs more
// than four hex digits cannot be represented and is rejected with
// [ErrValueOutOfRange] before any frame is produced.
//
// # Response Frame
//
// The controller answers with at least 12 bytes. The four hex digits at
// offsets len-7 through len-4 carry an unsigned magnitude that the caller
// divides by the parameter's [Scale].
//
// The package is pure and stateless. Device turnaround timing is handled by
// the controller package.
package frame
