// Package controller implements the host side of the serial link to a
// 5R7-001 class PID temperature controller.
//
// A Session owns one Channel and performs strictly sequential request/response
// exchanges on it. Each exchange flushes stale input, writes one 16-byte
// command frame, waits the device turnaround delay (100 ms by default) and
// reads back the 12-byte response:
//
//	host -> device   *00<cmd><reserved+value><checksum>\r   (16 bytes)
//	host <- device   *<8 hex digits><2 hex checksum>^       (12 bytes)
//
// Physical quantities are scaled before transmission: temperatures and the
// integral and derivative gains by 100, the proportional bandwidth by 50.
// Set commands carry ceil(value*scale), so a setpoint is never rounded down.
//
// A Session is not meant to be shared between goroutines issuing commands
// concurrently; exchanges are serialized by an internal mutex so that at most
// one request is in flight at any time.
package controller
