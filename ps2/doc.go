// Package ps2 implements the PS/2 wire protocol bit by bit.
//
// It is platform-agnostic and interacts with hardware via the [gpio.Pin]
// and [gpio.Clock] interfaces from [github.com/ardnew/softhid/gpio]. The
// package knows nothing about keyboards or mice: it moves raw bytes in
// both directions over one clock line and one data line, leaving scancode
// and packet semantics to higher layers.
//
// # Architecture
//
// A [Link] is one physical PS/2 port driven by two entry points:
//
//   - [Link.OnEdge] services clock-line transitions. The platform calls
//     it from the edge callback it attaches for the port; on bare metal
//     this is an interrupt handler, so OnEdge never blocks, never
//     allocates, and never logs.
//   - [Link.Poll] runs from the main loop as often as possible. It
//     starts pending transmissions and enforces every timeout.
//
// Both entry points take the same internal lock, the hosted stand-in for
// the interrupt masking a bare-metal port uses around shared state.
//
// # Framing
//
// Each byte travels as an 11-bit word clocked by the device at roughly
// 10-16.7 kHz: a start bit (always 0), eight data bits LSB first, an odd
// parity bit, and a stop bit (always 1). [EncodeByte] and [ValidateWord]
// implement the two directions of this framing. Words failing
// validation are discarded silently; the protocol has no retransmission
// request at this layer, so the only record is a diagnostic counter.
//
// # Flow Control
//
// The protocol's sole flow-control primitive is holding the clock line
// low, which forbids the device to transmit. The link applies it in
// three situations: while transmitting (the initial request-to-send
// hold), when the inbound ring fills ([StateBufferFull], released by
// draining a byte through [Link.ReadBuffer]), and when a caller forces
// [Link.Disable].
//
// # Timing
//
// Deadlines are kept as 16-bit microsecond values compared with
// wraparound-safe signed deltas, so the arithmetic survives the
// roughly 65.5 ms rollover of a truncated hardware counter. All
// configured budgets must therefore stay below half the rollover
// period; [Config] validation enforces that bound.
package ps2
