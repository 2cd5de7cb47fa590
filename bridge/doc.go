// Package bridge glues the input decoders to the HID register file.
//
// A [Bridge] owns one PS/2 keyboard link, one PS/2 mouse link, two
// joystick ports, and the panel lines. [Bridge.Step] services them all
// cooperatively: PS/2 bytes drain through the scancode decoder and the
// mouse packet assembler, joysticks and panel buttons are sampled on a
// fixed cadence, and every state change becomes a queued HID input
// report. The queue feeds the input register; an interrupt callback
// mirrors the HID-over-I2C interrupt line, asserted while reports are
// pending.
//
// The Bridge is the module's [regbus.Handler]: transports such as
// [regbus.Loopback] and the pipe bus serve its register file to a
// host without knowing anything about PS/2 or joysticks. Output
// reports flow back the other way: keyboard LED reports become
// Set-LEDs commands on the keyboard link, and system LED reports
// drive status pins directly.
package bridge
