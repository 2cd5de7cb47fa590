// Package gpio defines the platform boundary for the softhid bridge.
//
// The protocol engines never touch hardware directly; they consume the
// [Pin] and [Clock] interfaces declared here. Platform ports implement
// these against real pin registers and a microsecond timer; hosted runs
// use the in-memory implementation in [github.com/ardnew/softhid/gpio/sim].
//
// PS/2 lines are open-collector: the bridge only ever drives them low or
// releases them to a pull-up. The [DriveLow] and [Release] helpers express
// those two operations; pushing a high level is reserved for genuine
// outputs such as the joystick SELECT line and status LEDs.
package gpio
