package ps2

import "math/bits"

// Frame bit positions within an 11-bit PS/2 word.
const (
	startBit     = 0
	firstDataBit = 1
	lastDataBit  = 8
	parityBit    = 9
	stopBit      = 10
)

// dataParityMask selects the eight data bits plus the parity bit, the
// span covered by the odd-parity rule.
const dataParityMask uint16 = 0x03FE

// Accumulator sentinel positions. Receive samples all 11 bits including
// the start bit, so the mask lands one past the stop bit. Transmit never
// clocks the start bit (pulling the data line low sends it) and finishes
// at the stop position, which goes out by releasing the line.
const (
	incomingDone = 1 << (stopBit + 1)
	outgoingDone = 1 << stopBit
)

// EncodeByte builds the 11-bit wire word for one byte: start bit zero,
// eight data bits LSB first, odd parity, stop bit one.
func EncodeByte(b byte) uint16 {
	word := uint16(b) << firstDataBit
	if bits.OnesCount8(b)%2 == 0 {
		word |= 1 << parityBit
	}
	word |= 1 << stopBit
	return word
}

// ValidateWord checks the framing of a received 11-bit word: start bit
// zero, stop bit one, and odd parity across the data and parity bits.
// It returns the decoded data byte, with ok false on any violation.
func ValidateWord(word uint16) (b byte, ok bool) {
	if word&(1<<startBit) != 0 {
		return 0, false
	}
	if word&(1<<stopBit) == 0 {
		return 0, false
	}
	if bits.OnesCount16(word&dataParityMask)%2 == 0 {
		return 0, false
	}
	return byte(word >> firstDataBit), true
}
