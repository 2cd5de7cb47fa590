package hid

import (
	"encoding/binary"

	"github.com/ardnew/softhid/pkg"
)

// ReportFrameOverhead is the size of a report frame's prefix: two
// length bytes and the report ID.
const ReportFrameOverhead = 3

// EncodeReportFrame writes the length-prefixed frame of one report
// into dst, truncating at len(dst), and returns the frame's full
// size. The length field counts the whole frame including itself.
func EncodeReportFrame(dst []byte, id uint8, payload []byte) int {
	total := ReportFrameOverhead + len(payload)
	var head [ReportFrameOverhead]byte
	binary.LittleEndian.PutUint16(head[0:2], uint16(total))
	head[2] = id
	n := copy(dst, head[:])
	copy(dst[n:], payload)
	return total
}

// EncodeEmptyFrame writes the two-byte zero length meaning no report
// is pending and returns its size.
func EncodeEmptyFrame(dst []byte) int {
	var zero [2]byte
	copy(dst, zero[:])
	return len(zero)
}

// DecodeReportFrame parses a length-prefixed report frame. A zero
// length field returns ok false: the device has nothing pending. A
// frame whose declared length does not fit its own prefix or the
// supplied data is an ErrInvalidResponse.
func DecodeReportFrame(data []byte) (id uint8, payload []byte, ok bool, err error) {
	if len(data) < 2 {
		return 0, nil, false, pkg.ErrInvalidResponse
	}
	total := int(binary.LittleEndian.Uint16(data[0:2]))
	if total == 0 {
		return 0, nil, false, nil
	}
	if total < ReportFrameOverhead || total > len(data) {
		return 0, nil, false, pkg.ErrInvalidResponse
	}
	return data[2], data[ReportFrameOverhead:total], true, nil
}
