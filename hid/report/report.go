// Package report builds HID Report Descriptors from short-form items.
//
// A Report Descriptor is a flat tag-length-value byte stream with no
// container structure: a complete descriptor is the concatenation of
// item encodings in program order. Collection and EndCollection carry
// no nesting validation here, exactly as in the wire format; balancing
// them is the caller's obligation.
//
// Every item's value encodes in the fewest bytes its magnitude allows,
// with a floor of one byte: values below 0x100 take one byte, below
// 0x10000 two, and four otherwise. Encoding follows the truncation
// contract of the parent package: MarshalTo returns the byte count the
// encoding wants and never writes past the buffer.
package report

// Type classifies an item as Main, Global, or Local.
type Type uint8

// Item types.
const (
	TypeMain   Type = 0 // Input, Output, Feature, and collection items
	TypeGlobal Type = 1 // Properties for all following items
	TypeLocal  Type = 2 // Properties for the next Main item
)

// Tag identifies an item within its type.
type Tag uint8

// Main item tags.
const (
	TagInput         Tag = 8
	TagOutput        Tag = 9
	TagCollection    Tag = 10
	TagFeature       Tag = 11
	TagEndCollection Tag = 12
)

// Global item tags.
const (
	TagUsagePage       Tag = 0
	TagLogicalMinimum  Tag = 1
	TagLogicalMaximum  Tag = 2
	TagPhysicalMinimum Tag = 3
	TagPhysicalMaximum Tag = 4
	TagUnitExponent    Tag = 5
	TagUnit            Tag = 6
	TagReportSize      Tag = 7
	TagReportID        Tag = 8
	TagReportCount     Tag = 9
	TagPush            Tag = 10
	TagPop             Tag = 11
)

// Local item tags.
const (
	TagUsage             Tag = 0
	TagUsageMinimum      Tag = 1
	TagUsageMaximum      Tag = 2
	TagDesignatorIndex   Tag = 3
	TagDesignatorMinimum Tag = 4
	TagDesignatorMaximum Tag = 5
	TagStringIndex       Tag = 7
	TagStringMinimum     Tag = 8
	TagStringMaximum     Tag = 9
	TagDelimiter         Tag = 10
)

// sizeCode returns the header size code for v: 1, 2, or 3 meaning one,
// two, or four value bytes. Code 0 (no value bytes) exists in the wire
// format but is never produced; every item carries at least one value
// byte.
func sizeCode(v uint32) uint8 {
	switch {
	case v >= 0x10000:
		return 3
	case v >= 0x100:
		return 2
	default:
		return 1
	}
}

// valueBytes maps a header size code to its value byte count.
func valueBytes(code uint8) int {
	if code == 3 {
		return 4
	}
	return int(code)
}

// Item is one short-form Report Descriptor item: a header byte packing
// tag, type, and size code, plus a variable-width little-endian value.
// Items are immutable once constructed.
type Item struct {
	header uint8
	value  uint32
}

// NewItem packs a tag, type, and value into an item. The header's size
// code is derived from the value's magnitude.
func NewItem(tag Tag, typ Type, value uint32) Item {
	return Item{
		header: uint8(tag)<<4 | uint8(typ)<<2 | sizeCode(value),
		value:  value,
	}
}

// Header returns the packed header byte.
func (it Item) Header() uint8 { return it.header }

// Value returns the item's value.
func (it Item) Value() uint32 { return it.value }

// Size returns the encoded size: one header byte plus the value bytes.
func (it Item) Size() int { return 1 + valueBytes(it.header&0x03) }

// MarshalTo encodes the item into buf and returns the number of bytes
// the encoding wants. When buf is shorter, only len(buf) bytes are
// written.
func (it Item) MarshalTo(buf []byte) int {
	wanted := it.Size()
	if len(buf) == 0 {
		return wanted
	}
	buf[0] = it.header
	n := wanted
	if n > len(buf) {
		n = len(buf)
	}
	v := it.value
	for i := 1; i < n; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return wanted
}

// Descriptor is a sequence of items forming a complete Report
// Descriptor.
type Descriptor []Item

// Size returns the total encoded size of the descriptor.
func (d Descriptor) Size() int {
	n := 0
	for _, it := range d {
		n += it.Size()
	}
	return n
}

// MarshalTo encodes every item in order and returns the number of
// bytes the descriptor wants. When buf is shorter, encoding stops at
// the bound and the return value exceeds len(buf).
func (d Descriptor) MarshalTo(buf []byte) int {
	wanted := 0
	for _, it := range d {
		if wanted < len(buf) {
			it.MarshalTo(buf[wanted:])
		}
		wanted += it.Size()
	}
	return wanted
}

// Flags carry the data-field attributes of Input, Output, and Feature
// items. The zero bits have conventional names too: data (not
// constant), array (not variable), absolute (not relative).
type Flags uint32

// Main item data-field flags.
const (
	Constant      Flags = 1 << 0 // Constant padding rather than data
	Variable      Flags = 1 << 1 // Variable fields rather than an array
	Relative      Flags = 1 << 2 // Deltas from the last report
	Wrap          Flags = 1 << 3 // Rolls over at the extremes
	NonLinear     Flags = 1 << 4 // Processed, non-linear measurement
	NoPreferred   Flags = 1 << 5 // No preferred resting state
	NullState     Flags = 1 << 6 // Has a no-meaningful-data state
	Volatile      Flags = 1 << 7 // Output and Feature items only
	BufferedBytes Flags = 1 << 8 // Fixed-size byte stream payload
)

// Input creates a Main Input item describing fields a device reports
// to the host.
func Input(flags Flags) Item { return NewItem(TagInput, TypeMain, uint32(flags)) }

// Output creates a Main Output item describing fields a host sends to
// the device.
func Output(flags Flags) Item { return NewItem(TagOutput, TypeMain, uint32(flags)) }

// Feature creates a Main Feature item describing fields not intended
// for the end user.
func Feature(flags Flags) Item { return NewItem(TagFeature, TypeMain, uint32(flags)) }

// CollectionKind is the value of a Collection item.
type CollectionKind uint8

// Collection kinds.
const (
	CollectionPhysical      CollectionKind = 0 // Data points at one geometric point
	CollectionApplication   CollectionKind = 1 // A device personality, e.g. keyboard
	CollectionLogical       CollectionKind = 2 // A composite data structure
	CollectionReport        CollectionKind = 3 // Wraps the fields of one report
	CollectionNamedArray    CollectionKind = 4 // A named array of selector usages
	CollectionUsageSwitch   CollectionKind = 5 // Modifies contained usages
	CollectionUsageModifier CollectionKind = 6 // Modifies the enclosing usage
)

// Collection opens a grouping of Input, Output, and Feature items. The
// caller must close it with EndCollection.
func Collection(kind CollectionKind) Item {
	return NewItem(TagCollection, TypeMain, uint32(kind))
}

// EndCollection closes the innermost open collection.
func EndCollection() Item { return NewItem(TagEndCollection, TypeMain, 0) }

// UsagePage sets the usage page for the usages that follow.
func UsagePage(page UsagePageID) Item {
	return NewItem(TagUsagePage, TypeGlobal, uint32(page))
}

// Usage names the usage ID of the next item within the current usage
// page.
func Usage(id uint16) Item { return NewItem(TagUsage, TypeLocal, uint32(id)) }

// PageUsage names a usage with an explicit page, independent of the
// current usage page, as a 32-bit extended usage.
func PageUsage(page UsagePageID, id uint16) Item {
	return NewItem(TagUsage, TypeLocal, uint32(page)<<16|uint32(id))
}

// LogicalMinimum sets the smallest value a field will report.
func LogicalMinimum(units uint32) Item {
	return NewItem(TagLogicalMinimum, TypeGlobal, units)
}

// LogicalMaximum sets the largest value a field will report.
func LogicalMaximum(units uint32) Item {
	return NewItem(TagLogicalMaximum, TypeGlobal, units)
}

// PhysicalMinimum sets the smallest physical extent of a field.
func PhysicalMinimum(units uint32) Item {
	return NewItem(TagPhysicalMinimum, TypeGlobal, units)
}

// PhysicalMaximum sets the largest physical extent of a field.
func PhysicalMaximum(units uint32) Item {
	return NewItem(TagPhysicalMaximum, TypeGlobal, units)
}

// ReportSize sets the width of the following fields in bits.
func ReportSize(bits uint32) Item {
	return NewItem(TagReportSize, TypeGlobal, bits)
}

// ReportCount sets how many fields the next Main item carries.
func ReportCount(count uint32) Item {
	return NewItem(TagReportCount, TypeGlobal, count)
}

// ReportID prefixes the following items' reports with a one-byte ID.
// Once any report ID appears in a descriptor, every report on the wire
// starts with its ID byte.
func ReportID(id uint32) Item {
	return NewItem(TagReportID, TypeGlobal, id)
}

// UsageMinimum sets the first usage of an array or bitmap range.
func UsageMinimum(usage uint32) Item {
	return NewItem(TagUsageMinimum, TypeLocal, usage)
}

// UsageMaximum sets the last usage of an array or bitmap range.
func UsageMaximum(usage uint32) Item {
	return NewItem(TagUsageMaximum, TypeLocal, usage)
}
