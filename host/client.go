package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardnew/softhid/hid"
	"github.com/ardnew/softhid/pkg"
	"github.com/ardnew/softhid/regbus"
)

// InputReport is one report popped from the device's input register.
type InputReport struct {
	ID      uint8
	Payload []byte
}

// Client drives one HID register file over a [regbus.Bus]. It reads
// the HID Descriptor once to learn the rest of the register map, then
// exchanges reports and commands through the registers the descriptor
// names.
//
// The client is safe for concurrent use. A goroutine blocked in
// NextReport does not hold the client's lock, so output reports and
// commands proceed while it waits.
type Client struct {
	bus regbus.Bus

	// mutex guards desc and ready only. It is never held across a
	// bus call.
	mutex sync.Mutex
	desc  hid.Descriptor
	ready bool
}

// NewClient returns a client that owns bus: closing the client closes
// the bus.
func NewClient(bus regbus.Bus) (*Client, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus: %w", pkg.ErrInvalidParameter)
	}
	return &Client{bus: bus}, nil
}

// Describe reads and parses the device's HID Descriptor, caching it
// for the other methods. Calling it again re-reads the device.
func (c *Client) Describe(ctx context.Context) (hid.Descriptor, error) {
	var buf [hid.DescriptorSize]byte
	n, err := c.bus.ReadRegister(ctx, regbus.RegHIDDescriptor, buf[:])
	if err != nil {
		return hid.Descriptor{}, fmt.Errorf("read hid descriptor: %w", err)
	}
	if n > len(buf) {
		n = len(buf)
	}

	var desc hid.Descriptor
	if err := hid.ParseDescriptor(buf[:n], &desc); err != nil {
		return hid.Descriptor{}, err
	}
	if desc.Validate() != nil {
		return hid.Descriptor{}, fmt.Errorf("descriptor names register zero: %w",
			pkg.ErrInvalidResponse)
	}

	c.mutex.Lock()
	c.desc = desc
	c.ready = true
	c.mutex.Unlock()

	pkg.LogInfo(pkg.ComponentHost, "device described",
		"vendor", desc.VendorID,
		"product", desc.ProductID,
		"version", desc.VersionID)
	return desc, nil
}

// ReportDescriptor reads the device's Report Descriptor, sized by the
// cached HID Descriptor.
func (c *Client) ReportDescriptor(ctx context.Context) ([]byte, error) {
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, desc.ReportDescLength)
	n, err := c.bus.ReadRegister(ctx, desc.ReportDescRegister, buf)
	if err != nil {
		return nil, fmt.Errorf("read report descriptor: %w", err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n], nil
}

// NextReport returns the next queued input report, blocking on the
// bus interrupt while the device has nothing pending. The input
// register is read before waiting, so reports queued between calls
// are never missed, and a stale interrupt wakeup just waits again.
func (c *Client) NextReport(ctx context.Context) (InputReport, error) {
	desc, err := c.describe(ctx)
	if err != nil {
		return InputReport{}, err
	}
	buf := make([]byte, desc.MaxInputLength)
	for {
		n, err := c.bus.ReadRegister(ctx, desc.InputRegister, buf)
		if err != nil {
			return InputReport{}, fmt.Errorf("read input register: %w", err)
		}
		if n > len(buf) {
			n = len(buf)
		}
		id, payload, ok, err := hid.DecodeReportFrame(buf[:n])
		if err != nil {
			return InputReport{}, err
		}
		if ok {
			return InputReport{ID: id, Payload: append([]byte(nil), payload...)}, nil
		}
		if err := c.bus.WaitInterrupt(ctx); err != nil {
			return InputReport{}, err
		}
	}
}

// WriteOutput frames payload under the report ID and writes it to the
// output register.
func (c *Client) WriteOutput(ctx context.Context, id uint8, payload []byte) error {
	desc, err := c.describe(ctx)
	if err != nil {
		return err
	}
	total := hid.ReportFrameOverhead + len(payload)
	if total > int(desc.MaxOutputLength) {
		return fmt.Errorf("output report %d is %d bytes, device takes %d: %w",
			id, total, desc.MaxOutputLength, pkg.ErrReportTooLong)
	}
	frame := make([]byte, total)
	hid.EncodeReportFrame(frame, id, payload)
	if err := c.bus.WriteRegister(ctx, desc.OutputRegister, frame); err != nil {
		return fmt.Errorf("write output register: %w", err)
	}
	return nil
}

// GetReport asks the device for the current value of one report and
// reads it back from the data register.
func (c *Client) GetReport(ctx context.Context, typ hid.ReportType, id uint8) ([]byte, error) {
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	cmd := hid.Command{Opcode: hid.OpcodeGetReport, ReportType: typ, ReportID: id}
	if err := c.sendCommand(ctx, desc.CommandRegister, cmd, nil); err != nil {
		return nil, err
	}

	buf := make([]byte, desc.MaxInputLength)
	n, err := c.bus.ReadRegister(ctx, desc.DataRegister, buf)
	if err != nil {
		return nil, fmt.Errorf("read data register: %w", err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	gotID, payload, ok, err := hid.DecodeReportFrame(buf[:n])
	if err != nil {
		return nil, err
	}
	if !ok || gotID != id {
		return nil, fmt.Errorf("get report %d: %w", id, pkg.ErrInvalidResponse)
	}
	return append([]byte(nil), payload...), nil
}

// SetReport sets one report by command, carrying the framed report
// inline after the command bytes the way a single bus write would on
// hardware.
func (c *Client) SetReport(ctx context.Context, typ hid.ReportType, id uint8, payload []byte) error {
	desc, err := c.describe(ctx)
	if err != nil {
		return err
	}
	total := hid.ReportFrameOverhead + len(payload)
	if total > int(desc.MaxOutputLength) {
		return fmt.Errorf("set report %d is %d bytes, device takes %d: %w",
			id, total, desc.MaxOutputLength, pkg.ErrReportTooLong)
	}
	frame := make([]byte, total)
	hid.EncodeReportFrame(frame, id, payload)
	cmd := hid.Command{Opcode: hid.OpcodeSetReport, ReportType: typ, ReportID: id}
	return c.sendCommand(ctx, desc.CommandRegister, cmd, frame)
}

// Reset asks the device to reset, dropping its queued reports and
// restarting its peripherals.
func (c *Client) Reset(ctx context.Context) error {
	desc, err := c.describe(ctx)
	if err != nil {
		return err
	}
	return c.sendCommand(ctx, desc.CommandRegister, hid.Command{Opcode: hid.OpcodeReset}, nil)
}

// Close releases the bus. Blocked NextReport calls return ErrBusClosed.
func (c *Client) Close() error {
	return c.bus.Close()
}

// describe returns the cached descriptor, reading it on first use.
func (c *Client) describe(ctx context.Context) (hid.Descriptor, error) {
	c.mutex.Lock()
	if c.ready {
		desc := c.desc
		c.mutex.Unlock()
		return desc, nil
	}
	c.mutex.Unlock()
	return c.Describe(ctx)
}

// sendCommand writes cmd to the command register with frame, if any,
// appended.
func (c *Client) sendCommand(ctx context.Context, reg uint16, cmd hid.Command, frame []byte) error {
	msg := make([]byte, hid.CommandSize+len(frame))
	cmd.MarshalTo(msg)
	copy(msg[hid.CommandSize:], frame)
	if err := c.bus.WriteRegister(ctx, reg, msg); err != nil {
		return fmt.Errorf("command %s: %w", cmd.Opcode, err)
	}
	return nil
}
