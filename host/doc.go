// Package host implements the host side of the HID register-file
// protocol.
//
// A Client speaks to one device over any [regbus.Bus] transport: the
// in-process loopback, the named-pipe bus, or whatever carries the
// register file on real hardware. It reads the HID Descriptor once to
// locate the device's registers, then exchanges reports and commands
// through them.
//
// # Reading input
//
// Input reports arrive through NextReport, which pops the device's
// queue and blocks on the bus interrupt when the queue is empty:
//
//	client, err := host.NewClient(bus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	for {
//	    rep, err := client.NextReport(ctx)
//	    if err != nil {
//	        break
//	    }
//	    handle(rep.ID, rep.Payload)
//	}
//
// # Writing output
//
// Output reports set device state, such as keyboard LEDs:
//
//	err := client.WriteOutput(ctx, ledReportID, []byte{ledBits})
//
// GetReport and SetReport reach the same state through the command
// register, and Reset returns the device to power-on defaults.
package host
