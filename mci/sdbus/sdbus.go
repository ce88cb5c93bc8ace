// SPDX-License-Identifier: GPL-2.0-or-later

// Package sdbus models the SD bus a Card sits on, standing in for the
// QEMU core's SDBus/SDRequest/sdbus_do_command/sdbus_read_data/
// sdbus_write_data primitives that at91-mci.c drives directly. The MCI
// controller only ever talks to a Card through this interface; it never
// needs to know whether the card is a raw disk image, an in-memory
// fixture, or (eventually) something backed by a real block device.
package sdbus

// Request mirrors SDRequest: a command index, its 32-bit argument, and a
// CRC the original leaves at zero (not implemented in the QEMU core it
// was grounded on).
type Request struct {
	Cmd uint8
	Arg uint32
	CRC uint8
}

// Card is the capability interface a selected SD/MMC card implements.
// DoCommand mirrors sdbus_do_command: it returns the number of response
// bytes written into resp (0, 4 or 16), or a negative value on a bus-level
// error such as "no card inserted".
type Card interface {
	DoCommand(req Request, resp []byte) int
	DataReady() bool
	ReadData() byte
	WriteData(b byte)
}
