// SPDX-License-Identifier: GPL-2.0-or-later

package mmio

import "github.com/us-irs/qemu-iobc/curated"

// ReservedRegion implements Device for address ranges the datasheet marks
// reserved. Any access aborts the emulator with location information — per
// spec §4.2, these exist purely to catch flight-software bugs early.
type ReservedRegion struct {
	Name string
}

func (r ReservedRegion) Read(offset uint32) (uint32, error) {
	return 0, curated.ReadReasonf(offset, "reserved region accessed", "%s", r.Name)
}

func (r ReservedRegion) Write(offset uint32, value uint32) error {
	return curated.WriteReasonf(offset, value, "reserved region accessed", "%s", r.Name)
}
