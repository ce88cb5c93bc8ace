// SPDX-License-Identifier: GPL-2.0-or-later

package mmio

import (
	"github.com/us-irs/qemu-iobc/config"
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/logger"
)

// UnimplementedRegion implements Device for peripherals or register ranges
// that are declared in the datasheet but not modelled. Reads return zero
// and log; writes log and, depending on policy, either warn or abort.
type UnimplementedRegion struct {
	Name   string
	Policy config.UnimplementedPolicy
}

func (u UnimplementedRegion) Read(offset uint32) (uint32, error) {
	logger.Logf(logger.Allow, u.Name, "unimplemented read at offset 0x%x", offset)
	return 0, nil
}

func (u UnimplementedRegion) Write(offset uint32, value uint32) error {
	logger.Logf(logger.Allow, u.Name, "unimplemented write at offset 0x%x [value=0x%08x]", offset, value)
	if u.Policy == config.UnimplementedAbort {
		return curated.WriteReasonf(offset, value, "unimplemented region written", "%s", u.Name)
	}
	return nil
}
