// SPDX-License-Identifier: GPL-2.0-or-later

package mmio_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/mmio"
	"github.com/us-irs/qemu-iobc/test"
)

// TestBootmemAliasing verifies property S1: after remapping, a read from
// the bootmem window returns the same byte as a read from the aliased
// target region at the same offset.
func TestBootmemAliasing(t *testing.T) {
	rom := mmio.NewMemory("rom", 0x1000, true)
	sram0 := mmio.NewMemory("sram0", 0x1000, false)
	ebi := mmio.NewMemory("ebi_ncs0", 0x1000, false)

	test.ExpectSuccess(t, sram0.Write(0x10, 0x11223344))
	test.ExpectSuccess(t, ebi.Write(0x10, 0x55667788))

	b := mmio.NewBootmem(rom, sram0, ebi, mmio.AliasSRAM0)

	v, err := b.Read(0x10)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0x11223344))

	b.SetAlias(mmio.AliasEBI_NCS0)
	v, err = b.Read(0x10)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0x55667788))
	test.ExpectEquality(t, b.Alias(), mmio.AliasEBI_NCS0)
}

func TestBootmemReadOnlyROM(t *testing.T) {
	rom := mmio.NewMemory("rom", 0x1000, true)
	b := mmio.NewBootmem(rom, nil, nil, mmio.AliasROM)
	test.ExpectFailure(t, b.Write(0, 1))
}
