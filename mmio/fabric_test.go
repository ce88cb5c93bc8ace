// SPDX-License-Identifier: GPL-2.0-or-later

package mmio_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/mmio"
	"github.com/us-irs/qemu-iobc/test"
)

func TestFabricRouting(t *testing.T) {
	a := mmio.NewMemory("a", 0x100, false)
	b := mmio.NewMemory("b", 0x100, false)

	f := mmio.NewFabric([]mmio.Region{
		{Name: "a", Base: 0x1000, Size: 0x100, Device: a},
		{Name: "b", Base: 0x2000, Size: 0x100, Device: b},
	})

	test.ExpectSuccess(t, f.Write(0x1004, 0xdeadbeef))
	v, err := f.Read(0x1004)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xdeadbeef))

	v, err = f.Read(0x2004)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0))
}

func TestFabricUnaligned(t *testing.T) {
	f := mmio.NewFabric(nil)
	_, err := f.Read(0x1002)
	test.ExpectFailure(t, err)
	test.ExpectFailure(t, f.Write(0x1002, 0))
}

func TestFabricUnmapped(t *testing.T) {
	f := mmio.NewFabric(nil)
	_, err := f.Read(0x1000)
	test.ExpectFailure(t, err)
}

func TestReservedRegionAborts(t *testing.T) {
	f := mmio.NewFabric([]mmio.Region{
		{Name: "reserved", Base: 0x3000, Size: 0x100, Device: mmio.ReservedRegion{Name: "reserved"}},
	})
	_, err := f.Read(0x3000)
	test.ExpectFailure(t, err)
	test.ExpectFailure(t, f.Write(0x3000, 1))
}

func TestUnimplementedRegionWarnPolicy(t *testing.T) {
	dev := mmio.UnimplementedRegion{Name: "stub", Policy: "warn"}
	v, err := dev.Read(0)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0))
	test.ExpectSuccess(t, dev.Write(0, 0x42))
}

func TestUnimplementedRegionAbortPolicy(t *testing.T) {
	dev := mmio.UnimplementedRegion{Name: "stub", Policy: "abort"}
	test.ExpectFailure(t, dev.Write(0, 0x42))
}
