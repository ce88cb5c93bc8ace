// SPDX-License-Identifier: GPL-2.0-or-later

// Package mmio implements the SoC's single memory-mapped I/O entry point: a
// fixed-range routing table from (base, size) to a peripheral, generalising
// a console-bus range dispatch pattern from a 3-region 16-bit bus to an
// arbitrarily sized set of 32-bit peripheral windows.
package mmio

import (
	"sort"

	"github.com/us-irs/qemu-iobc/curated"
)

// Device is anything the fabric can route a 32-bit aligned access to.
// offset is relative to the region's Base.
type Device interface {
	Read(offset uint32) (uint32, error)
	Write(offset uint32, value uint32) error
}

// Region is one entry in the fabric's routing table.
type Region struct {
	Name   string
	Base   uint32
	Size   uint32
	Device Device
}

func (r Region) contains(addr uint32) bool {
	return addr >= r.Base && addr < r.Base+r.Size
}

// Fabric is the SoC's single MMIO dispatcher. All valid accesses are 4-byte
// aligned word accesses; anything else aborts immediately, matching the
// distilled spec's "smaller/larger requests abort" rule.
type Fabric struct {
	regions []Region
}

// NewFabric builds a Fabric from an unsorted list of regions. Overlapping
// regions are a configuration bug and panic at construction time rather
// than being silently tolerated — this happens once at boot, never on the
// hot MMIO path.
func NewFabric(regions []Region) *Fabric {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Base < sorted[j].Base })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Base < sorted[i-1].Base+sorted[i-1].Size {
			panic(curated.Errorf("mmio: region %q overlaps region %q", sorted[i].Name, sorted[i-1].Name))
		}
	}

	return &Fabric{regions: sorted}
}

func (f *Fabric) find(addr uint32) *Region {
	i := sort.Search(len(f.regions), func(i int) bool {
		return f.regions[i].Base+f.regions[i].Size > addr
	})
	if i < len(f.regions) && f.regions[i].contains(addr) {
		return &f.regions[i]
	}
	return nil
}

// Read performs a 32-bit aligned load.
func (f *Fabric) Read(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, curated.Errorf("mmio: unaligned read at 0x%08x", addr)
	}

	r := f.find(addr)
	if r == nil {
		return 0, curated.Errorf("mmio: read from unmapped address 0x%08x", addr)
	}

	v, err := r.Device.Read(addr - r.Base)
	if err != nil {
		return 0, curated.Errorf("mmio: %s: %v", r.Name, err)
	}
	return v, nil
}

// Write performs a 32-bit aligned store.
func (f *Fabric) Write(addr uint32, value uint32) error {
	if addr%4 != 0 {
		return curated.Errorf("mmio: unaligned write at 0x%08x", addr)
	}

	r := f.find(addr)
	if r == nil {
		return curated.Errorf("mmio: write to unmapped address 0x%08x [value=0x%08x]", addr, value)
	}

	if err := r.Device.Write(addr-r.Base, value); err != nil {
		return curated.Errorf("mmio: %s: %v", r.Name, err)
	}
	return nil
}

// RegionAt looks up the region a given address falls into.
func (f *Fabric) RegionAt(addr uint32) (Region, bool) {
	r := f.find(addr)
	if r == nil {
		return Region{}, false
	}
	return *r, true
}

// ByteDevice is implemented by Devices that back a flat memory range
// (Memory, Bootmem) and therefore support arbitrary-length byte transfers,
// as opposed to the word-at-a-time register Device interface every
// peripheral uses. PDC channels address the fabric through this interface
// to move DMA burst data, matching the original's direct
// address_space_rw calls against system RAM.
type ByteDevice interface {
	ReadBytes(offset uint32, n int) ([]byte, error)
	WriteBytes(offset uint32, data []byte) error
}

// ReadBytes performs a PDC-style burst read from an absolute address. The
// target region's Device must implement ByteDevice.
func (f *Fabric) ReadBytes(addr uint32, n int) ([]byte, error) {
	r := f.find(addr)
	if r == nil {
		return nil, curated.Errorf("mmio: byte read from unmapped address 0x%08x", addr)
	}
	bd, ok := r.Device.(ByteDevice)
	if !ok {
		return nil, curated.Errorf("mmio: %s: does not support byte-granular DMA access", r.Name)
	}
	data, err := bd.ReadBytes(addr-r.Base, n)
	if err != nil {
		return nil, curated.Errorf("mmio: %s: %v", r.Name, err)
	}
	return data, nil
}

// WriteBytes performs a PDC-style burst write to an absolute address.
func (f *Fabric) WriteBytes(addr uint32, data []byte) error {
	r := f.find(addr)
	if r == nil {
		return curated.Errorf("mmio: byte write to unmapped address 0x%08x", addr)
	}
	bd, ok := r.Device.(ByteDevice)
	if !ok {
		return curated.Errorf("mmio: %s: does not support byte-granular DMA access", r.Name)
	}
	if err := bd.WriteBytes(addr-r.Base, data); err != nil {
		return curated.Errorf("mmio: %s: %v", r.Name, err)
	}
	return nil
}
