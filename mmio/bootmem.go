// SPDX-License-Identifier: GPL-2.0-or-later

package mmio

import "github.com/us-irs/qemu-iobc/curated"

// AliasTarget names the three possible backing devices for the bootmem
// window described in spec §4.1.
type AliasTarget int

const (
	AliasROM AliasTarget = iota
	AliasSRAM0
	AliasEBI_NCS0
)

func (a AliasTarget) String() string {
	switch a {
	case AliasROM:
		return "rom"
	case AliasSRAM0:
		return "sram0"
	case AliasEBI_NCS0:
		return "ebi_ncs0"
	default:
		return "unknown"
	}
}

// Bootmem is the 0x0000_0000-based alias window. Exactly one of its three
// candidate devices answers any given access at any time; SetAlias swaps
// which one atomically from the caller's point of view — the field
// reassignment is the only statement between "old answers" and "new
// answers", so no access is ever routed to neither or to both.
type Bootmem struct {
	rom, sram0, ebiNCS0 Device
	active              AliasTarget
	live                Device
}

// NewBootmem constructs a Bootmem aliasing rom, sram0 and ebiNCS0, starting
// aliased to initial (the reset value is board-policy, driven by the BMS
// pin sampled at reset — the board config decides which, not this package).
func NewBootmem(rom, sram0, ebiNCS0 Device, initial AliasTarget) *Bootmem {
	b := &Bootmem{rom: rom, sram0: sram0, ebiNCS0: ebiNCS0}
	b.SetAlias(initial)
	return b
}

// SetAlias switches which device backs the bootmem window.
func (b *Bootmem) SetAlias(target AliasTarget) {
	switch target {
	case AliasROM:
		b.live = b.rom
	case AliasSRAM0:
		b.live = b.sram0
	case AliasEBI_NCS0:
		b.live = b.ebiNCS0
	}
	b.active = target
}

// Alias reports which device currently backs the window.
func (b *Bootmem) Alias() AliasTarget {
	return b.active
}

func (b *Bootmem) Read(offset uint32) (uint32, error) {
	if b.live == nil {
		return 0, curated.Errorf("bootmem: no device aliased (target=%s)", b.active)
	}
	return b.live.Read(offset)
}

func (b *Bootmem) Write(offset uint32, value uint32) error {
	if b.live == nil {
		return curated.Errorf("bootmem: no device aliased (target=%s)", b.active)
	}
	return b.live.Write(offset, value)
}

// ReadBytes/WriteBytes implement mmio.ByteDevice by forwarding to whichever
// device is currently live, provided it is itself byte-addressable (true
// for all three of ROM, SRAM0 and EBI_NCS0 in practice).
func (b *Bootmem) ReadBytes(offset uint32, n int) ([]byte, error) {
	bd, ok := b.live.(ByteDevice)
	if !ok {
		return nil, curated.Errorf("bootmem: aliased device (target=%s) is not byte-addressable", b.active)
	}
	return bd.ReadBytes(offset, n)
}

func (b *Bootmem) WriteBytes(offset uint32, data []byte) error {
	bd, ok := b.live.(ByteDevice)
	if !ok {
		return curated.Errorf("bootmem: aliased device (target=%s) is not byte-addressable", b.active)
	}
	return bd.WriteBytes(offset, data)
}
