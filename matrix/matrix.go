// SPDX-License-Identifier: GPL-2.0-or-later

// Package matrix implements the AT91 Bus Matrix, grounded on
// at91-matrix.c: a mostly-inert register file whose sole modelled effect
// is MRCR driving the bootmem remap, matching the original's own
// "only switching between SRAM and SDRAM for boot memory supported"
// admission.
package matrix

import "github.com/us-irs/qemu-iobc/curated"

const (
	regMCFG0 = 0x000
	regMCFG4 = 0x010
	regMCFG5 = 0x014
	mcfgStride = 4

	regSCFG0 = 0x040
	regSCFG4 = 0x050
	scfgStride = 4

	regPRAS0 = 0x080
	regPRAS4 = 0x0a0
	prasStride = 8

	regMRCR   = 0x100
	regEBICSA = 0x11c
)

const (
	mrcrRCB0 = 1 << 0
	mrcrRCB1 = 1 << 1
)

// BootmemTarget mirrors mmio.AliasTarget without importing the mmio
// package, keeping matrix's dependency graph a leaf the way the original
// keeps bootmem_cb a plain function pointer instead of an #include.
type BootmemTarget int

const (
	TargetROM BootmemTarget = iota
	TargetSRAM0
	TargetEBINCS0
)

// Controller is the Matrix instance (the board has exactly one).
type Controller struct {
	name string

	mcfg [6]uint32
	scfg [5]uint32
	pras [5]uint32

	mrcr    uint32
	ebiCSA  uint32

	// bms is the BMS pin state sampled at reset (AT91_BMS_INIT on iOBC),
	// deciding which device backs the boot window when REMAP is 0.
	bms bool

	// SetBootmem mirrors matrix_bootmem_remap's callback into the SoC's
	// bootmem alias; nil in standalone/test use.
	SetBootmem func(target BootmemTarget)
}

// New constructs the Matrix instance. bms is the sampled BMS pin value
// (true selects internal ROM over EBI_NCS0 when REMAP is 0).
func New(name string, bms bool) *Controller {
	c := &Controller{name: name, bms: bms}
	c.Reset()
	return c
}

// Reset implements matrix_reset_registers.
func (c *Controller) Reset() {
	c.mcfg = [6]uint32{0x00, 0x02, 0x02, 0x02, 0x02, 0x02}
	c.scfg = [5]uint32{0x10, 0x10, 0x10, 0x10, 0x10}
	c.pras = [5]uint32{}
	c.mrcr = 0
	c.ebiCSA = 0x00010000
}

// UpdateBootmem implements matrix_bootmem_update, called at device reset
// and after every MRCR write.
func (c *Controller) UpdateBootmem() {
	if c.SetBootmem == nil {
		return
	}
	switch {
	case c.mrcr&mrcrRCB0 != 0 && c.mrcr&mrcrRCB1 != 0:
		c.SetBootmem(TargetSRAM0)
	case c.mrcr&mrcrRCB0 == 0 && c.mrcr&mrcrRCB1 == 0:
		if c.bms {
			c.SetBootmem(TargetROM)
		} else {
			c.SetBootmem(TargetEBINCS0)
		}
	default:
		// QEMU can't remap instruction and data fetches independently,
		// so the original treats this combination as a hard error.
		panic(curated.Errorf("matrix: %s: cannot set REMAP independently for data and instruction", c.name))
	}
}

// Read implements matrix_mmio_read.
func (c *Controller) Read(offset uint32) (uint32, error) {
	switch {
	case offset >= regMCFG0 && offset <= regMCFG4 && (offset-regMCFG0)%mcfgStride == 0:
		return c.mcfg[(offset-regMCFG0)/mcfgStride], nil
	case offset >= regSCFG0 && offset <= regSCFG4 && (offset-regSCFG0)%scfgStride == 0:
		return c.scfg[(offset-regSCFG0)/scfgStride], nil
	case offset >= regPRAS0 && offset <= regPRAS4 && (offset-regPRAS0)%prasStride == 0:
		return c.pras[(offset-regPRAS0)/prasStride], nil
	case offset == regMRCR:
		return c.mrcr, nil
	case offset == regEBICSA:
		return c.ebiCSA, nil
	default:
		return 0, curated.ReadReasonf(offset, "illegal/unimplemented read access", "matrix: %s", c.name)
	}
}

// Write implements matrix_mmio_write.
func (c *Controller) Write(offset uint32, value uint32) error {
	switch {
	case offset >= regMCFG0 && offset <= regMCFG5 && (offset-regMCFG0)%mcfgStride == 0:
		c.mcfg[(offset-regMCFG0)/mcfgStride] = value
	case offset >= regSCFG0 && offset <= regSCFG4 && (offset-regSCFG0)%scfgStride == 0:
		c.scfg[(offset-regSCFG0)/scfgStride] = value
	case offset >= regPRAS0 && offset <= regPRAS4 && (offset-regPRAS0)%prasStride == 0:
		c.pras[(offset-regPRAS0)/prasStride] = value
	case offset == regMRCR:
		c.mrcr = value
		c.UpdateBootmem()
	case offset == regEBICSA:
		c.ebiCSA = value
	default:
		return curated.WriteReasonf(offset, value, "illegal/unimplemented write access", "matrix: %s", c.name)
	}
	return nil
}
