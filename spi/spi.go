// SPDX-License-Identifier: GPL-2.0-or-later

// Package spi implements the AT91 SPI peripheral, two instances on the
// board. at91-spi.c in the original board model is a bare abort() stub,
// so this package is built directly from the distilled specification's
// §4.6 prose instead, reusing USART/TWI's PDC+IOX wiring idiom.
package spi

import (
	"sync"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/pdc"
)

const (
	regCR   = 0x00
	regMR   = 0x04
	regRDR  = 0x08
	regTDR  = 0x0c
	regSR   = 0x10
	regIER  = 0x14
	regIDR  = 0x18
	regIMR  = 0x1c
	regCSR0 = 0x30
	regCSR3 = 0x3c

	pdcStart = 0x100
	pdcEnd   = 0x128
)

const (
	crSPIEN  = 1 << 0
	crSPIDIS = 1 << 1
	crSWRST  = 1 << 7

	mrMSTR     = 1 << 0
	mrPS       = 1 << 1
	mrPCSDEC   = 1 << 2
	mrMODFDIS  = 1 << 4
	mrLLB      = 1 << 7
	mrPCSShift = 16
	mrPCSMask  = 0xf0000

	srRDRF   = 1 << 0
	srTDRE   = 1 << 1
	srMODF   = 1 << 2
	srOVRES  = 1 << 3
	srENDRX  = 1 << 4
	srENDTX  = 1 << 5
	srRXBUFF = 1 << 6
	srTXBUFE = 1 << 7
	srTXEMPTY = 1 << 9
	srSPIENS = 1 << 16

	csrBITSMask  = 0xf0
	csrBITSShift = 4

	iocCatData  = 0x01
	iocIDDataIn  = 0x01
	iocIDDataOut = 0x02
	iocCatFault  = 0x02
	iocIDFaultMODF  = 0x01
	iocIDFaultOVRES = 0x02
)

// MemoryBus mirrors usart.MemoryBus: the PDC-addressable byte-granular
// view of system memory.
type MemoryBus interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
	WriteBytes(addr uint32, data []byte) error
}

// Controller is one SPI instance.
type Controller struct {
	name string
	bus  MemoryBus
	pdc  *pdc.Controller

	enabled bool

	mr, sr, imr uint32
	rdr, tdr    uint32
	csr         [4]uint32

	rcvbuf *iox.Buffer
	server *iox.Server

	pending bool // awaiting an IOX echo for the in-flight transfer

	// mu serializes inbound IOX frame handling against MMIO dispatch of
	// this controller's registers, the same role QEMU's BQL plays
	// between a device's background activity and vCPU-driven register
	// access. Kept private to this controller rather than shared across
	// peripherals.
	mu sync.Locker

	SetIRQ func(level bool)
}

// New constructs an SPI instance named name.
func New(name string, bus MemoryBus) *Controller {
	c := &Controller{name: name, bus: bus, rcvbuf: iox.NewBuffer(1024), mu: &sync.Mutex{}}
	c.pdc = pdc.New(c)
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// AttachServer wires the board-configured IOX socket.
func (c *Controller) AttachServer(srv *iox.Server) { c.server = srv }

// PDC exposes the embedded PDC channel for diagnostics.
func (c *Controller) PDC() *pdc.Controller { return c.pdc }

func (c *Controller) Reset() {
	c.enabled = false
	c.mr = 0
	c.sr = srTDRE | srTXEMPTY
	c.imr = 0
	c.rdr = 0
	c.tdr = 0
	for i := range c.csr {
		c.csr[i] = 0
	}
	c.pending = false
	c.pdc.Reset()
	c.rcvbuf.Reset()
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.sr&c.imr != 0)
	}
}

func (c *Controller) wordBits() uint32 {
	csrIndex := c.pcs()
	bits := (c.csr[csrIndex] & csrBITSMask) >> csrBITSShift
	return bits + 8
}

func (c *Controller) pcs() uint32 {
	return (c.mr & mrPCSMask) >> mrPCSShift
}

// encodeUnit implements the IOX unit encoding named in §4.6:
// (pcnr<<24) | ((bits-8)<<16) | data.
func encodeUnit(pcnr, bits, data uint32) uint32 {
	return (pcnr << 24) | ((bits - 8) << 16) | data
}
