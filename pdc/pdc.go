// SPDX-License-Identifier: GPL-2.0-or-later

// Package pdc implements the Peripheral DMA Controller block reused by
// USART, SPI, TWI and MCI: a pair of current/next pointer-count registers
// for RX and TX plus a transfer-state register, grounded on the generic
// at91-pdc.h helper shared by all of those peripherals in the original
// board model. The opaque At91PdcOps callback struct there becomes the
// Host interface here, so the PDC can call back into its owning
// peripheral's start/stop/update-IRQ operations without any type erasure.
package pdc

import "github.com/us-irs/qemu-iobc/curated"

// Register offsets, relative to the owning peripheral's own MMIO window —
// every PDC-owning peripheral maps its PDC block at this fixed sub-offset,
// matching the datasheet's PDC register layout appended to every PDC-
// capable peripheral.
const (
	RegRPR  = 0x100
	RegRCR  = 0x104
	RegTPR  = 0x108
	RegTCR  = 0x10c
	RegRNPR = 0x110
	RegRNCR = 0x114
	RegTNPR = 0x118
	RegTNCR = 0x11c
	RegPTCR = 0x120
	RegPTSR = 0x124
)

const (
	ptcrRXTEN  = 1 << 0
	ptcrRXTDIS = 1 << 1
	ptcrTXTEN  = 1 << 8
	ptcrTXTDIS = 1 << 9

	ptsrRXTEN = 1 << 0
	ptsrTXTEN = 1 << 8
)

// Flags names the host peripheral's status-register bit positions that the
// PDC must maintain: end-of-receive/transmit and buffer-empty/full.
type Flags struct {
	ENDRX  uint32
	ENDTX  uint32
	RXBUFF uint32
	TXBUFE uint32
}

// Host is the capability interface a PDC-owning peripheral implements,
// corresponding to the original's At91PdcOps function-pointer struct.
type Host interface {
	DMARxStart()
	DMARxStop()
	DMATxStart()
	DMATxStop()
	UpdateIRQ()

	// StatusRegister returns a pointer to the host's status register so
	// the PDC can set/clear ENDRX/ENDTX/RXBUFF/TXBUFE directly, the same
	// way the original dereferences ops->reg_sr.
	StatusRegister() *uint32
	Flags() Flags
}

// Controller is the PDC register file plus its wiring to a Host.
type Controller struct {
	ptsr uint32

	rpr, rnpr uint32
	tpr, tnpr uint32
	rcr, rncr uint16
	tcr, tncr uint16

	halfDuplex bool
	host       Host
}

// New constructs a full-duplex PDC (independent RX/TX enable), the variant
// used by USART, SPI and MCI.
func New(host Host) *Controller {
	return &Controller{host: host}
}

// NewHalfDuplex constructs a PDC that enforces mutual exclusion between RX
// and TX enable, the variant used by TWI.
func NewHalfDuplex(host Host) *Controller {
	return &Controller{host: host, halfDuplex: true}
}

// Reset implements at91_pdc_reset_registers.
func (c *Controller) Reset() {
	c.rpr, c.rnpr, c.tpr, c.tnpr = 0, 0, 0, 0
	c.rcr, c.rncr, c.tcr, c.tncr = 0, 0, 0, 0
	c.ptsr = 0
}

// RxEnabled/TxEnabled expose PTSR for peripherals that need to gate their
// own byte-at-a-time RX/TX path on whether the PDC currently owns the
// channel (e.g. USART only drains into RHR when RX DMA is not enabled).
func (c *Controller) RxEnabled() bool { return c.ptsr&ptsrRXTEN != 0 }
func (c *Controller) TxEnabled() bool { return c.ptsr&ptsrTXTEN != 0 }

// RCR/TCR expose the current transfer counters for read-only inspection
// (tests, the debug console).
func (c *Controller) RCR() uint16  { return c.rcr }
func (c *Controller) TCR() uint16  { return c.tcr }
func (c *Controller) RPR() uint32  { return c.rpr }
func (c *Controller) TPR() uint32  { return c.tpr }
func (c *Controller) RNPR() uint32 { return c.rnpr }
func (c *Controller) RNCR() uint16 { return c.rncr }
func (c *Controller) TNPR() uint32 { return c.tnpr }
func (c *Controller) TNCR() uint16 { return c.tncr }

// SetRPR/SetRCR/SetRNPR/SetRNCR and their TX equivalents give a host direct
// register access, the same way the original's owning peripheral touches
// pdc.reg_rpr/reg_rcr and friends directly rather than going through the
// generic register-write helper — MCI's byte/word-scaled transfer counting
// needs this, since its RCR units don't always equal the bytes advanced on
// RPR the way the generic PDC's do.
func (c *Controller) SetRPR(v uint32)  { c.rpr = v }
func (c *Controller) SetRCR(v uint16)  { c.rcr = v }
func (c *Controller) SetRNPR(v uint32) { c.rnpr = v }
func (c *Controller) SetRNCR(v uint16) { c.rncr = v }
func (c *Controller) SetTPR(v uint32)  { c.tpr = v }
func (c *Controller) SetTCR(v uint16)  { c.tcr = v }
func (c *Controller) SetTNPR(v uint32) { c.tnpr = v }
func (c *Controller) SetTNCR(v uint16) { c.tncr = v }

func (c *Controller) Read(offset uint32) (uint32, error) {
	switch offset {
	case RegRPR:
		return c.rpr, nil
	case RegRCR:
		return uint32(c.rcr), nil
	case RegTPR:
		return c.tpr, nil
	case RegTCR:
		return uint32(c.tcr), nil
	case RegRNPR:
		return c.rnpr, nil
	case RegRNCR:
		return uint32(c.rncr), nil
	case RegTNPR:
		return c.tnpr, nil
	case RegTNCR:
		return uint32(c.tncr), nil
	case RegPTSR:
		return c.ptsr, nil
	default:
		return 0, curated.ReadAccessf(offset, "pdc")
	}
}

type action int

const (
	actionNone action = iota
	actionState
	actionStartRX
	actionStopRX
	actionStartTX
	actionStopTX
)

// setRegister implements at91_pdc_set_register.
func (c *Controller) setRegister(offset uint32, value uint32) (action, error) {
	switch offset {
	case RegRPR:
		c.rpr = value
		return actionNone, nil

	case RegRCR:
		c.rcr = uint16(value)
		if c.ptsr&ptsrRXTEN != 0 {
			if value != 0 {
				return actionStartRX, nil
			}
			return actionStopRX, nil
		}
		return actionNone, nil

	case RegTPR:
		c.tpr = value
		return actionNone, nil

	case RegTCR:
		c.tcr = uint16(value)
		if c.ptsr&ptsrTXTEN != 0 {
			if value != 0 {
				return actionStartTX, nil
			}
			return actionStopTX, nil
		}
		return actionNone, nil

	case RegRNPR:
		c.rnpr = value
		return actionNone, nil

	case RegRNCR:
		c.rncr = uint16(value)
		return actionNone, nil

	case RegTNPR:
		c.tnpr = value
		return actionNone, nil

	case RegTNCR:
		c.tncr = uint16(value)
		return actionNone, nil

	case RegPTCR:
		if (value&ptcrRXTEN != 0) && value&ptcrRXTDIS == 0 {
			c.ptsr |= ptsrRXTEN
		}
		if value&ptcrRXTDIS != 0 {
			c.ptsr &^= ptsrRXTEN
		}
		if (value&ptcrTXTEN != 0) && value&ptcrTXTDIS == 0 {
			c.ptsr |= ptsrTXTEN
		}
		if value&ptcrTXTDIS != 0 {
			c.ptsr &^= ptsrTXTEN
		}
		return actionState, nil

	default:
		return actionNone, curated.WriteAccessf(offset, value, "pdc")
	}
}

// setRegisterHalfDuplex implements at91_pdc_set_register_hd.
func (c *Controller) setRegisterHalfDuplex(offset uint32, value uint32) (action, error) {
	switch offset {
	case RegRPR, RegTPR:
		c.rpr = value
		c.tpr = value
		return actionNone, nil

	case RegRCR, RegTCR:
		c.rcr = uint16(value)
		c.tcr = uint16(value)
		if c.ptsr&ptsrTXTEN != 0 {
			if value != 0 {
				return actionStartTX, nil
			}
			return actionStopTX, nil
		}
		if c.ptsr&ptsrRXTEN != 0 {
			if value != 0 {
				return actionStartRX, nil
			}
			return actionStopRX, nil
		}
		return actionNone, nil

	case RegRNPR, RegTNPR:
		c.rnpr = value
		c.tnpr = value
		return actionNone, nil

	case RegRNCR:
		c.rncr = uint16(value)
		c.tncr = uint16(value)
		return actionNone, nil

	case RegPTCR:
		if value&ptcrRXTEN != 0 && value&ptcrTXTEN != 0 {
			return actionNone, curated.Errorf("pdc: cannot set both RXTEN and TXTEN on a half-duplex channel")
		}
		if value&ptcrRXTEN != 0 && value&ptcrRXTDIS == 0 {
			c.ptsr = (c.ptsr | ptsrRXTEN) &^ ptsrTXTEN
		}
		if value&ptcrRXTDIS != 0 {
			c.ptsr &^= ptsrRXTEN | ptsrTXTEN
		}
		if value&ptcrTXTEN != 0 && value&ptcrTXTDIS == 0 {
			if c.ptsr&ptsrRXTEN == 0 {
				c.ptsr |= ptsrTXTEN
			}
		}
		if value&ptcrTXTDIS != 0 {
			c.ptsr &^= ptsrRXTEN | ptsrTXTEN
		}
		return actionState, nil

	default:
		return actionNone, curated.WriteAccessf(offset, value, "pdc")
	}
}

// Write implements at91_pdc_generic_set_register: dispatches to the
// duplex-appropriate register setter, recomputes ENDRX/ENDTX/RXBUFF/TXBUFE
// on the host's status register, invokes UpdateIRQ, then performs whatever
// DMA start/stop the action calls for.
func (c *Controller) Write(offset uint32, value uint32) error {
	var act action
	var err error
	if c.halfDuplex {
		act, err = c.setRegisterHalfDuplex(offset, value)
	} else {
		act, err = c.setRegister(offset, value)
	}
	if err != nil {
		return err
	}

	flags := c.host.Flags()
	sr := c.host.StatusRegister()

	switch offset {
	case RegRCR, RegRNCR:
		if value != 0 {
			*sr &^= flags.ENDRX
			*sr &^= flags.RXBUFF
		}
		if c.ptsr&ptsrRXTEN != 0 && c.rcr == 0 {
			*sr |= flags.ENDRX
			if c.rncr == 0 {
				*sr |= flags.RXBUFF
			}
		}
		c.host.UpdateIRQ()

	case RegTCR, RegTNCR:
		if value != 0 {
			*sr &^= flags.ENDTX
			*sr &^= flags.TXBUFE
		}
		if c.ptsr&ptsrTXTEN != 0 && c.tcr == 0 {
			*sr |= flags.ENDTX
			if c.tncr == 0 {
				*sr |= flags.TXBUFE
			}
		}
		c.host.UpdateIRQ()
	}

	switch act {
	case actionNone:
	case actionState:
		if c.ptsr&ptsrRXTEN != 0 {
			c.host.DMARxStart()
		} else {
			c.host.DMARxStop()
		}
		if c.ptsr&ptsrTXTEN != 0 {
			c.host.DMATxStart()
		} else {
			c.host.DMATxStop()
		}
	case actionStartRX:
		c.host.DMARxStart()
	case actionStopRX:
		c.host.DMARxStop()
	case actionStartTX:
		c.host.DMATxStart()
	case actionStopTX:
		c.host.DMATxStop()
	}

	return nil
}

// AdvanceRx consumes n bytes from the current RX pointer/counter pair —
// the bookkeeping a host peripheral's DMA step performs on every byte it
// drains into memory. It returns the (possibly zero) number of bytes
// actually advanced, capped at rcr.
//
// It deliberately does not roll "next" into "current" itself: a caller
// that needs to raise ENDRX/RXBUFF must see RCR actually reach zero
// before the next buffer (if any) takes its place, per spec.md §3's
// "ENDRX/ENDTX are set when RCR/TCR reaches zero from nonzero". Call
// RolloverRx after observing RCR()==0 to perform that swap.
func (c *Controller) AdvanceRx(n uint32) uint32 {
	if uint32(c.rcr) < n {
		n = uint32(c.rcr)
	}
	c.rpr += n
	c.rcr -= uint16(n)
	return n
}

// RolloverRx swaps the queued RNPR/RNCR buffer into RPR/RCR, the way
// mci_pdc_do_read performs it by hand once its own RCR==0 check has
// already run. It only acts, and only reports true, when RCR is
// currently zero and a next buffer is queued; otherwise RXBUFF, not a
// rollover, is the caller's correct next step.
func (c *Controller) RolloverRx() bool {
	if c.rcr != 0 || c.rncr == 0 {
		return false
	}
	c.rpr = c.rnpr
	c.rcr = c.rncr
	c.rnpr, c.rncr = 0, 0
	return true
}

// AdvanceTx is the TX-side equivalent of AdvanceRx.
func (c *Controller) AdvanceTx(n uint32) uint32 {
	if uint32(c.tcr) < n {
		n = uint32(c.tcr)
	}
	c.tpr += n
	c.tcr -= uint16(n)
	return n
}

// RolloverTx is the TX-side equivalent of RolloverRx.
func (c *Controller) RolloverTx() bool {
	if c.tcr != 0 || c.tncr == 0 {
		return false
	}
	c.tpr = c.tnpr
	c.tcr = c.tncr
	c.tnpr, c.tncr = 0, 0
	return true
}
