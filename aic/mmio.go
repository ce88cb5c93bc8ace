// SPDX-License-Identifier: GPL-2.0-or-later

package aic

import "github.com/us-irs/qemu-iobc/curated"

// acknowledge implements the IVR side effects shared by a normal IVR read
// and, in protect mode, an IVR write: push the stack entry, auto-clear an
// edge-triggered non-fast pending bit, then recompute nIRQ. Returns the
// vector value that would be returned to the CPU.
func (c *Controller) acknowledge() (uint32, error) {
	irq := c.highestPending()

	if irq < 0 {
		if err := c.stackPush(irqNumberSpurious, prioritySpurious); err != nil {
			return 0, err
		}
		c.updateOutputs()
		return c.spu, nil
	}

	if err := c.stackPush(uint8(irq), c.priority(irq)); err != nil {
		return 0, err
	}

	if c.isEdgeTriggered(irq) && !c.isFast(irq) {
		c.ipr &^= 1 << uint(irq)
	}

	c.updateOutputs()
	return c.svr[irq], nil
}

func (c *Controller) Read(offset uint32) (uint32, error) {
	switch {
	case offset >= regSMR0 && offset <= regSMR31:
		return c.smr[(offset-regSMR0)/4], nil

	case offset >= regSVR0 && offset <= regSVR31:
		return c.svr[(offset-regSVR0)/4], nil

	case offset == regIVR:
		// In protect mode the read is pure: no stack push, no pending
		// clear, no nIRQ de-assertion. A debugger can inspect IVR
		// without acknowledging the interrupt.
		if c.dcr&dcrPROT != 0 {
			irq := c.highestPending()
			if irq < 0 {
				return c.spu, nil
			}
			return c.svr[irq], nil
		}
		return c.acknowledge()

	case offset == regFVR:
		fiqPending := c.ipr & (c.ffsr | 1)
		if fiqPending != 0 {
			if c.ipr&1 != 0 && c.isEdgeTriggered(0) {
				c.ipr &^= 1
				c.updateOutputs()
			}
			return c.svr[0], nil
		}
		return c.spu, nil

	case offset == regISR:
		top := c.stackTop()
		if top == nil {
			return 0, curated.Errorf("aic: ISR read while no interrupt is active")
		}
		if top.irq == irqNumberSpurious {
			return 0, curated.Errorf("aic: ISR read while handling a spurious interrupt")
		}
		return uint32(top.irq), nil

	case offset == regIPR:
		return c.ipr, nil
	case offset == regIMR:
		return c.imr, nil
	case offset == regCISR:
		return c.cisr, nil
	case offset == regSPU:
		return c.spu, nil
	case offset == regDCR:
		return c.dcr, nil
	case offset == regFFSR:
		return c.ffsr, nil

	default:
		return 0, curated.ReadAccessf(offset, "aic")
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	switch {
	case offset >= regSMR0 && offset <= regSMR31:
		c.smr[(offset-regSMR0)/4] = value
		c.updateOutputs()
		return nil

	case offset >= regSVR0 && offset <= regSVR31:
		c.svr[(offset-regSVR0)/4] = value
		c.updateOutputs()
		return nil

	case offset == regIVR:
		// Outside protect mode, a write to IVR is a no-op (writing the
		// vector register makes no sense). In protect mode it performs
		// the acknowledge side effects that a plain read would normally
		// perform, so a debugger using protect mode can still step the
		// controller forward deliberately.
		if c.dcr&dcrPROT != 0 {
			if _, err := c.acknowledge(); err != nil {
				return err
			}
		}
		return nil

	case offset == regIECR:
		c.imr |= value

	case offset == regIDCR:
		c.imr &^= value

	case offset == regICCR:
		// only edge-triggered lines can be cleared this way
		for irq := 0; irq < 32; irq++ {
			if !c.isEdgeTriggered(irq) {
				value &^= 1 << uint(irq)
			}
		}
		c.ipr &^= value

	case offset == regISCR:
		// only edge-triggered lines can be set this way
		for irq := 0; irq < 32; irq++ {
			if !c.isEdgeTriggered(irq) {
				value &^= 1 << uint(irq)
			}
		}
		c.ipr |= value

	case offset == regEOICR:
		c.stackPop()

	case offset == regSPU:
		c.spu = value

	case offset == regDCR:
		c.dcr = value

	case offset == regFFER:
		c.ffsr |= value

	case offset == regFFDR:
		c.ffsr &^= value

	default:
		return curated.WriteAccessf(offset, value, "aic")
	}

	c.updateOutputs()
	return nil
}
