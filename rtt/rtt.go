// SPDX-License-Identifier: GPL-2.0-or-later

// Package rtt implements the AT91 Real-Time Timer: a free-running
// 32-bit counter clocked at SLCK/RTPRES, with an alarm comparator and
// clear-on-read status register, grounded on at91-rtt.c.
package rtt

import (
	"sync"
	"time"

	"github.com/us-irs/qemu-iobc/curated"
)

const (
	regMR = 0x00
	regAR = 0x04
	regVR = 0x08
	regSR = 0x0c

	mrRTPRES    = 0xffff
	mrALMIEN    = 1 << 16
	mrRTTINCIEN = 1 << 17
	mrRTTRST    = 1 << 18

	srALMS   = 1 << 0
	srRTTINC = 1 << 1

	slowClock = 0x8000
)

// Controller is the RTT instance (the board has exactly one).
type Controller struct {
	name string

	mr, ar, vr, sr uint32

	timer *time.Timer

	// mu serializes the tick goroutine against MMIO dispatch of this
	// controller's registers, the same role QEMU's BQL plays between a
	// device's internal timer and vCPU-driven register access. Kept
	// private to this controller rather than shared across peripherals.
	mu sync.Locker

	SetIRQ func(level bool)
}

// New constructs the RTT instance; the counter starts running
// immediately, matching rtt_device_realize.
func New(name string) *Controller {
	c := &Controller{name: name, mu: &sync.Mutex{}}
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

func (c *Controller) irqMask() uint32 { return (c.mr >> 16) & 0x03 }

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.irqMask()&c.sr != 0)
	}
}

// Reset implements rtt_reset_registers, restarting the free-running
// counter at the new prescaler.
func (c *Controller) Reset() {
	c.mr = slowClock
	c.ar = 0xffffffff
	c.vr = 0
	c.sr = 0
	c.updateTimerFreq()
}

func (c *Controller) rtpres() uint32 {
	if c.mr&mrRTPRES != 0 {
		return c.mr & mrRTPRES
	}
	return slowClock
}

// updateTimerFreq implements rtt_update_timer_freq.
func (c *Controller) updateTimerFreq() {
	freq := slowClock / c.rtpres()
	if c.timer != nil {
		c.timer.Stop()
	}
	if freq == 0 {
		return
	}
	c.timer = time.AfterFunc(time.Second/time.Duration(freq), c.tick)
}

// tick implements rtt_timer_tick.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vr++
	c.sr |= srRTTINC

	if c.vr == c.ar+1 {
		c.sr |= srALMS
	}

	if c.irqMask()&c.sr != 0 && c.SetIRQ != nil {
		c.SetIRQ(true)
	}

	c.updateTimerFreq()
}

func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		return c.mr, nil
	case regAR:
		return c.ar, nil
	case regVR:
		return c.vr, nil
	case regSR:
		sr := c.sr
		c.sr = 0
		if c.SetIRQ != nil {
			c.SetIRQ(false)
		}
		return sr, nil
	default:
		return 0, curated.ReadAccessf(offset, "rtt: %s", c.name)
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		c.mr = value
		if value&mrRTTRST != 0 {
			c.vr = 0
			c.updateTimerFreq()
		}
	case regAR:
		c.ar = value
	default:
		return curated.WriteAccessf(offset, value, "rtt: %s", c.name)
	}
	c.updateIRQ()
	return nil
}
