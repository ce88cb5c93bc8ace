// SPDX-License-Identifier: GPL-2.0-or-later

// Package pit implements the AT91 Periodic Interval Timer, grounded on
// at91-pit.c: a down-counter running at MCK/16 that reloads every
// MR_PIV+1 ticks, with the 12-bit overflow counter (PICNT) and current
// down-counter value (CPIV) packed into PIVR/PIIR.
package pit

import (
	"sync"
	"time"

	"github.com/us-irs/qemu-iobc/curated"
)

const (
	regMR   = 0x00
	regSR   = 0x04
	regPIVR = 0x08
	regPIIR = 0x0c

	mrPIV    = 0x0fffff
	mrPITEN  = 1 << 24
	mrPITIEN = 1 << 25

	srPITS = 0x01
)

// Controller is the PIT instance (the board has exactly one).
type Controller struct {
	name string

	mr, sr uint32
	picnt  uint32

	mclk uint32
	freq uint32

	timer     *time.Timer
	startedAt time.Time
	limit     uint32

	// mu serializes the tick goroutine against MMIO dispatch of this
	// controller's registers, the same role QEMU's BQL plays between a
	// device's internal timer and vCPU-driven register access. Kept
	// private to this controller rather than shared across peripherals.
	mu sync.Locker

	SetIRQ func(level bool)
}

// New constructs the PIT instance.
func New(name string) *Controller {
	c := &Controller{name: name, mu: &sync.Mutex{}}
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// Reset implements pit_reset_registers (plus pit_device_reset's IRQ/timer
// stop, since this model has no separate device-level reset hook).
func (c *Controller) Reset() {
	c.stopTimer()
	c.mr = mrPIV
	c.sr = 0
	c.picnt = 0
	if c.SetIRQ != nil {
		c.SetIRQ(false)
	}
}

// SetMasterClock implements at91_pit_set_master_clock; wired from pmc.
func (c *Controller) SetMasterClock(mclk uint32) {
	c.mclk = mclk
	c.freq = mclk / 16
}

func (c *Controller) period() uint32 { return 1 + (c.mr & mrPIV) }

// cpiv implements pit_timer_cpiv: the current down-counter value, derived
// from wall-clock elapsed time against the configured frequency since a
// real ptimer's counter has no direct Go analogue.
func (c *Controller) cpiv() uint32 {
	if c.timer == nil || c.freq == 0 {
		return c.limit
	}
	elapsedTicks := uint32(time.Since(c.startedAt).Seconds() * float64(c.freq))
	if elapsedTicks >= c.limit {
		return 0
	}
	return c.limit - elapsedTicks
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) rearm() {
	c.stopTimer()
	if c.freq == 0 {
		return
	}
	c.limit = c.period()
	c.startedAt = time.Now()
	period := time.Duration(float64(c.limit)/float64(c.freq)*float64(time.Second))
	if period <= 0 {
		return
	}
	c.timer = time.AfterFunc(period, c.tick)
}

// tick implements pit_timer_tick.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sr |= srPITS
	c.picnt = (c.picnt + 1) & 0xfff

	if c.mr&mrPITIEN != 0 && c.SetIRQ != nil {
		c.SetIRQ(true)
	}

	if c.mr&mrPITEN == 0 {
		c.stopTimer()
		return
	}
	c.rearm()
}

func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		return c.mr, nil

	case regSR:
		return c.sr, nil

	case regPIVR:
		picnt := c.picnt
		cpiv := c.cpiv()
		c.picnt = 0
		c.sr &^= srPITS
		if c.SetIRQ != nil {
			c.SetIRQ(false)
		}
		return picnt<<20 | cpiv, nil

	case regPIIR:
		return c.picnt<<20 | c.cpiv(), nil

	default:
		return 0, curated.ReadAccessf(offset, "pit: %s", c.name)
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		c.mr = value
		if value&mrPITEN != 0 {
			c.rearm()
		}
		return nil

	default:
		return curated.WriteAccessf(offset, value, "pit: %s", c.name)
	}
}
