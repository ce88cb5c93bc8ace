// SPDX-License-Identifier: GPL-2.0-or-later

package tc

import "time"

func (c *Channel) period() time.Duration {
	if c.clk == 0 {
		return 0
	}
	return time.Second / time.Duration(c.clk)
}

// rearm (re)starts the free-running period timer, mirroring tc_clk_start
// but driven by a real time.Timer instead of a ptimer bound to the
// emulated CPU's step rate — CV advances in wall-clock time the same way
// TWI's debounce timer does, and for the same reason: both model a
// free-running hardware counter no CPU instruction drives.
func (c *Channel) rearm() {
	period := c.period()
	if period <= 0 {
		return
	}
	c.stopTimer()
	c.timer = time.AfterFunc(period, c.tick)
}

func (c *Channel) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// clkStart implements tc_clk_start.
func (c *Channel) clkStart() {
	if c.sr&srCLKSTA == 0 {
		return
	}
	c.rearm()
}

// clkStop implements tc_clk_stop.
func (c *Channel) clkStop() { c.stopTimer() }

// trigger implements tc_trigger.
func (c *Channel) trigger() {
	if c.cmr&cmrWAVE != 0 {
		if (c.cmr>>cmrWAVSELShift)&1 == 0 { // sawtooth
			c.cv = 0
		} else { // triangular
			c.cstep = -c.cstep
		}
	} else {
		c.cv = 0
	}
	c.clkStart()
}

// tick implements tc_timer_tick, firing once per configured clock period
// while CLKSTA is set, and rescheduling itself for as long as it stays
// set.
func (c *Channel) tick() {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()

	if c.cv == 0xffff {
		c.sr |= srCOVFS
	}

	if c.cmr&cmrWAVE != 0 {
		wavsel := (c.cmr >> cmrWAVSELShift) & cmrWAVSELMask
		cmp := uint32(0xffff)
		if wavsel&0x02 != 0 {
			cmp = c.rc
		}

		if wavsel&0x01 == 0 { // sawtooth
			if c.cv == cmp {
				c.cv = 0
			} else {
				c.cv = (c.cv + 1) & 0xffff
			}
		} else { // triangular
			if c.cv == cmp {
				c.cstep = -1
			} else if c.cv == 0 {
				c.cstep = 1
			}
			c.cv = uint32(int32(c.cv)+c.cstep) & 0xffff
		}

		if c.cv == c.ra {
			c.sr |= srCPAS
		}
		if c.cv == c.rb {
			c.sr |= srCPBS
		}
		if c.cv == c.rc {
			c.sr |= srCPCS
			if c.cmr&cmrCPCDIS != 0 {
				c.sr &^= srCLKSTA
				c.clkStop()
			}
			if c.cmr&cmrCPCSTOP != 0 {
				c.clkStop()
			}
		}
	} else {
		c.cv = (c.cv + 1) & 0xffff
		if c.cv == c.rc {
			c.sr |= srCPCS
			if c.cmr&cmrCPCTRG != 0 {
				c.cv = 0
			}
		}
	}

	c.updateIRQ()

	if c.sr&srCLKSTA != 0 {
		c.rearm()
	}
}
