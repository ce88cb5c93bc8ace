// SPDX-License-Identifier: GPL-2.0-or-later

package aic_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/aic"
	"github.com/us-irs/qemu-iobc/test"
)

func configureLevelHigh(t *testing.T, c *aic.Controller, irq int, priority uint32, vector uint32) {
	t.Helper()
	const smrBase, svrBase = 0x000, 0x080
	test.ExpectSuccess(t, c.Write(uint32(smrBase+irq*4), priority|(2<<5))) // ACTIVE_HIGH
	test.ExpectSuccess(t, c.Write(uint32(svrBase+irq*4), vector))
	test.ExpectSuccess(t, c.Write(0x120, 1<<uint(irq))) // IECR: enable
}

// TestAICPriority verifies property S2: with two lines pending of
// priorities p1 > p2, reading IVR returns the vector of the line with
// priority p1; on a tie the lower index wins.
func TestAICPriority(t *testing.T) {
	c := aic.New()

	configureLevelHigh(t, c, 5, 3, 0xAAAA)
	configureLevelHigh(t, c, 10, 7, 0xBBBB)

	c.SetLine(5, true)
	c.SetLine(10, true)

	v, err := c.Read(0x100) // IVR
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xBBBB))
}

func TestAICPriorityTieLowestIndexWins(t *testing.T) {
	c := aic.New()

	configureLevelHigh(t, c, 5, 4, 0xAAAA)
	configureLevelHigh(t, c, 10, 4, 0xBBBB)

	c.SetLine(5, true)
	c.SetLine(10, true)

	v, err := c.Read(0x100)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xAAAA))
}

// TestAICEdgeClearOnIVRRead verifies property S3: an edge-triggered
// pending line is cleared in IPR exactly on the acknowledging IVR read;
// level-triggered lines are not.
func TestAICEdgeClearOnIVRRead(t *testing.T) {
	c := aic.New()

	// irq 30 is external, so edge/rising config is honoured as written.
	test.ExpectSuccess(t, c.Write(0x000+30*4, 3|(3<<5))) // priority 3, ACTIVE_RISING
	test.ExpectSuccess(t, c.Write(0x080+30*4, 0xCAFE))
	test.ExpectSuccess(t, c.Write(0x120, 1<<30))

	c.SetLine(30, true)

	ipr, _ := c.Read(0x10c)
	test.ExpectEquality(t, ipr&(1<<30) != 0, true)

	v, err := c.Read(0x100)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xCAFE))

	ipr, _ = c.Read(0x10c)
	test.ExpectEquality(t, ipr&(1<<30) != 0, false)
}

func TestAICLevelTriggeredNotClearedOnIVRRead(t *testing.T) {
	c := aic.New()
	configureLevelHigh(t, c, 20, 3, 0xD00D)

	c.SetLine(20, true)

	_, err := c.Read(0x100)
	test.ExpectSuccess(t, err)

	ipr, _ := c.Read(0x10c)
	test.ExpectEquality(t, ipr&(1<<20) != 0, true)
}

// TestAICSpurious verifies property/scenario S5: with nothing pending,
// reading IVR returns SPU and pushes a sentinel stack entry of priority 8;
// EOICR pops it.
func TestAICSpurious(t *testing.T) {
	c := aic.New()
	test.ExpectSuccess(t, c.Write(0x134, 0xDEAD)) // SPU

	v, err := c.Read(0x100)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xDEAD))

	test.ExpectSuccess(t, c.Write(0x130, 0)) // EOICR
}

func TestAICProtectModeIVRReadIsPure(t *testing.T) {
	c := aic.New()
	configureLevelHigh(t, c, 12, 5, 0x1234)
	c.SetLine(12, true)

	test.ExpectSuccess(t, c.Write(0x138, 0x01)) // DCR_PROT

	v1, err := c.Read(0x100)
	test.ExpectSuccess(t, err)
	v2, err := c.Read(0x100)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v1, v2)

	// a subsequent IVR *write* performs the acknowledge side effects.
	test.ExpectSuccess(t, c.Write(0x100, 0))

	_, err = c.Read(0x108) // ISR should now show the acknowledged irq
	test.ExpectSuccess(t, err)
}

func TestAICIRQLineCallback(t *testing.T) {
	c := aic.New()
	var asserted bool
	c.SetIRQ = func(level bool) { asserted = level }

	configureLevelHigh(t, c, 7, 1, 0x1)
	c.SetLine(7, true)
	test.ExpectEquality(t, asserted, true)

	c.SetLine(7, false)
	test.ExpectEquality(t, asserted, false)
}

func TestSysCOR(t *testing.T) {
	c := aic.New()
	var irqLevel bool
	c.SetIRQ = func(level bool) { irqLevel = level }

	test.ExpectSuccess(t, c.Write(0x000+1*4, 1|(2<<5))) // line 1: priority 1, ACTIVE_HIGH
	test.ExpectSuccess(t, c.Write(0x080+1*4, 0x9999))
	test.ExpectSuccess(t, c.Write(0x120, 1<<1))

	stub := aic.NewSysCOR(c)
	stub.SetLine(3, true)
	test.ExpectEquality(t, irqLevel, true)

	stub.SetLine(3, false)
	test.ExpectEquality(t, irqLevel, false)
}
