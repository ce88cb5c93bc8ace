// SPDX-License-Identifier: GPL-2.0-or-later

package pmc_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/pmc"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regMCKR     = 0x30
	regCKGRMOR  = 0x20
	regCKGRPLLA = 0x28
	regCKGRPLLB = 0x2c
	regSR       = 0x68

	srMOSCS = 1 << 0
	srLOCKA = 1 << 1
	srLOCKB = 1 << 2
)

type fakeListener struct {
	last  uint32
	calls int
}

func (f *fakeListener) SetMasterClock(mclk uint32) {
	f.last = mclk
	f.calls++
}

func TestPMCReservedRegisterAborts(t *testing.T) {
	c := pmc.New("pmc")
	_, err := c.Read(0x0c) // reserved per regAccess[3]
	test.ExpectFailure(t, err)
}

func TestPMCWriteOnlyRegisterRejectsRead(t *testing.T) {
	c := pmc.New("pmc")
	_, err := c.Read(0x00) // PMC_SCER is write-only
	test.ExpectFailure(t, err)
}

func TestPMCMorSetsMoscs(t *testing.T) {
	c := pmc.New("pmc")
	test.ExpectSuccess(t, c.Write(regCKGRMOR, 1))
	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srMOSCS != 0, true)
}

func TestPMCMckrNotifiesListeners(t *testing.T) {
	c := pmc.New("pmc")
	l := &fakeListener{}
	c.AddClockListener(l)
	test.ExpectEquality(t, l.last, uint32(pmc.SlowClock)) // MCKR resets to CSS=slow clock, PRES=0

	test.ExpectSuccess(t, c.Write(regMCKR, 1)) // CSS=main clock
	test.ExpectEquality(t, l.last, uint32(pmc.MainClock))
}

func TestPMCMckrDuplicateWriteDebounced(t *testing.T) {
	c := pmc.New("pmc")
	l := &fakeListener{}
	c.AddClockListener(l)

	calls := l.calls
	test.ExpectSuccess(t, c.Write(regMCKR, 1)) // CSS=main clock, a real change
	test.ExpectEquality(t, l.calls, calls+1)

	test.ExpectSuccess(t, c.Write(regMCKR, 1)) // same value again
	test.ExpectEquality(t, l.calls, calls+1)   // no second callback
}

func TestPMCPllaLockRequiresValidConfig(t *testing.T) {
	c := pmc.New("pmc")

	test.ExpectSuccess(t, c.Write(regCKGRPLLA, 0)) // mul=0, div=0: never locks
	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srLOCKA, uint32(0))

	test.ExpectSuccess(t, c.Write(regCKGRPLLA, (1<<16)|1)) // mul=1, div=1: valid
	sr, err = c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srLOCKA != 0, true)
}

func TestPMCPllbLockRequiresValidConfig(t *testing.T) {
	c := pmc.New("pmc")

	test.ExpectSuccess(t, c.Write(regCKGRPLLB, 0))
	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srLOCKB, uint32(0))

	test.ExpectSuccess(t, c.Write(regCKGRPLLB, (1<<16)|1))
	sr, err = c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srLOCKB != 0, true)
}
