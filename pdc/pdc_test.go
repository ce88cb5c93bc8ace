// SPDX-License-Identifier: GPL-2.0-or-later

package pdc_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/pdc"
	"github.com/us-irs/qemu-iobc/test"
)

type mockHost struct {
	sr                   uint32
	rxStarted, txStarted int
	rxStopped, txStopped int
	irqUpdates           int
}

func (m *mockHost) DMARxStart()             { m.rxStarted++ }
func (m *mockHost) DMARxStop()              { m.rxStopped++ }
func (m *mockHost) DMATxStart()             { m.txStarted++ }
func (m *mockHost) DMATxStop()              { m.txStopped++ }
func (m *mockHost) UpdateIRQ()              { m.irqUpdates++ }
func (m *mockHost) StatusRegister() *uint32 { return &m.sr }
func (m *mockHost) Flags() pdc.Flags {
	return pdc.Flags{ENDRX: 1 << 0, ENDTX: 1 << 1, RXBUFF: 1 << 2, TXBUFE: 1 << 3}
}

// TestPDCEndOfReceive verifies Testable Property #4: writing RCR=N while
// RXTEN is enabled and then draining all N bytes via AdvanceRx alone (no
// manual register re-write, the way a real DMA step never would) leaves
// RCR readable as zero, with RNCR still zero, the instant AdvanceRx
// returns — exactly the state a host peripheral's own ENDRX/RXBUFF check
// (see usart.checkRxEnd/twi.checkRxEnd) depends on seeing before any
// rollover takes place.
func TestPDCEndOfReceive(t *testing.T) {
	host := &mockHost{}
	c := pdc.New(host)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<0)) // RXTEN
	test.ExpectEquality(t, host.rxStarted, 1)

	test.ExpectSuccess(t, c.Write(pdc.RegRPR, 0x2000_0000))
	test.ExpectSuccess(t, c.Write(pdc.RegRCR, 4))
	test.ExpectEquality(t, host.sr&(1<<0) != 0, false) // ENDRX not yet set

	n := c.AdvanceRx(4)
	test.ExpectEquality(t, n, uint32(4))
	test.ExpectEquality(t, c.RCR(), uint16(0))
	test.ExpectEquality(t, c.RNCR(), uint16(0))

	// no next buffer is queued, so rolling over must fail and leave RCR
	// at zero rather than pulling in a stale RNCR.
	test.ExpectEquality(t, c.RolloverRx(), false)
	test.ExpectEquality(t, c.RCR(), uint16(0))
}

// TestPDCRolloverAtZeroCrossing drains a PDC RX buffer into a queued
// RNCR/RNPR buffer via AdvanceRx alone, asserting that RCR crossing zero
// is observable (for ENDRX) strictly before RolloverRx swaps the next
// buffer into place — the sequencing pdc.AdvanceRx/RolloverRx must
// preserve for a caller's ENDRX/RXBUFF bookkeeping to be correct.
func TestPDCRolloverAtZeroCrossing(t *testing.T) {
	host := &mockHost{}
	c := pdc.New(host)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<0))
	test.ExpectSuccess(t, c.Write(pdc.RegRPR, 0x1000))
	test.ExpectSuccess(t, c.Write(pdc.RegRCR, 4))
	test.ExpectSuccess(t, c.Write(pdc.RegRNPR, 0x2000))
	test.ExpectSuccess(t, c.Write(pdc.RegRNCR, 8))

	n := c.AdvanceRx(4)
	test.ExpectEquality(t, n, uint32(4))
	// RCR must already read zero here — the bug this guards against had
	// AdvanceRx roll RNCR in before the caller could observe the
	// zero-crossing, so RCR()==0 was never true and ENDRX never fired.
	test.ExpectEquality(t, c.RCR(), uint16(0))

	endRX := c.RCR() == 0
	test.ExpectEquality(t, endRX, true)

	rolled := c.RolloverRx()
	test.ExpectEquality(t, rolled, true)
	test.ExpectEquality(t, c.RCR(), uint16(8))
	test.ExpectEquality(t, c.RPR(), uint32(0x2000))
}

func TestPDCNextBufferRollsOverOnEmpty(t *testing.T) {
	host := &mockHost{}
	c := pdc.New(host)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<0))
	test.ExpectSuccess(t, c.Write(pdc.RegRPR, 0x1000))
	test.ExpectSuccess(t, c.Write(pdc.RegRCR, 2))
	test.ExpectSuccess(t, c.Write(pdc.RegRNPR, 0x2000))
	test.ExpectSuccess(t, c.Write(pdc.RegRNCR, 5))

	c.AdvanceRx(2)
	test.ExpectEquality(t, c.RCR(), uint16(0))
	rolled := c.RolloverRx()
	test.ExpectEquality(t, rolled, true)
	test.ExpectEquality(t, c.RCR(), uint16(5))
	test.ExpectEquality(t, c.RPR(), uint32(0x2000))
}

func TestPDCHalfDuplexRejectsSimultaneousEnable(t *testing.T) {
	host := &mockHost{}
	c := pdc.NewHalfDuplex(host)

	test.ExpectFailure(t, c.Write(pdc.RegPTCR, (1<<0)|(1<<8)))
}

func TestPDCHalfDuplexExcludesTXWhileRXEnabled(t *testing.T) {
	host := &mockHost{}
	c := pdc.NewHalfDuplex(host)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<0)) // RXTEN
	test.ExpectEquality(t, host.rxStarted, 1)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<8)) // TXTEN, ignored
	test.ExpectEquality(t, host.txStarted, 0)
}

func TestPDCDisableStopsDMA(t *testing.T) {
	host := &mockHost{}
	c := pdc.New(host)

	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<0))
	test.ExpectSuccess(t, c.Write(pdc.RegPTCR, 1<<1)) // RXTDIS
	test.ExpectEquality(t, host.rxStopped, 1)
	test.ExpectEquality(t, c.RxEnabled(), false)
}

func TestPDCIllegalOffset(t *testing.T) {
	host := &mockHost{}
	c := pdc.New(host)
	test.ExpectFailure(t, c.Write(0xfff, 0))
	_, err := c.Read(0xfff)
	test.ExpectFailure(t, err)
}
