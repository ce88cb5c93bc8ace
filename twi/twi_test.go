// SPDX-License-Identifier: GPL-2.0-or-later

package twi_test

import (
	"testing"
	"time"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/test"
	"github.com/us-irs/qemu-iobc/twi"
)

type fakeBus struct{ mem map[uint32][]byte }

func newFakeBus() *fakeBus { return &fakeBus{mem: map[uint32][]byte{}} }

func (b *fakeBus) ReadBytes(addr uint32, n int) ([]byte, error) {
	data, ok := b.mem[addr]
	if !ok || len(data) < n {
		return make([]byte, n), nil
	}
	return data[:n], nil
}

func (b *fakeBus) WriteBytes(addr uint32, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	b.mem[addr] = buf
	return nil
}

const (
	regCR   = 0x00
	regCWGR = 0x10
	regSR   = 0x20
	regTHR  = 0x34

	crMSEN   = 1 << 2
	srTXCOMP = 1 << 0
	srTXRDY  = 1 << 2

	pdcRPR, pdcRCR, pdcRNPR, pdcRNCR, pdcPTCR = 0x100, 0x104, 0x110, 0x114, 0x120

	srENDRX  = 1 << 12
	srRXBUFF = 1 << 14
)

func TestTWIEnableMaster(t *testing.T) {
	c := twi.New("twi0", newFakeBus())
	c.SetMasterClock(48_000_000)
	test.ExpectSuccess(t, c.Write(regCR, crMSEN))

	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srTXRDY != 0, true)
}

func TestTWISlaveToMasterAllowedWithTXCOMPSet(t *testing.T) {
	c := twi.New("twi0", newFakeBus())
	test.ExpectSuccess(t, c.Write(regCR, 1<<4)) // SVEN, from OFFLINE: legal

	// TXCOMP is set at reset and nothing has cleared it, so the
	// slave->master transition is legal.
	test.ExpectSuccess(t, c.Write(regCR, crMSEN))
}

// TestTWIPDCEndOfReceiveRollsOverToNextBuffer mirrors the USART regression
// test for the same bug: draining a PDC RX buffer into a queued RNCR buffer
// via an inbound IOX DATA_IN frame must raise ENDRX at the first buffer's
// zero-crossing, and must NOT raise RXBUFF since a second buffer is queued
// to roll into — catching the case where AdvanceRx's internal rollover raced
// the ENDRX/RXBUFF check and hid the zero-crossing from it.
func TestTWIPDCEndOfReceiveRollsOverToNextBuffer(t *testing.T) {
	bus := newFakeBus()
	c := twi.New("twi0", bus)
	c.SetMasterClock(48_000_000)

	test.ExpectSuccess(t, c.Write(pdcRPR, 0x3000_0000))
	test.ExpectSuccess(t, c.Write(pdcRCR, 3))
	test.ExpectSuccess(t, c.Write(pdcRNPR, 0x3000_1000))
	test.ExpectSuccess(t, c.Write(pdcRNCR, 5))
	test.ExpectSuccess(t, c.Write(pdcPTCR, 1<<0)) // RXTEN

	c.HandleFrame(iox.Frame{Cat: 0x01, ID: 0x01, Payload: []byte{1, 2, 3}})

	rcr, err := c.Read(pdcRCR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, rcr, uint32(5)) // rolled over from RNCR

	sr, _ := c.Read(regSR)
	test.ExpectEquality(t, sr&srENDRX != 0, true)   // first buffer completed
	test.ExpectEquality(t, sr&srRXBUFF != 0, false) // second buffer still pending

	got, err := bus.ReadBytes(0x3000_0000, 3)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(got), "\x01\x02\x03")
}

func TestTWIDebounceFlush(t *testing.T) {
	c := twi.New("twi0", newFakeBus())
	c.SetMasterClock(1000)
	test.ExpectSuccess(t, c.Write(regCR, crMSEN))
	test.ExpectSuccess(t, c.Write(regTHR, 0xaa))

	time.Sleep(50 * time.Millisecond)

	sr, _ := c.Read(regSR)
	test.ExpectEquality(t, sr&srTXCOMP != 0, true)
}
