// SPDX-License-Identifier: GPL-2.0-or-later

package usart_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/test"
	"github.com/us-irs/qemu-iobc/usart"
)

type fakeBus struct {
	mem map[uint32][]byte
}

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
	regCR  = 0x00
	regMR  = 0x04
	regIMR = 0x10
	regCSR = 0x14
	regRHR = 0x18
	regTHR = 0x1c

	crRXEN = 1 << 4
	crTXEN = 1 << 6

	csrRXRDY  = 1 << 0
	csrTXRDY  = 1 << 1
	csrENDRX  = 1 << 3
	csrRXBUFF = 1 << 12
)

// TestUSARTPingScenario verifies scenario S2: with RX/TX enabled, an
// inbound DATA_IN IOX frame lands in RHR and raises RXRDY; writing THR
// while TXRDY is high sends a DATA_OUT frame and keeps TXRDY set.
func TestUSARTPingScenario(t *testing.T) {
	c := usart.New("usart0", newFakeBus())
	test.ExpectSuccess(t, c.Write(regCR, crRXEN|crTXEN))

	c.HandleFrame(iox.Frame{Cat: 0x01, ID: 0x01, Payload: []byte{0x42}})

	csr, err := c.Read(regCSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, csr&csrRXRDY != 0, true)

	rhr, err := c.Read(regRHR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, rhr, uint32(0x42))

	csr, _ = c.Read(regCSR)
	test.ExpectEquality(t, csr&csrRXRDY != 0, false)

	test.ExpectSuccess(t, c.Write(regTHR, 0x99))
	csr, _ = c.Read(regCSR)
	test.ExpectEquality(t, csr&csrTXRDY != 0, true)
}

func TestUSARTTHRIgnoredWhenTxNotReady(t *testing.T) {
	c := usart.New("usart0", newFakeBus())
	// TXEN never asserted: TXRDY stays low, THR write is silently dropped.
	test.ExpectSuccess(t, c.Write(regTHR, 0x55))
	csr, _ := c.Read(regCSR)
	test.ExpectEquality(t, csr&csrTXRDY != 0, false)
}

// TestUSARTPDCEndOfReceive verifies Testable Property #4 through a real
// USART+PDC pairing: RCR=N, RXEN, then N bytes injected via IOX leaves
// RCR=0 and ENDRX/RXBUFF set, with the bytes landing in system memory.
func TestUSARTPDCEndOfReceive(t *testing.T) {
	bus := newFakeBus()
	c := usart.New("usart0", bus)
	test.ExpectSuccess(t, c.Write(regCR, crRXEN))

	const pdcRPR, pdcRCR, pdcPTCR = 0x100, 0x104, 0x120
	test.ExpectSuccess(t, c.Write(pdcRPR, 0x3000_0000))
	test.ExpectSuccess(t, c.Write(pdcRCR, 3))
	test.ExpectSuccess(t, c.Write(pdcPTCR, 1<<0)) // RXTEN

	c.HandleFrame(iox.Frame{Cat: 0x01, ID: 0x01, Payload: []byte{1, 2, 3}})

	rcr, err := c.Read(pdcRCR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, rcr, uint32(0))

	csr, _ := c.Read(regCSR)
	test.ExpectEquality(t, csr&csrENDRX != 0, true)
	test.ExpectEquality(t, csr&csrRXBUFF != 0, true)

	got, err := bus.ReadBytes(0x3000_0000, 3)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(got), "\x01\x02\x03")
}

// TestUSARTPDCEndOfReceiveRollsOverToNextBuffer exercises the same
// zero-crossing as TestUSARTPDCEndOfReceive, but with RNPR/RNCR queued:
// ENDRX must fire at the first buffer's zero-crossing, and RXBUFF must
// NOT fire since the PDC has a second buffer to roll into — catching the
// regression where AdvanceRx's internal rollover raced the ENDRX/RXBUFF
// check and left it observing the rolled-over (nonzero) RCR instead.
func TestUSARTPDCEndOfReceiveRollsOverToNextBuffer(t *testing.T) {
	bus := newFakeBus()
	c := usart.New("usart0", bus)
	test.ExpectSuccess(t, c.Write(regCR, crRXEN))

	const pdcRPR, pdcRCR, pdcRNPR, pdcRNCR, pdcPTCR = 0x100, 0x104, 0x110, 0x114, 0x120
	test.ExpectSuccess(t, c.Write(pdcRPR, 0x3000_0000))
	test.ExpectSuccess(t, c.Write(pdcRCR, 3))
	test.ExpectSuccess(t, c.Write(pdcRNPR, 0x3000_1000))
	test.ExpectSuccess(t, c.Write(pdcRNCR, 5))
	test.ExpectSuccess(t, c.Write(pdcPTCR, 1<<0)) // RXTEN

	c.HandleFrame(iox.Frame{Cat: 0x01, ID: 0x01, Payload: []byte{1, 2, 3}})

	rcr, err := c.Read(pdcRCR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, rcr, uint32(5)) // rolled over from RNCR

	csr, _ := c.Read(regCSR)
	test.ExpectEquality(t, csr&csrENDRX != 0, true)   // first buffer completed
	test.ExpectEquality(t, csr&csrRXBUFF != 0, false) // second buffer still pending
}

func TestUSARTIllegalOffset(t *testing.T) {
	c := usart.New("usart0", newFakeBus())
	_, err := c.Read(0xfff)
	test.ExpectFailure(t, err)
}
