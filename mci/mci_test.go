// SPDX-License-Identifier: GPL-2.0-or-later

package mci_test

import (
	"os"
	"testing"

	"github.com/us-irs/qemu-iobc/mci"
	"github.com/us-irs/qemu-iobc/mci/sdbus"
	"github.com/us-irs/qemu-iobc/test"
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
	regMR   = 0x04
	regSDCR = 0x0c
	regARGR = 0x10
	regCMDR = 0x14
	regBLKR = 0x18
	regRDR  = 0x30
	regSR   = 0x40

	regPDCRPR = 0x100
	regPDCRCR = 0x104
	regPDCPTCR = 0x120

	crMCIEN = 1 << 0

	cmdReadSingleBlock = 17
	cmdrRspTyp48Shift  = 6
	cmdrTRCMDShift     = 16
	cmdrTRDIR          = 1 << 18
	cmdrTRTYPShift     = 19

	srRXRDY   = 1 << 1
	srCMDRDY  = 1 << 0
	ptcrRXTEN = 1 << 0
)

func newCard(t *testing.T) *sdbus.RawCard {
	t.Helper()
	path := t.TempDir() + "/disk.img"
	card, err := sdbus.NewRawCard(path, 64*1024)
	if err != nil {
		t.Fatalf("NewRawCard: %v", err)
	}
	t.Cleanup(func() { card.Close() })

	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	block := make([]byte, 512)
	for i := range block {
		block[i] = byte(i)
	}
	if _, err := f.WriteAt(block, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	return card
}

// TestMCISingleBlockReadDirect exercises scenario S4 through the
// non-PDC RDR register path: select a block, issue CMD17, and drain 512
// bytes 4 at a time.
func TestMCISingleBlockReadDirect(t *testing.T) {
	card := newCard(t)
	c := mci.New("mci0", newFakeBus(), card)

	test.ExpectSuccess(t, c.Write(regCR, crMCIEN))
	test.ExpectSuccess(t, c.Write(regBLKR, 512<<16))
	test.ExpectSuccess(t, c.Write(regARGR, 0))

	cmdr := uint32(cmdReadSingleBlock) | (1 << cmdrRspTyp48Shift) | cmdrTRDIR | (1 << cmdrTRCMDShift) | (0 << cmdrTRTYPShift)
	test.ExpectSuccess(t, c.Write(regCMDR, cmdr))

	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srCMDRDY != 0, true)
	test.ExpectEquality(t, sr&srRXRDY != 0, true)

	var collected []byte
	for i := 0; i < 128; i++ {
		word, err := c.Read(regRDR)
		test.ExpectSuccess(t, err)
		collected = append(collected,
			byte(word), byte(word>>8), byte(word>>16), byte(word>>24))
	}

	for i, b := range collected {
		test.ExpectEquality(t, b, byte(i))
	}
}

// TestMCISingleBlockReadPDC exercises the same block read through the PDC
// channel: with RXTEN already enabled, the 512 bytes should land directly
// in system memory as soon as the read command is issued.
func TestMCISingleBlockReadPDC(t *testing.T) {
	card := newCard(t)
	bus := newFakeBus()
	c := mci.New("mci0", bus, card)

	test.ExpectSuccess(t, c.Write(regCR, crMCIEN))
	test.ExpectSuccess(t, c.Write(regMR, 1<<15)) // PDCMODE
	test.ExpectSuccess(t, c.Write(regBLKR, 512<<16))
	test.ExpectSuccess(t, c.Write(regARGR, 0))
	test.ExpectSuccess(t, c.Write(regPDCRPR, 0x1000))
	test.ExpectSuccess(t, c.Write(regPDCRCR, 128)) // words: 512 bytes / 4
	test.ExpectSuccess(t, c.Write(regPDCPTCR, ptcrRXTEN))

	cmdr := uint32(cmdReadSingleBlock) | (1 << cmdrRspTyp48Shift) | cmdrTRDIR | (1 << cmdrTRCMDShift) | (0 << cmdrTRTYPShift)
	test.ExpectSuccess(t, c.Write(regCMDR, cmdr))

	data, err := bus.ReadBytes(0x1000, 512)
	test.ExpectSuccess(t, err)
	for i, b := range data {
		test.ExpectEquality(t, b, byte(i))
	}
}

func TestMCIIllegalOffset(t *testing.T) {
	c := mci.New("mci0", newFakeBus(), nil)
	_, err := c.Read(0xfff)
	test.ExpectFailure(t, err)
}
