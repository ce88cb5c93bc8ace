// SPDX-License-Identifier: GPL-2.0-or-later

package sdbus

import (
	"os"

	"github.com/us-irs/qemu-iobc/curated"
)

const blockSize = 512

// state mirrors the small slice of the SD card state machine this model
// actually needs: enough to make CMD0/CMD8/CMD55+ACMD41/CMD2/CMD3/CMD7/
// CMD9/CMD16/CMD17/CMD24/CMD12/CMD13 behave the way a real card would
// towards the register-level behavior at91-mci.c exercises.
type state int

const (
	stateIdle state = iota
	stateReady
	stateIdent
	stateStandby
	stateTransfer
	stateSendingData
	stateReceiveData
)

const (
	cmdGoIdleState        = 0
	cmdAllSendCID         = 2
	cmdSendRelativeAddr   = 3
	cmdSelectCard         = 7
	cmdSendIfCond         = 8
	cmdSendCSD            = 9
	cmdStopTransmission   = 12
	cmdSendStatus         = 13
	cmdSetBlocklen        = 16
	cmdReadSingleBlock    = 17
	cmdWriteBlock         = 24
	cmdAppCmd             = 55

	acmdSDSendOpCond = 41
)

// RawCard is an SD card backed by a flat raw disk image file, the same
// shape of storage at91-mci.c's notes describe the iOBC using: a single
// card permanently wired to slot A.
type RawCard struct {
	f    *os.File
	size int64

	st        state
	appCmd    bool
	rca       uint16
	blocklen  uint32
	addr      uint32
	buf       [blockSize]byte
	bufOffset int
	inserted  bool
}

// NewRawCard opens path (created if it does not already exist and
// createSize is nonzero) as the backing store for a card.
func NewRawCard(path string, createSize int64) (*RawCard, error) {
	flags := os.O_RDWR
	if createSize > 0 {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, curated.Errorf("sdbus: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, curated.Errorf("sdbus: %v", err)
	}
	size := info.Size()
	if size < createSize {
		if err := f.Truncate(createSize); err != nil {
			f.Close()
			return nil, curated.Errorf("sdbus: %v", err)
		}
		size = createSize
	}

	c := &RawCard{f: f, size: size, inserted: true, blocklen: blockSize}
	c.reset()
	return c, nil
}

// Close releases the backing file.
func (c *RawCard) Close() error { return c.f.Close() }

func (c *RawCard) reset() {
	c.st = stateIdle
	c.appCmd = false
	c.rca = 0xaaaa
	c.blocklen = blockSize
	c.addr = 0
	c.bufOffset = 0
}

func put32be(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

// DoCommand implements sdbus_do_command for the command subset above; any
// other command index is treated as illegal (no card response), matching
// rlen==0 in the original for a card that does not recognize the command.
func (c *RawCard) DoCommand(req Request, resp []byte) int {
	if !c.inserted {
		return -1
	}

	if c.appCmd {
		c.appCmd = false
		if req.Cmd == acmdSDSendOpCond {
			// OCR: card power-up complete, no voltage window negotiation.
			put32be(resp, 0x80ff8000)
			c.st = stateReady
			return 4
		}
	}

	switch req.Cmd {
	case cmdGoIdleState:
		c.reset()
		return 0

	case cmdSendIfCond:
		resp[0] = 0
		resp[1] = 0
		resp[2] = byte(req.Arg >> 8 & 0x0f)
		resp[3] = byte(req.Arg & 0xff)
		return 4

	case cmdAppCmd:
		c.appCmd = true
		return 4

	case cmdAllSendCID:
		for i := range resp[:16] {
			resp[i] = 0
		}
		c.st = stateIdent
		return 16

	case cmdSendRelativeAddr:
		put32be(resp, uint32(c.rca)<<16)
		c.st = stateStandby
		return 4

	case cmdSelectCard:
		if uint16(req.Arg>>16) == c.rca {
			c.st = stateTransfer
		} else {
			c.st = stateStandby
		}
		return 4

	case cmdSendCSD:
		c.fillCSD(resp)
		return 16

	case cmdSendStatus:
		put32be(resp, 0)
		return 4

	case cmdSetBlocklen:
		c.blocklen = req.Arg
		return 4

	case cmdReadSingleBlock:
		c.addr = req.Arg
		c.bufOffset = 0
		if _, err := c.f.ReadAt(c.buf[:c.blocklen], int64(c.addr)); err != nil {
			return 0
		}
		c.st = stateSendingData
		return 4

	case cmdWriteBlock:
		c.addr = req.Arg
		c.bufOffset = 0
		c.st = stateReceiveData
		return 4

	case cmdStopTransmission:
		if c.bufOffset > 0 && c.st == stateReceiveData {
			c.flushWrite()
		}
		c.st = stateTransfer
		c.bufOffset = 0
		return 4

	default:
		return 0
	}
}

// DataReady implements sdbus_data_ready.
func (c *RawCard) DataReady() bool {
	return c.st == stateSendingData && c.bufOffset < int(c.blocklen)
}

// ReadData implements sdbus_read_data: consumes one byte of the block
// currently staged by a prior READ_SINGLE_BLOCK command.
func (c *RawCard) ReadData() byte {
	if c.st != stateSendingData || c.bufOffset >= int(c.blocklen) {
		return 0
	}
	b := c.buf[c.bufOffset]
	c.bufOffset++
	if c.bufOffset >= int(c.blocklen) {
		c.st = stateTransfer
	}
	return b
}

// WriteData implements sdbus_write_data: stages one byte of the block
// being written by a prior WRITE_BLOCK command, flushing to the backing
// file once a full block has been collected.
func (c *RawCard) WriteData(b byte) {
	if c.st != stateReceiveData {
		return
	}
	if c.bufOffset < len(c.buf) {
		c.buf[c.bufOffset] = b
	}
	c.bufOffset++
	if c.bufOffset >= int(c.blocklen) {
		c.flushWrite()
	}
}

func (c *RawCard) flushWrite() {
	c.f.WriteAt(c.buf[:c.blocklen], int64(c.addr))
	c.bufOffset = 0
	c.st = stateTransfer
}

// fillCSD produces a CSD with just enough structure (capacity, block
// length) to be plausible; the original's SD core generates a full one,
// but at91-mci.c never inspects CSD fields itself.
func (c *RawCard) fillCSD(resp []byte) {
	for i := range resp[:16] {
		resp[i] = 0
	}
	blocks := uint32(c.size / blockSize)
	resp[0] = 0x40 // CSD_STRUCTURE = 1 (SDHC/SDXC)
	resp[7] = byte(blocks >> 16)
	resp[8] = byte(blocks >> 8)
	resp[9] = byte(blocks)
}
