// SPDX-License-Identifier: GPL-2.0-or-later

package mci

import (
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/mci/sdbus"
)

// trLength implements mci_tr_length.
func (c *Controller) trLength(cmdr uint32) (int64, error) {
	trtyp := (cmdr >> 19) & 0x07
	switch trtyp {
	case cmdrTrtypSingleBlock:
		return int64(c.blklen()), nil

	case cmdrTrtypMultipleBlock:
		if c.bcnt() == 0 {
			return blkUnlimited, nil
		}
		return int64(c.blklen()) * int64(c.bcnt()), nil

	case cmdrTrtypSDIOByte:
		return int64(c.bcnt()), nil

	case cmdrTrtypSDIOBlock:
		return int64(c.blklen()) * int64(c.bcnt()), nil

	case cmdrTrtypMMCStream:
		return 0, curated.Errorf("mci: %s: MMC stream data transfer not supported", c.name)

	default:
		return 0, curated.Errorf("mci: %s: invalid transfer type: %d", c.name, trtyp)
	}
}

// trStartRead implements mci_tr_start_read.
func (c *Controller) trStartRead(cmdr uint32) error {
	length, err := c.trLength(cmdr)
	if err != nil {
		return err
	}
	c.rdBytesLeft = length

	if c.mr&mrPDCMODE != 0 && c.rxDMAEnabled {
		c.pdcDoRead()
	} else if c.mr&mrPDCMODE == 0 {
		c.sr |= srRXRDY
	}
	return nil
}

// trStartWrite implements mci_tr_start_write.
func (c *Controller) trStartWrite(cmdr uint32) error {
	length, err := c.trLength(cmdr)
	if err != nil {
		return err
	}
	c.wrBytesLeft = length
	c.wrBytesBlk = 0
	c.sr &^= srNOTBUSY

	if c.mr&mrPDCMODE != 0 && c.txDMAEnabled {
		c.pdcDoWrite()
	} else if c.mr&mrPDCMODE == 0 {
		c.sr |= srTXRDY
	}
	return nil
}

// trStart implements mci_tr_start.
func (c *Controller) trStart(cmdr uint32) error {
	if cmdr&cmdrTRDIR != 0 {
		return c.trStartRead(cmdr)
	}
	return c.trStartWrite(cmdr)
}

// trStop implements mci_tr_stop.
func (c *Controller) trStop() {
	c.rdBytesLeft = 0
	c.wrBytesLeft = 0
	c.wrBytesBlk = 0
	c.sr &^= srDTIP | srRXRDY | srTXRDY
	c.sr |= srNOTBUSY
}

// doCommand implements mci_do_command.
func (c *Controller) doCommand(cmdr uint32) error {
	c.sr &^= srCMDRDY

	var rlenExpected int
	switch (cmdr >> 6) & 0x03 {
	case cmdrRspNoResp:
		rlenExpected = 0
	case cmdrRsp48Bit:
		rlenExpected = 4
	case cmdrRsp136Bit:
		rlenExpected = 16
	default:
		return curated.Errorf("mci: %s: invalid command RSPTYP: 0x%x", c.name, (cmdr>>6)&0x03)
	}

	req := sdbus.Request{Cmd: uint8(cmdr & 0x3f), Arg: c.argr, CRC: 0}
	var response [16]byte

	if c.card == nil {
		c.sr |= srCMDRDY | srRTOE
		c.updateIRQ()
		return nil
	}

	rlen := c.card.DoCommand(req, response[:])

	if rlen < 0 {
		c.sr |= srCMDRDY | srRTOE
		c.updateIRQ()
		return nil
	}

	if rlen != 0 && rlen != rlenExpected {
		return curated.Errorf("mci: %s: command response length does not match expected length (cmdr=0x%x got=%d expected=%d)",
			c.name, cmdr, rlen, rlenExpected)
	}
	if rlen == 0 && rlen != rlenExpected {
		c.sr |= srRTOE
	}

	c.rsprIndex = 0
	switch rlen {
	case 0:
		c.rspr = [4]uint32{}
		c.rsprLen = 0
	case 4:
		c.rspr[0] = be32(response[0:4])
		c.rspr[1], c.rspr[2], c.rspr[3] = 0, 0, 0
		c.rsprLen = 1
	case 16:
		c.rspr[0] = be32(response[12:16])
		c.rspr[1] = be32(response[8:12])
		c.rspr[2] = be32(response[4:8])
		c.rspr[3] = be32(response[0:4])
		c.rsprLen = 4
	}

	trcmd := (cmdr >> 16) & 0x03
	if trcmd != cmdrTrcmdNone {
		c.sr &^= srOVRE | srUNRE
		c.sr |= srDTIP

		if c.mr&mrPDCMODE != 0 && c.mr&mrPDCFBYTE == 0 && c.blklen()&0x03 != 0 {
			return curated.Errorf("mci: %s: block length must be multiple of 4 bytes unless PDCFBYTE is set", c.name)
		}

		switch trcmd {
		case cmdrTrcmdStart:
			if err := c.trStart(cmdr); err != nil {
				return err
			}
		case cmdrTrcmdStop:
			c.trStop()
		default:
			return curated.Errorf("mci: %s: invalid value for TRCMD field", c.name)
		}

		c.updateIRQ()
	}

	c.sr |= srCMDRDY
	c.updateIRQ()
	return nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// readRSPR implements the RSPR[0-3] round-robin read-out note: any of the
// four registers advances the same read index, since a real program may
// read the same register four times or each of the four registers once.
func (c *Controller) readRSPR() (uint32, error) {
	if c.rsprIndex < c.rsprLen {
		v := c.rspr[c.rsprIndex]
		c.rsprIndex++
		return v, nil
	}
	return 0, curated.Errorf("mci: %s: invalid access to RSPR[0-3]: response of length %d but accessed %d times",
		c.name, c.rsprLen, c.rsprIndex+1)
}

// rdr implements mci_rdr: a direct (non-PDC) single-word read from the
// card's current read transaction.
func (c *Controller) rdr() (uint32, error) {
	if c.rdBytesLeft == 0 {
		return 0, curated.Errorf("mci: %s: access to RDR register without active read transmission", c.name)
	}
	if c.mr&mrPDCMODE != 0 {
		return 0, curated.Errorf("mci: %s: access to RDR register while PDCMODE is set", c.name)
	}
	if c.card == nil || !c.card.DataReady() {
		return 0, curated.Errorf("mci: %s: sd card has no data available for read", c.name)
	}
	if c.sr&srRXRDY == 0 {
		return 0, curated.Errorf("mci: %s: access to RDR while RXRDY not set", c.name)
	}

	c.sr &^= srRXRDY

	length := int64(4)
	if c.rdBytesLeft >= 0 && c.rdBytesLeft < length {
		length = c.rdBytesLeft
	}

	var buf uint32
	for i := int64(0); i < length; i++ {
		buf |= uint32(c.card.ReadData()) << (8 * uint(i))
	}
	if c.rdBytesLeft >= 0 {
		c.rdBytesLeft -= length
	}

	if c.rdBytesLeft == 0 {
		c.sr &^= srDTIP
	} else {
		c.sr |= srRXRDY
	}

	c.updateIRQ()
	return buf, nil
}

// tdr implements mci_tdr.
func (c *Controller) tdr(value uint32) error {
	if c.wrBytesLeft == 0 {
		return curated.Errorf("mci: %s: access to TDR register without active write transmission", c.name)
	}
	if c.mr&mrPDCMODE != 0 {
		return curated.Errorf("mci: %s: access to TDR register while PDCMODE is set", c.name)
	}
	if c.sr&srTXRDY == 0 {
		return curated.Errorf("mci: %s: access to TDR while TXRDY not set", c.name)
	}
	if c.card == nil {
		return curated.Errorf("mci: %s: access to TDR without a card attached", c.name)
	}

	c.sr &^= srTXRDY

	length := int64(4)
	if c.wrBytesLeft >= 0 && c.wrBytesLeft < length {
		length = c.wrBytesLeft
	}

	for i := int64(0); i < length; i++ {
		c.card.WriteData(byte(value >> (8 * uint(i))))
	}
	if c.wrBytesLeft >= 0 {
		c.wrBytesLeft -= length
	}
	c.wrBytesBlk += uint32(length)

	if c.blklen() != 0 && c.wrBytesBlk >= c.blklen() {
		c.wrBytesBlk -= c.blklen()
		c.sr |= srBLKE
	}

	if c.wrBytesLeft == 0 {
		c.sr |= srNOTBUSY | srBLKE
		c.sr &^= srDTIP
		c.wrBytesBlk = 0
	}

	c.sr |= srTXRDY
	c.updateIRQ()
	return nil
}
