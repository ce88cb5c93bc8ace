// SPDX-License-Identifier: GPL-2.0-or-later

package pio_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/pio"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regPER  = 0x00
	regOER  = 0x10
	regSODR = 0x30
	regCODR = 0x34
	regODSR = 0x38
	regPDSR = 0x3c
	regISR  = 0x4c
)

func TestPIOOutputDrivesPDSR(t *testing.T) {
	c := pio.New("pioa")

	test.ExpectSuccess(t, c.Write(regPER, 1))  // PIO controls pin 0
	test.ExpectSuccess(t, c.Write(regOER, 1))  // output
	test.ExpectSuccess(t, c.Write(regSODR, 1)) // drive high

	v, err := c.Read(regPDSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v&1, uint32(1))

	test.ExpectSuccess(t, c.Write(regCODR, 1)) // drive low
	v, err = c.Read(regPDSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v&1, uint32(0))
}

func TestPIOEdgeSetsISR(t *testing.T) {
	c := pio.New("pioa")
	test.ExpectSuccess(t, c.Write(regPER, 1))
	test.ExpectSuccess(t, c.Write(regOER, 1))
	test.ExpectSuccess(t, c.Write(regSODR, 1))

	isr, err := c.Read(regISR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, isr&1, uint32(1))

	isr, _ = c.Read(regISR)
	test.ExpectEquality(t, isr, uint32(0)) // clear on read
}

func TestPIOIllegalOffset(t *testing.T) {
	c := pio.New("pioa")
	_, err := c.Read(0xff)
	test.ExpectFailure(t, err)
}
