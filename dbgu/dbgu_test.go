// SPDX-License-Identifier: GPL-2.0-or-later

package dbgu_test

import (
	"bytes"
	"testing"

	"github.com/us-irs/qemu-iobc/dbgu"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regCR  = 0x00
	regSR  = 0x14
	regTHR = 0x1c

	crTXEN = 1 << 6

	srTXRDY = 1 << 1
)

func TestDBGUResetStatus(t *testing.T) {
	var out bytes.Buffer
	c := dbgu.New("dbgu", &out)

	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srTXRDY != 0, true)
}

func TestDBGUThrFlushesToWriter(t *testing.T) {
	var out bytes.Buffer
	c := dbgu.New("dbgu", &out)

	test.ExpectSuccess(t, c.Write(regCR, crTXEN))
	test.ExpectSuccess(t, c.Write(regTHR, 'A'))
	test.ExpectSuccess(t, c.Write(regTHR, 'B'))

	test.ExpectEquality(t, out.String(), "AB")
}

func TestDBGUIllegalOffset(t *testing.T) {
	c := dbgu.New("dbgu", &bytes.Buffer{})
	_, err := c.Read(0xff)
	test.ExpectFailure(t, err)
}
