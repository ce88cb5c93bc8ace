// SPDX-License-Identifier: GPL-2.0-or-later

package pit_test

import (
	"testing"
	"time"

	"github.com/us-irs/qemu-iobc/pit"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regMR   = 0x00
	regSR   = 0x04
	regPIVR = 0x08

	mrPITEN = 1 << 24
	srPITS  = 0x01
)

func TestPITFiresPeriodically(t *testing.T) {
	c := pit.New("pit")
	c.SetMasterClock(16000) // freq = 1000 Hz
	test.ExpectSuccess(t, c.Write(regMR, mrPITEN|3))

	time.Sleep(15 * time.Millisecond)

	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srPITS != 0, true)

	v, err := c.Read(regPIVR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v>>20 != 0, true)

	sr, err = c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srPITS != 0, false)
}

func TestPITIllegalOffset(t *testing.T) {
	c := pit.New("pit")
	_, err := c.Read(0xff)
	test.ExpectFailure(t, err)
}
