// SPDX-License-Identifier: GPL-2.0-or-later

package rtt_test

import (
	"testing"
	"time"

	"github.com/us-irs/qemu-iobc/rtt"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regMR = 0x00
	regAR = 0x04
	regVR = 0x08
	regSR = 0x0c

	srRTTINC = 1 << 1

	mrRTTRST = 1 << 18
)

func TestRTTCountsUp(t *testing.T) {
	c := rtt.New("rtt")
	test.ExpectSuccess(t, c.Write(regMR, 1|mrRTTRST)) // RTPRES=1, RTTRST => freq = 32768 Hz

	time.Sleep(5 * time.Millisecond)

	v, err := c.Read(regVR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v > 0, true)

	sr, err := c.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srRTTINC != 0, true)

	sr, _ = c.Read(regSR)
	test.ExpectEquality(t, sr, 0)
}

func TestRTTIllegalOffset(t *testing.T) {
	c := rtt.New("rtt")
	_, err := c.Read(0xff)
	test.ExpectFailure(t, err)
}
