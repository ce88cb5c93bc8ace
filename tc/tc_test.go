// SPDX-License-Identifier: GPL-2.0-or-later

package tc_test

import (
	"testing"
	"time"

	"github.com/us-irs/qemu-iobc/tc"
	"github.com/us-irs/qemu-iobc/test"
)

const (
	regCCR = 0x00
	regCMR = 0x04
	regCV  = 0x10
	regRC  = 0x1c
	regSR  = 0x20

	ccrCLKEN = 1 << 0
	ccrSWTRG = 1 << 2

	tcclksTC1 = 0
	srCLKSTA  = 1 << 16
	srCPCS    = 1 << 4
)

func TestTCCountsUpAndHitsRC(t *testing.T) {
	b := tc.New("tc0")
	b.SetMasterClock(2000) // TCCLKS_TC1 => 1000 Hz => 1ms period

	test.ExpectSuccess(t, b.Write(regCMR, tcclksTC1))
	test.ExpectSuccess(t, b.Write(regRC, 3))
	test.ExpectSuccess(t, b.Write(regCCR, ccrCLKEN|ccrSWTRG))

	time.Sleep(15 * time.Millisecond)

	sr, err := b.Read(regSR)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sr&srCLKSTA != 0, true)
	test.ExpectEquality(t, sr&srCPCS != 0, true)
}

func TestTCIllegalOffset(t *testing.T) {
	b := tc.New("tc0")
	_, err := b.Read(0xfff)
	test.ExpectFailure(t, err)
}
