// SPDX-License-Identifier: GPL-2.0-or-later

package iox_test

import (
	"testing"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/test"
)

func TestFrameMarshal(t *testing.T) {
	f := iox.Frame{Seq: 0x81, Cat: 2, ID: 3, Payload: []byte{0xde, 0xad}}
	buf := f.Marshal()
	test.ExpectEquality(t, len(buf), 6)
	test.ExpectEquality(t, buf[0], byte(0x81))
	test.ExpectEquality(t, buf[3], byte(2))
	test.ExpectEquality(t, buf[4], byte(0xde))
}

func TestFrameDirection(t *testing.T) {
	test.ExpectEquality(t, iox.Frame{Seq: 0x01}.Direction(), false)
	test.ExpectEquality(t, iox.Frame{Seq: 0x81}.Direction(), true)
}
