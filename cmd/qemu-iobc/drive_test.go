// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"testing"

	"github.com/us-irs/qemu-iobc/test"
)

func TestParseDrive(t *testing.T) {
	d, err := parseDrive("if=sd,index=1,format=raw,file=sd1.img")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, d.index, 1)
	test.ExpectEquality(t, d.file, "sd1.img")
}

func TestParseDriveOrderIndependent(t *testing.T) {
	d, err := parseDrive("file=sd0.img,format=raw,index=0,if=sd")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, d.index, 0)
	test.ExpectEquality(t, d.file, "sd0.img")
}

func TestParseDriveRejectsNonSDInterface(t *testing.T) {
	_, err := parseDrive("if=ide,index=0,format=raw,file=sd0.img")
	test.ExpectFailure(t, err)
}

func TestParseDriveRejectsBadIndex(t *testing.T) {
	_, err := parseDrive("if=sd,index=2,format=raw,file=sd0.img")
	test.ExpectFailure(t, err)
}

func TestParseDriveRejectsMissingFile(t *testing.T) {
	_, err := parseDrive("if=sd,index=0,format=raw")
	test.ExpectFailure(t, err)
}
