// SPDX-License-Identifier: GPL-2.0-or-later

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/us-irs/qemu-iobc/config"
	"github.com/us-irs/qemu-iobc/test"
)

func TestDefault(t *testing.T) {
	b := config.Default()
	test.ExpectEquality(t, b.MachineType, "isis-obc")
	test.ExpectEquality(t, string(b.Policy.Unimplemented), string(config.UnimplementedAbort))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	b := config.Default()
	b.BIOS = "obsw.bin"
	b.Sockets.TWI = "/tmp/qemu_at91_twi"
	b.Sockets.USART[0] = "/tmp/qemu_at91_usart0"
	b.SD[0] = config.SDSlot{Index: 0, Image: "sd0.img"}
	b.Debug.HTTPAddr = "127.0.0.1:12600"

	path := filepath.Join(t.TempDir(), "board.yaml")
	test.ExpectSuccess(t, config.Save(path, b))

	loaded, err := config.Load(path)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, loaded.BIOS, "obsw.bin")
	test.ExpectEquality(t, loaded.Sockets.TWI, "/tmp/qemu_at91_twi")
	test.ExpectEquality(t, loaded.Sockets.USART[0], "/tmp/qemu_at91_usart0")
	test.ExpectEquality(t, loaded.SD[0].Image, "sd0.img")
	test.ExpectEquality(t, loaded.Debug.HTTPAddr, "127.0.0.1:12600")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.ExpectFailure(t, err)
}
