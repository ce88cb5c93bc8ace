// SPDX-License-Identifier: GPL-2.0-or-later

// Package config describes the board-level configuration accepted by the
// SoC: which images back which memory windows, where each peripheral's IOX
// socket lives on the filesystem, and the handful of policy flags that
// choose between "abort" and "warn" for accesses the datasheet doesn't
// fully define. It is deliberately YAML-backed (gopkg.in/yaml.v3) rather
// than flag-backed: command-line parsing belongs to cmd/qemu-iobc, not to
// the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnimplementedPolicy chooses what an access to a declared-but-unimplemented
// MMIO region does.
type UnimplementedPolicy string

const (
	// UnimplementedWarn logs the access and, for reads, returns zero.
	UnimplementedWarn UnimplementedPolicy = "warn"
	// UnimplementedAbort aborts the emulator with a diagnostic.
	UnimplementedAbort UnimplementedPolicy = "abort"
)

// SDSlot describes one of the two MCI SD card slots. Only slot A is wired
// on the iOBC; slot B is accepted for configuration completeness but the
// mci package never attaches anything to it.
type SDSlot struct {
	Index int    `yaml:"index"`
	Image string `yaml:"image,omitempty"`
}

// IOXSockets carries the filesystem path for every peripheral that owns an
// IOX server. A blank path leaves that peripheral's socket unopened,
// useful for test builds that want loopback/echo behaviour only.
type IOXSockets struct {
	USART  [6]string `yaml:"usart"`
	SPI    [2]string `yaml:"spi"`
	TWI    string    `yaml:"twi"`
	PIOA   string    `yaml:"pioa"`
	PIOB   string    `yaml:"piob"`
	PIOC   string    `yaml:"pioc"`
	SDRAMC string    `yaml:"sdramc"`
}

// Policy bundles the unsupported-feature error-handling choice:
// unsupported-feature accesses default to abort, but cosmetic omissions
// may be downgraded to a warning per board.
type Policy struct {
	Unimplemented UnimplementedPolicy `yaml:"unimplemented"`
}

// Debug configures the optional HTTP debug/metrics surface.
type Debug struct {
	HTTPAddr  string `yaml:"http_addr,omitempty"`
	Statsview bool   `yaml:"statsview,omitempty"`
}

// Board is the parsed configuration struct the core accepts. It is the
// boundary named in spec §6.1: cmd/qemu-iobc builds one of these from the
// command line and passes it to soc.New; nothing in the core package tree
// touches os.Args.
type Board struct {
	MachineType string `yaml:"machine_type"`

	// BIOS is a NOR-flash image mapped at EBI_NCS0 and duplicated into
	// SDRAM at reset, mirroring the hardware copy-on-boot behaviour.
	BIOS string `yaml:"bios,omitempty"`

	SD [2]SDSlot `yaml:"sd"`

	DBGUSerial string `yaml:"dbgu_serial,omitempty"`

	Sockets IOXSockets `yaml:"sockets"`
	Policy  Policy     `yaml:"policy"`
	Debug   Debug      `yaml:"debug"`
}

// Default returns a Board with the policy defaults named in spec §7:
// abort on anything that would produce wrong results.
func Default() Board {
	return Board{
		MachineType: "isis-obc",
		Policy: Policy{
			Unimplemented: UnimplementedAbort,
		},
	}
}

// Load reads and parses a Board configuration from a YAML file, starting
// from Default() so an omitted field keeps its default rather than zeroing.
func Load(path string) (Board, error) {
	b := Default()

	f, err := os.Open(path)
	if err != nil {
		return b, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&b); err != nil {
		return b, fmt.Errorf("config: %w", err)
	}

	return b, nil
}

// Save writes the Board configuration to a YAML file.
func Save(path string, b Board) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}
