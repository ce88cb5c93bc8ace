// SPDX-License-Identifier: GPL-2.0-or-later

package mmio

import (
	"encoding/binary"
	"fmt"

	"github.com/us-irs/qemu-iobc/curated"
)

// Memory is a flat byte-addressable RAM/ROM/flash-backed Device, used for
// internal ROM, internal SRAM0 and the NOR-flash/SDRAM behind EBI_NCS0, and
// for any other plain memory window the board wires into the fabric.
type Memory struct {
	name     string
	bytes    []byte
	readOnly bool
}

// NewMemory allocates a zero-filled Memory of the given size.
func NewMemory(name string, size uint32, readOnly bool) *Memory {
	return &Memory{name: name, bytes: make([]byte, size), readOnly: readOnly}
}

// NewMemoryFromImage wraps an existing image (e.g. a loaded NOR-flash or
// bios file) as a Memory, padding with zeros up to size if the image is
// shorter.
func NewMemoryFromImage(name string, image []byte, size uint32, readOnly bool) *Memory {
	buf := make([]byte, size)
	copy(buf, image)
	return &Memory{name: name, bytes: buf, readOnly: readOnly}
}

// Bytes exposes the backing slice directly, for the BIOS-image-duplicated-
// into-SDRAM hardware-copy-on-boot behaviour named in spec §6.1.
func (m *Memory) Bytes() []byte {
	return m.bytes
}

func (m *Memory) Read(offset uint32) (uint32, error) {
	if int(offset)+4 > len(m.bytes) {
		return 0, curated.ReadReasonf(offset, "read out of bounds", "%s", m.name)
	}
	return binary.LittleEndian.Uint32(m.bytes[offset : offset+4]), nil
}

func (m *Memory) Write(offset uint32, value uint32) error {
	if m.readOnly {
		return curated.WriteReasonf(offset, value, "write to read-only memory", "%s", m.name)
	}
	if int(offset)+4 > len(m.bytes) {
		return curated.WriteReasonf(offset, value, "write out of bounds", "%s", m.name)
	}
	binary.LittleEndian.PutUint32(m.bytes[offset:offset+4], value)
	return nil
}

// ReadBytes implements mmio.ByteDevice for PDC DMA bursts.
func (m *Memory) ReadBytes(offset uint32, n int) ([]byte, error) {
	if int(offset)+n > len(m.bytes) {
		return nil, curated.ReadReasonf(offset, fmt.Sprintf("DMA read out of bounds, length %d", n), "%s", m.name)
	}
	out := make([]byte, n)
	copy(out, m.bytes[offset:int(offset)+n])
	return out, nil
}

// WriteBytes implements mmio.ByteDevice.
func (m *Memory) WriteBytes(offset uint32, data []byte) error {
	if m.readOnly {
		return curated.WriteReasonf(offset, 0, "DMA write to read-only memory", "%s", m.name)
	}
	if int(offset)+len(data) > len(m.bytes) {
		return curated.WriteReasonf(offset, 0, fmt.Sprintf("DMA write out of bounds, length %d", len(data)), "%s", m.name)
	}
	copy(m.bytes[int(offset):int(offset)+len(data)], data)
	return nil
}
