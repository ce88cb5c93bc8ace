// SPDX-License-Identifier: GPL-2.0-or-later

// Package iox implements the I/O transfer protocol used by every
// simulated peripheral to hand bytes to and from an external test
// harness over a socket: a tiny framed header (seq/cat/id/len) followed
// by up to 255 bytes of payload, grounded on ioxfer-server.c/.h.
package iox

import (
	"encoding/binary"

	"github.com/us-irs/qemu-iobc/curated"
)

// HeaderSize is sizeof(struct iox_data_frame) minus the flexible payload.
const HeaderSize = 4

// MaxPayload is the largest payload a single frame can carry; longer
// transfers are split across multiple frames sharing one sequence number
// by SendMultiframe.
const MaxPayload = 0xff

// directionOut is IOX_SEQ_DIRECTION_SET_OUT's bit: set on every
// server-originated frame, clear on every frame coming from a client.
const directionOut = 1 << 7

// Frame is a single iox_data_frame.
type Frame struct {
	Seq     uint8
	Cat     uint8
	ID      uint8
	Payload []byte
}

// Direction reports whether this frame was marked as server-to-client.
func (f Frame) Direction() bool { return f.Seq&directionOut != 0 }

// Marshal encodes the frame as header+payload, matching the C struct's
// packed layout exactly.
func (f Frame) Marshal() []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Seq
	buf[1] = f.Cat
	buf[2] = f.ID
	buf[3] = uint8(len(f.Payload))
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// unmarshalHeader reads just the 4-byte header to learn the payload
// length the caller still needs to read.
func unmarshalHeader(buf []byte) (seq, cat, id, length uint8, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, 0, 0, curated.Errorf("iox: short header: %d bytes", len(buf))
	}
	return buf[0], buf[1], buf[2], buf[3], nil
}

// u32Payload encodes a little-endian uint32, matching the original's
// direct `*(uint32_t*)frame->payload` store on a little-endian ARM target.
func u32Payload(value uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	return buf
}
