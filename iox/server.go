// SPDX-License-Identifier: GPL-2.0-or-later

package iox

import (
	"io"
	"net"
	"sync"

	"github.com/us-irs/qemu-iobc/logger"
)

// Handler processes a single frame received from the client. It runs on
// the server's own receive goroutine, concurrently with whatever goroutine
// is driving MMIO dispatch against the same peripheral, so implementations
// that touch register state guard it with the same lock their Read/Write
// methods use (see e.g. twi.Controller.SetLock).
type Handler func(Frame)

// Server is one IOX endpoint: a listener accepting at most one client at
// a time, matching server_accept's "reject while busy" behaviour, plus
// the length-delimited frame codec client_receive implements by hand over
// non-blocking I/O. Go's blocking net.Conn plus a dedicated goroutine
// collapses that hand-rolled resumption state machine into a plain
// io.ReadFull loop without changing the wire behaviour.
type Server struct {
	name     string
	listener net.Listener

	mu      sync.Mutex
	client  net.Conn
	seq     uint8
	handler Handler

	closed chan struct{}
}

// New serves on listener (typically bound to a unix domain socket path, as
// in the board's per-peripheral IOX socket convention) and returns the
// running Server. The accept loop runs in its own goroutine.
func New(name string, listener net.Listener, handler Handler) *Server {
	s := &Server{
		name:     name,
		listener: listener,
		handler:  handler,
		closed:   make(chan struct{}),
	}
	go s.acceptLoop()
	return s
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				logger.Logf(logger.Allow, "iox", "%s: accept error: %v", s.name, err)
				return
			}
		}

		s.mu.Lock()
		if s.client != nil {
			s.mu.Unlock()
			logger.Logf(logger.Allow, "iox", "%s: rejecting client, already connected", s.name)
			conn.Close()
			continue
		}
		s.client = conn
		s.mu.Unlock()

		go s.receiveLoop(conn)
	}
}

func (s *Server) receiveLoop(conn net.Conn) {
	defer s.disconnect(conn)

	header := make([]byte, HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		seq, cat, id, length, err := unmarshalHeader(header)
		if err != nil {
			return
		}

		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
		}

		if s.handler != nil {
			s.handler(Frame{Seq: seq, Cat: cat, ID: id, Payload: payload})
		}
	}
}

func (s *Server) disconnect(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	if s.client == conn {
		s.client = nil
	}
	s.mu.Unlock()
}

// Close shuts down the listener and any connected client.
func (s *Server) Close() error {
	close(s.closed)
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client != nil {
		client.Close()
	}
	return s.listener.Close()
}

// Connected reports whether a client currently holds the connection —
// peripherals use this to decide between IOX-backed and loopback
// behaviour (e.g. SPI echo with no client attached).
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Name returns the identifier this server was constructed with, for
// diagnostics that enumerate a board's sockets by name.
func (s *Server) Name() string {
	return s.name
}

// nextSeq implements iox_next_seqid: increment then force the
// direction-out bit.
func (s *Server) nextSeq() uint8 {
	s.seq++
	return s.seq | directionOut
}

func (s *Server) send(frame Frame) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	_, err := client.Write(frame.Marshal())
	return err
}

// SendFrame transmits frame as-is (caller already set Seq).
func (s *Server) SendFrame(frame Frame) error { return s.send(frame) }

// SendData sends a single frame carrying up to MaxPayload bytes, with a
// fresh auto-incremented, direction-out sequence number.
func (s *Server) SendData(cat, id uint8, data []byte) error {
	return s.send(Frame{Seq: s.nextSeq(), Cat: cat, ID: id, Payload: data})
}

// SendMultiframe splits data longer than MaxPayload across consecutive
// frames that all share the same sequence number, matching
// iox_send_data_multiframe.
func (s *Server) SendMultiframe(cat, id uint8, data []byte) error {
	seq := s.nextSeq()
	for len(data) > MaxPayload {
		if err := s.send(Frame{Seq: seq, Cat: cat, ID: id, Payload: data[:MaxPayload]}); err != nil {
			return err
		}
		data = data[MaxPayload:]
	}
	return s.send(Frame{Seq: seq, Cat: cat, ID: id, Payload: data})
}

// SendCommand sends a zero-length frame, used for pure notifications.
func (s *Server) SendCommand(cat, id uint8) error {
	return s.send(Frame{Seq: s.nextSeq(), Cat: cat, ID: id})
}

// SendU32 sends a 4-byte little-endian payload.
func (s *Server) SendU32(cat, id uint8, value uint32) error {
	return s.send(Frame{Seq: s.nextSeq(), Cat: cat, ID: id, Payload: u32Payload(value)})
}

// Reply answers an incoming frame with the same seq/cat/id, matching
// iox_send_u32_resp's reuse of the request's identity.
func (s *Server) Reply(request Frame, value uint32) error {
	return s.send(Frame{Seq: request.Seq, Cat: request.Cat, ID: request.ID, Payload: u32Payload(value)})
}
