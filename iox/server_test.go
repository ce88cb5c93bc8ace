// SPDX-License-Identifier: GPL-2.0-or-later

package iox_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/test"
)

func newLoopbackServer(t *testing.T, handler iox.Handler) (*iox.Server, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	test.ExpectSuccess(t, err)

	srv := iox.New("test", ln, handler)
	t.Cleanup(func() { srv.Close() })

	conn, err := net.Dial("tcp", ln.Addr().String())
	test.ExpectSuccess(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

func TestServerReceivesFrame(t *testing.T) {
	var mu sync.Mutex
	var got iox.Frame
	done := make(chan struct{})

	_, conn := newLoopbackServer(t, func(f iox.Frame) {
		mu.Lock()
		got = f
		mu.Unlock()
		close(done)
	})

	frame := iox.Frame{Seq: 0x01, Cat: 5, ID: 9, Payload: []byte("hi")}
	_, err := conn.Write(frame.Marshal())
	test.ExpectSuccess(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	test.ExpectEquality(t, got.Cat, byte(5))
	test.ExpectEquality(t, got.ID, byte(9))
	test.ExpectEquality(t, string(got.Payload), "hi")
}

func TestServerSendData(t *testing.T) {
	srv, conn := newLoopbackServer(t, nil)

	test.ExpectSuccess(t, srv.SendData(1, 2, []byte{0xaa, 0xbb}))

	buf := make([]byte, iox.HeaderSize+2)
	_, err := conn.Read(buf)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, buf[1], byte(1))
	test.ExpectEquality(t, buf[2], byte(2))
	test.ExpectEquality(t, buf[3], byte(2))
	test.ExpectEquality(t, buf[0]&0x80 != 0, true) // direction-out bit set
}

func TestServerRejectsSecondClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	test.ExpectSuccess(t, err)
	srv := iox.New("test", ln, nil)
	defer srv.Close()

	conn1, err := net.Dial("tcp", ln.Addr().String())
	test.ExpectSuccess(t, err)
	defer conn1.Close()

	time.Sleep(50 * time.Millisecond)
	test.ExpectEquality(t, srv.Connected(), true)

	conn2, err := net.Dial("tcp", ln.Addr().String())
	test.ExpectSuccess(t, err)
	defer conn2.Close()

	buf := make([]byte, 1)
	conn2.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, err = conn2.Read(buf)
	test.ExpectFailure(t, err) // closed by the server: only one client allowed
}
