// SPDX-License-Identifier: GPL-2.0-or-later

package logger_test

import (
	"strings"
	"testing"

	"github.com/us-irs/qemu-iobc/logger"
	"github.com/us-irs/qemu-iobc/test"
)

func TestCentralLoggerTail(t *testing.T) {
	defer logger.Clear()

	w := &strings.Builder{}
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "")

	logger.Log(logger.Allow, "usart0", "RXRDY set")
	w.Reset()
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "usart0: RXRDY set\n")

	logger.Log(logger.Allow, "usart0", "TXRDY set")
	w.Reset()
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "usart0: RXRDY set\nusart0: TXRDY set\n")

	w.Reset()
	logger.Tail(w, 1)
	test.ExpectEquality(t, w.String(), "usart0: TXRDY set\n")

	w.Reset()
	logger.Tail(w, 100)
	test.ExpectEquality(t, w.String(), "usart0: RXRDY set\nusart0: TXRDY set\n")
}

func TestCentralLoggerRepeat(t *testing.T) {
	defer logger.Clear()

	w := &strings.Builder{}
	logger.Log(logger.Allow, "aic", "spurious IVR read")
	logger.Log(logger.Allow, "aic", "spurious IVR read")
	logger.Log(logger.Allow, "aic", "spurious IVR read")
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "aic: spurious IVR read (repeat x3)\n")
}

type prohibit struct{ allowed bool }

func (p prohibit) AllowLogging() bool { return p.allowed }

func TestPermission(t *testing.T) {
	defer logger.Clear()

	w := &strings.Builder{}
	logger.Log(prohibit{allowed: false}, "pio", "pin changed")
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "")

	logger.Log(prohibit{allowed: true}, "pio", "pin changed")
	w.Reset()
	logger.Write(w)
	test.ExpectEquality(t, w.String(), "pio: pin changed\n")
}

func TestWriteRecent(t *testing.T) {
	defer logger.Clear()

	w := &strings.Builder{}
	logger.Log(logger.Allow, "twi", "debounce fired")
	logger.WriteRecent(w)
	test.ExpectEquality(t, w.String(), "twi: debounce fired\n")

	w.Reset()
	logger.WriteRecent(w)
	test.ExpectEquality(t, w.String(), "")

	logger.Log(logger.Allow, "twi", "START sent")
	w.Reset()
	logger.WriteRecent(w)
	test.ExpectEquality(t, w.String(), "twi: START sent\n")
}
