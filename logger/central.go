// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger implements a single central log shared by every peripheral
// and by the SoC aggregate itself. Peripherals log register accesses,
// IOX framing faults and AIC dispatch decisions through it rather than
// through fmt.Printf, so that a host tool (the debug console, the metrics
// HTTP server's /debug/soc endpoint) can borrow or tail the log without
// peripherals knowing about any of that.
package logger

import "io"

// Permission implementations indicate whether the caller is currently
// allowed to create new log entries. Peripherals that can be extremely
// chatty (a PIO block recomputing PDSR on every MMIO access) are given a
// Permission gated on a debug flag rather than always logging.
type Permission interface {
	AllowLogging() bool
}

type allow struct{}

func (allow) AllowLogging() bool { return true }

// Allow is a Permission that is always granted.
var Allow Permission = allow{}

// central is the single log shared across the process. There is
// deliberately no way to construct more than one from outside the package.
var central = newLogger(maxCentral)

const maxCentral = 4096

// Log adds an entry to the central log.
func Log(perm Permission, tag, detail string) {
	if perm == Allow || perm.AllowLogging() {
		central.log(tag, detail)
	}
}

// Logf adds a formatted entry to the central log.
func Logf(perm Permission, tag, detail string, args ...interface{}) {
	if perm == Allow || perm.AllowLogging() {
		central.logf(tag, detail, args...)
	}
}

// Clear removes every entry from the central log.
func Clear() {
	central.clear()
}

// Write writes every entry in the central log to output.
func Write(output io.Writer) {
	central.write(output)
}

// WriteRecent writes only the entries added since the last call to
// WriteRecent (or since startup, for the first call).
func WriteRecent(output io.Writer) {
	central.writeRecent(output)
}

// Tail writes the last number entries to output.
func Tail(output io.Writer, number int) {
	central.tail(output, number)
}

// SetEcho causes every future log entry to also be written to output as it
// is logged. If writeRecent is true, entries logged since the last
// WriteRecent call are flushed to output immediately.
func SetEcho(output io.Writer, writeRecent bool) {
	central.setEcho(output, writeRecent)
}

// BorrowLog gives f exclusive, synchronous access to the current entry
// list. Used by the debug console to render a live log view.
func BorrowLog(f func([]Entry)) {
	central.borrowLog(f)
}
