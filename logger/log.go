// SPDX-License-Identifier: GPL-2.0-or-later

package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Entry represents a single line in the log. Consecutive identical
// (tag, detail) pairs are folded into one Entry with a repeat count, so a
// chatty peripheral (an USART being polled every instruction, say) doesn't
// flood the log with duplicate lines.
type Entry struct {
	Timestamp time.Time
	tag       string
	detail    string
	repeated  int
}

func (e *Entry) String() string {
	s := strings.Builder{}
	fmt.Fprintf(&s, "%s: %s", e.tag, e.detail)
	if e.repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.repeated+1)
	}
	s.WriteByte('\n')
	return s.String()
}

// logger is not exported; package-level functions operate on a single
// central instance (see central.go). The tests exercise that central
// instance and call Clear so assertions don't leak between test cases.
type logger struct {
	mu sync.Mutex

	maxEntries int
	entries    []Entry

	// index into entries of the first entry not yet consumed by writeRecent
	recentCursor int

	echoOutput io.Writer
}

func newLogger(maxEntries int) *logger {
	return &logger{maxEntries: maxEntries}
}

func (l *logger) log(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tag = strings.ReplaceAll(tag, "\n", " ")
	detail = strings.ReplaceAll(detail, "\n", " ")

	if n := len(l.entries); n > 0 && l.entries[n-1].tag == tag && l.entries[n-1].detail == detail {
		l.entries[n-1].repeated++
		l.entries[n-1].Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), tag: tag, detail: detail})
	}

	if over := len(l.entries) - l.maxEntries; over > 0 {
		l.entries = l.entries[over:]
		l.recentCursor -= over
		if l.recentCursor < 0 {
			l.recentCursor = 0
		}
	}

	if l.echoOutput != nil {
		io.WriteString(l.echoOutput, l.entries[len(l.entries)-1].String())
	}
}

func (l *logger) logf(tag, detail string, args ...interface{}) {
	l.log(tag, fmt.Sprintf(detail, args...))
}

func (l *logger) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	l.recentCursor = 0
}

func (l *logger) write(output io.Writer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return false
	}
	for _, e := range l.entries {
		io.WriteString(output, e.String())
	}
	return true
}

func (l *logger) writeRecent(output io.Writer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recentCursor >= len(l.entries) {
		return false
	}
	for _, e := range l.entries[l.recentCursor:] {
		io.WriteString(output, e.String())
	}
	l.recentCursor = len(l.entries)
	return true
}

func (l *logger) tail(output io.Writer, number int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if number > len(l.entries) {
		number = len(l.entries)
	}
	for _, e := range l.entries[len(l.entries)-number:] {
		io.WriteString(output, e.String())
	}
}

func (l *logger) setEcho(output io.Writer, writeRecent bool) {
	l.mu.Lock()
	l.echoOutput = output
	l.mu.Unlock()

	if writeRecent && output != nil {
		l.writeRecent(output)
	}
}

// borrowLog gives f exclusive access to the entry list for the duration of
// the call. f must not retain the slice past return.
func (l *logger) borrowLog(f func([]Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(l.entries)
}
