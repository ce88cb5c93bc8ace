// SPDX-License-Identifier: GPL-2.0-or-later

package soc

import (
	"context"
	"time"
)

// dbguPollInterval is how often Run drains DBGU's buffered stdin byte.
// DBGU is the one peripheral that cannot simply push state from its own
// goroutine (see dbgu.Controller.Step's doc comment): RHR overrun
// behaviour depends on how promptly the buffered byte gets drained, so
// something external has to call Step on a regular cadence. Every other
// peripheral in the board is goroutine- or callback-driven and needs no
// equivalent here.
const dbguPollInterval = time.Millisecond

// Run owns the board's per-tick housekeeping for as long as ctx stays
// alive: draining DBGU's stdin buffer and, on cancellation, closing every
// IOX listener and detaching stdin for an orderly shutdown. The ARM core
// itself is out of scope (§1 treats it as an external collaborator this
// package never steps), so there is no instruction loop here — Run is
// the board's clock, not its CPU.
func (s *SoC) Run(ctx context.Context) error {
	ticker := time.NewTicker(dbguPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Close()
		case <-ticker.C:
			s.DBGU.Step()
		}
	}
}
