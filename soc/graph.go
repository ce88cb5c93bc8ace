// SPDX-License-Identifier: GPL-2.0-or-later

package soc

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// DumpWiringGraph renders the board's peripheral graph — every
// constructed controller and the pointers between them (PIOB's PinOut
// into MCI, the AIC/SysCOR fan-in, the PDC's MemoryBus) — as a
// Graphviz dot file written to w. Intended for debugging board wiring
// by hand, not for anything the running emulator depends on.
func (s *SoC) DumpWiringGraph(w io.Writer) {
	memviz.Map(w, s)
}
