// SPDX-License-Identifier: GPL-2.0-or-later

//go:build statsview
// +build statsview

package metrics

import (
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/us-irs/qemu-iobc/logger"
)

// statsviewAddr is the dashboard's own fixed address, kept separate from
// the board's primary debug/metrics surface (NewServer's addr): the
// go-echarts viewer runs its own server rather than folding into another.
const statsviewAddr = "localhost:12600"

// mountStatsview launches a live dashboard on its own server: a
// background goroutine serving the go-echarts viewer at /debug/statsview.
func mountStatsview() {
	viewer.SetConfiguration(viewer.WithAddr(statsviewAddr))
	mgr := statsview.New()
	go mgr.Start()
	logger.Logf(logger.Allow, "metrics", "stats dashboard available at %s/debug/statsview", statsviewAddr)
}
