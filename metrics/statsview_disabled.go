// SPDX-License-Identifier: GPL-2.0-or-later

//go:build !statsview
// +build !statsview

package metrics

// mountStatsview is a no-op unless built with the statsview tag.
func mountStatsview() {}
