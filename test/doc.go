// SPDX-License-Identifier: GPL-2.0-or-later

// Package test collects small helpers shared by the _test.go files of every
// peripheral package, removing the boilerplate of comparing register
// values, IOX frame bytes and error conditions.
//
// ExpectEquality compares two values of the same (or compatible) type.
// ExpectSuccess and ExpectFailure test bool/error values for a particular
// outcome. CappedWriter is an io.Writer that stops buffering once a fixed
// size is reached, useful for bounding how much of a DBGU/IOX byte stream a
// test captures.
package test
