// SPDX-License-Identifier: GPL-2.0-or-later

package curated

import (
	"fmt"
	"strings"
)

// curated is an implementation of the go language error interface.
type curated struct {
	pattern string
	values  []interface{}
}

// Errorf creates a new curated error.
//
// Note that unlike the Errorf() function in the fmt package the first argument
// is named "pattern" not "format". This is because we use the pattern string
// in the Is() and Has() functions where 'pattern' seems to be more descriptive
// name.
func Errorf(pattern string, values ...interface{}) error {
	// note that we're not actually formatting the error here, despite the
	// function name. we instead only store the arguments. formatting takes
	// place in the Error() function
	return curated{
		pattern: pattern,
		values:  values,
	}
}

// Error returns the normalised error message. Normalisation being the removal
// of duplicate adjacent error messsage parts in the error message chains. It
// doesn't affect letter-case or white space.
//
// Implements the go language error interface.
func (er curated) Error() string {
	s := fmt.Errorf(er.pattern, er.values...).Error()

	// de-duplicate error message parts
	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}

	return strings.Join(p, ": ")
}

// IsAny checks if the error is a curated error.
func IsAny(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(curated); ok {
		return true
	}

	return false
}

// Is checks if error is a curated error with a specific pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(curated); ok {
		return er.pattern == pattern
	}

	return false
}

// Has checks if error is a curated error with a specific pattern somewhere in
// the chain.
func Has(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if !IsAny(err) {
		return false
	}

	if Is(err, pattern) {
		return true
	}

	for i := range err.(curated).values {
		if e, ok := err.(curated).values[i].(curated); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}

	return false
}

// AccessError is the error raised for a register access that
// violates a peripheral's MMIO contract: an unmapped offset, a write to a
// read-only register, a value outside the bits the peripheral claims to
// implement. SPEC_FULL.md §7 names the peripheral, the offset and (for
// writes) the value as the diagnostic every such abort must carry; every
// MMIO dispatcher in this module builds one of these instead of folding
// those three fields into an ad hoc Errorf pattern by hand, so the fields
// stay inspectable (by a test, or by a future diagnostic consumer) rather
// than locked inside a formatted string.
type AccessError struct {
	// Peripheral identifies the device and, where it has one, the
	// instance name — e.g. "usart: usart0" or "pdc" for a singleton.
	Peripheral string
	Offset     uint32
	Value      uint32
	Write      bool
	Reason     string
}

// Error implements the go language error interface. AccessError is not
// folded into the curated type above: Is/Has pattern-match against a
// format string, which is the wrong comparison for a structured register
// access — callers that need to recognise one use a type assertion or
// errors.As against AccessError directly.
func (e AccessError) Error() string {
	if e.Write {
		return fmt.Sprintf("%s: %s at offset 0x%03x [value=0x%08x]", e.Peripheral, e.Reason, e.Offset, e.Value)
	}
	return fmt.Sprintf("%s: %s at offset 0x%03x", e.Peripheral, e.Reason, e.Offset)
}

// ReadAccessf builds an AccessError for a register read that violates a
// peripheral's MMIO contract. peripheral/args name the device the way
// Errorf's pattern/values would, minus the offset — which is a structured
// field here, not part of the formatted text.
func ReadAccessf(offset uint32, peripheral string, args ...interface{}) error {
	return AccessError{
		Peripheral: fmt.Sprintf(peripheral, args...),
		Offset:     offset,
		Reason:     "illegal read access",
	}
}

// WriteAccessf builds an AccessError for a register write that violates a
// peripheral's MMIO contract, carrying the offset and the value that was
// being written as structured fields.
func WriteAccessf(offset, value uint32, peripheral string, args ...interface{}) error {
	return AccessError{
		Peripheral: fmt.Sprintf(peripheral, args...),
		Offset:     offset,
		Value:      value,
		Write:      true,
		Reason:     "illegal write access",
	}
}

// ReadReasonf and WriteReasonf are ReadAccessf/WriteAccessf with an
// explicit reason, for the cases that are not a plain "illegal access" —
// an unimplemented region logging a warning, a reserved region trap, a
// DMA transfer that ran outside its backing memory's bounds.
func ReadReasonf(offset uint32, reason, peripheral string, args ...interface{}) error {
	return AccessError{
		Peripheral: fmt.Sprintf(peripheral, args...),
		Offset:     offset,
		Reason:     reason,
	}
}

func WriteReasonf(offset, value uint32, reason, peripheral string, args ...interface{}) error {
	return AccessError{
		Peripheral: fmt.Sprintf(peripheral, args...),
		Offset:     offset,
		Value:      value,
		Write:      true,
		Reason:     reason,
	}
}
