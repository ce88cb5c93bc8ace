// SPDX-License-Identifier: GPL-2.0-or-later

package curated_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/test"
)

func TestErrorf(t *testing.T) {
	e := curated.Errorf("usart0: illegal write to RHR at offset 0x%02x", 0x18)
	test.ExpectEquality(t, e.Error(), "usart0: illegal write to RHR at offset 0x18")
}

func TestIsAny(t *testing.T) {
	e := curated.Errorf("aic: irq stack overflow")
	test.ExpectEquality(t, curated.IsAny(e), true)
	test.ExpectEquality(t, curated.IsAny(fmt.Errorf("plain error")), false)
	test.ExpectEquality(t, curated.IsAny(nil), false)
}

func TestIs(t *testing.T) {
	const pattern = "mci: RSPR read past response length"
	e := curated.Errorf(pattern)
	test.ExpectEquality(t, curated.Is(e, pattern), true)
	test.ExpectEquality(t, curated.Is(e, "some other pattern"), false)
}

func TestHas(t *testing.T) {
	const inner = "pdc: half-duplex enable conflict"
	e := curated.Errorf(inner)
	wrapped := curated.Errorf("twi0: %v", e)

	test.ExpectEquality(t, curated.Has(wrapped, inner), true)
	test.ExpectEquality(t, curated.Is(wrapped, inner), false)
}

func TestDeduplication(t *testing.T) {
	inner := curated.Errorf("not yet implemented: TWI slave mode")
	mid := curated.Errorf("twi0: %v", inner)
	outer := curated.Errorf("twi0: %v", mid)
	test.ExpectEquality(t, outer.Error(), "twi0: not yet implemented: TWI slave mode")
}

func TestReadAccessf(t *testing.T) {
	err := curated.ReadAccessf(0x18, "usart: %s", "usart0")
	test.ExpectEquality(t, err.Error(), "usart: usart0: illegal read access at offset 0x018")

	var access curated.AccessError
	ok := errors.As(err, &access)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, access.Peripheral, "usart: usart0")
	test.ExpectEquality(t, access.Offset, uint32(0x18))
	test.ExpectEquality(t, access.Write, false)
}

func TestWriteAccessf(t *testing.T) {
	err := curated.WriteAccessf(0x18, 0xff, "usart: %s", "usart0")
	test.ExpectEquality(t, err.Error(), "usart: usart0: illegal write access at offset 0x018 [value=0x000000ff]")

	var access curated.AccessError
	ok := errors.As(err, &access)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, access.Value, uint32(0xff))
	test.ExpectEquality(t, access.Write, true)
}
