// SPDX-License-Identifier: GPL-2.0-or-later

package test

import (
	"reflect"
	"testing"
)

// ExpectEquality compares value against expected. Both must be the same
// type, except that a uint8/uint16/uint32/uint64 value may be compared
// against a plain int literal for convenience (register constants read
// naturally as untyped ints in test source).
func ExpectEquality(t *testing.T, value, expected interface{}) bool {
	t.Helper()

	switch v := value.(type) {
	case uint8:
		e, ok := toUint64(expected)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if uint64(v) != e {
			t.Errorf("equality failed: got 0x%02x, wanted 0x%02x", v, e)
			return false
		}
	case uint16:
		e, ok := toUint64(expected)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if uint64(v) != e {
			t.Errorf("equality failed: got 0x%04x, wanted 0x%04x", v, e)
			return false
		}
	case uint32:
		e, ok := toUint64(expected)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if uint64(v) != e {
			t.Errorf("equality failed: got 0x%08x, wanted 0x%08x", v, e)
			return false
		}
	case uint64:
		e, ok := toUint64(expected)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if v != e {
			t.Errorf("equality failed: got 0x%x, wanted 0x%x", v, e)
			return false
		}
	case int:
		e, ok := expected.(int)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if v != e {
			t.Errorf("equality failed: got %d, wanted %d", v, e)
			return false
		}
	case bool:
		e, ok := expected.(bool)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if v != e {
			t.Errorf("equality failed: got %v, wanted %v", v, e)
			return false
		}
	case string:
		e, ok := expected.(string)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if v != e {
			t.Errorf("equality failed: got %q, wanted %q", v, e)
			return false
		}
	case []byte:
		e, ok := expected.([]byte)
		if !ok {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", v, expected)
			return false
		}
		if string(v) != string(e) {
			t.Errorf("equality failed: got %v, wanted %v", v, e)
			return false
		}
	default:
		if reflect.TypeOf(value) != reflect.TypeOf(expected) {
			t.Fatalf("incompatible types for ExpectEquality (%T and %T)", value, expected)
			return false
		}
		if !reflect.DeepEqual(value, expected) {
			t.Errorf("equality failed: got %v, wanted %v", value, expected)
			return false
		}
	}

	return true
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case int:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}
