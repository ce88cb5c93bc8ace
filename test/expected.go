// SPDX-License-Identifier: GPL-2.0-or-later

package test

import "testing"

// ExpectFailure tests v for a failure condition appropriate to its type:
// bool -> false, error -> non-nil.
func ExpectFailure(t *testing.T, v interface{}) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if v {
			t.Errorf("expected failure (bool)")
			return false
		}
	case error:
		if v == nil {
			t.Errorf("expected failure (error)")
			return false
		}
	case nil:
		t.Errorf("expected failure (nil)")
		return false
	default:
		t.Fatalf("unsupported type (%T) for ExpectFailure", v)
		return false
	}

	return true
}

// ExpectSuccess tests v for a success condition appropriate to its type:
// bool -> true, error -> nil.
func ExpectSuccess(t *testing.T, v interface{}) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if !v {
			t.Errorf("expected success (bool)")
			return false
		}
	case error:
		if v != nil {
			t.Errorf("expected success, got error: %v", v)
			return false
		}
	case nil:
		return true
	default:
		t.Fatalf("unsupported type (%T) for ExpectSuccess", v)
		return false
	}

	return true
}
