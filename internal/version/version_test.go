package version

import "testing"

func TestString(t *testing.T) {
	if got, want := String("convert"), "convert 0.1.0 (commit unknown, built unknown)"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}
