package buildinfo

import "testing"

func TestString(t *testing.T) {
	prevV, prevC, prevD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = prevV, prevC, prevD })

	Version, Commit, Date = "v1.0.0", "abc1234", ""
	if got := String(); got != "v1.0.0 (abc1234)" {
		t.Fatalf("String() = %q", got)
	}
	Date = "2026-01-10T12:00:00Z"
	if got := String(); got != "v1.0.0 (abc1234, built 2026-01-10T12:00:00Z)" {
		t.Fatalf("String() = %q", got)
	}
}
