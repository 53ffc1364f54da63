package timex

import (
	"testing"
	"time"
)

func TestVirtualAccumulates(t *testing.T) {
	var v Virtual
	v.Sleep(10 * time.Microsecond)
	v.Sleep(2 * time.Millisecond)
	v.Sleep(-1)
	if v.Elapsed != 2010*time.Microsecond {
		t.Fatalf("Elapsed=%v", v.Elapsed)
	}
	if v.Calls != 3 {
		t.Fatalf("Calls=%d", v.Calls)
	}
}

func TestSpinWaitsAtLeast(t *testing.T) {
	start := time.Now()
	Spin.Sleep(200 * time.Microsecond)
	if el := time.Since(start); el < 200*time.Microsecond {
		t.Fatalf("Spin returned after %v", el)
	}
}
