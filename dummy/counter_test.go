package dummy

import (
	"testing"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
)

func script(deltas ...int) []*int64 {
	out := make([]*int64, len(deltas))
	for i, d := range deltas {
		if d < 0 {
			continue // offline marker
		}
		v := int64(d)
		out[i] = &v
	}
	return out
}

func TestReadParameterAccumulates(t *testing.T) {
	c := &Counter{values: script(10, 20, 30)}
	want := []int64{10, 30, 60}
	for i, w := range want {
		v, err := c.ReadParameter(nil, owen.DCNT)
		if err != nil {
			t.Fatal(err)
		}
		if v != owen.Count(w) {
			t.Errorf("step %d: value = %v, want %d", i, v, w)
		}
	}
}

func TestReadParameterOffline(t *testing.T) {
	c := &Counter{values: script(5, -1, 7)}
	if v, _ := c.ReadParameter(nil, owen.DCNT); v != owen.Count(5) {
		t.Fatalf("first value = %v", v)
	}
	v, err := c.ReadParameter(nil, owen.DCNT)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("offline step value = %v, want nil", v)
	}
	// The total keeps growing from where it left off.
	if v, _ := c.ReadParameter(nil, owen.DCNT); v != owen.Count(12) {
		t.Errorf("post-offline value = %v, want 12", v)
	}
}

func TestReadParameterWraps(t *testing.T) {
	c := &Counter{values: script(1, 2)}
	for i := 0; i < 5; i++ {
		if _, err := c.ReadParameter(nil, owen.DCNT); err != nil {
			t.Fatal(err)
		}
	}
	// 1+2+1+2+1 from the five reads above, plus 2 from this sixth read.
	if v, _ := c.ReadParameter(nil, owen.DCNT); v != owen.Count(9) {
		t.Errorf("value after wrap = %v, want 9", v)
	}
}

func TestNewScriptShape(t *testing.T) {
	c := New(0, 8)
	if len(c.values) == 0 {
		t.Fatal("empty script")
	}
	offline := 0
	for _, v := range c.values {
		if v == nil {
			offline++
		}
	}
	if offline == 0 {
		t.Error("script has no offline stretch")
	}
}
