package geom

import (
	"encoding/json"
	"testing"
)

func TestRotationTablesAreInverse(t *testing.T) {
	for _, d := range Directions {
		if got := CounterClockwise(Clockwise(d)); got != d {
			t.Errorf("ccw(cw(%s)) = %s, want %s", d, got, d)
		}
		if got := Clockwise(CounterClockwise(d)); got != d {
			t.Errorf("cw(ccw(%s)) = %s, want %s", d, got, d)
		}
	}
	if err := DefaultRotation.Validate(); err != nil {
		t.Fatalf("DefaultRotation.Validate() = %v", err)
	}
}

func TestClockwiseCycle(t *testing.T) {
	d := Up
	seen := map[Direction]bool{}
	for i := 0; i < 4; i++ {
		seen[d] = true
		d = Clockwise(d)
	}
	if d != Up {
		t.Errorf("four right turns from up ended at %s", d)
	}
	if len(seen) != 4 {
		t.Errorf("cycle visited %d headings, want 4", len(seen))
	}
}

func TestRotationValidateRejectsBrokenTables(t *testing.T) {
	broken := Rotation{
		CW:  map[Direction]Direction{Up: Right, Right: Down, Down: Left, Left: Up},
		CCW: map[Direction]Direction{Up: Right, Left: Down, Down: Right, Right: Up},
	}
	if err := broken.Validate(); err == nil {
		t.Fatal("expected error for non-inverse tables")
	}
	if err := (Rotation{}).Validate(); err == nil {
		t.Fatal("expected error for empty tables")
	}
}

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		v    Vec
		want Direction
		ok   bool
	}{
		{V(0, 1), Up, true},
		{V(0, -1), Down, true},
		{V(-1, 0), Left, true},
		{V(1, 0), Right, true},
		{V(1, 1), Up, false},
		{V(0, 3), Up, false},
		{V(0, 0), Up, false},
	}
	for _, tt := range tests {
		got, ok := DirectionOf(tt.v)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("DirectionOf(%v) = %s, %v; want %s, %v", tt.v, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDirectionTextRoundTrip(t *testing.T) {
	type wrapper struct {
		Facing Direction `json:"facing"`
	}
	b, err := json.Marshal(wrapper{Facing: Left})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"facing":"left"}` {
		t.Errorf("marshal = %s", b)
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"facing":"DOWN"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.Facing != Down {
		t.Errorf("unmarshal = %s, want down", w.Facing)
	}
	if err := json.Unmarshal([]byte(`{"facing":"north"}`), &w); err == nil {
		t.Error("expected error for unknown heading")
	}
}

func TestReverse(t *testing.T) {
	pairs := map[Direction]Direction{Up: Down, Down: Up, Left: Right, Right: Left}
	for d, want := range pairs {
		if got := d.Reverse(); got != want {
			t.Errorf("%s.Reverse() = %s, want %s", d, got, want)
		}
		if d.Reverse().Vec() != d.Vec().Neg() {
			t.Errorf("%s reverse vector mismatch", d)
		}
	}
}

func TestRectContainsAndCells(t *testing.T) {
	r := Rect{Min: V(2, 3), W: 4, H: 6}
	n := 0
	r.Cells(func(p Vec) {
		n++
		if !r.Contains(p) {
			t.Errorf("cell %v reported outside rect", p)
		}
	})
	if n != 24 {
		t.Errorf("cells = %d, want 24", n)
	}
	if r.Contains(V(6, 3)) || r.Contains(V(2, 9)) {
		t.Error("rect must be half-open")
	}
}
