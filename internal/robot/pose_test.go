package robot

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/banshee-data/shelfbot/internal/geom"
)

func TestNewPoseDirection(t *testing.T) {
	for _, d := range geom.Directions {
		p := NewPose(geom.V(20, 20), d)
		if got := p.Direction(); got != d {
			t.Errorf("NewPose(%s).Direction() = %s", d, got)
		}
		if p.Head().Sub(p.Center()) != d.Vec().Scale(HalfLength) {
			t.Errorf("head offset for %s = %s", d, p.Head().Sub(p.Center()))
		}
	}
}

func TestPoseFromHeadRejectsNonCanonical(t *testing.T) {
	tests := []struct {
		name string
		head geom.Vec
	}{
		{"same cell", geom.V(5, 5)},
		{"diagonal", geom.V(8, 8)},
		{"too long", geom.V(5, 11)},
		{"too short", geom.V(5, 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PoseFromHead(geom.V(5, 5), tt.head)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrGeometryInvariant) {
				t.Errorf("error %v does not match ErrGeometryInvariant", err)
			}
			var gerr *GeometryInvariantError
			if !errors.As(err, &gerr) || gerr.Head != tt.head {
				t.Errorf("errors.As did not recover the head: %v", err)
			}
		})
	}

	p, err := PoseFromHead(geom.V(5, 5), geom.V(2, 5))
	if err != nil {
		t.Fatalf("valid pose rejected: %v", err)
	}
	if p.Direction() != geom.Left {
		t.Errorf("Direction() = %s, want left", p.Direction())
	}
}

func TestZeroPosePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic from zero Pose")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrGeometryInvariant) {
			t.Errorf("panic value %v is not a geometry invariant error", r)
		}
	}()
	var p Pose
	p.Direction()
}

func TestStepForwardBackwardRestores(t *testing.T) {
	for _, d := range geom.Directions {
		for _, n := range []int{0, 1, 4, 13, 38} {
			p := NewPose(geom.V(40, 40), d)
			start := p
			p.StepForward(n)
			if n > 0 && p.Center() == start.Center() {
				t.Errorf("StepForward(%d) facing %s did not move", n, d)
			}
			if p.Direction() != d {
				t.Errorf("StepForward changed heading from %s to %s", d, p.Direction())
			}
			p.StepBackward(n)
			if p.Center() != start.Center() || p.Head() != start.Head() {
				t.Errorf("facing %s, n=%d: got %s, want %s", d, n, p, start)
			}
		}
	}
}

func TestFourRightTurnsRestore(t *testing.T) {
	for _, d := range geom.Directions {
		p := NewPose(geom.V(30, 30), d)
		start := p.Head()
		seen := map[geom.Direction]bool{}
		for i := 0; i < 4; i++ {
			p.TurnRight90()
			seen[p.Direction()] = true
			if p.Center() != geom.V(30, 30) {
				t.Fatalf("turn moved the center to %s", p.Center())
			}
		}
		if p.Head() != start {
			t.Errorf("four right turns from %s: head %s, want %s", d, p.Head(), start)
		}
		if len(seen) != 4 {
			t.Errorf("four right turns from %s visited %d headings", d, len(seen))
		}
	}
}

func TestTurnLeftUndoesTurnRight(t *testing.T) {
	p := NewPose(geom.V(30, 30), geom.Down)
	p.TurnRight90()
	if p.Direction() != geom.Left {
		t.Fatalf("right of down = %s, want left", p.Direction())
	}
	p.TurnLeft90()
	if p.Direction() != geom.Down {
		t.Errorf("left after right = %s, want down", p.Direction())
	}
}

func TestWithRotationTable(t *testing.T) {
	// A mirrored table turns "right" the other way.
	mirror := geom.Rotation{CW: geom.DefaultRotation.CCW, CCW: geom.DefaultRotation.CW}
	p := NewPose(geom.V(30, 30), geom.Up).WithRotation(mirror)
	p.TurnRight90()
	if p.Direction() != geom.Left {
		t.Errorf("mirrored right turn = %s, want left", p.Direction())
	}
}

func TestDerivedGeometry(t *testing.T) {
	tests := []struct {
		name       string
		center     geom.Vec
		dir        geom.Direction
		corners    [4]geom.Vec
		bottomLeft geom.Vec
		footprint  geom.Rect
		ultrasonic [2]geom.Vec
		color      geom.Vec
		storage    geom.Vec
	}{
		{
			name: "up", center: geom.V(12, 7), dir: geom.Up,
			corners:    [4]geom.Vec{geom.V(14, 10), geom.V(14, 4), geom.V(10, 4), geom.V(10, 10)},
			bottomLeft: geom.V(10, 4),
			footprint:  geom.Rect{Min: geom.V(10, 4), W: 4, H: 6},
			ultrasonic: [2]geom.Vec{geom.V(13, 12), geom.V(11, 12)},
			color:      geom.V(10, 10),
			storage:    geom.V(10, 6),
		},
		{
			name: "down", center: geom.V(20, 30), dir: geom.Down,
			corners:    [4]geom.Vec{geom.V(18, 27), geom.V(18, 33), geom.V(22, 33), geom.V(22, 27)},
			bottomLeft: geom.V(18, 27),
			footprint:  geom.Rect{Min: geom.V(18, 27), W: 4, H: 6},
			ultrasonic: [2]geom.Vec{geom.V(19, 25), geom.V(21, 25)},
			color:      geom.V(21, 26),
			storage:    geom.V(18, 27),
		},
		{
			name: "right", center: geom.V(30, 30), dir: geom.Right,
			corners:    [4]geom.Vec{geom.V(33, 28), geom.V(27, 28), geom.V(27, 32), geom.V(33, 32)},
			bottomLeft: geom.V(27, 28),
			footprint:  geom.Rect{Min: geom.V(27, 28), W: 6, H: 4},
			ultrasonic: [2]geom.Vec{geom.V(35, 29), geom.V(35, 31)},
			color:      geom.V(33, 31),
			storage:    geom.V(29, 28),
		},
		{
			name: "left", center: geom.V(30, 30), dir: geom.Left,
			corners:    [4]geom.Vec{geom.V(27, 32), geom.V(33, 32), geom.V(33, 28), geom.V(27, 28)},
			bottomLeft: geom.V(27, 28),
			footprint:  geom.Rect{Min: geom.V(27, 28), W: 6, H: 4},
			ultrasonic: [2]geom.Vec{geom.V(25, 31), geom.V(25, 29)},
			color:      geom.V(26, 28),
			storage:    geom.V(27, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPose(tt.center, tt.dir)
			if got := p.Corners(); got != tt.corners {
				t.Errorf("Corners() = %v, want %v", got, tt.corners)
			}
			if got := p.BottomLeft(); got != tt.bottomLeft {
				t.Errorf("BottomLeft() = %s, want %s", got, tt.bottomLeft)
			}
			if got := p.Footprint(); got != tt.footprint {
				t.Errorf("Footprint() = %+v, want %+v", got, tt.footprint)
			}
			if got := p.UltrasonicField(); got != tt.ultrasonic {
				t.Errorf("UltrasonicField() = %v, want %v", got, tt.ultrasonic)
			}
			if got := p.ColorProbe(); got != tt.color {
				t.Errorf("ColorProbe() = %s, want %s", got, tt.color)
			}
			slot := p.StorageSlot()
			if slot.Min != tt.storage || slot.W != StorageDepth || slot.H != StorageDepth {
				t.Errorf("StorageSlot() = %+v, want 4x4 at %s", slot, tt.storage)
			}
		})
	}
}

func TestBoundingRectangleExtendsHeadSide(t *testing.T) {
	p := NewPose(geom.V(12, 7), geom.Up)
	want := [4]geom.Vec{geom.V(14, 14), geom.V(14, 4), geom.V(10, 4), geom.V(10, 14)}
	if got := p.BoundingRectangle(); got != want {
		t.Errorf("BoundingRectangle() = %v, want %v", got, want)
	}
}

func TestGeometryIsRecomputed(t *testing.T) {
	p := NewPose(geom.V(12, 7), geom.Up)
	before := p.UltrasonicField()
	p.StepForward(1)
	after := p.UltrasonicField()
	if after[0] != before[0].Add(geom.V(0, 1)) {
		t.Errorf("probe did not follow the robot: %s -> %s", before[0], after[0])
	}
}

func TestQuadrant(t *testing.T) {
	bounds := []geom.Bounds{
		{MinX: 6, MaxX: 53, MinY: 5, MaxY: 53},
		{MinX: 55, MaxX: 102, MinY: 5, MaxY: 53},
		{MinX: 6, MaxX: 53, MinY: 55, MaxY: 103},
		{MinX: 55, MaxX: 102, MinY: 55, MaxY: 103},
	}
	tests := []struct {
		center geom.Vec
		want   int
	}{
		{geom.V(12, 7), 0},
		{geom.V(59, 7), 1},
		{geom.V(49, 101), 2},
		{geom.V(97, 101), 3},
		{geom.V(54, 54), Hallway},
		{geom.V(6, -6), Hallway},
	}
	for _, tt := range tests {
		if got := NewPose(tt.center, geom.Up).Quadrant(bounds); got != tt.want {
			t.Errorf("Quadrant at %s = %d, want %d", tt.center, got, tt.want)
		}
	}
}

func TestPoseJSON(t *testing.T) {
	p := NewPose(geom.V(12, 7), geom.Right)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var back Pose
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Center() != p.Center() || back.Head() != p.Head() {
		t.Errorf("round trip = %s, want %s", back, p)
	}

	bad := []byte(`{"center":{"x":0,"y":0},"head":{"x":1,"y":1}}`)
	if err := json.Unmarshal(bad, &back); !errors.Is(err, ErrGeometryInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}
