package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/robot"
	"github.com/banshee-data/shelfbot/internal/search"
)

func snapshotAt(center geom.Vec, dir geom.Direction, boxes ...board.Box) search.Snapshot {
	return search.Snapshot{
		Seq:    3,
		Action: search.ActionForward,
		Phase:  search.PhaseShelfScan,
		Pose:   robot.NewPose(center, dir),
		Boxes:  boxes,
	}
}

// cell returns the glyph drawn for world cell p at scale 1.
func cell(l *config.Layout, grid [][]rune, p geom.Vec) rune {
	maxY := l.Height - l.RowOffset - 1
	return grid[maxY-p.Y][p.X]
}

func TestFrameGridFullScale(t *testing.T) {
	l := config.DefaultLayout()
	f := NewFrame(l)
	f.Scale = 1

	box := board.Box{BottomLeft: geom.V(20, 12), Barcode: config.Barcode{1, 2, 2, 2}}
	rock := board.Rock{BottomLeft: geom.V(55, 30), Size: 2}
	s := snapshotAt(geom.V(12, 7), geom.Up, box)
	s.Rocks = []board.Rock{rock}
	grid := f.Grid(s)

	require.Len(t, grid, l.Height)
	require.Len(t, grid[0], l.Width)

	assert.Equal(t, '^', cell(l, grid, geom.V(12, 7)), "head glyph at centre")
	assert.Equal(t, glyphRobot, cell(l, grid, geom.V(10, 4)), "footprint corner")
	assert.Equal(t, glyphEdge, cell(l, grid, geom.V(20, 12)), "box bottom edge")
	assert.Equal(t, glyphBlack, cell(l, grid, geom.V(20, 13)), "first bit is black")
	assert.Equal(t, glyphWhite, cell(l, grid, geom.V(21, 13)))
	assert.Equal(t, glyphRock, cell(l, grid, geom.V(56, 31)))
	assert.Equal(t, glyphEmpty, cell(l, grid, geom.V(80, 80)))
}

func TestFrameGridScaledKeepsRobot(t *testing.T) {
	l := config.DefaultLayout()
	f := NewFrame(l)
	f.Scale = 4

	grid := f.Grid(snapshotAt(geom.V(59, 7), geom.Right))
	assert.Len(t, grid, (l.Height+3)/4)
	assert.Len(t, grid[0], (l.Width+3)/4)

	var heads int
	for _, row := range grid {
		heads += strings.Count(string(row), ">")
	}
	assert.Equal(t, 1, heads)
}

func TestFrameRenderPlain(t *testing.T) {
	l := config.DefaultLayout()
	f := NewFrame(l)
	f.Plain = true

	s := snapshotAt(geom.V(12, 7), geom.Up)
	s.StorageFull = true
	out := f.Render(s)
	lines := strings.Split(out, "\n")

	assert.Equal(t, "#3 forward phase=shelf_scan pose="+s.Pose.String()+" boxes=0 storage=full", lines[0])
	assert.Len(t, lines, 1+(l.Height+1)/2)
}

func TestFrameRenderStyledContainsHeader(t *testing.T) {
	f := NewFrame(config.DefaultLayout())
	out := f.Render(snapshotAt(geom.V(12, 7), geom.Up))
	assert.Contains(t, out, "phase=shelf_scan")
}

func TestTerminalEvery(t *testing.T) {
	var buf bytes.Buffer
	f := NewFrame(config.DefaultLayout())
	f.Plain = true
	term := NewTerminal(&buf, f)
	term.Every = 10
	term.Clear = false

	for seq := 0; seq < 25; seq++ {
		s := snapshotAt(geom.V(12, 7), geom.Up)
		s.Seq = seq
		s.Action = search.ActionForward
		if seq == 0 {
			s.Action = search.ActionStart
		}
		if seq == 13 {
			s.Action = search.ActionPickup
		}
		term.Observe(s)
	}
	// 0, 10, 20 and the pickup at 13.
	assert.Equal(t, 4, strings.Count(buf.String(), "phase=shelf_scan"))
}
