// Package render draws simulation snapshots: live terminal frames, and
// whole-run path plots as PNG (gonum/plot) or interactive HTML (go-echarts).
// Renderers only consume search.Snapshot values; they never touch the
// engine.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/search"
)

// Glyphs, lowest priority first.
const (
	glyphEmpty = '.'
	glyphRock  = 'o'
	glyphEdge  = '#'
	glyphBlack = '1'
	glyphWhite = '2'
	glyphRobot = '@'
)

var priority = map[rune]int{
	glyphEmpty: 0,
	glyphRock:  1,
	glyphEdge:  2,
	glyphBlack: 3,
	glyphWhite: 3,
	glyphRobot: 4,
	'^':        5,
	'>':        5,
	'v':        5,
	'<':        5,
}

var headGlyph = map[geom.Direction]rune{
	geom.Up:    '^',
	geom.Right: '>',
	geom.Down:  'v',
	geom.Left:  '<',
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850"))

	glyphStyles = map[rune]lipgloss.Style{
		glyphEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("#2a3850")),
		glyphRock:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9e9e9e")),
		glyphEdge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd54f")),
		glyphBlack: lipgloss.NewStyle().Foreground(lipgloss.Color("#e57373")),
		glyphWhite: lipgloss.NewStyle().Foreground(lipgloss.Color("#f2f2f2")),
		glyphRobot: lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
	}
	headStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935"))
)

// Frame draws a snapshot as a character map of the floor.
type Frame struct {
	layout *config.Layout
	board  *board.Board

	// Scale folds Scale x Scale cells into one character. Values below 1
	// are treated as 1.
	Scale int
	// Plain disables styling so the output is stable for logs and tests.
	Plain bool
}

// NewFrame returns a Frame for l drawing every other cell.
func NewFrame(l *config.Layout) *Frame {
	return &Frame{layout: l, board: board.New(l), Scale: 2}
}

// Grid returns the unstyled character map of s, top row first.
func (f *Frame) Grid(s search.Snapshot) [][]rune {
	scale := max(f.Scale, 1)
	l := f.layout

	f.board.Rebuild(s.Boxes, geom.Rect{})
	minY := -l.RowOffset
	maxY := l.Height - l.RowOffset - 1
	cols := (l.Width + scale - 1) / scale
	rows := (l.Height + scale - 1) / scale

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(glyphEmpty), cols))
	}
	put := func(p geom.Vec, g rune) {
		if p.X < 0 || p.X >= l.Width || p.Y < minY || p.Y > maxY {
			return
		}
		r := (maxY - p.Y) / scale
		c := p.X / scale
		if priority[g] > priority[grid[r][c]] {
			grid[r][c] = g
		}
	}

	for x := 0; x < l.Width; x++ {
		for y := minY; y <= maxY; y++ {
			switch f.board.At(geom.V(x, y)) {
			case board.Edge:
				put(geom.V(x, y), glyphEdge)
			case config.Black:
				put(geom.V(x, y), glyphBlack)
			case config.White:
				put(geom.V(x, y), glyphWhite)
			}
		}
	}
	for _, rock := range s.Rocks {
		geom.Rect{Min: rock.BottomLeft, W: rock.Size, H: rock.Size}.Cells(func(p geom.Vec) {
			put(p, glyphRock)
		})
	}
	s.Pose.Footprint().Cells(func(p geom.Vec) { put(p, glyphRobot) })
	put(s.Pose.Center(), headGlyph[s.Pose.Direction()])
	return grid
}

// Header is the one-line status above a frame.
func Header(s search.Snapshot) string {
	storage := "empty"
	if s.StorageFull {
		storage = "full"
	}
	return fmt.Sprintf("#%d %s phase=%s pose=%s boxes=%d storage=%s",
		s.Seq, s.Action, s.Phase, s.Pose, len(s.Boxes), storage)
}

// Render returns the header and the map of s.
func (f *Frame) Render(s search.Snapshot) string {
	grid := f.Grid(s)
	var b strings.Builder
	for i, row := range grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		if f.Plain {
			b.WriteString(string(row))
			continue
		}
		for _, g := range row {
			st, ok := glyphStyles[g]
			if !ok {
				st = headStyle
			}
			b.WriteString(st.Render(string(g)))
		}
	}
	if f.Plain {
		return Header(s) + "\n" + b.String()
	}
	return headerStyle.Render(Header(s)) + "\n" + frameStyle.Render(b.String())
}

// Terminal is a search.Observer that redraws a Frame on w.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	frame *Frame
	// Every draws one snapshot in Every; values below 1 draw all of them.
	Every int
	// Clear homes the cursor and clears the screen before each frame.
	Clear bool
}

// NewTerminal returns a Terminal drawing every snapshot with a clear.
func NewTerminal(w io.Writer, frame *Frame) *Terminal {
	return &Terminal{w: w, frame: frame, Every: 1, Clear: true}
}

// Observe draws s when its sequence number is due. Start and pickup
// snapshots are always drawn.
func (t *Terminal) Observe(s search.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	every := max(t.Every, 1)
	if s.Seq%every != 0 && s.Action != search.ActionStart && s.Action != search.ActionPickup {
		return
	}
	if t.Clear {
		io.WriteString(t.w, "\x1b[H\x1b[2J")
	}
	io.WriteString(t.w, t.frame.Render(s))
	io.WriteString(t.w, "\n")
}
