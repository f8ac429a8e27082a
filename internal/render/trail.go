package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/search"
)

// TrailPoint is one robot position along a run.
type TrailPoint struct {
	Center geom.Vec
	Phase  string
}

// Trail accumulates the path of one run for plotting. It doubles as a
// search.Observer: the first snapshot fixes the box and rock layout.
type Trail struct {
	mu     sync.Mutex
	Title  string
	Points []TrailPoint
	Boxes  []board.Box
	Rocks  []board.Rock
	Picked []geom.Vec
}

// NewTrail returns an empty trail.
func NewTrail(title string) *Trail {
	return &Trail{Title: title}
}

// Observe appends the robot centre of s.
func (t *Trail) Observe(s search.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Points) == 0 {
		t.Boxes = s.Boxes
		t.Rocks = s.Rocks
	}
	if s.Action == search.ActionPickup {
		t.Picked = append(t.Picked, s.Pose.Center())
	}
	t.Points = append(t.Points, TrailPoint{Center: s.Pose.Center(), Phase: s.Phase.String()})
}

// Add appends a point, for trails loaded from storage.
func (t *Trail) Add(center geom.Vec, phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Points = append(t.Points, TrailPoint{Center: center, Phase: phase})
}

// Len returns the number of points.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Points)
}

func boxCenters(boxes []board.Box, side int) (plain, wanted plotter.XYs) {
	for _, b := range boxes {
		xy := plotter.XY{X: float64(b.BottomLeft.X) + float64(side)/2, Y: float64(b.BottomLeft.Y) + float64(side)/2}
		if b.Wanted {
			wanted = append(wanted, xy)
		} else {
			plain = append(plain, xy)
		}
	}
	return plain, wanted
}

// Plot builds the gonum plot of the trail over the layout l.
func (t *Trail) Plot(l *config.Layout) (*plot.Plot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := plot.New()
	p.Title.Text = t.Title
	p.X.Label.Text = "x (cells)"
	p.Y.Label.Text = "y (cells)"
	p.X.Min, p.X.Max = 0, float64(l.Width)
	p.Y.Min, p.Y.Max = float64(-l.RowOffset), float64(l.Height-l.RowOffset)

	if len(t.Points) > 0 {
		pts := make(plotter.XYs, len(t.Points))
		for i, tp := range t.Points {
			pts[i] = plotter.XY{X: float64(tp.Center.X), Y: float64(tp.Center.Y)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trail line: %w", err)
		}
		line.Color = color.RGBA{R: 33, G: 150, B: 243, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("path", line)
	}

	plain, wanted := boxCenters(t.Boxes, l.BoxSide)
	addGlyphs := func(label string, xys plotter.XYs, c color.Color, shape draw.GlyphDrawer) error {
		if len(xys) == 0 {
			return nil
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("%s scatter: %w", label, err)
		}
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Shape = shape
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(label, sc)
		return nil
	}
	var rocks plotter.XYs
	for _, r := range t.Rocks {
		half := float64(r.Size) / 2
		rocks = append(rocks, plotter.XY{X: float64(r.BottomLeft.X) + half, Y: float64(r.BottomLeft.Y) + half})
	}
	var picks plotter.XYs
	for _, c := range t.Picked {
		picks = append(picks, plotter.XY{X: float64(c.X), Y: float64(c.Y)})
	}
	for _, g := range []struct {
		label string
		xys   plotter.XYs
		c     color.Color
		shape draw.GlyphDrawer
	}{
		{"box", plain, color.RGBA{R: 255, G: 213, B: 79, A: 255}, draw.BoxGlyph{}},
		{"target", wanted, color.RGBA{R: 229, G: 57, B: 53, A: 255}, draw.BoxGlyph{}},
		{"rock", rocks, color.RGBA{R: 158, G: 158, B: 158, A: 255}, draw.CircleGlyph{}},
		{"pickup", picks, color.RGBA{R: 139, G: 195, B: 74, A: 255}, draw.CrossGlyph{}},
	} {
		if err := addGlyphs(g.label, g.xys, g.c, g.shape); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SavePNG writes the trail plot to path.
func (t *Trail) SavePNG(l *config.Layout, path string) error {
	p, err := t.Plot(l)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 9*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes the trail plot as PNG onto w.
func (t *Trail) WritePNG(l *config.Layout, w io.Writer) error {
	p, err := t.Plot(l)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 9*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

var phaseColors = map[string]string{
	"home_escape":         "#9e9e9e",
	"shelf_scan":          "#2196F3",
	"barcode_backtrack":   "#ff8a65",
	"pickup":              "#8BC34A",
	"quadrant_transition": "#4db6ac",
	"home_return":         "#ffd54f",
	"done":                "#f2f2f2",
}

// Chart builds an echarts scatter of the trail with one series per phase.
func (t *Trail) Chart(l *config.Layout, subtitle string) *charts.Scatter {
	t.mu.Lock()
	defer t.mu.Unlock()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: t.Title, Theme: "dark", Width: "900px", Height: "1000px"}),
		charts.WithTitleOpts(opts.Title{Title: t.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: l.Width, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -l.RowOffset, Max: l.Height - l.RowOffset, Name: "y", NameLocation: "middle", NameGap: 30}),
	)

	byPhase := map[string][]opts.ScatterData{}
	var order []string
	for _, tp := range t.Points {
		if _, ok := byPhase[tp.Phase]; !ok {
			order = append(order, tp.Phase)
		}
		byPhase[tp.Phase] = append(byPhase[tp.Phase], opts.ScatterData{Value: []interface{}{tp.Center.X, tp.Center.Y}})
	}
	for _, phase := range order {
		c, ok := phaseColors[phase]
		if !ok {
			c = "#ffffff"
		}
		scatter.AddSeries(phase, byPhase[phase],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c}))
	}

	var boxes []opts.ScatterData
	for _, b := range t.Boxes {
		half := float64(l.BoxSide) / 2
		boxes = append(boxes, opts.ScatterData{
			Name:  b.Barcode.String(),
			Value: []interface{}{float64(b.BottomLeft.X) + half, float64(b.BottomLeft.Y) + half},
		})
	}
	if len(boxes) > 0 {
		scatter.AddSeries("boxes", boxes,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#e57373"}))
	}
	return scatter
}

// RenderHTML writes a standalone echarts page of the trail to w.
func (t *Trail) RenderHTML(l *config.Layout, subtitle string, w io.Writer) error {
	var buf bytes.Buffer
	if err := t.Chart(l, subtitle).Render(&buf); err != nil {
		return fmt.Errorf("render trail chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
