package views

import (
	"fmt"
	"math"
	"strings"

	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

// Radar chart geometry in SVG user units.
const (
	chartSize   = 320.0
	chartRadius = 110.0
)

// Point is an SVG coordinate.
type Point struct {
	X, Y float64
}

// Axis is one spoke of the chart with its label anchor.
type Axis struct {
	End      Point
	Label    Point
	Category model.Category
}

// Radar holds precomputed shapes for the result chart.
type Radar struct {
	Size   float64
	Center float64
	Rings  []string // polygon points, one per Likert value
	Axes   []Axis
	Pre    string
	Post   string // empty without a POST result
}

// NewRadar lays out the chart for c. Axis 0 points straight up and the
// others follow clockwise.
func NewRadar(c scoring.Comparison) Radar {
	center := Point{chartSize / 2, chartSize / 2}
	r := Radar{Size: chartSize, Center: center.X}

	for v := 1; v <= int(scoring.AxisMax); v++ {
		var ring [model.NumCategories]float64
		for i := range ring {
			ring[i] = float64(v) / scoring.AxisMax
		}
		r.Rings = append(r.Rings, polygon(center, ring))
	}
	for _, cat := range model.Categories() {
		r.Axes = append(r.Axes, Axis{
			End:      vertex(center, int(cat), 1),
			Label:    vertex(center, int(cat), 1.22),
			Category: cat,
		})
	}

	pre, post := c.Fractions()
	r.Pre = polygon(center, pre)
	if post != nil {
		r.Post = polygon(center, *post)
	}
	return r
}

// vertex returns the point at fraction f of the radius on axis i.
func vertex(center Point, i int, f float64) Point {
	angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(model.NumCategories)
	return Point{
		X: round2(center.X + f*chartRadius*math.Cos(angle)),
		Y: round2(center.Y + f*chartRadius*math.Sin(angle)),
	}
}

func polygon(center Point, fractions [model.NumCategories]float64) string {
	parts := make([]string, 0, len(fractions))
	for i, f := range fractions {
		p := vertex(center, i, f)
		parts = append(parts, fmt.Sprintf("%.2f,%.2f", p.X, p.Y))
	}
	return strings.Join(parts, " ")
}

func round2(v float64) float64 {
	v = math.Round(v*100) / 100
	if v == 0 {
		return 0
	}
	return v
}
