// Package treasury supplies benchmark government yield curves and spreads over them.
package treasury

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

// Point is one tenor of a par yield curve.
type Point struct {
	Tenor float64 `json:"tenor"` // years
	Rate  float64 `json:"rate"`  // decimal
}

// Curve is a benchmark curve observed on one date. Points are ascending by tenor.
type Curve struct {
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
	Points []Point   `json:"points"`
}

// NewCurve sorts points by tenor and drops non-finite entries.
func NewCurve(date time.Time, source string, points []Point) *Curve {
	clean := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) || p.Tenor <= 0 {
			continue
		}
		clean = append(clean, p)
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i].Tenor < clean[j].Tenor })
	return &Curve{Date: contracts.Midnight(date), Source: source, Points: clean}
}

// Rate interpolates linearly between the two nearest tenors. Tenors outside
// the curve take the rate of the nearest end.
func (c *Curve) Rate(tenor float64) (float64, error) {
	n := len(c.Points)
	if n == 0 {
		return 0, fmt.Errorf("%w: curve for %s has no points", contracts.ErrBenchmarkUnavailable, c.Date.Format(contracts.DateLayout))
	}
	if tenor <= c.Points[0].Tenor {
		return c.Points[0].Rate, nil
	}
	if tenor >= c.Points[n-1].Tenor {
		return c.Points[n-1].Rate, nil
	}

	i := sort.Search(n, func(i int) bool { return c.Points[i].Tenor >= tenor })
	lo, hi := c.Points[i-1], c.Points[i]
	w := (tenor - lo.Tenor) / (hi.Tenor - lo.Tenor)
	return lo.Rate + w*(hi.Rate-lo.Rate), nil
}

// Source returns the curve published for exactly one date.
type Source interface {
	Name() string
	// Curve returns contracts.ErrNotFound when nothing was published on date.
	Curve(ctx context.Context, date time.Time) (*Curve, error)
}

// StaticSource serves curves held in memory. Used for tests and file-fed runs.
type StaticSource struct {
	name   string
	curves map[string]*Curve
}

// NewStaticSource indexes curves by date.
func NewStaticSource(name string, curves ...*Curve) *StaticSource {
	s := &StaticSource{name: name, curves: make(map[string]*Curve, len(curves))}
	for _, c := range curves {
		s.curves[c.Date.Format(contracts.DateLayout)] = c
	}
	return s
}

// Name implements Source.
func (s *StaticSource) Name() string { return s.name }

// Curve implements Source.
func (s *StaticSource) Curve(_ context.Context, date time.Time) (*Curve, error) {
	c, ok := s.curves[date.Format(contracts.DateLayout)]
	if !ok {
		return nil, fmt.Errorf("%w: no %s curve on %s", contracts.ErrNotFound, s.name, date.Format(contracts.DateLayout))
	}
	return c, nil
}
