package geo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PathPoint is one waypoint of a precomputed course.
type PathPoint struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Cumulative float64 `json:"cumulative_m"` // metres from the first point along the path
}

// Point returns the waypoint position.
func (p PathPoint) Point() Point {
	return Point{Lat: p.Lat, Lon: p.Lon}
}

// Path is an immutable closed course. Points are ordered along the curve;
// the loop closes from the last point back to the first.
type Path struct {
	Points []PathPoint
	// Closing is the distance from the last point back to the first.
	Closing float64
	// LapDistance is the length of one full lap including Closing.
	LapDistance float64
}

// Len returns the number of waypoints.
func (p *Path) Len() int {
	return len(p.Points)
}

// Segments returns the distance of every segment in order, ending with the
// closing segment. An empty path has no segments.
func (p *Path) Segments() []float64 {
	if len(p.Points) == 0 {
		return nil
	}
	segs := make([]float64, len(p.Points))
	for i := 1; i < len(p.Points); i++ {
		segs[i-1] = p.Points[i].Cumulative - p.Points[i-1].Cumulative
	}
	segs[len(segs)-1] = p.Closing
	return segs
}

// BuildPath samples curve at stepCount evenly spaced parameter values over one
// period, projects each sample around origin and accumulates the haversine
// distance between consecutive points. The result depends only on its inputs.
func BuildPath(origin Point, curve Curve, stepCount int) (*Path, error) {
	if curve == nil {
		return nil, errors.New("build path: nil curve")
	}
	if stepCount < 2 {
		return nil, fmt.Errorf("build path: step count must be at least 2, got %d", stepCount)
	}

	dtheta := 2 * math.Pi / float64(stepCount)
	pts := make([]Point, stepCount)
	for k := range pts {
		x, y := curve(float64(k) * dtheta)
		pts[k] = Project(origin, x, y)
	}

	// segs[0] is zero so that the cumulative sum starts at the first point.
	segs := make([]float64, stepCount)
	for k := 1; k < stepCount; k++ {
		segs[k] = Haversine(pts[k-1], pts[k])
	}
	cum := floats.CumSum(make([]float64, stepCount), segs)

	closing := Haversine(pts[stepCount-1], pts[0])
	lap := floats.Sum(segs) + closing
	if lap <= 0 || math.IsNaN(lap) {
		return nil, fmt.Errorf("build path: degenerate curve (lap distance %v)", lap)
	}

	path := &Path{
		Points:      make([]PathPoint, stepCount),
		Closing:     closing,
		LapDistance: lap,
	}
	for k, p := range pts {
		path.Points[k] = PathPoint{Lat: p.Lat, Lon: p.Lon, Cumulative: cum[k]}
	}
	return path, nil
}
