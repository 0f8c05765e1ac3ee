package geo

import (
	"fmt"
	"math"
	"sort"
)

// Curve is a closed planar curve with period 2π. It returns x, y in km.
type Curve func(t float64) (x, y float64)

// Circle returns a circle of radius r km.
func Circle(r float64) Curve {
	return func(t float64) (float64, float64) {
		return r * math.Cos(t), r * math.Sin(t)
	}
}

// Bernoulli returns the lemniscate of Bernoulli scaled by r km.
func Bernoulli(r float64) Curve {
	return func(t float64) (float64, float64) {
		s := math.Sin(t)
		d := s*s + 1
		x := r * math.Sqrt2 * math.Cos(t) / d
		y := r * math.Sqrt2 * math.Cos(t) * s / d
		return x, y
	}
}

// Gerono returns the lemniscate of Gerono (figure of eight) scaled by r km.
func Gerono(r float64) Curve {
	return func(t float64) (float64, float64) {
		return r * math.Cos(t), r * math.Cos(t) * math.Sin(t)
	}
}

var curves = map[string]func(r float64) Curve{
	"circle":    Circle,
	"bernoulli": Bernoulli,
	"gerono":    Gerono,
}

// CurveNames returns the names accepted by CurveByName, sorted.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurveByName looks up a named curve and scales it by radius km.
func CurveByName(name string, radius float64) (Curve, error) {
	mk, ok := curves[name]
	if !ok {
		return nil, fmt.Errorf("unknown curve %q (want one of %v)", name, CurveNames())
	}
	if radius <= 0 {
		return nil, fmt.Errorf("curve radius must be positive, got %v", radius)
	}
	return mk(radius), nil
}
