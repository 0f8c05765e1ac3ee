// Package geo provides great-circle distances and the projection used to lay
// a planar curve onto the map around a fixed origin.
package geo

import "math"

// EarthRadiusKm is the mean earth radius used for both haversine distances
// and the planar projection.
const EarthRadiusKm = 6371.0

// Point is a geographic position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance between p and q in metres.
func Haversine(p, q Point) float64 {
	dLat := radians(q.Lat - p.Lat)
	dLon := radians(q.Lon - p.Lon)
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return c * EarthRadiusKm * 1000
}

// Project maps local planar coordinates (x east, y north, in km) onto
// geographic coordinates centred at origin. Small-angle approximation: valid
// for offsets of a few km.
func Project(origin Point, x, y float64) Point {
	return Point{
		Lat: origin.Lat + degrees(y/EarthRadiusKm),
		Lon: origin.Lon + degrees(x/(EarthRadiusKm*math.Cos(radians(origin.Lat)))),
	}
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
