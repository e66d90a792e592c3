package geo

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// tangentBasis builds an (east, north) orthonormal basis for the tangent
// plane at origin, the local planar approximation bearings are measured
// in.
func tangentBasis(origin s2.Point) (east, north r3.Vector) {
	zAxis := r3.Vector{X: 0, Y: 0, Z: 1}
	east = zAxis.Cross(origin.Vector).Normalize()
	north = origin.Vector.Cross(east).Normalize()
	return east, north
}

// LocalBearing returns the compass bearing in degrees [0,360) from
// (originLat,originLon) to (pointLat,pointLon), computed by projecting
// both points onto the tangent plane at origin rather than via
// great-circle spherical trigonometry.
func LocalBearing(originLat, originLon, pointLat, pointLon float64) float64 {
	origin := s2.PointFromLatLng(s2.LatLngFromDegrees(originLat, originLon))
	point := s2.PointFromLatLng(s2.LatLngFromDegrees(pointLat, pointLon))
	east, north := tangentBasis(origin)

	delta := point.Vector.Sub(origin.Vector)
	x := delta.Dot(east)
	y := delta.Dot(north)

	return math.Mod(radToDeg(math.Atan2(x, y))+360, 360)
}

// TurnAngle computes the exterior turn angle at b between the outgoing
// bearing along (a->b) and the outgoing bearing along (b->c), in degrees
// [0,360).
func TurnAngle(aLat, aLon, bLat, bLon, cLat, cLon float64) float64 {
	bearingIn := LocalBearing(aLat, aLon, bLat, bLon)
	bearingOut := LocalBearing(bLat, bLon, cLat, cLon)
	return math.Mod(bearingOut-bearingIn+360, 360)
}
