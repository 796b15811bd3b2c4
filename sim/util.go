package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is the world-space vector type used throughout the simulation.
type Vec2 = mgl64.Vec2

// Rect is an axis-aligned world-space rectangle.
type Rect struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// RectAround returns the square of half-size r centered on p
func RectAround(p Vec2, r float64) Rect {
	return Rect{MinX: p[0] - r, MaxX: p[0] + r, MinY: p[1] - r, MaxY: p[1] + r}
}

// Expand grows the rectangle by m on every side
func (r Rect) Expand(m float64) Rect {
	return Rect{MinX: r.MinX - m, MaxX: r.MaxX + m, MinY: r.MinY - m, MaxY: r.MaxY + m}
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Vec2) bool {
	return p[0] >= r.MinX && p[0] <= r.MaxX && p[1] >= r.MinY && p[1] <= r.MaxY
}

// Intersects reports whether r and o overlap
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinY <= o.MaxY && r.MaxY >= o.MinY
}

func lenSq(v Vec2) float64 {
	return v.Dot(v)
}

// unit returns v normalized, or false when v is too short to normalize
func unit(v Vec2) (Vec2, float64, bool) {
	l2 := lenSq(v)
	if l2 < DegenerateDistance {
		return Vec2{}, 0, false
	}
	l := math.Sqrt(l2)
	return v.Mul(1 / l), l, true
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
