package sim

import "math"

// Queries read the grid built by the last Step. They must run between steps,
// and ApplyRadiusDamage/PointCollision apply damage as a side effect.

// each walks live objects in the broad-phase cells of r
func (w *World) each(r Rect, fn func(h Handle, o *Object) bool) {
	w.grid.EachInRect(r, func(h Handle) bool {
		o := w.pool.at(int(h))
		if !o.collidable() {
			return false
		}
		return fn(h, o)
	})
}

// NearestInRect returns the object closest to origin whose center lies in view.
func (w *World) NearestInRect(origin Vec2, view Rect) Handle {
	best, bestD2 := NoHandle, math.Inf(1)
	w.each(view.Expand(w.cfg.ViewMargin), func(h Handle, o *Object) bool {
		if !view.Contains(o.Phys.Pos) {
			return false
		}
		if d2 := lenSq(o.Phys.Pos.Sub(origin)); d2 < bestD2 {
			best, bestD2 = h, d2
		}
		return false
	})
	return best
}

// NearestInCone is NearestInRect restricted to the cone of halfAngle around
// facing. Objects behind origin are never returned.
func (w *World) NearestInCone(origin Vec2, facing float64, view Rect, halfAngle float64) Handle {
	f := Vec2{math.Cos(facing), math.Sin(facing)}
	cos := math.Cos(halfAngle)
	best, bestD2 := NoHandle, math.Inf(1)
	w.each(view.Expand(w.cfg.ViewMargin), func(h Handle, o *Object) bool {
		if !view.Contains(o.Phys.Pos) {
			return false
		}
		d := o.Phys.Pos.Sub(origin)
		if !coneAccepts(d, f, cos) {
			return false
		}
		if d2 := lenSq(d); d2 < bestD2 {
			best, bestD2 = h, d2
		}
		return false
	})
	return best
}

// coneAccepts compares squared dot against squared cosine so no square root
// is taken per candidate.
func coneAccepts(d, f Vec2, cos float64) bool {
	dot := d.Dot(f)
	if dot < 0 {
		return false
	}
	if cos <= 0 {
		return true
	}
	return dot*dot >= cos*cos*lenSq(d)
}

// ApplyRadiusDamage damages every object whose center lies within radius of
// center. Each object is pushed away from center with the magnitude of
// impulse. Returns the number of objects hit.
func (w *World) ApplyRadiusDamage(center Vec2, radius float64, damage int, impulse Vec2) int {
	if radius <= 0 {
		return 0
	}
	r2 := radius * radius
	var hits []Handle
	w.each(RectAround(center, radius), func(h Handle, o *Object) bool {
		if lenSq(o.Phys.Pos.Sub(center)) <= r2 {
			hits = append(hits, h)
		}
		return false
	})

	mag := impulse.Len()
	for _, h := range hits {
		o := w.pool.at(int(h))
		dir, _, ok := unit(o.Phys.Pos.Sub(center))
		if !ok {
			dir = Vec2{}
		}
		w.ApplyDamage(h, damage, dir.Mul(mag))
	}
	return len(hits)
}

// SegmentHit is the result of SegmentIntersect.
type SegmentHit struct {
	Handle Handle
	Point  Vec2
	Dist   float64 // from the segment start
}

// SegmentIntersect returns the hit closest to start along [start, end].
func (w *World) SegmentIntersect(start, end Vec2) (SegmentHit, bool) {
	bounds := Rect{
		MinX: math.Min(start[0], end[0]),
		MaxX: math.Max(start[0], end[0]),
		MinY: math.Min(start[1], end[1]),
		MaxY: math.Max(start[1], end[1]),
	}.Expand(float64(w.cfg.MaxObjectRadius))

	best := SegmentHit{Handle: NoHandle, Dist: math.Inf(1)}
	w.each(bounds, func(h Handle, o *Object) bool {
		p := segmentPoint(start, end, o.Phys.Pos)
		r := float64(o.Phys.Radius)
		if lenSq(o.Phys.Pos.Sub(p)) > r*r {
			return false
		}
		if d := p.Sub(start).Len(); d < best.Dist {
			best = SegmentHit{Handle: h, Point: p, Dist: d}
		}
		return false
	})
	return best, best.Handle != NoHandle
}

// segmentPoint returns the point of [a, b] closest to p
func segmentPoint(a, b, p Vec2) Vec2 {
	seg := b.Sub(a)
	l2 := lenSq(seg)
	if l2 < DegenerateDistance {
		return a
	}
	t := Clamp(p.Sub(a).Dot(seg)/l2, 0, 1)
	return a.Add(seg.Mul(t))
}

// Projectile is a moving point-like body tested by PointCollision.
type Projectile struct {
	Pos    Vec2
	Vel    Vec2
	Radius float64
	Damage int
}

// PointCollision tests p against the 3x3 cells around it and damages the
// first object it overlaps, pushed along the projectile velocity. No ordering
// by distance: the first hit found wins.
func (w *World) PointCollision(p Projectile) (Handle, bool) {
	hit := NoHandle
	w.grid.EachAround(p.Pos, func(h Handle) bool {
		o := w.pool.at(int(h))
		if !o.collidable() {
			return false
		}
		rs := float64(o.Phys.Radius) + p.Radius
		if lenSq(o.Phys.Pos.Sub(p.Pos)) >= rs*rs {
			return false
		}
		hit = h
		return true
	})
	if hit == NoHandle {
		return NoHandle, false
	}
	w.ApplyDamage(hit, p.Damage, p.Vel)
	return hit, true
}

// RenderIterate calls fn for every visible object whose bounds intersect view,
// reusing the grid built by the last Step. Iteration stops when fn returns true.
func (w *World) RenderIterate(view Rect, fn func(h Handle, o *Object) bool) {
	w.grid.EachInRect(view.Expand(w.cfg.ViewMargin), func(h Handle) bool {
		o := w.pool.at(int(h))
		if !o.live() || !o.Phys.Visible || !view.Intersects(o.Phys.Bounds()) {
			return false
		}
		return fn(h, o)
	})
}
