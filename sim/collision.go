package sim

// collide is the collision pass: object pairs first, then the vehicle.
func (w *World) collide() {
	for i := 0; i < w.pool.Capacity(); i++ {
		a := w.pool.at(i)
		if !a.collidable() {
			continue
		}
		// the cell a was inserted under; earlier pairs may have moved it since
		cx, cy, ok := w.grid.CellOf(Handle(i))
		if !ok {
			continue
		}
		w.grid.EachAroundCell(cx, cy, func(hb Handle) bool {
			// strictly greater index: no self pairs, each pair once
			if int(hb) <= i {
				return false
			}
			b := w.pool.at(int(hb))
			if !b.collidable() || (a.Sleeping && b.Sleeping) {
				return false
			}
			w.stats.PairsTested++
			if resolvePair(a, b) {
				w.stats.PairsResolved++
			}
			return false
		})
	}
	if w.vehicle != nil {
		w.collideVehicle()
	}
}

// resolvePair separates two overlapping circles by half the penetration each
// and exchanges their normal velocity components (equal-mass elastic bounce).
func resolvePair(a, b *Object) bool {
	d := b.Phys.Pos.Sub(a.Phys.Pos)
	rs := float64(a.Phys.Radius + b.Phys.Radius)
	dist2 := lenSq(d)
	if dist2 >= rs*rs {
		return false
	}
	n, dist, ok := unit(d)
	if !ok {
		return false
	}
	half := (rs - dist) / 2
	a.Phys.Pos = a.Phys.Pos.Sub(n.Mul(half))
	b.Phys.Pos = b.Phys.Pos.Add(n.Mul(half))

	van := a.Phys.Vel.Dot(n)
	vbn := b.Phys.Vel.Dot(n)
	a.Phys.Vel = a.Phys.Vel.Add(n.Mul(vbn - van))
	b.Phys.Vel = b.Phys.Vel.Add(n.Mul(van - vbn))

	a.wake()
	b.wake()
	return true
}

// collideVehicle resolves every object touching the vehicle. Debris
// corrections are gathered and applied once after the loop; actors and
// assemble-mode pieces are resolved as solids immediately.
func (w *World) collideVehicle() {
	v := w.vehicle
	body := v.Entity()
	if body == nil || !body.Active || !body.Collidable {
		return
	}

	reach := float64(body.Radius+w.cfg.MaxObjectRadius) + w.grid.CellSize()
	w.near = w.near[:0]
	w.grid.EachInRect(RectAround(v.Position(), reach), func(h Handle) bool {
		w.near = append(w.near, h)
		return false
	})

	var (
		correction  Vec2
		correction2 float64
		debrisHit   bool
		bounced     bool
	)
	w.steady = w.steady[:0]

	for _, h := range w.near {
		o := w.pool.at(int(h))
		if !o.collidable() {
			continue
		}
		body = v.Entity()
		c := o.Phys.CheckContact(body, w.frame)
		if !c.Colliding {
			continue
		}
		o.VehicleContact = true
		w.stats.VehicleHits++

		switch o.Kind {
		case KindDebris:
			// n points from the vehicle to the debris
			n, dist, ok := unit(o.Phys.Pos.Sub(v.Position()))
			if !ok {
				continue
			}
			debrisHit = true
			pen := float64(body.Radius+o.Phys.Radius) - dist
			corr := n.Mul(-pen)
			if c2 := lenSq(corr); c2 > correction2 {
				correction, correction2 = corr, c2
			}
			if c.Enter && !bounced {
				bounced = true
				v.SetVelocity(v.Velocity().Mul(-0.5))
				o.Phys.Vel = o.Phys.Vel.Sub(n.Mul(2 * o.Phys.Vel.Dot(n)))
				o.wake()
			} else {
				w.steady = append(w.steady, n)
			}
		case KindActor:
			w.resolveSolid(o, c.Enter, false)
		case KindPiece:
			if o.Piece.AssembleMode {
				w.resolveSolid(o, c.Enter, true)
			} else if c.Enter {
				w.hooks.CollectPiece(w, h, o)
				w.fx.PlaySound(SoundPickup, w.rng.Intn(SoundVariants))
			}
		}
	}

	if !debrisHit {
		return
	}
	v.SetPosition(v.Position().Add(correction))
	if !bounced {
		vel := v.Velocity()
		for _, n := range w.steady {
			if into := vel.Dot(n); into > 0 {
				vel = vel.Sub(n.Mul(into))
			}
		}
		v.SetVelocity(vel)
	}
	v.ApplyTemporaryPenalty(w.cfg.DebrisPenaltyMs)
}

// resolveSolid pushes either the vehicle or the object out of contact every
// frame, and adds bounce impulses on first contact only.
func (w *World) resolveSolid(o *Object, enter, pushObject bool) {
	v := w.vehicle
	body := v.Entity()
	n, dist, ok := unit(o.Phys.Pos.Sub(v.Position()))
	if !ok {
		return
	}
	push := float64(body.Radius+o.Phys.Radius) - dist + w.cfg.SolidPushMargin
	if push < 0 {
		push = 0
	}

	if pushObject {
		o.Phys.Pos = o.Phys.Pos.Add(n.Mul(push))
		o.Phys.Vel = o.Phys.Vel.Sub(n.Mul(o.Phys.Vel.Dot(n)))
	} else {
		v.SetPosition(v.Position().Sub(n.Mul(push)))
		vel := v.Velocity()
		v.SetVelocity(vel.Sub(n.Mul(vel.Dot(n))))
	}

	if !enter {
		return
	}
	v.SetVelocity(v.Velocity().Sub(n.Mul(w.cfg.VehicleBounce)))
	v.ApplyTemporaryPenalty(w.cfg.SolidPenaltyMs)
	if pushObject {
		o.Phys.Vel = o.Phys.Vel.Add(n.Mul(w.cfg.ObjectPushImpulse))
		o.wake()
	}
}
