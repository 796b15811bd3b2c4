package sim

import "math"

// Step runs one simulation frame: the update pass, then the collision pass.
// dt is the frame-time scale (1.0 at the reference frame rate); values <= 0
// leave positions unchanged.
func (w *World) Step(dt float64) {
	if w.shutdown {
		return
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	w.frame++
	w.clock += dt * ReferenceFrameMs
	w.stats = Stats{Frame: w.frame, SpawnFailures: w.stats.SpawnFailures}

	// Deferred deletion happens before anything else can see the slot.
	for i := 0; i < w.pool.Capacity(); i++ {
		if o := w.pool.at(i); o.allocated && o.MarkForDelete {
			w.pool.free(i)
			w.stats.Reclaimed++
		}
	}

	overview := w.mode != nil && w.mode.Overview()
	w.grid.Clear()

	for i := 0; i < w.pool.Capacity(); i++ {
		o := w.pool.at(i)
		// objects spawned by hooks during this pass wait for the next step
		if !o.allocated || !o.Phys.Active || o.spawnFrame == w.frame {
			continue
		}
		h := Handle(i)

		// VehicleContact carries last frame's collision outcome into this
		// read; the collision pass below sets it fresh.
		contact := o.VehicleContact
		o.VehicleContact = false

		switch o.Kind {
		case KindDebris:
			w.updateDebris(o, dt)
		case KindActor:
			o.VehicleContact = contact
			w.hooks.UpdateActor(w, h, o, dt)
			o.VehicleContact = false
		case KindPiece:
			w.hooks.UpdatePiece(w, h, o, dt)
		}
		w.stats.Updated++
		if o.Sleeping {
			w.stats.Sleeping++
		}

		// a hook may have deleted or deactivated the object
		if overview || !o.live() {
			continue
		}
		w.grid.Insert(h, o.Phys.Pos)
	}
	w.stats.GridSize = w.grid.Len()

	if overview {
		return
	}
	w.collide()
}

func (w *World) updateDebris(o *Object, dt float64) {
	d := &o.Debris
	if d.Grabbed {
		o.Sleeping = false
		d.AliveFrames = 0
		d.RotationSpeed = 0
		return
	}

	o.Phys.Angle = NormalizeAngle(o.Phys.Angle + d.RotationSpeed*dt)
	if d.Tint > 0 {
		d.Tint -= w.cfg.TintDecay * dt
		if d.Tint < 0 {
			d.Tint = 0
		}
	}
	if o.Sleeping {
		return
	}

	o.Phys.Pos = o.Phys.Pos.Add(o.Phys.Vel.Mul(dt))

	if d.CurrencyID != 0 {
		o.Phys.Vel = o.Phys.Vel.Mul(math.Pow(w.cfg.CurrencyDamping, dt))
		if lenSq(o.Phys.Vel) < w.cfg.SleepVelocityEps {
			o.Phys.Vel = Vec2{}
			o.Sleeping = true
			return
		}
	}

	if d.AliveFrames < w.cfg.SleepCooldownFrames {
		d.AliveFrames++
	}
	if d.AliveFrames >= w.cfg.SleepCooldownFrames && lenSq(o.Phys.Vel) < w.cfg.SleepVelocityEps {
		o.Phys.Vel = Vec2{}
		o.Sleeping = true
	}
}
