package main

import (
	"debrisfield/sim"
)

const (
	ProjectileSpeed    = 14.0 // units/frame
	ProjectileLifetime = 90.0 // frames
	ProjectileRadius   = 3.0
	ProjectileDamage   = 1
	ProjectileOffset   = 20.0 // spawn distance from ship center
	ProjectileImpulse  = 0.15 // share of projectile velocity passed on hit
	FireCooldown       = 9.0  // frames between shots
)

// Projectile is a shot fired by the ship
type Projectile struct {
	ID       string
	Pos      sim.Vec2
	Vel      sim.Vec2
	Rotation float64
	Life     float64
	Damage   int
	Alive    bool
}

// NewProjectile creates a projectile from the ship's nose along rotation
func NewProjectile(owner *Ship, rotation float64) *Projectile {
	dir := facing(rotation)
	return &Projectile{
		ID:       GenerateID(4),
		Pos:      owner.Position().Add(dir.Mul(ProjectileOffset)),
		Vel:      dir.Mul(ProjectileSpeed).Add(owner.Velocity().Mul(0.3)),
		Rotation: rotation,
		Life:     ProjectileLifetime,
		Damage:   ProjectileDamage,
		Alive:    true,
	}
}

// Update moves the projectile one step
func (p *Projectile) Update(dt float64) {
	if !p.Alive {
		return
	}
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.Life -= dt

	if p.Life <= 0 || p.Pos[0] < 0 || p.Pos[0] > ArenaWidth || p.Pos[1] < 0 || p.Pos[1] > ArenaHeight {
		p.Alive = false
	}
}

// Body returns the projectile as a point-collision probe
func (p *Projectile) Body() sim.Projectile {
	return sim.Projectile{
		Pos:    p.Pos,
		Vel:    p.Vel.Mul(ProjectileImpulse),
		Radius: ProjectileRadius,
		Damage: p.Damage,
	}
}

// ToState converts to protocol state
func (p *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID: p.ID,
		X:  round1(p.Pos[0]),
		Y:  round1(p.Pos[1]),
		R:  round2(p.Rotation),
	}
}
