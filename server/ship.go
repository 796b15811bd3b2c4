package main

import (
	"math"

	"debrisfield/sim"
)

const (
	ShipRadius       = 14
	ShipMaxHP        = 100
	ShipAccel        = 0.35 // units/frame²
	ShipMaxSpeed     = 7.0  // units/frame
	ShipFriction     = 0.985
	ShipTurnSpeed    = 0.09 // radians/frame at full turn input
	ShipPenaltyScale = 0.3  // thrust multiplier while penalized
	ArenaWidth       = 3000.0
	ArenaHeight      = 3000.0
)

// Ship is the single piloted vehicle of the arena
type Ship struct {
	body      sim.Physical
	Rotation  float64
	HP        int
	Credits   int
	Score     int
	PenaltyMs float64 // remaining thrust penalty
	Impacts   int     // penalties started from a clear state

	Turn   float64 // -1..1
	Thrust bool
	Fire   bool
	Beam   bool
	Bomb   bool

	FireCD float64 // frames until the next shot
	BombCD float64
}

// NewShip creates a ship at the arena center
func NewShip() *Ship {
	s := &Ship{
		body: sim.Physical{
			Radius:      ShipRadius,
			HalfExtents: sim.Vec2{ShipRadius, ShipRadius},
			Active:      true,
			Visible:     true,
			Collidable:  true,
		},
		Rotation: -math.Pi / 2,
		HP:       ShipMaxHP,
	}
	s.Reset()
	return s
}

// Reset puts the ship back at the arena center at rest
func (s *Ship) Reset() {
	s.body.Pos = sim.Vec2{ArenaWidth / 2, ArenaHeight / 2}
	s.body.Vel = sim.Vec2{}
	s.HP = ShipMaxHP
	s.PenaltyMs = 0
	s.FireCD = 0
	s.BombCD = 0
}

func (s *Ship) Position() sim.Vec2     { return s.body.Pos }
func (s *Ship) SetPosition(p sim.Vec2) { s.body.Pos = p }
func (s *Ship) Velocity() sim.Vec2     { return s.body.Vel }
func (s *Ship) SetVelocity(v sim.Vec2) { s.body.Vel = v }
func (s *Ship) Entity() *sim.Physical  { return &s.body }

// ApplyTemporaryPenalty reduces thrust for durationMs. Overlapping penalties
// do not stack; the longer one wins.
func (s *Ship) ApplyTemporaryPenalty(durationMs int) {
	if s.PenaltyMs <= 0 {
		s.Impacts++
	}
	if d := float64(durationMs); d > s.PenaltyMs {
		s.PenaltyMs = d
	}
}

// Facing returns the unit vector the ship points along
func (s *Ship) Facing() sim.Vec2 {
	return facing(s.Rotation)
}

// Update moves the ship one step (dt is the frame-time scale)
func (s *Ship) Update(dt float64) {
	s.Rotation = sim.NormalizeAngle(s.Rotation + sim.Clamp(s.Turn, -1, 1)*ShipTurnSpeed*dt)

	if s.Thrust {
		accel := ShipAccel * dt
		if s.PenaltyMs > 0 {
			accel *= ShipPenaltyScale
		}
		s.body.Vel = s.body.Vel.Add(s.Facing().Mul(accel))
	}
	s.body.Vel = s.body.Vel.Mul(math.Pow(ShipFriction, dt))

	if speed := s.body.Vel.Len(); speed > ShipMaxSpeed {
		s.body.Vel = s.body.Vel.Mul(ShipMaxSpeed / speed)
	}
	s.body.Pos = s.body.Pos.Add(s.body.Vel.Mul(dt))
	s.clampToArena()

	if s.PenaltyMs > 0 {
		s.PenaltyMs = math.Max(0, s.PenaltyMs-dt*sim.ReferenceFrameMs)
	}
	if s.FireCD > 0 {
		s.FireCD -= dt
	}
	if s.BombCD > 0 {
		s.BombCD -= dt
	}
}

// clampToArena stops the ship at the arena walls
func (s *Ship) clampToArena() {
	r := float64(s.body.Radius)
	for axis, limit := range [2]float64{ArenaWidth, ArenaHeight} {
		if s.body.Pos[axis] < r {
			s.body.Pos[axis] = r
			s.body.Vel[axis] = 0
		} else if s.body.Pos[axis] > limit-r {
			s.body.Pos[axis] = limit - r
			s.body.Vel[axis] = 0
		}
	}
}

// TakeDamage reduces HP and returns true when the ship is wrecked
func (s *Ship) TakeDamage(dmg int) bool {
	if s.HP <= 0 {
		return false
	}
	s.HP -= dmg
	if s.HP <= 0 {
		s.HP = 0
		return true
	}
	return false
}

// CanFire returns true if the ship can fire a projectile
func (s *Ship) CanFire() bool {
	return s.Fire && s.FireCD <= 0
}

// CanBomb returns true if the ship can drop a bomb
func (s *Ship) CanBomb() bool {
	return s.Bomb && s.BombCD <= 0
}

// ToState converts to protocol state
func (s *Ship) ToState() ShipState {
	return ShipState{
		X:       round1(s.body.Pos[0]),
		Y:       round1(s.body.Pos[1]),
		R:       round2(s.Rotation),
		VX:      round2(s.body.Vel[0]),
		VY:      round2(s.body.Vel[1]),
		HP:      s.HP,
		Credits: s.Credits,
		Score:   s.Score,
		Penalty: s.PenaltyMs > 0,
		Thrust:  s.Thrust,
	}
}
