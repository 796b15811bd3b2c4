package main

import (
	"math"
	"testing"

	"debrisfield/sim"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNewShip(t *testing.T) {
	s := NewShip()
	if s.HP != ShipMaxHP {
		t.Errorf("expected HP %d, got %d", ShipMaxHP, s.HP)
	}
	if p := s.Position(); p[0] != ArenaWidth/2 || p[1] != ArenaHeight/2 {
		t.Errorf("expected ship at arena center, got %v", p)
	}
	if e := s.Entity(); e.Radius != ShipRadius || !e.Collidable || !e.Active {
		t.Errorf("unexpected ship body %+v", e)
	}
}

func TestShipThrust(t *testing.T) {
	s := NewShip()
	s.Rotation = 0
	s.Thrust = true
	s.Update(1)

	want := ShipAccel * ShipFriction
	if v := s.Velocity(); !approx(v[0], want) || !approx(v[1], 0) {
		t.Errorf("expected velocity (%f, 0), got %v", want, v)
	}
	if p := s.Position(); !approx(p[0], ArenaWidth/2+want) {
		t.Errorf("expected x %f, got %f", ArenaWidth/2+want, p[0])
	}
}

func TestShipPenaltyReducesThrust(t *testing.T) {
	s := NewShip()
	s.Rotation = 0
	s.Thrust = true
	s.ApplyTemporaryPenalty(250)
	s.Update(1)

	want := ShipAccel * ShipPenaltyScale * ShipFriction
	if v := s.Velocity(); !approx(v[0], want) {
		t.Errorf("expected penalized velocity %f, got %f", want, v[0])
	}
	if !approx(s.PenaltyMs, 250-sim.ReferenceFrameMs) {
		t.Errorf("expected penalty to count down, got %f", s.PenaltyMs)
	}
}

func TestShipPenaltyImpacts(t *testing.T) {
	s := NewShip()
	s.ApplyTemporaryPenalty(250)
	s.ApplyTemporaryPenalty(400)
	s.ApplyTemporaryPenalty(100)
	if s.Impacts != 1 {
		t.Errorf("overlapping penalties should count one impact, got %d", s.Impacts)
	}
	if s.PenaltyMs != 400 {
		t.Errorf("longest penalty should win, got %f", s.PenaltyMs)
	}

	for i := 0; i < 30; i++ {
		s.Update(1)
	}
	if s.PenaltyMs != 0 {
		t.Fatalf("penalty should expire, got %f", s.PenaltyMs)
	}
	s.ApplyTemporaryPenalty(250)
	if s.Impacts != 2 {
		t.Errorf("expected a second impact after expiry, got %d", s.Impacts)
	}
}

func TestShipMaxSpeed(t *testing.T) {
	s := NewShip()
	s.SetVelocity(sim.Vec2{30, 0})
	s.Update(1)
	if speed := s.Velocity().Len(); speed > ShipMaxSpeed+1e-9 {
		t.Errorf("speed %f exceeds max %f", speed, ShipMaxSpeed)
	}
}

func TestShipClampsToArena(t *testing.T) {
	s := NewShip()
	s.SetPosition(sim.Vec2{5, 1500})
	s.SetVelocity(sim.Vec2{-3, 1})
	s.Update(1)

	p, v := s.Position(), s.Velocity()
	if p[0] != ShipRadius {
		t.Errorf("expected x clamped to %d, got %f", ShipRadius, p[0])
	}
	if v[0] != 0 || v[1] == 0 {
		t.Errorf("only the blocked axis should stop, got %v", v)
	}
}

func TestShipTurn(t *testing.T) {
	s := NewShip()
	s.Rotation = 0
	s.Turn = 5 // clamped to 1
	s.Update(1)
	if !approx(s.Rotation, ShipTurnSpeed) {
		t.Errorf("expected rotation %f, got %f", ShipTurnSpeed, s.Rotation)
	}

	s.Rotation = math.Pi - 0.01
	s.Update(1)
	if s.Rotation > math.Pi || s.Rotation < -math.Pi {
		t.Errorf("rotation should stay normalized, got %f", s.Rotation)
	}
}

func TestShipTakeDamage(t *testing.T) {
	s := NewShip()
	if s.TakeDamage(30) {
		t.Error("should not be wrecked by 30 damage")
	}
	if s.HP != ShipMaxHP-30 {
		t.Errorf("expected HP %d, got %d", ShipMaxHP-30, s.HP)
	}
	if !s.TakeDamage(ShipMaxHP) {
		t.Error("expected wreck")
	}
	if s.HP != 0 {
		t.Errorf("HP should not go negative, got %d", s.HP)
	}
	if s.TakeDamage(10) {
		t.Error("a wrecked ship cannot be wrecked again")
	}
}

func TestShipCooldowns(t *testing.T) {
	s := NewShip()
	s.Fire, s.Bomb = true, true
	if !s.CanFire() || !s.CanBomb() {
		t.Fatal("fresh ship should be able to fire and bomb")
	}
	s.FireCD, s.BombCD = 2, 2
	if s.CanFire() || s.CanBomb() {
		t.Error("cooldowns should block")
	}
	s.Update(1)
	s.Update(1)
	if !s.CanFire() || !s.CanBomb() {
		t.Error("cooldowns should expire")
	}
}
