package sim

import (
	"math"
	"testing"
)

func TestStepIntegratesDebris(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Pos: Vec2{10, 10}, Vel: Vec2{2, -1}, Radius: 5, RotationSpeed: 0.5})

	w.Step(2)
	o := w.Get(h)
	if !nearVec(o.Phys.Pos, Vec2{14, 8}) {
		t.Errorf("expected position (14,8), got %v", o.Phys.Pos)
	}
	if !near(o.Phys.Angle, 1) {
		t.Errorf("expected angle 1, got %v", o.Phys.Angle)
	}
}

func TestStepWrapsRotation(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Angle: 3, RotationSpeed: 1, Radius: 5})
	w.Step(1)
	a := w.Get(h).Phys.Angle
	if a < -math.Pi || a > math.Pi {
		t.Errorf("angle should wrap to [-pi, pi], got %v", a)
	}
	if !near(a, 4-2*math.Pi) {
		t.Errorf("expected %v, got %v", 4-2*math.Pi, a)
	}
}

func TestStepNonPositiveScaleDoesNotMove(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Pos: Vec2{5, 5}, Vel: Vec2{3, 3}, Radius: 5})
	w.Step(0)
	w.Step(-1)
	if !nearVec(w.Get(h).Phys.Pos, Vec2{5, 5}) {
		t.Errorf("zero or negative scale should not move objects, got %v", w.Get(h).Phys.Pos)
	}
}

func TestTintDecaysToZero(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Radius: 5, HP: 10})
	w.ApplyDamage(h, 1, Vec2{})
	w.Step(1)
	if got := w.Get(h).Debris.Tint; !near(got, TintDuration-TintDecay) {
		t.Errorf("expected tint %v, got %v", TintDuration-TintDecay, got)
	}
	for i := 0; i < 20; i++ {
		w.Step(1)
	}
	if got := w.Get(h).Debris.Tint; got != 0 {
		t.Errorf("tint should clamp at zero, got %v", got)
	}
}

func TestDebrisSleepsAfterCooldown(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Pos: Vec2{0, 0}, Vel: Vec2{0.01, 0}, Radius: 5})

	for i := 0; i < SleepCooldownFrames-1; i++ {
		w.Step(1)
		if w.Get(h).Sleeping {
			t.Fatalf("debris should stay awake before the cooldown, slept at step %d", i+1)
		}
	}
	w.Step(1)
	if !w.Get(h).Sleeping {
		t.Fatal("slow debris should sleep once the cooldown elapses")
	}

	pos := w.Get(h).Phys.Pos
	w.Step(1)
	if !nearVec(w.Get(h).Phys.Pos, pos) {
		t.Error("sleeping debris should not integrate")
	}
	if !w.Grid().Contains(h) {
		t.Error("sleeping debris should stay in the grid")
	}
}

func TestFastDebrisStaysAwake(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Vel: Vec2{1, 0}, Radius: 5})
	for i := 0; i < SleepCooldownFrames*2; i++ {
		w.Step(1)
	}
	if w.Get(h).Sleeping {
		t.Error("moving debris should not sleep")
	}
}

func TestCollisionWakesSleepingDebris(t *testing.T) {
	w := newTestWorld()
	sleeper := w.SpawnDebris(DebrisSpec{Pos: Vec2{0, 0}, Radius: 10})
	for i := 0; i < SleepCooldownFrames; i++ {
		w.Step(1)
	}
	if !w.Get(sleeper).Sleeping {
		t.Fatal("setup: debris should be asleep")
	}

	w.SpawnDebris(DebrisSpec{Pos: Vec2{15, 0}, Vel: Vec2{-1, 0}, Radius: 10})
	w.Step(1)
	if w.Get(sleeper).Sleeping {
		t.Error("collision should wake the sleeping debris")
	}
	if w.Get(sleeper).Debris.AliveFrames != 0 {
		t.Error("wake should restart the awake-frame counter")
	}
}

func TestCurrencyDebrisDampsAndSleeps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CurrencyDamping = 0.5
	w := New(cfg)
	h := w.SpawnDebris(DebrisSpec{Vel: Vec2{1, 0}, Radius: 4, CurrencyID: 7})

	w.Step(1)
	o := w.Get(h)
	if !nearVec(o.Phys.Pos, Vec2{1, 0}) {
		t.Errorf("expected position (1,0), got %v", o.Phys.Pos)
	}
	if !nearVec(o.Phys.Vel, Vec2{0.5, 0}) {
		t.Errorf("expected damped velocity (0.5,0), got %v", o.Phys.Vel)
	}

	for i := 0; i < 10 && !o.Sleeping; i++ {
		w.Step(1)
	}
	if !o.Sleeping {
		t.Error("currency debris should sleep once slow, without waiting for the cooldown")
	}
}

func TestGrabbedDebrisIsForcedAwake(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Pos: Vec2{3, 3}, Vel: Vec2{5, 5}, RotationSpeed: 2, Radius: 5})
	o := w.Get(h)
	o.Sleeping = true
	o.Debris.Grabbed = true

	w.Step(1)
	if o.Sleeping || o.Debris.RotationSpeed != 0 || o.Debris.AliveFrames != 0 {
		t.Error("grabbed debris should be awake with zero spin and a reset timer")
	}
	if !nearVec(o.Phys.Pos, Vec2{3, 3}) {
		t.Errorf("grabbed debris should not move on its own, got %v", o.Phys.Pos)
	}
}

func TestGridHoldsEveryActiveObject(t *testing.T) {
	w := newTestWorld()
	positions := []Vec2{{0, 0}, {100, 40}, {-75, 300}, {-1, -90}, {640, -480}, {31.9, 32}}
	handles := make([]Handle, 0, len(positions))
	for _, p := range positions {
		handles = append(handles, w.SpawnDebris(DebrisSpec{Pos: p, Radius: 4}))
	}
	inactive := w.SpawnDebris(DebrisSpec{Pos: Vec2{900, 900}, Radius: 4})
	w.Get(inactive).Phys.Deactivate()

	w.Step(1)

	if w.Grid().Len() != len(handles) {
		t.Errorf("expected %d grid entries, got %d", len(handles), w.Grid().Len())
	}
	for i, h := range handles {
		cx, cy, ok := w.Grid().CellOf(h)
		if !ok {
			t.Fatalf("object %d missing from grid", h)
		}
		wx := int(math.Floor(positions[i][0] / DefaultCellSize))
		wy := int(math.Floor(positions[i][1] / DefaultCellSize))
		if cx != wx || cy != wy {
			t.Errorf("object %d in cell (%d,%d), want (%d,%d)", h, cx, cy, wx, wy)
		}
	}
	if w.Grid().Contains(inactive) {
		t.Error("inactive object should not be in the grid")
	}

	seen := map[Handle]int{}
	w.Grid().EachInRect(Rect{MinX: -1e6, MaxX: 1e6, MinY: -1e6, MaxY: 1e6}, func(h Handle) bool {
		seen[h]++
		return false
	})
	for _, h := range handles {
		if seen[h] != 1 {
			t.Errorf("object %d seen %d times in chains, want 1", h, seen[h])
		}
	}
}

func TestOverviewModeSkipsGridAndCollision(t *testing.T) {
	overview := true
	w := newTestWorld(WithMode(ModeFunc(func() bool { return overview })))
	a := w.SpawnDebris(DebrisSpec{Pos: Vec2{0, 0}, Vel: Vec2{1, 0}, Radius: 10})
	b := w.SpawnDebris(DebrisSpec{Pos: Vec2{5, 0}, Radius: 10})

	w.Step(1)
	if w.Grid().Len() != 0 {
		t.Errorf("overview mode should not insert into the grid, got %d", w.Grid().Len())
	}
	if !nearVec(w.Get(a).Phys.Pos, Vec2{1, 0}) {
		t.Errorf("autonomous motion should still apply, got %v", w.Get(a).Phys.Pos)
	}
	if !nearVec(w.Get(b).Phys.Pos, Vec2{5, 0}) {
		t.Errorf("overlapping pair should not be resolved, got %v", w.Get(b).Phys.Pos)
	}
	if w.Stats().PairsTested != 0 {
		t.Error("no pairs should be tested in overview mode")
	}

	overview = false
	w.Step(1)
	if w.Grid().Len() != 2 || w.Stats().PairsResolved != 1 {
		t.Errorf("normal mode should rebuild and resolve, got grid %d resolved %d", w.Grid().Len(), w.Stats().PairsResolved)
	}
}

func TestVehicleContactFlagIsDoubleBuffered(t *testing.T) {
	hooks := &recordingHooks{}
	v := newMockVehicle(0, 0, 10)
	w := newTestWorld(WithHooks(hooks), WithVehicle(v))
	h := w.SpawnActor(ActorSpec{Pos: Vec2{15, 0}, Radius: 10})

	w.Step(1)
	if !w.Get(h).VehicleContact {
		t.Fatal("collision pass should set the contact flag")
	}
	w.Step(1)
	// the vehicle was pushed clear on the first step
	if w.Get(h).VehicleContact {
		t.Error("flag should be clear once the vehicle no longer touches")
	}
	w.Step(1)

	want := []bool{false, true, false}
	if len(hooks.actorContacts) != len(want) {
		t.Fatalf("expected %d actor updates, got %d", len(want), len(hooks.actorContacts))
	}
	for i := range want {
		if hooks.actorContacts[i] != want[i] {
			t.Errorf("step %d: actor hook saw contact %v, want %v", i+1, hooks.actorContacts[i], want[i])
		}
	}
}

func TestSpawnDuringStepWaitsForNextStep(t *testing.T) {
	var spawned Handle = NoHandle
	hooks := &recordingHooks{}
	hooks.onActor = func(w *World, h Handle, o *Object) {
		if spawned == NoHandle {
			spawned = w.SpawnDebris(DebrisSpec{Pos: Vec2{500, 500}, Vel: Vec2{1, 0}, Radius: 4})
		}
	}
	w := newTestWorld(WithHooks(hooks))
	w.SpawnActor(ActorSpec{Radius: 4})

	w.Step(1)
	if spawned == NoHandle {
		t.Fatal("hook should have spawned")
	}
	if w.Grid().Contains(spawned) {
		t.Error("object spawned mid-step should not be in this step's grid")
	}
	if !nearVec(w.Get(spawned).Phys.Pos, Vec2{500, 500}) {
		t.Error("object spawned mid-step should not be integrated yet")
	}

	w.Step(1)
	if !w.Grid().Contains(spawned) {
		t.Error("object should join the grid on the next step")
	}
}

func TestClockFollowsFrameScale(t *testing.T) {
	w := newTestWorld()
	for i := 0; i < 10; i++ {
		w.Step(2)
	}
	// 20 reference frames of 1000/60 ms
	if w.Now() != 333 {
		t.Errorf("expected clock 333 ms after 10 steps of dt=2, got %d", w.Now())
	}

	before := w.Now()
	w.Step(0)
	if w.Now() != before {
		t.Errorf("a zero scale should not advance the clock, got %d -> %d", before, w.Now())
	}
}

func TestActorShieldExpiresOnScaledClock(t *testing.T) {
	hooks := &recordingHooks{}
	w := newTestWorld(WithHooks(hooks))
	h := w.SpawnActor(ActorSpec{Radius: 5})
	w.Get(h).Actor.ShieldUntilMs = 90

	w.Step(2)
	w.ApplyDamage(h, 1, Vec2{})
	if hooks.actorDamage != 0 {
		t.Fatalf("shield should still hold at %d ms", w.Now())
	}
	w.Step(2)
	w.Step(2)
	w.ApplyDamage(h, 1, Vec2{})
	if hooks.actorDamage != 1 {
		t.Errorf("shield should have expired at %d ms, damage %d", w.Now(), hooks.actorDamage)
	}
}
