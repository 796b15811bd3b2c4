package sim

import (
	"math"
	"testing"
)

// mockVehicle is a plain body that records penalties
type mockVehicle struct {
	body      Physical
	penalties []int
}

func newMockVehicle(x, y float64, radius int) *mockVehicle {
	return &mockVehicle{body: Physical{
		Pos:        Vec2{x, y},
		Radius:     radius,
		Active:     true,
		Visible:    true,
		Collidable: true,
	}}
}

func (m *mockVehicle) Position() Vec2              { return m.body.Pos }
func (m *mockVehicle) SetPosition(p Vec2)          { m.body.Pos = p }
func (m *mockVehicle) Velocity() Vec2              { return m.body.Vel }
func (m *mockVehicle) SetVelocity(v Vec2)          { m.body.Vel = v }
func (m *mockVehicle) Entity() *Physical           { return &m.body }
func (m *mockVehicle) ApplyTemporaryPenalty(d int) { m.penalties = append(m.penalties, d) }

// recordingHooks captures hook calls
type recordingHooks struct {
	NopHooks
	actorContacts []bool
	collected     []Handle
	destroyed     []Handle
	teardown      []Handle
	actorDamage   int
	onActor       func(w *World, h Handle, o *Object)
}

func (r *recordingHooks) UpdateActor(w *World, h Handle, o *Object, dt float64) {
	r.actorContacts = append(r.actorContacts, o.VehicleContact)
	if r.onActor != nil {
		r.onActor(w, h, o)
	}
}

func (r *recordingHooks) CollectPiece(w *World, h Handle, o *Object) {
	r.collected = append(r.collected, h)
}

func (r *recordingHooks) DamageActor(w *World, h Handle, o *Object, amount int, impulse Vec2) {
	r.actorDamage += amount
}

func (r *recordingHooks) DebrisDestroyed(w *World, h Handle, o *Object) {
	r.destroyed = append(r.destroyed, h)
}

func (r *recordingHooks) Teardown(h Handle, o *Object) {
	r.teardown = append(r.teardown, h)
}

type recordingPresenter struct {
	explosions int
	sounds     []Sound
}

func (p *recordingPresenter) Explosion(Vec2, float64) { p.explosions++ }
func (p *recordingPresenter) PlaySound(s Sound, variant int) {
	p.sounds = append(p.sounds, s)
}

func newTestWorld(opts ...Option) *World {
	return New(DefaultConfig(), opts...)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func nearVec(a, b Vec2) bool {
	return near(a[0], b[0]) && near(a[1], b[1])
}

func TestPoolCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 4
	w := New(cfg)

	for i := 0; i < 4; i++ {
		if h := w.SpawnDebris(DebrisSpec{Pos: Vec2{float64(i) * 100, 0}, Radius: 5}); h == NoHandle {
			t.Fatalf("spawn %d should succeed", i)
		}
	}
	if h := w.SpawnDebris(DebrisSpec{Radius: 5}); h != NoHandle {
		t.Errorf("spawn beyond capacity should return NoHandle, got %d", h)
	}
	if w.CountActive() != 4 {
		t.Errorf("expected 4 active, got %d", w.CountActive())
	}
	if w.Stats().SpawnFailures != 1 {
		t.Errorf("expected 1 spawn failure, got %d", w.Stats().SpawnFailures)
	}
}

func TestPoolGetOutOfRange(t *testing.T) {
	p := NewPool(2)
	if p.Get(-1) != nil || p.Get(2) != nil {
		t.Error("out of range handles should return nil")
	}
	if p.Get(0) != nil {
		t.Error("free slot should return nil")
	}
	h, ok := p.Allocate(KindPiece)
	if !ok || p.Get(h) == nil || p.Get(h).Kind != KindPiece {
		t.Error("allocated slot should be readable with its kind")
	}
	p.Clear()
	if p.CountActive() != 0 || p.Capacity() != 2 {
		t.Errorf("clear should keep capacity and drop objects, got %d/%d", p.CountActive(), p.Capacity())
	}
}

func TestDeferredDeletion(t *testing.T) {
	w := newTestWorld()
	h0 := w.SpawnDebris(DebrisSpec{Pos: Vec2{0, 0}, Radius: 5})
	w.SpawnDebris(DebrisSpec{Pos: Vec2{200, 0}, Radius: 5})

	w.MarkForDelete(h0)
	if w.Get(h0) == nil {
		t.Fatal("marked object should stay readable until the next step")
	}
	if w.CountActive() != 2 {
		t.Errorf("expected 2 active before step, got %d", w.CountActive())
	}

	w.Step(1)
	if w.CountActive() != 1 {
		t.Errorf("expected 1 active after step, got %d", w.CountActive())
	}
	if w.Get(h0) != nil {
		t.Error("marked object should be reclaimed by the step")
	}
	if w.Grid().Contains(h0) {
		t.Error("reclaimed object should not be in the grid")
	}
	if w.Stats().Reclaimed != 1 {
		t.Errorf("expected 1 reclaimed, got %d", w.Stats().Reclaimed)
	}

	if h := w.SpawnDebris(DebrisSpec{Radius: 5}); h != h0 {
		t.Errorf("freed slot should be reused, got %d want %d", h, h0)
	}
}

func TestShutdownRunsTeardown(t *testing.T) {
	hooks := &recordingHooks{}
	w := newTestWorld(WithHooks(hooks))
	w.SpawnDebris(DebrisSpec{Radius: 5})
	w.SpawnActor(ActorSpec{Pos: Vec2{100, 0}, Radius: 5})
	w.SpawnPiece(PieceSpec{Pos: Vec2{200, 0}, Radius: 5})

	w.Shutdown()
	if len(hooks.teardown) != 3 {
		t.Errorf("expected 3 teardown calls, got %d", len(hooks.teardown))
	}
	if w.CountActive() != 0 {
		t.Errorf("expected empty pool after shutdown, got %d", w.CountActive())
	}

	w.Step(1)
	if w.Frame() != 0 {
		t.Error("step after shutdown should do nothing")
	}
}

func TestSpawnClampsRadius(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Radius: 1000})
	if r := w.Get(h).Phys.Radius; r != MaxObjectRadius {
		t.Errorf("expected radius clamped to %d, got %d", MaxObjectRadius, r)
	}
	h = w.SpawnPiece(PieceSpec{})
	if r := w.Get(h).Phys.Radius; r != 1 {
		t.Errorf("expected minimum radius 1, got %d", r)
	}
}

func TestApplyDamageDestroysDebris(t *testing.T) {
	hooks := &recordingHooks{}
	fx := &recordingPresenter{}
	w := newTestWorld(WithHooks(hooks), WithPresenter(fx))
	h := w.SpawnDebris(DebrisSpec{Radius: 8, HP: 10})

	w.ApplyDamage(h, 4, Vec2{1, 0})
	o := w.Get(h)
	if o.Debris.HP != 6 {
		t.Errorf("expected HP 6, got %d", o.Debris.HP)
	}
	if o.Debris.Tint != TintDuration {
		t.Errorf("expected tint refreshed to %v, got %v", TintDuration, o.Debris.Tint)
	}
	if !nearVec(o.Phys.Vel, Vec2{1, 0}) {
		t.Errorf("expected impulse added to velocity, got %v", o.Phys.Vel)
	}

	w.ApplyDamage(h, 6, Vec2{})
	if !o.MarkForDelete {
		t.Error("debris at zero HP should be marked for delete")
	}
	if len(hooks.destroyed) != 1 || fx.explosions != 1 {
		t.Errorf("expected one destroy hook and one explosion, got %d/%d", len(hooks.destroyed), fx.explosions)
	}

	w.ApplyDamage(h, 6, Vec2{})
	if len(hooks.destroyed) != 1 {
		t.Error("marked debris should not be destroyed twice")
	}
}

func TestApplyDamageCurrencyTakesImpulseOnly(t *testing.T) {
	w := newTestWorld()
	h := w.SpawnDebris(DebrisSpec{Radius: 4, HP: 1, CurrencyID: 3})
	w.ApplyDamage(h, 50, Vec2{0, 2})
	o := w.Get(h)
	if o.MarkForDelete || o.Debris.HP != 1 {
		t.Error("currency debris should not lose hit points")
	}
	if !nearVec(o.Phys.Vel, Vec2{0, 2}) {
		t.Errorf("currency debris should take the impulse, got %v", o.Phys.Vel)
	}
}

func TestApplyDamageActorShield(t *testing.T) {
	hooks := &recordingHooks{}
	w := newTestWorld(WithHooks(hooks))
	h := w.SpawnActor(ActorSpec{Radius: 8})
	w.Get(h).Actor.ShieldUntilMs = 1000

	w.ApplyDamage(h, 5, Vec2{})
	if hooks.actorDamage != 0 {
		t.Error("shielded actor should ignore damage")
	}
	w.Get(h).Actor.ShieldUntilMs = 0
	w.ApplyDamage(h, 5, Vec2{})
	if hooks.actorDamage != 5 {
		t.Errorf("expected actor damage delegated, got %d", hooks.actorDamage)
	}
}
