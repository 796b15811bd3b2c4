package sim

// Vehicle is the player-controlled body the collision pass resolves against.
type Vehicle interface {
	Position() Vec2
	SetPosition(Vec2)
	Velocity() Vec2
	SetVelocity(Vec2)
	// Entity exposes the vehicle body for contact tests. Callers only read it.
	Entity() *Physical
	// ApplyTemporaryPenalty reduces thrust effectiveness for durationMs.
	ApplyTemporaryPenalty(durationMs int)
}

// Hooks are the per-kind gameplay callbacks. The kind set is closed, so each
// call is named rather than registered.
type Hooks interface {
	UpdateActor(w *World, h Handle, o *Object, dt float64)
	UpdatePiece(w *World, h Handle, o *Object, dt float64)
	// CollectPiece runs on first contact between the vehicle and a piece
	// that is not in assemble mode.
	CollectPiece(w *World, h Handle, o *Object)
	DamageActor(w *World, h Handle, o *Object, amount int, impulse Vec2)
	DebrisDestroyed(w *World, h Handle, o *Object)
	// Teardown runs for every allocated object on Shutdown.
	Teardown(h Handle, o *Object)
}

// NopHooks implements Hooks with no behavior. Embed it to override a subset.
type NopHooks struct{}

func (NopHooks) UpdateActor(*World, Handle, *Object, float64)   {}
func (NopHooks) UpdatePiece(*World, Handle, *Object, float64)   {}
func (NopHooks) CollectPiece(*World, Handle, *Object)           {}
func (NopHooks) DamageActor(*World, Handle, *Object, int, Vec2) {}
func (NopHooks) DebrisDestroyed(*World, Handle, *Object)        {}
func (NopHooks) Teardown(Handle, *Object)                       {}

// Sound identifies a family of sound effects; the presenter picks the sample.
type Sound uint8

const (
	SoundExplosion Sound = iota
	SoundImpact
	SoundPickup
)

// SoundVariants is the number of randomized variants per Sound
const SoundVariants = 4

// Presenter receives fire-and-forget visual and audio effects.
type Presenter interface {
	Explosion(pos Vec2, radius float64)
	PlaySound(s Sound, variant int)
}

type nopPresenter struct{}

func (nopPresenter) Explosion(Vec2, float64) {}
func (nopPresenter) PlaySound(Sound, int)    {}

// Mode is polled once per step; Overview sheds grid and collision work.
type Mode interface {
	Overview() bool
}

// ModeFunc adapts a function to Mode
type ModeFunc func() bool

func (f ModeFunc) Overview() bool { return f() }
