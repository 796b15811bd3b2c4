package sim

import "math/rand"

// Stats counts the work done by the last Step.
type Stats struct {
	Frame         uint64
	Reclaimed     int
	Updated       int
	Sleeping      int
	GridSize      int
	PairsTested   int
	PairsResolved int
	VehicleHits   int
	SpawnFailures int
}

// World owns one pool, its grid and the collaborators. It replaces what would
// otherwise be process-wide state, so independent worlds can coexist.
// A World is not safe for concurrent use.
type World struct {
	cfg   Config
	pool  *Pool
	grid  *Grid
	rng   *rand.Rand
	frame uint64
	clock float64 // ms, advanced by dt each step

	vehicle Vehicle
	hooks   Hooks
	fx      Presenter
	mode    Mode

	stats    Stats
	steady   []Vec2   // scratch: steady debris contact normals
	near     []Handle // scratch: objects around the vehicle
	shutdown bool
}

// Option configures a World at construction
type Option func(*World)

// WithVehicle sets the body resolved against by the collision pass
func WithVehicle(v Vehicle) Option {
	return func(w *World) { w.vehicle = v }
}

// WithHooks sets the per-kind gameplay callbacks
func WithHooks(h Hooks) Option {
	return func(w *World) {
		if h != nil {
			w.hooks = h
		}
	}
}

// WithPresenter sets the effect sink
func WithPresenter(p Presenter) Option {
	return func(w *World) {
		if p != nil {
			w.fx = p
		}
	}
}

// WithMode sets the overview flag source
func WithMode(m Mode) Option {
	return func(w *World) { w.mode = m }
}

// New creates a World with an empty pool
func New(cfg Config, opts ...Option) *World {
	cfg = cfg.normalize()
	w := &World{
		cfg:    cfg,
		pool:   NewPool(cfg.Capacity),
		grid:   NewGrid(cfg.CellSize, cfg.GridBuckets, cfg.Capacity),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		hooks:  NopHooks{},
		fx:     nopPresenter{},
		steady: make([]Vec2, 0, 8),
		near:   make([]Handle, 0, 32),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetVehicle replaces the vehicle; nil disables vehicle collision
func (w *World) SetVehicle(v Vehicle) {
	w.vehicle = v
}

// Config returns the normalized configuration
func (w *World) Config() Config {
	return w.cfg
}

// Grid exposes the broad-phase index built by the last Step
func (w *World) Grid() *Grid {
	return w.grid
}

// Frame returns the number of steps run
func (w *World) Frame() uint64 {
	return w.frame
}

// Now returns the world clock in milliseconds. It advances by
// dt*ReferenceFrameMs per Step, so it follows the frame-time scale.
func (w *World) Now() uint64 {
	return uint64(w.clock)
}

// Stats returns the counters of the last Step
func (w *World) Stats() Stats {
	return w.stats
}

// Get returns the allocated object at h, or nil
func (w *World) Get(h Handle) *Object {
	return w.pool.Get(h)
}

// CountActive returns the number of allocated objects
func (w *World) CountActive() int {
	return w.pool.CountActive()
}

// Capacity returns the pool size
func (w *World) Capacity() int {
	return w.pool.Capacity()
}

// Clear frees every object and empties the grid
func (w *World) Clear() {
	w.pool.Clear()
	w.grid.Clear()
}

// Shutdown runs Hooks.Teardown for every allocated object, then releases the
// pool. The World must not be used afterwards.
func (w *World) Shutdown() {
	if w.shutdown {
		return
	}
	for i := 0; i < w.pool.Capacity(); i++ {
		if o := w.pool.at(i); o.allocated {
			w.hooks.Teardown(Handle(i), o)
		}
	}
	w.Clear()
	w.shutdown = true
}

// DebrisSpec describes a debris spawn.
type DebrisSpec struct {
	Pos           Vec2
	Vel           Vec2
	Angle         float64
	RotationSpeed float64
	Radius        int
	HP            int
	CurrencyID    int
}

// ActorSpec describes an actor spawn.
type ActorSpec struct {
	Pos      Vec2
	Vel      Vec2
	Angle    float64
	Radius   int
	TypeCode int
}

// PieceSpec describes a piece spawn.
type PieceSpec struct {
	Pos          Vec2
	Direction    float64
	Radius       int
	AssembleMode bool
}

func (w *World) spawn(kind Kind, pos, vel Vec2, angle float64, radius int) (Handle, *Object) {
	h, ok := w.pool.Allocate(kind)
	if !ok {
		w.stats.SpawnFailures++
		return NoHandle, nil
	}
	if radius < 1 {
		radius = 1
	}
	if radius > w.cfg.MaxObjectRadius {
		radius = w.cfg.MaxObjectRadius
	}
	o := w.pool.at(int(h))
	o.spawnFrame = w.frame
	o.Phys = Physical{
		Pos:         pos,
		Vel:         vel,
		Angle:       angle,
		Radius:      radius,
		HalfExtents: Vec2{float64(radius), float64(radius)},
		Active:      true,
		Visible:     true,
		Collidable:  true,
	}
	return h, o
}

// SpawnDebris claims a slot for a debris object. Returns NoHandle when full.
func (w *World) SpawnDebris(s DebrisSpec) Handle {
	h, o := w.spawn(KindDebris, s.Pos, s.Vel, s.Angle, s.Radius)
	if o == nil {
		return h
	}
	hp := s.HP
	if hp <= 0 {
		hp = 1
	}
	o.Debris = Debris{RotationSpeed: s.RotationSpeed, HP: hp, CurrencyID: s.CurrencyID}
	return h
}

// SpawnActor claims a slot for an actor. Returns NoHandle when full.
func (w *World) SpawnActor(s ActorSpec) Handle {
	h, o := w.spawn(KindActor, s.Pos, s.Vel, s.Angle, s.Radius)
	if o == nil {
		return h
	}
	o.Actor = Actor{TypeCode: s.TypeCode}
	return h
}

// SpawnPiece claims a slot for a piece. Returns NoHandle when full.
func (w *World) SpawnPiece(s PieceSpec) Handle {
	h, o := w.spawn(KindPiece, s.Pos, Vec2{}, s.Direction, s.Radius)
	if o == nil {
		return h
	}
	o.Piece = Piece{Direction: s.Direction, AssembleMode: s.AssembleMode}
	return h
}

// MarkForDelete schedules h for removal at the start of the next Step.
// The object stays readable until then.
func (w *World) MarkForDelete(h Handle) {
	if o := w.pool.Get(h); o != nil {
		o.MarkForDelete = true
	}
}

// Wake clears the sleeping state of h
func (w *World) Wake(h Handle) {
	if o := w.pool.Get(h); o != nil {
		o.wake()
	}
}

// ApplyDamage hits h with amount and pushes it by impulse. Debris loses hit
// points and is destroyed at zero; currency debris only takes the impulse.
// Actors delegate to Hooks.DamageActor unless shielded. Pieces ignore damage.
func (w *World) ApplyDamage(h Handle, amount int, impulse Vec2) {
	o := w.pool.Get(h)
	if o == nil || o.MarkForDelete {
		return
	}
	switch o.Kind {
	case KindDebris:
		w.damageDebris(h, o, amount, impulse)
	case KindActor:
		if o.Actor.ShieldUntilMs > w.Now() {
			return
		}
		w.hooks.DamageActor(w, h, o, amount, impulse)
	case KindPiece:
	}
}

func (w *World) damageDebris(h Handle, o *Object, amount int, impulse Vec2) {
	d := &o.Debris
	o.Phys.Vel = o.Phys.Vel.Add(impulse)
	o.wake()
	if d.CurrencyID != 0 {
		return
	}
	d.Tint = w.cfg.TintDuration
	if amount <= 0 {
		return
	}
	d.HP -= amount
	if d.HP > 0 {
		w.fx.PlaySound(SoundImpact, w.rng.Intn(SoundVariants))
		return
	}
	d.HP = 0
	o.MarkForDelete = true
	w.hooks.DebrisDestroyed(w, h, o)
	w.fx.Explosion(o.Phys.Pos, float64(o.Phys.Radius))
	w.fx.PlaySound(SoundExplosion, w.rng.Intn(SoundVariants))
}
