package main

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"debrisfield/sim"
)

const (
	TickRate       = 60 // physics ticks per second
	BroadcastRate  = 30 // state broadcasts per second
	BroadcastEvery = TickRate / BroadcastRate
)

const (
	ViewWidth  = 1280.0
	ViewHeight = 800.0

	maxProjectiles = 200

	BeamRange    = 420.0
	BeamDamage   = 1
	BeamInterval = 6 // ticks between beam damage
	BeamImpulse  = 0.6

	BombRadius   = 160.0
	BombDamage   = 3
	BombImpulse  = 5.0
	BombCooldown = 120.0 // frames

	AimCone   = 0.25 // radians either side of the nose
	AimAssist = 0.5

	ActorHP       = 6
	ActorSpeed    = 1.2
	ActorRadius   = 18
	ActorShieldMs = 500
	ActorScore    = 10

	PieceRadius = 10
	PieceDrift  = 0.4
	PieceScore  = 5

	DebrisMinRadius   = 6
	DebrisMaxRadius   = 26
	DebrisSplitRadius = 14
	DebrisSpeed       = 0.8
	CurrencyChance    = 0.25
	CurrencyValue     = 5

	ShipHitDamage = 5
	WreckPenalty  = 25

	spawnWarnEvery = time.Second
)

// Broadcaster is a connected client as seen by the arena
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// ArenaConfig sizes the arena population
type ArenaConfig struct {
	Sim      sim.Config
	Debris   int // debris field target count
	Actors   int
	Pieces   int
	TickRate int
}

// DefaultArenaConfig returns the stock arena
func DefaultArenaConfig() ArenaConfig {
	cfg := sim.DefaultConfig()
	// largest body in the field; the grid sizes its cells from it
	cfg.MaxObjectRadius = max(DebrisMaxRadius, ActorRadius, PieceRadius)
	return ArenaConfig{
		Sim:      cfg,
		Debris:   120,
		Actors:   8,
		Pieces:   12,
		TickRate: TickRate,
	}
}

// Arena runs one simulated debris field around a single piloted ship
type Arena struct {
	mu    sync.Mutex
	cfg   ArenaConfig
	world *sim.World
	ship  *Ship
	rng   *rand.Rand
	rec   *Recorder
	dt    float64 // frame-time scale of one tick

	projectiles map[string]*Projectile
	clients     map[Broadcaster]bool
	pilot       Broadcaster
	pilotID     int64
	pilotName   string
	overview    bool

	actorHP map[sim.Handle]int
	target  sim.Handle
	beams   []BeamState
	effects []EffectState

	impacts       int
	tick          uint64
	lastSpawnWarn time.Time
	spawnFailures int

	running bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewArena creates an arena and seeds its population
func NewArena(cfg ArenaConfig, rec *Recorder) *Arena {
	if cfg.TickRate <= 0 {
		cfg.TickRate = TickRate
	}
	a := &Arena{
		cfg:         cfg,
		ship:        NewShip(),
		rng:         rand.New(rand.NewSource(cfg.Sim.Seed)),
		rec:         rec,
		dt:          1000 / float64(cfg.TickRate) / sim.ReferenceFrameMs,
		projectiles: make(map[string]*Projectile),
		clients:     make(map[Broadcaster]bool),
		actorHP:     make(map[sim.Handle]int),
		target:      sim.NoHandle,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	a.world = sim.New(cfg.Sim,
		sim.WithVehicle(a.ship),
		sim.WithHooks(a),
		sim.WithPresenter(a),
		sim.WithMode(sim.ModeFunc(func() bool { return a.overview })),
	)
	for i := 0; i < cfg.Actors; i++ {
		a.spawnActor()
	}
	for i := 0; i < cfg.Pieces; i++ {
		a.spawnPiece(i%3 == 0)
	}
	a.maintainField()
	return a
}

// Run starts the tick loop
func (a *Arena) Run() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()
	defer close(a.done)

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.update()
		case <-a.stop:
			return
		}
	}
}

// Stop terminates the tick loop. The world stays readable until Shutdown.
func (a *Arena) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.stop)
	running := a.running
	a.mu.Unlock()
	if running {
		<-a.done
	}
}

// Shutdown tears the world down, running per-object teardown
func (a *Arena) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rec != nil {
		a.rec.SetFrame(a.world.Frame())
	}
	a.world.Shutdown()
}

// AddClient registers a spectator
func (a *Arena) AddClient(c Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients[c] = true
}

// RemoveClient drops a client and releases the ship if it was flying it
func (a *Arena) RemoveClient(c Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.clients, c)
	if a.pilot == c {
		a.releaseLocked()
	}
}

// ClientCount returns the number of attached clients
func (a *Arena) ClientCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// ClaimShip makes c the pilot. Fails while another client flies.
func (a *Arena) ClaimShip(c Broadcaster, pilotID int64, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pilotID <= 0 {
		return false
	}
	if a.pilot != nil && a.pilot != c {
		return false
	}
	a.pilot, a.pilotID, a.pilotName = c, pilotID, name
	return true
}

// ReleaseShip gives the ship back if c is flying it
func (a *Arena) ReleaseShip(c Broadcaster) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pilot != c {
		return false
	}
	a.releaseLocked()
	return true
}

func (a *Arena) releaseLocked() {
	a.pilot, a.pilotID, a.pilotName = nil, 0, ""
	a.ship.Turn, a.ship.Thrust = 0, false
	a.ship.Fire, a.ship.Beam, a.ship.Bomb = false, false, false
}

// IsPilot reports whether c flies the ship
func (a *Arena) IsPilot(c Broadcaster) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return c != nil && a.pilot == c
}

// HandleInput applies pilot controls; input from anyone else is ignored
func (a *Arena) HandleInput(c Broadcaster, in ClientInput) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c == nil || a.pilot != c {
		return false
	}
	a.ship.Turn = sim.Clamp(in.Turn, -1, 1)
	a.ship.Thrust = in.Thrust
	a.ship.Fire = in.Fire
	a.ship.Beam = in.Beam
	a.ship.Bomb = in.Bomb
	return true
}

// SetOverview toggles overview mode, which suspends collision work
func (a *Arena) SetOverview(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overview = on
}

// Status returns the status endpoint payload
func (a *Arena) Status() StatusMsg {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := StatusMsg{
		Tick:     a.tick,
		Active:   a.world.CountActive(),
		Capacity: a.world.Capacity(),
		Clients:  len(a.clients),
		Pilot:    a.pilotName,
		Overview: a.overview,
		Stats:    a.world.Stats(),
	}
	if a.rec != nil {
		s.RunID = a.rec.RunID()
		s.Summary = a.rec.Summary()
	}
	return s
}

// Checkpoint serializes the world under the arena lock
func (a *Arena) Checkpoint() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.world.Checkpoint()
}

// Restore replaces the world with a checkpoint taken by Checkpoint
func (a *Arena) Restore(b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.world.Restore(b); err != nil {
		return err
	}
	a.projectiles = make(map[string]*Projectile)
	a.actorHP = make(map[sim.Handle]int)
	for h := sim.Handle(0); int(h) < a.world.Capacity(); h++ {
		if o := a.world.Get(h); o != nil && o.Kind == sim.KindActor {
			a.actorHP[h] = ActorHP
		}
	}
	a.target = sim.NoHandle
	return nil
}

// update runs one tick
func (a *Arena) update() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.step()
	if a.tick%BroadcastEvery == 0 {
		a.broadcastState()
	}
}

// step advances the arena one tick without broadcasting. Caller holds mu.
func (a *Arena) step() {
	dt := a.dt
	a.tick++

	a.ship.Update(dt)
	a.fireWeapons()

	a.world.Step(dt)

	a.updateProjectiles(dt)
	a.collectCurrency()
	a.checkImpacts()
	a.maintainField()
	a.target = a.world.NearestInRect(a.ship.Position(), a.view())

	if a.rec != nil {
		a.rec.SetFrame(a.world.Frame())
	}
}

func (a *Arena) view() sim.Rect {
	p := a.ship.Position()
	return sim.Rect{
		MinX: p[0] - ViewWidth/2,
		MaxX: p[0] + ViewWidth/2,
		MinY: p[1] - ViewHeight/2,
		MaxY: p[1] + ViewHeight/2,
	}
}

// fireWeapons runs the pilot's weapons against the grid of the last step
func (a *Arena) fireWeapons() {
	s := a.ship
	pos := s.Position()

	if s.CanFire() && len(a.projectiles) < maxProjectiles {
		rot := s.Rotation
		if h := a.world.NearestInCone(pos, rot, a.view(), AimCone); h != sim.NoHandle {
			d := a.world.Get(h).Phys.Pos.Sub(pos)
			rot = LerpAngle(rot, math.Atan2(d[1], d[0]), AimAssist)
		}
		p := NewProjectile(s, rot)
		a.projectiles[p.ID] = p
		s.FireCD = FireCooldown
	}

	if s.Beam {
		dir := s.Facing()
		end := pos.Add(dir.Mul(BeamRange))
		beam := BeamState{X1: round1(pos[0]), Y1: round1(pos[1])}
		if hit, ok := a.world.SegmentIntersect(pos, end); ok {
			end = hit.Point
			beam.Hit = true
			if a.tick%BeamInterval == 0 {
				a.world.ApplyDamage(hit.Handle, BeamDamage, dir.Mul(BeamImpulse))
			}
		}
		beam.X2, beam.Y2 = round1(end[0]), round1(end[1])
		a.beams = append(a.beams, beam)
	}

	if s.CanBomb() {
		a.world.ApplyRadiusDamage(pos, BombRadius, BombDamage, sim.Vec2{BombImpulse, 0})
		a.Explosion(pos, BombRadius)
		s.BombCD = BombCooldown
	}
}

// updateProjectiles moves shots and tests them against the fresh grid
func (a *Arena) updateProjectiles(dt float64) {
	for id, p := range a.projectiles {
		p.Update(dt)
		if p.Alive {
			if _, hit := a.world.PointCollision(p.Body()); hit {
				p.Alive = false
			}
		}
		if !p.Alive {
			delete(a.projectiles, id)
		}
	}
}

// collectCurrency picks up currency debris the ship touched this step
func (a *Arena) collectCurrency() {
	reach := sim.RectAround(a.ship.Position(), float64(ShipRadius+a.world.Config().MaxObjectRadius))
	a.world.RenderIterate(reach, func(h sim.Handle, o *sim.Object) bool {
		if o.Kind != sim.KindDebris || o.Debris.CurrencyID == 0 || !o.VehicleContact {
			return false
		}
		a.ship.Credits += CurrencyValue * o.Debris.CurrencyID
		a.world.MarkForDelete(h)
		a.track(EvtCredit, o)
		return false
	})
}

// checkImpacts turns new vehicle penalties into hull damage
func (a *Arena) checkImpacts() {
	if a.ship.Impacts == a.impacts {
		return
	}
	a.impacts = a.ship.Impacts
	if a.rec != nil {
		a.rec.Track(EvtVehicleHit, a.world.Frame(), "ship", a.ship.Position(), a.pilotID)
	}
	if !a.ship.TakeDamage(ShipHitDamage) {
		return
	}
	a.Explosion(a.ship.Position(), ShipRadius*3)
	a.ship.Score = max(0, a.ship.Score-WreckPenalty)
	a.ship.Reset()
	if a.pilot != nil {
		a.pilot.SendJSON(Envelope{T: MsgWrecked})
	}
}

// maintainField tops the debris field back up and drops strays
func (a *Arena) maintainField() {
	debris := 0
	for h := sim.Handle(0); int(h) < a.world.Capacity(); h++ {
		o := a.world.Get(h)
		if o == nil || o.MarkForDelete || o.Kind != sim.KindDebris {
			continue
		}
		p := o.Phys.Pos
		if p[0] < 0 || p[0] > ArenaWidth || p[1] < 0 || p[1] > ArenaHeight {
			a.world.MarkForDelete(h)
			continue
		}
		debris++
	}
	for ; debris < a.cfg.Debris; debris++ {
		if a.spawnDebris(a.randomEdgeFree(), a.randRadius(), false) == sim.NoHandle {
			break
		}
	}
}

// randomEdgeFree picks a spawn point away from the ship
func (a *Arena) randomEdgeFree() sim.Vec2 {
	for {
		p := sim.Vec2{a.rng.Float64() * ArenaWidth, a.rng.Float64() * ArenaHeight}
		if p.Sub(a.ship.Position()).Len() > ViewHeight/2 {
			return p
		}
	}
}

func (a *Arena) randRadius() int {
	return DebrisMinRadius + a.rng.Intn(DebrisMaxRadius-DebrisMinRadius+1)
}

func (a *Arena) spawnDebris(pos sim.Vec2, radius int, currency bool) sim.Handle {
	spec := sim.DebrisSpec{
		Pos:           pos,
		Vel:           facing(a.rng.Float64() * 2 * math.Pi).Mul(a.rng.Float64() * DebrisSpeed),
		Angle:         a.rng.Float64() * 2 * math.Pi,
		RotationSpeed: (a.rng.Float64() - 0.5) * 0.1,
		Radius:        radius,
		HP:            1 + radius/8,
	}
	if currency {
		spec.CurrencyID = 1 + a.rng.Intn(3)
	}
	h := a.world.SpawnDebris(spec)
	if h == sim.NoHandle {
		a.warnSpawnFailure()
	}
	return h
}

func (a *Arena) spawnActor() sim.Handle {
	h := a.world.SpawnActor(sim.ActorSpec{
		Pos:      a.randomEdgeFree(),
		Angle:    a.rng.Float64() * 2 * math.Pi,
		Radius:   ActorRadius,
		TypeCode: a.rng.Intn(3),
	})
	if h == sim.NoHandle {
		a.warnSpawnFailure()
		return h
	}
	a.actorHP[h] = ActorHP
	return h
}

func (a *Arena) spawnPiece(assemble bool) sim.Handle {
	h := a.world.SpawnPiece(sim.PieceSpec{
		Pos:          a.randomEdgeFree(),
		Direction:    a.rng.Float64() * 2 * math.Pi,
		Radius:       PieceRadius,
		AssembleMode: assemble,
	})
	if h == sim.NoHandle {
		a.warnSpawnFailure()
	}
	return h
}

// warnSpawnFailure logs pool exhaustion at most once per interval
func (a *Arena) warnSpawnFailure() {
	a.spawnFailures++
	if time.Since(a.lastSpawnWarn) < spawnWarnEvery {
		return
	}
	a.lastSpawnWarn = time.Now()
	log.Printf("arena: pool full (%d/%d), %d spawns failed", a.world.CountActive(), a.world.Capacity(), a.spawnFailures)
	a.spawnFailures = 0
}

func (a *Arena) track(evtType string, o *sim.Object) {
	if a.rec == nil {
		return
	}
	a.rec.Track(evtType, a.world.Frame(), o.Kind.String(), o.Phys.Pos, a.pilotID)
}

// UpdateActor steers actors on a random walk and turns them away from the
// ship after a touch.
func (a *Arena) UpdateActor(w *sim.World, h sim.Handle, o *sim.Object, dt float64) {
	if o.VehicleContact {
		d := o.Phys.Pos.Sub(a.ship.Position())
		o.Phys.Angle = math.Atan2(d[1], d[0])
	} else {
		o.Phys.Angle += (a.rng.Float64() - 0.5) * 0.2 * dt
	}
	o.Phys.Angle = sim.NormalizeAngle(o.Phys.Angle)
	o.Phys.Vel = facing(o.Phys.Angle).Mul(ActorSpeed)
	o.Phys.Pos = o.Phys.Pos.Add(o.Phys.Vel.Mul(dt))
	if bounceInside(&o.Phys) {
		o.Phys.Angle = sim.NormalizeAngle(o.Phys.Angle + math.Pi)
	}
}

// UpdatePiece drifts loose pieces; assemble-mode pieces only coast
func (a *Arena) UpdatePiece(w *sim.World, h sim.Handle, o *sim.Object, dt float64) {
	if !o.Piece.AssembleMode {
		o.Phys.Vel = facing(o.Piece.Direction).Mul(PieceDrift)
	} else {
		o.Phys.Vel = o.Phys.Vel.Mul(math.Pow(0.95, dt))
	}
	o.Phys.Pos = o.Phys.Pos.Add(o.Phys.Vel.Mul(dt))
	if bounceInside(&o.Phys) {
		o.Piece.Direction = sim.NormalizeAngle(o.Piece.Direction + math.Pi)
	}
}

// CollectPiece scores a loose piece and replaces it elsewhere
func (a *Arena) CollectPiece(w *sim.World, h sim.Handle, o *sim.Object) {
	a.ship.Score += PieceScore
	o.Piece.Unlocked = true
	w.MarkForDelete(h)
	a.track(EvtCollected, o)
	a.spawnPiece(false)
}

// DamageActor removes hit points and shields the actor briefly
func (a *Arena) DamageActor(w *sim.World, h sim.Handle, o *sim.Object, amount int, impulse sim.Vec2) {
	o.Phys.Pos = o.Phys.Pos.Add(impulse)
	hp := a.actorHP[h] - amount
	if hp > 0 {
		a.actorHP[h] = hp
		o.Actor.ShieldUntilMs = w.Now() + ActorShieldMs
		a.PlaySound(sim.SoundImpact, a.rng.Intn(sim.SoundVariants))
		return
	}
	delete(a.actorHP, h)
	w.MarkForDelete(h)
	a.ship.Score += ActorScore
	a.Explosion(o.Phys.Pos, float64(o.Phys.Radius)*2)
	a.PlaySound(sim.SoundExplosion, a.rng.Intn(sim.SoundVariants))
	a.track(EvtActorDown, o)
	a.spawnActor()
}

// DebrisDestroyed scores the kill and breaks large debris into fragments,
// sometimes dropping currency.
func (a *Arena) DebrisDestroyed(w *sim.World, h sim.Handle, o *sim.Object) {
	a.ship.Score++
	a.track(EvtDestroyed, o)

	r := o.Phys.Radius
	if r >= DebrisSplitRadius {
		for i := 0; i < 2; i++ {
			off := facing(a.rng.Float64() * 2 * math.Pi).Mul(float64(r) / 2)
			a.spawnDebris(o.Phys.Pos.Add(off), r/2, false)
		}
	}
	if a.rng.Float64() < CurrencyChance {
		a.spawnDebris(o.Phys.Pos, DebrisMinRadius, true)
	}
}

// Teardown forgets per-object arena state
func (a *Arena) Teardown(h sim.Handle, o *sim.Object) {
	delete(a.actorHP, h)
}

// Explosion queues a visual effect for the next frame
func (a *Arena) Explosion(pos sim.Vec2, radius float64) {
	a.effects = append(a.effects, EffectState{
		K:      EffectExplosion,
		X:      round1(pos[0]),
		Y:      round1(pos[1]),
		Radius: round1(radius),
	})
}

// PlaySound queues a sound cue for the next frame
func (a *Arena) PlaySound(s sim.Sound, variant int) {
	a.effects = append(a.effects, EffectState{K: EffectSound, Sound: uint8(s), Variant: variant})
}

// bounceInside clamps a body to the arena and reports whether it hit a wall
func bounceInside(p *sim.Physical) bool {
	hit := false
	r := float64(p.Radius)
	for axis, limit := range [2]float64{ArenaWidth, ArenaHeight} {
		if p.Pos[axis] < r {
			p.Pos[axis] = r
			p.Vel[axis] = math.Abs(p.Vel[axis])
			hit = true
		} else if p.Pos[axis] > limit-r {
			p.Pos[axis] = limit - r
			p.Vel[axis] = -math.Abs(p.Vel[axis])
			hit = true
		}
	}
	return hit
}

// frame builds the broadcast frame. Caller holds mu.
func (a *Arena) frame() Frame {
	var objects []sim.ObjectState
	if a.overview {
		objects = a.mapObjects()
	} else {
		objects = a.world.Snapshot(a.view()).Objects
	}
	f := Frame{
		Tick:        a.tick,
		Overview:    a.overview,
		Pilot:       a.pilotName,
		Ship:        a.ship.ToState(),
		Target:      int32(a.target),
		Objects:     objects,
		Projectiles: make([]ProjectileState, 0, len(a.projectiles)),
		Beams:       a.beams,
		Effects:     a.effects,
	}
	for _, p := range a.projectiles {
		f.Projectiles = append(f.Projectiles, p.ToState())
	}
	return f
}

// mapObjects lists every live object coarsely for the overview map. The grid
// is not built in overview mode, so this walks the pool.
func (a *Arena) mapObjects() []sim.ObjectState {
	out := make([]sim.ObjectState, 0, a.world.CountActive())
	for h := sim.Handle(0); int(h) < a.world.Capacity(); h++ {
		o := a.world.Get(h)
		if o == nil || o.MarkForDelete || !o.Phys.Visible {
			continue
		}
		out = append(out, sim.ObjectState{
			ID:     int32(h),
			Kind:   o.Kind,
			X:      math.Round(o.Phys.Pos[0]),
			Y:      math.Round(o.Phys.Pos[1]),
			Radius: o.Phys.Radius,
		})
	}
	return out
}

// broadcastState sends the current frame to all clients
func (a *Arena) broadcastState() {
	data, err := msgpack.Marshal(a.frame())
	a.beams = a.beams[:0]
	a.effects = a.effects[:0]
	if err != nil {
		log.Printf("arena: encode frame: %v", err)
		return
	}
	for c := range a.clients {
		c.SendBinary(data)
	}
}
