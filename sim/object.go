package sim

// Kind is the closed set of simulated object variants
type Kind uint8

const (
	KindDebris Kind = iota
	KindActor
	KindPiece
)

func (k Kind) String() string {
	switch k {
	case KindDebris:
		return "debris"
	case KindActor:
		return "actor"
	case KindPiece:
		return "piece"
	default:
		return "unknown"
	}
}

// Handle is a stable pool index. It stays valid until the slot is reclaimed.
type Handle int32

// NoHandle is returned when no object matches or the pool is full.
const NoHandle Handle = -1

// Contact is the result of a collision check between two physical entities.
type Contact struct {
	Colliding bool
	Enter     bool // first frame of overlap
}

// Physical is the shared body state of every simulated object and of the vehicle.
type Physical struct {
	Pos         Vec2
	Vel         Vec2
	Angle       float64
	HalfExtents Vec2
	Radius      int

	Active     bool
	Visible    bool
	Collidable bool

	// frame stamp of the last overlap seen by CheckContact
	lastContact uint64
}

// Deactivate removes the entity from update, grid and collision work
func (p *Physical) Deactivate() {
	p.Active = false
	p.Collidable = false
	p.Visible = false
}

// Bounds returns the culling rectangle built from the half extents
func (p *Physical) Bounds() Rect {
	return Rect{
		MinX: p.Pos[0] - p.HalfExtents[0],
		MaxX: p.Pos[0] + p.HalfExtents[0],
		MinY: p.Pos[1] - p.HalfExtents[1],
		MaxY: p.Pos[1] + p.HalfExtents[1],
	}
}

// Overlaps is the plain circle-circle test
func (p *Physical) Overlaps(o *Physical) bool {
	rs := float64(p.Radius + o.Radius)
	return lenSq(o.Pos.Sub(p.Pos)) < rs*rs
}

// CheckContact tests p against other and updates p's remembered contact state.
// Enter is true only when p did not overlap anything on the previous frame.
func (p *Physical) CheckContact(other *Physical, frame uint64) Contact {
	if !p.Overlaps(other) {
		return Contact{}
	}
	enter := p.lastContact == 0 || p.lastContact+1 < frame
	if p.lastContact == frame {
		enter = false
	}
	p.lastContact = frame
	return Contact{Colliding: true, Enter: enter}
}

// Debris is a free-floating destructible rock, or a currency chunk when CurrencyID is set.
type Debris struct {
	RotationSpeed float64
	Tint          float64
	HP            int
	CurrencyID    int
	AliveFrames   int
	Grabbed       bool
}

// Actor is a non-player character driven by Hooks.UpdateActor.
type Actor struct {
	TypeCode      int
	ShieldUntilMs uint64
}

// Piece is a collectible part; in assemble mode it behaves as a solid body.
type Piece struct {
	Direction    float64
	Unlocked     bool
	AssembleMode bool
}

// Object is a single pool slot. Only the payload matching Kind is meaningful.
type Object struct {
	Kind Kind
	Phys Physical

	MarkForDelete  bool
	Sleeping       bool
	VehicleContact bool

	Debris Debris
	Actor  Actor
	Piece  Piece

	allocated  bool
	spawnFrame uint64
}

// Allocated reports whether the slot is in use
func (o *Object) Allocated() bool {
	return o.allocated
}

// live is the grid filter: allocated, active and not pending deletion
func (o *Object) live() bool {
	return o.allocated && o.Phys.Active && !o.MarkForDelete
}

// collidable is live plus the collidable flag
func (o *Object) collidable() bool {
	return o.live() && o.Phys.Collidable
}

// wake clears sleeping and restarts the awake-frame counter
func (o *Object) wake() {
	o.Sleeping = false
	o.Debris.AliveFrames = 0
}
