package sim

import "math/bits"

const (
	DefaultCapacity    = 256
	DefaultCellSize    = 64.0 // largest object diameter
	DefaultGridBuckets = 512  // power of two

	// SleepCooldownFrames is how many awake frames debris must accumulate
	// before near-zero velocity puts it to sleep.
	SleepCooldownFrames = 30
	SleepVelocityEps    = 0.0025 // squared speed, units/frame

	CurrencyDamping = 0.96 // per reference frame
	TintDuration    = 1.0  // tint timer value set on hit
	TintDecay       = 0.1  // per reference frame

	SolidPushMargin    = 0.5
	VehicleBounce      = 2.0
	ObjectPushImpulse  = 1.5
	DebrisPenaltyMs    = 250
	SolidPenaltyMs     = 400
	MaxObjectRadius    = 32
	ViewMargin         = 32.0
	DegenerateDistance = 1e-6 // squared

	// ReferenceFrameMs converts frames to the world clock used by shield expiry.
	ReferenceFrameMs = 1000.0 / 60.0
)

// Config holds the tunables of one World.
type Config struct {
	Capacity    int
	CellSize    float64
	GridBuckets int

	SleepCooldownFrames int
	SleepVelocityEps    float64
	CurrencyDamping     float64
	TintDuration        float64
	TintDecay           float64

	SolidPushMargin   float64
	VehicleBounce     float64
	ObjectPushImpulse float64
	DebrisPenaltyMs   int
	SolidPenaltyMs    int

	MaxObjectRadius int
	ViewMargin      float64

	Seed int64
}

// DefaultConfig returns the tuning used by the arena server.
func DefaultConfig() Config {
	return Config{
		Capacity:            DefaultCapacity,
		CellSize:            DefaultCellSize,
		GridBuckets:         DefaultGridBuckets,
		SleepCooldownFrames: SleepCooldownFrames,
		SleepVelocityEps:    SleepVelocityEps,
		CurrencyDamping:     CurrencyDamping,
		TintDuration:        TintDuration,
		TintDecay:           TintDecay,
		SolidPushMargin:     SolidPushMargin,
		VehicleBounce:       VehicleBounce,
		ObjectPushImpulse:   ObjectPushImpulse,
		DebrisPenaltyMs:     DebrisPenaltyMs,
		SolidPenaltyMs:      SolidPenaltyMs,
		MaxObjectRadius:     MaxObjectRadius,
		ViewMargin:          ViewMargin,
		Seed:                1,
	}
}

// normalize fills zero or invalid fields with defaults
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.CellSize <= 0 {
		c.CellSize = d.CellSize
	}
	if c.GridBuckets <= 0 {
		c.GridBuckets = d.GridBuckets
	}
	if c.GridBuckets&(c.GridBuckets-1) != 0 {
		c.GridBuckets = 1 << bits.Len(uint(c.GridBuckets))
	}
	if c.SleepCooldownFrames <= 0 {
		c.SleepCooldownFrames = d.SleepCooldownFrames
	}
	if c.SleepVelocityEps <= 0 {
		c.SleepVelocityEps = d.SleepVelocityEps
	}
	if c.CurrencyDamping <= 0 || c.CurrencyDamping > 1 {
		c.CurrencyDamping = d.CurrencyDamping
	}
	if c.TintDuration <= 0 {
		c.TintDuration = d.TintDuration
	}
	if c.TintDecay <= 0 {
		c.TintDecay = d.TintDecay
	}
	if c.MaxObjectRadius <= 0 {
		c.MaxObjectRadius = d.MaxObjectRadius
	}
	// any overlapping pair must sit in neighboring cells
	if minCell := 2 * float64(c.MaxObjectRadius); c.CellSize < minCell {
		c.CellSize = minCell
	}
	if c.ViewMargin < 0 {
		c.ViewMargin = 0
	}
	return c
}
