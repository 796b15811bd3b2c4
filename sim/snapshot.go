package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrCheckpointCapacity is returned when a checkpoint references slots the
// world does not have.
var ErrCheckpointCapacity = errors.New("checkpoint does not fit pool capacity")

// ObjectState is the render view of one object
type ObjectState struct {
	ID     int32   `msgpack:"id"`
	Kind   Kind    `msgpack:"k"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	R      float64 `msgpack:"r"`
	Radius int     `msgpack:"rad"`
	Tint   float64 `msgpack:"t,omitempty"`
	Sleep  bool    `msgpack:"s,omitempty"`
	Touch  bool    `msgpack:"v,omitempty"` // touching the vehicle
}

// Snapshot is the set of objects visible in one view after a step
type Snapshot struct {
	Frame   uint64        `msgpack:"f"`
	Objects []ObjectState `msgpack:"o"`
}

// Snapshot collects RenderIterate output for view
func (w *World) Snapshot(view Rect) Snapshot {
	s := Snapshot{Frame: w.frame, Objects: make([]ObjectState, 0, 64)}
	w.RenderIterate(view, func(h Handle, o *Object) bool {
		s.Objects = append(s.Objects, ObjectState{
			ID:     int32(h),
			Kind:   o.Kind,
			X:      round1(o.Phys.Pos[0]),
			Y:      round1(o.Phys.Pos[1]),
			R:      round2(o.Phys.Angle),
			Radius: o.Phys.Radius,
			Tint:   round2(o.Debris.Tint),
			Sleep:  o.Sleeping,
			Touch:  o.VehicleContact,
		})
		return false
	})
	return s
}

// EncodeSnapshot serializes s with msgpack
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a msgpack snapshot
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

type checkpointSlot struct {
	Index          int32    `msgpack:"i"`
	Kind           Kind     `msgpack:"k"`
	Phys           Physical `msgpack:"p"`
	MarkForDelete  bool     `msgpack:"d,omitempty"`
	Sleeping       bool     `msgpack:"s,omitempty"`
	VehicleContact bool     `msgpack:"v,omitempty"`
	Debris         Debris   `msgpack:"db"`
	Actor          Actor    `msgpack:"ac"`
	Piece          Piece    `msgpack:"pc"`
}

type checkpoint struct {
	Frame    uint64           `msgpack:"f"`
	ClockMs  float64          `msgpack:"t"`
	Capacity int              `msgpack:"c"`
	Slots    []checkpointSlot `msgpack:"s"`
}

// Checkpoint serializes every allocated slot with its index. Contact memory
// is not kept, so the first overlap after a restore counts as a new contact.
func (w *World) Checkpoint() ([]byte, error) {
	cp := checkpoint{Frame: w.frame, ClockMs: w.clock, Capacity: w.pool.Capacity()}
	for i := 0; i < w.pool.Capacity(); i++ {
		o := w.pool.at(i)
		if !o.allocated {
			continue
		}
		cp.Slots = append(cp.Slots, checkpointSlot{
			Index:          int32(i),
			Kind:           o.Kind,
			Phys:           o.Phys,
			MarkForDelete:  o.MarkForDelete,
			Sleeping:       o.Sleeping,
			VehicleContact: o.VehicleContact,
			Debris:         o.Debris,
			Actor:          o.Actor,
			Piece:          o.Piece,
		})
	}
	b, err := msgpack.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return b, nil
}

// Restore replaces the pool contents with a checkpoint. Handles are kept.
// The grid is rebuilt by the next Step.
func (w *World) Restore(b []byte) error {
	var cp checkpoint
	if err := msgpack.Unmarshal(b, &cp); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}
	for _, s := range cp.Slots {
		if s.Index < 0 || int(s.Index) >= w.pool.Capacity() {
			return fmt.Errorf("slot %d of %d: %w", s.Index, w.pool.Capacity(), ErrCheckpointCapacity)
		}
	}
	w.Clear()
	w.frame = cp.Frame
	w.clock = cp.ClockMs
	for _, s := range cp.Slots {
		o := w.pool.at(int(s.Index))
		if o.allocated {
			continue
		}
		*o = Object{
			Kind:           s.Kind,
			Phys:           s.Phys,
			MarkForDelete:  s.MarkForDelete,
			Sleeping:       s.Sleeping,
			VehicleContact: s.VehicleContact,
			Debris:         s.Debris,
			Actor:          s.Actor,
			Piece:          s.Piece,
			allocated:      true,
			spawnFrame:     cp.Frame,
		}
		o.Phys.lastContact = 0
		w.pool.alive++
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
