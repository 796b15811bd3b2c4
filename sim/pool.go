package sim

// Pool is fixed-capacity object storage. Slots never move, so a Handle stays
// valid for the lifetime of its allocation.
type Pool struct {
	objs  []Object
	alive int
}

// NewPool creates a pool with room for capacity objects
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{objs: make([]Object, capacity)}
}

// Allocate claims the first free slot and zero-initializes it.
// Returns false when every slot is taken.
func (p *Pool) Allocate(kind Kind) (Handle, bool) {
	for i := range p.objs {
		if p.objs[i].allocated {
			continue
		}
		p.objs[i] = Object{Kind: kind, allocated: true}
		p.alive++
		return Handle(i), true
	}
	return NoHandle, false
}

// Get returns the allocated object at h, or nil
func (p *Pool) Get(h Handle) *Object {
	if h < 0 || int(h) >= len(p.objs) {
		return nil
	}
	o := &p.objs[h]
	if !o.allocated {
		return nil
	}
	return o
}

// at returns the raw slot without the allocation check
func (p *Pool) at(i int) *Object {
	return &p.objs[i]
}

// free releases slot i; the record is zeroed so stale handles read nothing
func (p *Pool) free(i int) {
	if !p.objs[i].allocated {
		return
	}
	p.objs[i] = Object{}
	p.alive--
}

// CountActive returns the number of allocated slots
func (p *Pool) CountActive() int {
	return p.alive
}

// Capacity returns the fixed slot count
func (p *Pool) Capacity() int {
	return len(p.objs)
}

// Clear frees every slot and keeps the storage
func (p *Pool) Clear() {
	for i := range p.objs {
		p.objs[i] = Object{}
	}
	p.alive = 0
}
