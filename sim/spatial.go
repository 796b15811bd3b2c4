package sim

import "math"

// Large odd multipliers decorrelate axis-aligned clusters of cells.
const (
	hashX = 0x9e3779b1
	hashY = 0x85ebca6b
)

// Grid is the broad-phase spatial hash. Cells are hashed into a power-of-two
// bucket array; each bucket is a singly linked chain of pool indices threaded
// through next. The grid is cleared and rebuilt every step, never patched.
type Grid struct {
	cellSize    float64
	invCellSize float64
	mask        uint32

	heads []int32 // bucket -> first index, -1 when empty
	next  []int32 // index -> next index in the same bucket

	// cell and rebuild generation of each inserted index
	cellX, cellY []int32
	gen          []uint32
	curGen       uint32

	// per-query visit stamps
	visit []uint32
	stamp uint32

	count int
}

// NewGrid creates a grid for a pool of the given capacity
func NewGrid(cellSize float64, buckets, capacity int) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if buckets < 1 || buckets&(buckets-1) != 0 {
		buckets = DefaultGridBuckets
	}
	g := &Grid{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		mask:        uint32(buckets - 1),
		heads:       make([]int32, buckets),
		next:        make([]int32, capacity),
		cellX:       make([]int32, capacity),
		cellY:       make([]int32, capacity),
		gen:         make([]uint32, capacity),
		visit:       make([]uint32, capacity),
	}
	g.Clear()
	return g
}

// CellSize returns the world size of one cell
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Len returns the number of indices inserted since the last Clear
func (g *Grid) Len() int {
	return g.count
}

// Clear empties every bucket
func (g *Grid) Clear() {
	for i := range g.heads {
		g.heads[i] = -1
	}
	g.curGen++
	if g.curGen == 0 {
		for i := range g.gen {
			g.gen[i] = 0
		}
		g.curGen = 1
	}
	g.count = 0
}

// Cell returns the cell coordinates containing pos
func (g *Grid) Cell(pos Vec2) (int, int) {
	return int(math.Floor(pos[0] * g.invCellSize)), int(math.Floor(pos[1] * g.invCellSize))
}

func (g *Grid) bucket(cx, cy int) uint32 {
	return (uint32(cx)*hashX ^ uint32(cy)*hashY) & g.mask
}

// Insert prepends h to the chain of the cell containing pos. O(1).
// Inserting the same index twice between clears is ignored.
func (g *Grid) Insert(h Handle, pos Vec2) {
	if h < 0 || int(h) >= len(g.next) || g.gen[h] == g.curGen {
		return
	}
	cx, cy := g.Cell(pos)
	b := g.bucket(cx, cy)
	g.next[h] = g.heads[b]
	g.heads[b] = int32(h)
	g.cellX[h] = int32(cx)
	g.cellY[h] = int32(cy)
	g.gen[h] = g.curGen
	g.count++
}

// CellOf returns the cell h was inserted under during the current rebuild
func (g *Grid) CellOf(h Handle) (int, int, bool) {
	if h < 0 || int(h) >= len(g.next) || g.gen[h] != g.curGen {
		return 0, 0, false
	}
	return int(g.cellX[h]), int(g.cellY[h]), true
}

// Contains reports whether h is in the current rebuild
func (g *Grid) Contains(h Handle) bool {
	_, _, ok := g.CellOf(h)
	return ok
}

func (g *Grid) nextStamp() uint32 {
	g.stamp++
	if g.stamp == 0 {
		for i := range g.visit {
			g.visit[i] = 0
		}
		g.stamp = 1
	}
	return g.stamp
}

// EachInRect calls fn once for every index in a bucket whose cells overlap r.
// It is a broad phase: hash collisions can yield indices outside r, so callers
// run their own exact test. Iteration stops when fn returns true.
// Calls must not be nested.
func (g *Grid) EachInRect(r Rect, fn func(h Handle) bool) {
	if g.count == 0 || r.MinX > r.MaxX || r.MinY > r.MaxY {
		return
	}
	minCX, minCY := g.Cell(Vec2{r.MinX, r.MinY})
	maxCX, maxCY := g.Cell(Vec2{r.MaxX, r.MaxY})
	cells := float64(maxCX-minCX+1) * float64(maxCY-minCY+1)
	if cells >= float64(len(g.heads)) {
		// every bucket would be touched anyway
		for b := range g.heads {
			for i := g.heads[b]; i >= 0; i = g.next[i] {
				if fn(Handle(i)) {
					return
				}
			}
		}
		return
	}
	stamp := g.nextStamp()
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for i := g.heads[g.bucket(cx, cy)]; i >= 0; i = g.next[i] {
				if g.visit[i] == stamp {
					continue
				}
				g.visit[i] = stamp
				if fn(Handle(i)) {
					return
				}
			}
		}
	}
}

// EachAround calls fn for the 3x3 cell neighborhood around pos
func (g *Grid) EachAround(pos Vec2, fn func(h Handle) bool) {
	cx, cy := g.Cell(pos)
	g.EachAroundCell(cx, cy, fn)
}

// EachAroundCell calls fn for the 3x3 cell neighborhood centered on (cx, cy)
func (g *Grid) EachAroundCell(cx, cy int, fn func(h Handle) bool) {
	x := float64(cx) * g.cellSize
	y := float64(cy) * g.cellSize
	half := g.cellSize / 2
	g.EachInRect(Rect{
		MinX: x - half,
		MaxX: x + g.cellSize + half,
		MinY: y - half,
		MaxY: y + g.cellSize + half,
	}, fn)
}
