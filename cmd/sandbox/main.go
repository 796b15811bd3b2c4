// Command sandbox runs a debris field in the terminal around a probe ship.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"debrisfield/sim"
)

const (
	fieldSize  = 2400.0
	cellW      = 8.0  // world units per terminal column
	cellH      = 16.0 // world units per terminal row
	probeR     = 10
	probeAccel = 0.3
	probeTurn  = 0.15
	probeDrag  = 0.98
	beamRange  = 300.0
	bombRadius = 120.0
	sampleRate = beep.SampleRate(44100)
)

// probe is the vehicle steered from the keyboard
type probe struct {
	body      sim.Physical
	angle     float64
	penaltyMs float64
	hits      int
}

func newProbe() *probe {
	p := &probe{angle: -math.Pi / 2}
	p.body = sim.Physical{
		Pos:         sim.Vec2{fieldSize / 2, fieldSize / 2},
		Radius:      probeR,
		HalfExtents: sim.Vec2{probeR, probeR},
		Active:      true,
		Visible:     true,
		Collidable:  true,
	}
	return p
}

func (p *probe) Position() sim.Vec2     { return p.body.Pos }
func (p *probe) SetPosition(v sim.Vec2) { p.body.Pos = v }
func (p *probe) Velocity() sim.Vec2     { return p.body.Vel }
func (p *probe) SetVelocity(v sim.Vec2) { p.body.Vel = v }
func (p *probe) Entity() *sim.Physical  { return &p.body }
func (p *probe) facing() sim.Vec2       { return sim.Vec2{math.Cos(p.angle), math.Sin(p.angle)} }
func (p *probe) ApplyTemporaryPenalty(ms int) {
	if p.penaltyMs <= 0 {
		p.hits++
	}
	p.penaltyMs = math.Max(p.penaltyMs, float64(ms))
}

func (p *probe) update(thrust bool, dt float64) {
	if thrust {
		accel := probeAccel
		if p.penaltyMs > 0 {
			accel *= 0.3
		}
		p.body.Vel = p.body.Vel.Add(p.facing().Mul(accel * dt))
	}
	p.body.Vel = p.body.Vel.Mul(math.Pow(probeDrag, dt))
	p.body.Pos = p.body.Pos.Add(p.body.Vel.Mul(dt))
	p.body.Pos[0] = sim.Clamp(p.body.Pos[0], 0, fieldSize)
	p.body.Pos[1] = sim.Clamp(p.body.Pos[1], 0, fieldSize)
	if p.penaltyMs > 0 {
		p.penaltyMs -= dt * sim.ReferenceFrameMs
	}
}

// sandbox wires the world to the terminal and the speaker
type sandbox struct {
	sim.NopHooks
	world     *sim.World
	probe     *probe
	rng       *rand.Rand
	debris    int
	destroyed int
	flashes   []flash
	audio     bool
}

type flash struct {
	pos    sim.Vec2
	radius float64
	frames int
}

func (s *sandbox) DebrisDestroyed(w *sim.World, h sim.Handle, o *sim.Object) {
	s.destroyed++
}

func (s *sandbox) Explosion(pos sim.Vec2, radius float64) {
	s.flashes = append(s.flashes, flash{pos: pos, radius: radius, frames: 8})
}

func (s *sandbox) PlaySound(snd sim.Sound, variant int) {
	if !s.audio {
		return
	}
	freq := 220.0
	switch snd {
	case sim.SoundExplosion:
		freq = 110
	case sim.SoundImpact:
		freq = 330
	case sim.SoundPickup:
		freq = 880
	}
	tone, err := generators.SineTone(sampleRate, freq*(1+0.06*float64(variant)))
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(60*time.Millisecond), tone))
}

// fill tops the field up to the target debris count
func (s *sandbox) fill() {
	live := 0
	for h := sim.Handle(0); int(h) < s.world.Capacity(); h++ {
		if o := s.world.Get(h); o != nil && o.Kind == sim.KindDebris && !o.MarkForDelete {
			live++
		}
	}
	for tries := 0; live < s.debris && tries < 4*s.debris; tries++ {
		pos := sim.Vec2{s.rng.Float64() * fieldSize, s.rng.Float64() * fieldSize}
		if pos.Sub(s.probe.Position()).Len() < 200 {
			continue
		}
		r := 6 + s.rng.Intn(20)
		h := s.world.SpawnDebris(sim.DebrisSpec{
			Pos:           pos,
			Vel:           sim.Vec2{s.rng.Float64() - 0.5, s.rng.Float64() - 0.5},
			RotationSpeed: (s.rng.Float64() - 0.5) * 0.05,
			Radius:        r,
			HP:            r / 6,
		})
		if h == sim.NoHandle {
			return
		}
		live++
	}
}

// wrap keeps debris inside the field
func (s *sandbox) wrap() {
	for h := sim.Handle(0); int(h) < s.world.Capacity(); h++ {
		o := s.world.Get(h)
		if o == nil {
			continue
		}
		for i := 0; i < 2; i++ {
			if o.Phys.Pos[i] < 0 {
				o.Phys.Pos[i] += fieldSize
			} else if o.Phys.Pos[i] > fieldSize {
				o.Phys.Pos[i] -= fieldSize
			}
		}
	}
}

func (s *sandbox) fireBeam() {
	start := s.probe.Position()
	end := start.Add(s.probe.facing().Mul(beamRange))
	if hit, ok := s.world.SegmentIntersect(start, end); ok {
		s.world.ApplyDamage(hit.Handle, 1, s.probe.facing())
	}
}

func (s *sandbox) fireBomb() {
	n := s.world.ApplyRadiusDamage(s.probe.Position(), bombRadius, 3, sim.Vec2{4, 4})
	s.Explosion(s.probe.Position(), bombRadius)
	if n > 0 {
		s.PlaySound(sim.SoundExplosion, s.rng.Intn(sim.SoundVariants))
	}
}

func (s *sandbox) draw(screen tcell.Screen) {
	screen.Clear()
	w, h := screen.Size()
	center := s.probe.Position()
	view := sim.Rect{
		MinX: center[0] - float64(w)/2*cellW,
		MaxX: center[0] + float64(w)/2*cellW,
		MinY: center[1] - float64(h)/2*cellH,
		MaxY: center[1] + float64(h)/2*cellH,
	}
	toCell := func(p sim.Vec2) (int, int) {
		return int((p[0] - view.MinX) / cellW), int((p[1] - view.MinY) / cellH)
	}

	target := s.world.NearestInRect(center, view)
	s.world.RenderIterate(view, func(hd sim.Handle, o *sim.Object) bool {
		x, y := toCell(o.Phys.Pos)
		ch, style := objectGlyph(o)
		if hd == target {
			style = style.Reverse(true)
		}
		screen.SetContent(x, y, ch, nil, style)
		return false
	})

	alive := s.flashes[:0]
	for _, f := range s.flashes {
		x, y := toCell(f.pos)
		rx, ry := int(f.radius/cellW), int(f.radius/cellH)
		style := tcell.StyleDefault.Foreground(tcell.ColorOrange)
		for a := 0.0; a < 2*math.Pi; a += 0.2 {
			screen.SetContent(x+int(float64(rx)*math.Cos(a)), y+int(float64(ry)*math.Sin(a)), '·', nil, style)
		}
		if f.frames--; f.frames > 0 {
			alive = append(alive, f)
		}
	}
	s.flashes = alive

	px, py := toCell(center)
	screen.SetContent(px, py, probeGlyph(s.probe.angle), nil, tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true))

	st := s.world.Stats()
	status := fmt.Sprintf("objects %d/%d  pairs %d  sleeping %d  hits %d  destroyed %d  [arrows] fly [space] beam [b] bomb [q] quit",
		s.world.CountActive(), s.world.Capacity(), st.PairsTested, st.Sleeping, s.probe.hits, s.destroyed)
	for i, r := range status {
		screen.SetContent(i, h-1, r, nil, tcell.StyleDefault.Foreground(tcell.ColorSilver))
	}
	screen.Show()
}

func objectGlyph(o *sim.Object) (rune, tcell.Style) {
	style := tcell.StyleDefault
	switch o.Kind {
	case sim.KindActor:
		return 'A', style.Foreground(tcell.ColorRed)
	case sim.KindPiece:
		if o.Piece.AssembleMode {
			return '#', style.Foreground(tcell.ColorTeal)
		}
		return '*', style.Foreground(tcell.ColorYellow)
	}
	if o.Debris.Tint > 0 {
		style = style.Foreground(tcell.ColorWhite)
	} else {
		style = style.Foreground(tcell.ColorGray)
	}
	if o.Phys.Radius >= 14 {
		return 'O', style
	}
	return 'o', style
}

func probeGlyph(angle float64) rune {
	glyphs := []rune{'>', '\\', 'v', '/', '<', '\\', '^', '/'}
	a := math.Mod(angle+2*math.Pi+math.Pi/8, 2*math.Pi)
	return glyphs[int(a/(math.Pi/4))%8]
}

// newSandbox builds a world with pieces scattered and the debris field filled
func newSandbox(debris int, seed int64) *sandbox {
	cfg := sim.DefaultConfig()
	cfg.Seed = seed
	if debris+16 > cfg.Capacity {
		cfg.Capacity = debris + 16
	}

	s := &sandbox{
		probe:  newProbe(),
		rng:    rand.New(rand.NewSource(seed)),
		debris: debris,
	}
	s.world = sim.New(cfg, sim.WithVehicle(s.probe), sim.WithHooks(s), sim.WithPresenter(s))
	for i := 0; i < 4; i++ {
		s.world.SpawnPiece(sim.PieceSpec{
			Pos:          sim.Vec2{s.rng.Float64() * fieldSize, s.rng.Float64() * fieldSize},
			Radius:       10,
			AssembleMode: i%2 == 0,
		})
	}
	s.fill()
	return s
}

// tick advances one frame. Wrapping and refilling happen before the step so
// the grid the frame is drawn from matches the final positions.
func (s *sandbox) tick(thrust bool) {
	s.probe.update(thrust, 1)
	s.wrap()
	s.fill()
	s.world.Step(1)
}

func main() {
	debris := flag.Int("debris", 200, "target debris count")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	mute := flag.Bool("mute", false, "disable sound")
	flag.Parse()

	s := newSandbox(*debris, *seed)

	if !*mute {
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
			log.Printf("audio disabled: %v", err)
		} else {
			s.audio = true
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	var thrustFrames int
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyEscape, tcell.KeyCtrlC:
					return
				case tcell.KeyLeft:
					s.probe.angle -= probeTurn
				case tcell.KeyRight:
					s.probe.angle += probeTurn
				case tcell.KeyUp:
					thrustFrames = 10
				case tcell.KeyRune:
					switch ev.Rune() {
					case 'q':
						return
					case ' ':
						s.fireBeam()
					case 'b':
						s.fireBomb()
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
			s.tick(thrustFrames > 0)
			if thrustFrames > 0 {
				thrustFrames--
			}
			s.draw(screen)
		}
	}
}
