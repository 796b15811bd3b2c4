package main

import (
	"encoding/json"
	"math"

	"debrisfield/sim"
)

// Client -> Server message types
const (
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth"     // resume with a stored token
	MsgPilot    = "pilot"    // claim the ship
	MsgRelease  = "release"  // give the ship back
	MsgInput    = "input"    // pilot controls
	MsgOverview = "overview" // toggle overview mode
)

// Server -> Client message types
const (
	MsgWelcome  = "welcome"
	MsgAuthOK   = "auth_ok"
	MsgPiloting = "piloting"
	MsgReleased = "released"
	MsgWrecked  = "wrecked"
	MsgError    = "error"
	MsgState    = "state" // binary frames only
)

// binaryInputTag prefixes the compact 3-byte input message:
// [0x01, turn int8, flags]
const binaryInputTag = 0x01

const (
	flagThrust = 1 << iota
	flagFire
	flagBeam
	flagBomb
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput is the pilot control state
type ClientInput struct {
	Turn   float64 `json:"turn"` // -1 left .. 1 right
	Thrust bool    `json:"thrust"`
	Fire   bool    `json:"fire"`
	Beam   bool    `json:"beam"`
	Bomb   bool    `json:"bomb"`
}

// decodeBinaryInput parses the compact input message
func decodeBinaryInput(msg []byte) (ClientInput, bool) {
	if len(msg) != 3 || msg[0] != binaryInputTag {
		return ClientInput{}, false
	}
	flags := msg[2]
	return ClientInput{
		Turn:   float64(int8(msg[1])) / 127,
		Thrust: flags&flagThrust != 0,
		Fire:   flags&flagFire != 0,
		Beam:   flags&flagBeam != 0,
		Bomb:   flags&flagBomb != 0,
	}, true
}

// encodeBinaryInput is the inverse of decodeBinaryInput
func encodeBinaryInput(in ClientInput) []byte {
	var flags byte
	if in.Thrust {
		flags |= flagThrust
	}
	if in.Fire {
		flags |= flagFire
	}
	if in.Beam {
		flags |= flagBeam
	}
	if in.Bomb {
		flags |= flagBomb
	}
	turn := int8(math.Round(sim.Clamp(in.Turn, -1, 1) * 127))
	return []byte{binaryInputTag, byte(turn), flags}
}

// CredentialsMsg carries register and login requests
type CredentialsMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes a session with a token
type AuthMsg struct {
	Token string `json:"token"`
}

// OverviewMsg toggles overview mode
type OverviewMsg struct {
	On bool `json:"on"`
}

// WelcomeMsg is sent on connect
type WelcomeMsg struct {
	ID    string `json:"id"`
	RunID int64  `json:"run"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PilotID  int64  `json:"pid"`
}

// PilotingMsg confirms the ship claim
type PilotingMsg struct {
	Username string `json:"username"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// ShipState is the ship part of a frame
type ShipState struct {
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	R       float64 `msgpack:"r"`
	VX      float64 `msgpack:"vx"`
	VY      float64 `msgpack:"vy"`
	HP      int     `msgpack:"hp"`
	Credits int     `msgpack:"cr"`
	Score   int     `msgpack:"sc"`
	Penalty bool    `msgpack:"pn,omitempty"`
	Thrust  bool    `msgpack:"th,omitempty"`
}

// ProjectileState is broadcast per projectile
type ProjectileState struct {
	ID string  `msgpack:"id"`
	X  float64 `msgpack:"x"`
	Y  float64 `msgpack:"y"`
	R  float64 `msgpack:"r"`
}

// BeamState is a beam fired since the last frame
type BeamState struct {
	X1  float64 `msgpack:"x1"`
	Y1  float64 `msgpack:"y1"`
	X2  float64 `msgpack:"x2"`
	Y2  float64 `msgpack:"y2"`
	Hit bool    `msgpack:"h,omitempty"`
}

// Effect kinds
const (
	EffectExplosion = "x"
	EffectSound     = "s"
)

// EffectState is a presentation effect raised since the last frame
type EffectState struct {
	K       string  `msgpack:"k"`
	X       float64 `msgpack:"x,omitempty"`
	Y       float64 `msgpack:"y,omitempty"`
	Radius  float64 `msgpack:"rad,omitempty"`
	Sound   uint8   `msgpack:"snd,omitempty"`
	Variant int     `msgpack:"var,omitempty"`
}

// Frame is the binary state broadcast
type Frame struct {
	Tick        uint64            `msgpack:"tick"`
	Overview    bool              `msgpack:"ov,omitempty"`
	Pilot       string            `msgpack:"pl,omitempty"`
	Ship        ShipState         `msgpack:"ship"`
	Target      int32             `msgpack:"tg"`
	Objects     []sim.ObjectState `msgpack:"o"`
	Projectiles []ProjectileState `msgpack:"pr"`
	Beams       []BeamState       `msgpack:"bm,omitempty"`
	Effects     []EffectState     `msgpack:"fx,omitempty"`
}

// StatusMsg is served by the status endpoint
type StatusMsg struct {
	RunID    int64      `json:"run"`
	Tick     uint64     `json:"tick"`
	Active   int        `json:"active"`
	Capacity int        `json:"capacity"`
	Clients  int        `json:"clients"`
	Pilot    string     `json:"pilot,omitempty"`
	Overview bool       `json:"overview"`
	Stats    sim.Stats  `json:"stats"`
	Summary  RunSummary `json:"summary"`
}
