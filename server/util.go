package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"

	"debrisfield/sim"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// facing returns the unit vector at angle a
func facing(a float64) sim.Vec2 {
	return sim.Vec2{math.Cos(a), math.Sin(a)}
}

// LerpAngle interpolates between two angles taking the short path
func LerpAngle(from, to, t float64) float64 {
	diff := sim.NormalizeAngle(to - from)
	return sim.NormalizeAngle(from + diff*t)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
