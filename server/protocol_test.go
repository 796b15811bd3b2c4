package main

import "testing"

func TestBinaryInput(t *testing.T) {
	in := ClientInput{Turn: -1, Thrust: true, Bomb: true}
	got, ok := decodeBinaryInput(encodeBinaryInput(in))
	if !ok {
		t.Fatal("decode failed")
	}
	if got != in {
		t.Errorf("expected %+v, got %+v", in, got)
	}

	half, _ := decodeBinaryInput([]byte{binaryInputTag, 64, flagFire | flagBeam})
	if !approx(half.Turn, 64.0/127) || !half.Fire || !half.Beam || half.Thrust || half.Bomb {
		t.Errorf("unexpected decode %+v", half)
	}
}

func TestBinaryInputRejectsMalformed(t *testing.T) {
	for _, msg := range [][]byte{nil, {binaryInputTag, 0}, {0x02, 0, 0}, {binaryInputTag, 0, 0, 0}} {
		if _, ok := decodeBinaryInput(msg); ok {
			t.Errorf("expected %v to be rejected", msg)
		}
	}
}
