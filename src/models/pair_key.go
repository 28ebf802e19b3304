package models

import (
	"errors"
	"fmt"
)

// ErrSameInstrument is returned when a pair is built from one instrument twice.
var ErrSameInstrument = errors.New("pair cannot use the same instrument twice")

// MPairKey is an unordered instrument pair with A < B.
type MPairKey struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewPairKey canonicalizes (a, b) so the smaller id comes first.
func NewPairKey(a, b int) (MPairKey, error) {
	if a == b {
		return MPairKey{}, fmt.Errorf("%w: %d", ErrSameInstrument, a)
	}
	if a > b {
		a, b = b, a
	}
	return MPairKey{A: a, B: b}, nil
}

func (k MPairKey) String() string {
	return fmt.Sprintf("%d-%d", k.A, k.B)
}

// Less orders keys by A then B.
func (k MPairKey) Less(o MPairKey) bool {
	if k.A != o.A {
		return k.A < o.A
	}
	return k.B < o.B
}
