package block

import (
	"fmt"
	"strings"
)

type Face int8

const (
	FaceNone Face = iota - 1
	FaceDown
	FaceUp
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

// Faces is the fixed neighbour order used by every traversal.
var Faces = [6]Face{FaceDown, FaceUp, FaceNorth, FaceSouth, FaceWest, FaceEast}

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Dxyz returns the unit offset of the face. North is -Z, East is +X.
func (f Face) Dxyz() (dx, dy, dz int) {
	switch f {
	case FaceDown:
		dy = -1
	case FaceUp:
		dy = 1
	case FaceNorth:
		dz = -1
	case FaceSouth:
		dz = 1
	case FaceWest:
		dx = -1
	case FaceEast:
		dx = 1
	}
	return
}

func (f Face) Opposite() Face {
	switch f {
	case FaceDown:
		return FaceUp
	case FaceUp:
		return FaceDown
	case FaceNorth:
		return FaceSouth
	case FaceSouth:
		return FaceNorth
	case FaceWest:
		return FaceEast
	case FaceEast:
		return FaceWest
	default:
		return FaceNone
	}
}

func (f Face) Axis() Axis {
	switch f {
	case FaceWest, FaceEast:
		return AxisX
	case FaceDown, FaceUp:
		return AxisY
	default:
		return AxisZ
	}
}

func (f Face) IsVertical() bool { return f == FaceUp || f == FaceDown }

func (f Face) Valid() bool { return f >= FaceDown && f <= FaceEast }

var faceNames = [...]string{"down", "up", "north", "south", "west", "east"}

func (f Face) String() string {
	if !f.Valid() {
		return "none"
	}
	return faceNames[f]
}

func ParseFace(s string) (Face, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range faceNames {
		if n == s {
			return Face(i), nil
		}
	}
	return FaceNone, fmt.Errorf("unknown face %q", s)
}

func (f Face) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Face) UnmarshalText(b []byte) error {
	v, err := ParseFace(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
