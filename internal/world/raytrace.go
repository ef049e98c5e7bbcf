package world

import (
	"math"

	"github.com/KyousabaMC/VeinMiner/internal/block"
)

// RayTrace walks the voxels along a ray from eye in direction dir and returns
// the first non-air block within maxDistance, plus the face the ray entered
// it through. The voxel containing eye is skipped.
func RayTrace(acc block.Accessor, eye, dir [3]float64, maxDistance float64) (block.Position, block.Face, bool) {
	l := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if l == 0 || maxDistance <= 0 || acc == nil {
		return block.Position{}, block.FaceNone, false
	}
	d := [3]float64{dir[0] / l, dir[1] / l, dir[2] / l}

	cell := [3]int{int(math.Floor(eye[0])), int(math.Floor(eye[1])), int(math.Floor(eye[2]))}
	var (
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]+1) - eye[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (eye[i] - float64(cell[i])) / -d[i]
			tDelta[i] = 1 / -d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if tMax[axis] > maxDistance {
			return block.Position{}, block.FaceNone, false
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		pos := block.Pos(cell[0], cell[1], cell[2])
		st, ok := acc.StateAt(pos)
		if !ok || st.IsAir() {
			continue
		}
		return pos, enteredFace(axis, step[axis]), true
	}
}

func enteredFace(axis, step int) block.Face {
	switch axis {
	case 0:
		if step > 0 {
			return block.FaceWest
		}
		return block.FaceEast
	case 1:
		if step > 0 {
			return block.FaceDown
		}
		return block.FaceUp
	default:
		if step > 0 {
			return block.FaceNorth
		}
		return block.FaceSouth
	}
}

// LookVector converts yaw and pitch in degrees to a unit direction, using
// Minecraft's convention: yaw 0 faces +Z, positive pitch looks down.
func LookVector(yaw, pitch float64) [3]float64 {
	y := yaw * math.Pi / 180
	p := pitch * math.Pi / 180
	return [3]float64{
		-math.Sin(y) * math.Cos(p),
		-math.Sin(p),
		math.Cos(y) * math.Cos(p),
	}
}
