package glrender

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher/gleval"
)

// Camera is an orthonormal look-at basis positioned at Pos.
type Camera struct {
	Pos     ms3.Vec
	Forward ms3.Vec
	Right   ms3.Vec
	Up      ms3.Vec
}

// LookAt builds a camera at pos looking at target with no roll.
// When the view direction is parallel to worldUp the right vector is undefined
// and is left as the zero vector; orbit controllers must keep away from that case.
func LookAt(pos, target, worldUp ms3.Vec) Camera {
	forward := unitOrZero(ms3.Sub(target, pos))
	right := unitOrZero(ms3.Cross(worldUp, forward))
	up := ms3.Cross(forward, right)
	return Camera{
		Pos:     pos,
		Forward: forward,
		Right:   right,
		Up:      up,
	}
}

// Ray returns the unit ray through the screen coordinate uv, see [ScreenUV].
func (c Camera) Ray(uv ms2.Vec) gleval.Ray {
	dir := ms3.Add(c.Forward, ms3.Add(ms3.Scale(uv.X, c.Right), ms3.Scale(uv.Y, c.Up)))
	return gleval.Ray{Origin: c.Pos, Dir: unitOrZero(dir)}
}

// ScreenUV maps a pixel coordinate with origin at the bottom left of the screen
// to normalized screen coordinates. The vertical axis spans [-1,1] and the
// horizontal axis is scaled by the aspect ratio width/height.
func ScreenUV(fragCoord, resolution ms2.Vec) ms2.Vec {
	if resolution.Y <= 0 {
		return ms2.Vec{}
	}
	invH := 1 / resolution.Y
	return ms2.Vec{
		X: (2*fragCoord.X - resolution.X) * invH,
		Y: (2*fragCoord.Y - resolution.Y) * invH,
	}
}
