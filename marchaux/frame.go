package marchaux

import (
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/marcher/glrender"
)

// QuadVertices returns the two triangles covering clip space [-1,1]².
func QuadVertices() []float32 {
	return []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
}

// FrameParams produces the parameter block of a frame. pointer is in window
// pixels with origin at the top left; the resulting pointer is normalized to
// [0,1] with origin at the bottom left.
func FrameParams(orbit *Orbit, cfg glrender.Config, width, height int, pointer ms2.Vec, elapsed time.Duration) glrender.Uniforms {
	w, h := float32(width), float32(height)
	var np ms2.Vec
	if w > 0 && h > 0 {
		np = ms2.Vec{
			X: ms1.Clamp(pointer.X/w, 0, 1),
			Y: ms1.Clamp(1-pointer.Y/h, 0, 1),
		}
	}
	return glrender.Uniforms{
		Resolution: ms2.Vec{X: w, Y: h},
		Time:       float32(elapsed.Seconds()),
		Pointer:    np,
		CameraPos:  orbit.Position(cfg.Target),
	}
}
