package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing.
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

// Distancer is a pointwise signed distance field. Per-pixel algorithms such as
// [March], [SoftShadow] and [AmbientOcclusion] evaluate the field one point at a time.
// Implementations must be safe for concurrent use.
type Distancer interface {
	Distance(p ms3.Vec) float32
}

// DistancerFunc adapts a function to the [Distancer] interface.
type DistancerFunc func(p ms3.Vec) float32

func (f DistancerFunc) Distance(p ms3.Vec) float32 { return f(p) }

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// NormalsCentralDiff uses central differences algorithm for normal calculation, which are stored in normals for each position.
// The returned normals are not normalized (converted to unit length).
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	step *= 0.5
	if step <= 0 {
		return errors.New("invalid step")
	} else if len(pos) != len(normals) {
		return errors.New("length of position must match length of normals")
	} else if s == nil {
		return errors.New("nil SDF3")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	d1 := make([]float32, len(pos))
	d2 := make([]float32, len(pos))
	auxPos := make([]ms3.Vec, len(pos))
	var vecs = [3]ms3.Vec{{X: step}, {Y: step}, {Z: step}}
	for dim := 0; dim < 3; dim++ {
		h := vecs[dim]
		for i, p := range pos {
			auxPos[i] = ms3.Add(p, h)
		}
		err := s.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms3.Sub(p, h)
		}
		err = s.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}

		switch dim {
		case 0:
			for i, d := range d1 {
				normals[i].X = d - d2[i]
			}
		case 1:
			for i, d := range d1 {
				normals[i].Y = d - d2[i]
			}
		case 2:
			for i, d := range d1 {
				normals[i].Z = d - d2[i]
			}
		}
	}
	return nil
}
