package marcher

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var errMismatchBufferLength = errors.New("position and distance buffer length mismatch")

// minReduce takes element-wise minimum of arguments and stores to first argument.
func minReduce(d1AndDst, d2 []float32) {
	for i := range d1AndDst {
		d1AndDst[i] = math32.Min(d1AndDst[i], d2[i])
	}
}

func (s *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	c, r := s.c, s.r
	for i, p := range pos {
		dist[i] = ms3.Norm(ms3.Sub(p, c)) - r
	}
	return nil
}

func (s *plane) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	n, h := s.n, s.h
	for i, p := range pos {
		dist[i] = ms3.Dot(p, n) + h
	}
	return nil
}

// Evaluate implements [gleval.SDF3]. It evaluates every primitive over pos and keeps
// the element-wise minimum. The auxiliary buffer is reused across calls
// which makes Evaluate unsafe for concurrent use; use [Scene.Distance] from multiple goroutines.
func (s *Scene) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	s.mustValidate()
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	err := s.prims[0].Evaluate(pos, dist, userData)
	if err != nil {
		return err
	}
	if len(s.prims) == 1 {
		return nil
	}
	if cap(s.aux) < len(dist) {
		s.aux = make([]float32, len(dist))
	}
	aux := s.aux[:len(dist)]
	for _, prim := range s.prims[1:] {
		err = prim.Evaluate(pos, aux, userData)
		if err != nil {
			return err
		}
		minReduce(dist, aux)
	}
	return nil
}
