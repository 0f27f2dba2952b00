package marcher

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	largenum = 1e20
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization.
	epstol = 6e-7
)

// Builder wraps all SDF primitive generation.
// Provides error handling strategies with panics or error accumulation during shape generation.
type Builder struct {
	NoDimensionPanic bool
	accumErrs        []error
}

// Err returns all errors accumulated during shape generation joined together.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated errors.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if !bld.NoDimensionPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

// Kind tags each primitive variant.
type Kind uint8

const (
	kindUndefined Kind = iota
	KindSphere
	KindPlane
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindPlane:
		return "plane"
	}
	return "undefined"
}

func minf(a, b float32) float32 { return math32.Min(a, b) }

func isFinite(v ms3.Vec) bool {
	return !math32.IsNaN(v.X) && !math32.IsNaN(v.Y) && !math32.IsNaN(v.Z) &&
		!math32.IsInf(v.X, 0) && !math32.IsInf(v.Y, 0) && !math32.IsInf(v.Z, 0)
}
