package gleval

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	// DefaultNormalEpsilon is the probe offset used by [EstimateNormal] in scene units.
	DefaultNormalEpsilon = 1e-3
	epstol               = 6e-7
)

// Ray is a half-line starting at Origin along Dir.
type Ray struct {
	Origin ms3.Vec
	Dir    ms3.Vec
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) ms3.Vec {
	return ms3.Add(r.Origin, ms3.Scale(t, r.Dir))
}

// Unit returns the ray with its direction normalized.
// A zero length direction is left untouched.
func (r Ray) Unit() Ray {
	r.Dir = unitOrZero(r.Dir)
	return r
}

// MarchConfig configures sphere tracing in [March].
type MarchConfig struct {
	// MaxSteps caps the number of field evaluations along the ray.
	MaxSteps int
	// SurfaceEpsilon is the distance below which a point is considered on the surface.
	SurfaceEpsilon float32
	// MaxDistance is the distance along the ray past which a ray is considered a miss.
	MaxDistance float32
	// StepScale multiplies each step. Must be in (0,1]; values above 1 may tunnel through thin features.
	StepScale float32
}

// DefaultMarchConfig returns the marching parameters used by the default renderer.
func DefaultMarchConfig() MarchConfig {
	return MarchConfig{
		MaxSteps:       100,
		SurfaceEpsilon: 1e-3,
		MaxDistance:    50,
		StepScale:      0.8,
	}
}

// Validate checks the configuration for values that break sphere tracing guarantees.
func (cfg MarchConfig) Validate() error {
	switch {
	case cfg.MaxSteps <= 0:
		return errors.New("zero or negative march steps")
	case cfg.SurfaceEpsilon <= 0:
		return errors.New("zero or negative surface epsilon")
	case cfg.MaxDistance <= 0:
		return errors.New("zero or negative max march distance")
	case cfg.StepScale <= 0 || cfg.StepScale > 1:
		return fmt.Errorf("step scale %g outside of (0,1]", cfg.StepScale)
	}
	return nil
}

// MarchResult is the outcome of tracing a single ray.
type MarchResult struct {
	Hit bool
	// Point is the last evaluated position along the ray. When Hit is true it lies within SurfaceEpsilon of the surface.
	Point ms3.Vec
	// T is the distance travelled along the ray.
	T float32
	// Steps is the number of field evaluations performed.
	Steps int
}

// March sphere-traces ray against sdf. The ray direction is normalized before use.
// Termination is guaranteed by cfg.MaxSteps and cfg.MaxDistance.
func March(sdf Distancer, ray Ray, cfg MarchConfig) MarchResult {
	ray = ray.Unit()
	var t float32
	var res MarchResult
	for res.Steps < cfg.MaxSteps {
		p := ray.At(t)
		d := sdf.Distance(p)
		res.Steps++
		if d < cfg.SurfaceEpsilon {
			res.Hit = true
			res.Point = p
			res.T = t
			return res
		}
		t += d * cfg.StepScale
		if t > cfg.MaxDistance {
			break
		}
	}
	res.Point = ray.At(t)
	res.T = t
	return res
}

// EstimateNormal estimates the unit surface normal at p with central differences of sdf
// along each axis using probe offset eps. Near composition seams the estimate may be inaccurate.
// The zero vector is returned when the gradient vanishes.
func EstimateNormal(sdf Distancer, p ms3.Vec, eps float32) ms3.Vec {
	ex := ms3.Vec{X: eps}
	ey := ms3.Vec{Y: eps}
	ez := ms3.Vec{Z: eps}
	grad := ms3.Vec{
		X: sdf.Distance(ms3.Add(p, ex)) - sdf.Distance(ms3.Sub(p, ex)),
		Y: sdf.Distance(ms3.Add(p, ey)) - sdf.Distance(ms3.Sub(p, ey)),
		Z: sdf.Distance(ms3.Add(p, ez)) - sdf.Distance(ms3.Sub(p, ez)),
	}
	return unitOrZero(grad)
}

// ShadowConfig configures [SoftShadow].
type ShadowConfig struct {
	Steps int
	// K controls penumbra softness. Larger values yield harder shadows.
	K float32
	// MinStep and MaxStep clamp each step along the shadow ray.
	MinStep, MaxStep float32
	// Epsilon is the field value under which the shadow ray is fully occluded.
	Epsilon float32
}

// DefaultShadowConfig returns the soft shadow parameters used by the default renderer.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		Steps:   16,
		K:       8,
		MinStep: 0.02,
		MaxStep: 0.10,
		Epsilon: 1e-3,
	}
}

func (cfg ShadowConfig) Validate() error {
	switch {
	case cfg.Steps <= 0:
		return errors.New("zero or negative shadow steps")
	case cfg.K <= 0:
		return errors.New("zero or negative penumbra constant")
	case cfg.MinStep <= 0 || cfg.MaxStep < cfg.MinStep:
		return fmt.Errorf("bad shadow step band [%g,%g]", cfg.MinStep, cfg.MaxStep)
	case cfg.Epsilon <= 0:
		return errors.New("zero or negative shadow epsilon")
	}
	return nil
}

// SoftShadow marches from origin towards dir between tmin and tmax and returns a
// light visibility factor in [0,1]: 0 is fully shadowed, 1 is fully lit.
// The penumbra is approximated by the minimum ratio of field value to distance travelled.
func SoftShadow(sdf Distancer, origin, dir ms3.Vec, tmin, tmax float32, cfg ShadowConfig) float32 {
	dir = unitOrZero(dir)
	res := float32(1)
	t := tmin
	for i := 0; i < cfg.Steps; i++ {
		d := sdf.Distance(ms3.Add(origin, ms3.Scale(t, dir)))
		if d < cfg.Epsilon {
			return 0
		}
		if t > 0 {
			res = math32.Min(res, cfg.K*d/t)
		}
		t += clampf(d, cfg.MinStep, cfg.MaxStep)
		if t > tmax {
			break
		}
	}
	return clampf(res, 0, 1)
}

// AOConfig configures [AmbientOcclusion]. Sample i is taken at distance Start+Spacing*i along the normal.
type AOConfig struct {
	Samples int
	Start   float32
	Spacing float32
	// Decay multiplies the weight of each successive sample.
	Decay float32
	// Strength scales the accumulated occlusion before it is subtracted from 1.
	Strength float32
}

// DefaultAOConfig returns the ambient occlusion parameters used by the default renderer.
// Offsets grow from 0.01 to 0.13 scene units.
func DefaultAOConfig() AOConfig {
	return AOConfig{
		Samples:  5,
		Start:    0.01,
		Spacing:  0.03,
		Decay:    0.95,
		Strength: 3,
	}
}

func (cfg AOConfig) Validate() error {
	switch {
	case cfg.Samples <= 0:
		return errors.New("zero or negative occlusion samples")
	case cfg.Start < 0 || cfg.Spacing <= 0:
		return errors.New("bad occlusion sample offsets")
	case cfg.Decay <= 0 || cfg.Decay > 1:
		return fmt.Errorf("occlusion decay %g outside of (0,1]", cfg.Decay)
	}
	return nil
}

// AmbientOcclusion estimates how exposed the surface point p with unit normal n is to ambient
// light by sampling sdf along the normal. Returns a factor in [0,1] where 1 means unoccluded.
func AmbientOcclusion(sdf Distancer, p, n ms3.Vec, cfg AOConfig) float32 {
	var occ float32
	w := float32(1)
	for i := 0; i < cfg.Samples; i++ {
		h := cfg.Start + cfg.Spacing*float32(i)
		d := sdf.Distance(ms3.Add(p, ms3.Scale(h, n)))
		occ += (h - d) * w
		w *= cfg.Decay
	}
	return clampf(1-cfg.Strength*occ, 0, 1)
}

func unitOrZero(v ms3.Vec) ms3.Vec {
	l := ms3.Norm(v)
	if l < epstol || math32.IsNaN(l) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, v)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}
