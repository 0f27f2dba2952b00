package glrender

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher/gleval"
)

const epstol = 6e-7

// Config holds every constant of the shading pipeline. The same values are used
// by the CPU [Shader] and written into generated GL fragment programs.
type Config struct {
	March  gleval.MarchConfig
	Shadow gleval.ShadowConfig
	AO     gleval.AOConfig
	// NormalEpsilon is the finite difference probe offset for primitives without a closed-form normal.
	NormalEpsilon float32

	// LightDir points towards the directional light. It is normalized by [NewShader].
	LightDir ms3.Vec
	Ambient  ms3.Vec
	// SkyLow and SkyHigh are the background colors seen looking straight down and straight up.
	SkyLow  ms3.Vec
	SkyHigh ms3.Vec

	// Target is the fixed point the camera looks at.
	Target  ms3.Vec
	WorldUp ms3.Vec

	// Shadows multiplies the diffuse term by [gleval.SoftShadow] towards the light.
	Shadows bool
	// ShadowTMin and ShadowTMax bound the shadow ray.
	ShadowTMin, ShadowTMax float32
	// AmbientOcclusion multiplies the ambient term by [gleval.AmbientOcclusion].
	AmbientOcclusion bool
}

// DefaultConfig returns the pipeline configuration of the demo renderer.
// Shadows and ambient occlusion are computed only when enabled.
func DefaultConfig() Config {
	return Config{
		March:         gleval.DefaultMarchConfig(),
		Shadow:        gleval.DefaultShadowConfig(),
		AO:            gleval.DefaultAOConfig(),
		NormalEpsilon: gleval.DefaultNormalEpsilon,
		LightDir:      ms3.Vec{X: 0.5, Y: 0.8, Z: 0.6},
		Ambient:       ms3.Vec{X: 0.1, Y: 0.1, Z: 0.12},
		SkyLow:        ms3.Vec{X: 0.85, Y: 0.9, Z: 1},
		SkyHigh:       ms3.Vec{X: 0.3, Y: 0.5, Z: 0.9},
		WorldUp:       ms3.Vec{Y: 1},
		ShadowTMin:    0.02,
		ShadowTMax:    10,
	}
}

// Validate returns an error describing the first invalid field found.
func (cfg Config) Validate() error {
	if err := cfg.March.Validate(); err != nil {
		return fmt.Errorf("march config: %w", err)
	}
	if err := cfg.Shadow.Validate(); err != nil {
		return fmt.Errorf("shadow config: %w", err)
	}
	if err := cfg.AO.Validate(); err != nil {
		return fmt.Errorf("ambient occlusion config: %w", err)
	}
	switch {
	case cfg.NormalEpsilon <= 0:
		return errors.New("zero or negative normal epsilon")
	case ms3.Norm(cfg.LightDir) < epstol:
		return errors.New("zero length light direction")
	case ms3.Norm(cfg.WorldUp) < epstol:
		return errors.New("zero length world up vector")
	case cfg.ShadowTMin < 0 || cfg.ShadowTMax <= cfg.ShadowTMin:
		return fmt.Errorf("bad shadow ray interval [%g,%g]", cfg.ShadowTMin, cfg.ShadowTMax)
	}
	colors := [...]struct {
		name string
		c    ms3.Vec
	}{
		{"ambient", cfg.Ambient},
		{"sky low", cfg.SkyLow},
		{"sky high", cfg.SkyHigh},
	}
	for _, c := range colors {
		if !inUnitCube(c.c) {
			return fmt.Errorf("%s color %v outside of [0,1]", c.name, c.c)
		}
	}
	return nil
}

func inUnitCube(v ms3.Vec) bool {
	return v.X >= 0 && v.X <= 1 && v.Y >= 0 && v.Y <= 1 && v.Z >= 0 && v.Z <= 1
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

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
