package glrender

import (
	"errors"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/gleval"
)

// RGBA is a color with components in [0,1].
type RGBA struct {
	R, G, B, A float32
}

// RGBA8 quantizes c to 8 bits per channel.
func (c RGBA) RGBA8() color.RGBA {
	q := func(v float32) uint8 {
		return uint8(clampf(v, 0, 1)*255 + 0.5)
	}
	return color.RGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: q(c.A)}
}

func opaque(c ms3.Vec) RGBA {
	return RGBA{R: c.X, G: c.Y, B: c.Z, A: 1}
}

// Shader is the CPU rendition of the per-pixel program. It reads the scene and
// configuration only, so a single Shader may be used from many goroutines.
type Shader struct {
	scene *marcher.Scene
	cfg   Config
	light ms3.Vec
}

// NewShader validates cfg and returns a shader of the scene.
func NewShader(scene *marcher.Scene, cfg Config) (*Shader, error) {
	if scene == nil || scene.Len() == 0 {
		return nil, errors.New("empty scene")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Shader{
		scene: scene,
		cfg:   cfg,
		light: ms3.Unit(cfg.LightDir),
	}, nil
}

// Config returns the configuration the shader was created with.
func (s *Shader) Config() Config { return s.cfg }

// Scene returns the shaded scene.
func (s *Shader) Scene() *marcher.Scene { return s.scene }

// Pixel returns the color of the pixel at fragCoord, with origin at the bottom left of the screen.
func (s *Shader) Pixel(fragCoord ms2.Vec, u Uniforms) RGBA {
	cam := s.Camera(u)
	return s.pixel(cam, fragCoord, u.Resolution)
}

// Camera returns the look-at camera of the frame described by u.
func (s *Shader) Camera(u Uniforms) Camera {
	return LookAt(u.CameraPos, s.cfg.Target, s.cfg.WorldUp)
}

func (s *Shader) pixel(cam Camera, fragCoord, resolution ms2.Vec) RGBA {
	uv := ScreenUV(fragCoord, resolution)
	return opaque(s.Shade(cam.Ray(uv)))
}

// Shade marches ray through the scene and returns the lit color of the first
// surface hit, or the background color on a miss. Components are in [0,1].
func (s *Shader) Shade(ray gleval.Ray) ms3.Vec {
	ray = ray.Unit()
	res := gleval.March(s.scene, ray, s.cfg.March)
	if !res.Hit {
		return s.Background(ray.Dir)
	}
	id := s.scene.Classify(res.Point)
	n := s.Normal(id, res.Point)
	base := s.scene.Material(id).BaseColor

	diffuse := math32.Max(0, ms3.Dot(n, s.light))
	if s.cfg.Shadows && diffuse > 0 {
		origin := ms3.Add(res.Point, ms3.Scale(2*s.cfg.March.SurfaceEpsilon, n))
		diffuse *= gleval.SoftShadow(s.scene, origin, s.light, s.cfg.ShadowTMin, s.cfg.ShadowTMax, s.cfg.Shadow)
	}
	ambient := s.cfg.Ambient
	if s.cfg.AmbientOcclusion {
		ambient = ms3.Scale(gleval.AmbientOcclusion(s.scene, res.Point, n, s.cfg.AO), ambient)
	}
	col := ms3.Add(ambient, ms3.Scale(diffuse, base))
	return ms3.Vec{
		X: clampf(col.X, 0, 1),
		Y: clampf(col.Y, 0, 1),
		Z: clampf(col.Z, 0, 1),
	}
}

// Normal returns the surface normal of primitive id at p. Primitives with a
// closed-form normal use it, the rest are estimated by central differences
// over the whole scene.
func (s *Shader) Normal(id int, p ms3.Vec) ms3.Vec {
	if nm, ok := s.scene.Primitive(id).(marcher.Normaler); ok {
		return nm.Normal(p)
	}
	return gleval.EstimateNormal(s.scene, p, s.cfg.NormalEpsilon)
}

// Background returns the sky gradient color seen along unit direction dir.
func (s *Shader) Background(dir ms3.Vec) ms3.Vec {
	return Background(dir, s.cfg.SkyLow, s.cfg.SkyHigh)
}

// Background interpolates between low and high by the vertical component of unit direction dir.
func Background(dir, low, high ms3.Vec) ms3.Vec {
	a := clampf(0.5*(clampf(dir.Y, -1, 1)+1), 0, 1)
	return ms3.Vec{
		X: mixf(low.X, high.X, a),
		Y: mixf(low.Y, high.Y, a),
		Z: mixf(low.Z, high.Z, a),
	}
}
