package marchaux

import (
	"errors"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// MaxElevation is the largest absolute orbit elevation. Keeping away from the
// poles keeps the look-at basis defined.
const MaxElevation = math.Pi/2 - 0.01

// OrbitConfig holds the initial state and limits of an [Orbit].
type OrbitConfig struct {
	// Azimuth and Elevation are in radians. Azimuth 0 places the camera on the +Z axis.
	Azimuth   float32
	Elevation float32
	Radius    float32
	MinRadius float32
	MaxRadius float32
	// Sensitivity is the angle in radians rotated per pointer pixel moved.
	Sensitivity float32
	// ZoomRate is the radius change per scroll unit.
	ZoomRate float32
}

// DefaultOrbitConfig returns the orbit used by the demo renderer.
func DefaultOrbitConfig() OrbitConfig {
	return OrbitConfig{
		Elevation:   0.25,
		Radius:      8,
		MinRadius:   1,
		MaxRadius:   20,
		Sensitivity: 0.005,
		ZoomRate:    0.5,
	}
}

func (cfg OrbitConfig) Validate() error {
	switch {
	case cfg.MinRadius <= 0 || cfg.MaxRadius < cfg.MinRadius:
		return errors.New("bad orbit radius limits")
	case cfg.Radius < cfg.MinRadius || cfg.Radius > cfg.MaxRadius:
		return errors.New("orbit radius outside of limits")
	case math.Abs(cfg.Elevation) > MaxElevation:
		return errors.New("orbit elevation too close to pole")
	case cfg.Sensitivity < 0 || cfg.ZoomRate < 0:
		return errors.New("negative orbit sensitivity or zoom rate")
	}
	return nil
}

// Orbit is a camera controller that keeps the camera on a sphere around a target.
// It is not safe for concurrent use.
type Orbit struct {
	cfg       OrbitConfig
	azimuth   float32
	elevation float32
	radius    float32
	// Pointer latch for delta computation.
	lastX, lastY float32
	latched      bool
}

// NewOrbit returns an orbit controller at the initial state given by cfg.
func NewOrbit(cfg OrbitConfig) (*Orbit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orbit{cfg: cfg}
	o.Reset()
	return o, nil
}

// Reset restores the initial state of the orbit and drops the pointer latch.
func (o *Orbit) Reset() {
	o.azimuth = o.cfg.Azimuth
	o.elevation = o.cfg.Elevation
	o.radius = o.cfg.Radius
	o.latched = false
}

// PointerMoved rotates the orbit by the pointer displacement since the last
// call. x and y are window coordinates with y pointing down. The first call
// after creation, reset or release only records the position.
func (o *Orbit) PointerMoved(x, y float32) {
	if !o.latched {
		o.lastX, o.lastY = x, y
		o.latched = true
		return
	}
	dx := x - o.lastX
	dy := y - o.lastY
	o.lastX, o.lastY = x, y
	o.Rotate(dx * o.cfg.Sensitivity)
	o.elevation = ms1.Clamp(o.elevation-dy*o.cfg.Sensitivity, -MaxElevation, MaxElevation)
}

// PointerReleased drops the pointer latch so the next move does not jump.
func (o *Orbit) PointerReleased() {
	o.latched = false
}

// Scroll zooms in for positive dy.
func (o *Orbit) Scroll(dy float32) {
	o.radius = ms1.Clamp(o.radius-dy*o.cfg.ZoomRate, o.cfg.MinRadius, o.cfg.MaxRadius)
}

// Rotate increments the azimuth by dAzimuth radians.
func (o *Orbit) Rotate(dAzimuth float32) {
	o.azimuth = math.Mod(o.azimuth+dAzimuth, 2*math.Pi)
}

func (o *Orbit) Azimuth() float32   { return o.azimuth }
func (o *Orbit) Elevation() float32 { return o.elevation }
func (o *Orbit) Radius() float32    { return o.radius }

// Position returns the camera position orbiting target.
func (o *Orbit) Position(target ms3.Vec) ms3.Vec {
	sa, ca := math.Sincos(o.azimuth)
	se, ce := math.Sincos(o.elevation)
	offset := ms3.Vec{X: ce * sa, Y: se, Z: ce * ca}
	return ms3.Add(target, ms3.Scale(o.radius, offset))
}
