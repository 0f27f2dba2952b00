package marcher

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher/glbuild"
)

// Material holds the surface properties used when shading a primitive.
type Material struct {
	// BaseColor is the linear RGB diffuse color with components in [0,1].
	BaseColor ms3.Vec
}

// Scene is an ordered set of primitives combined by hard union: the scene's
// distance at a point is the minimum of all primitive distances.
// Each primitive has an associated [Material] at the same index.
//
// A Scene must not be modified while it is being rendered.
type Scene struct {
	prims []Primitive
	mats  []Material
	aux   []float32
}

// NewScene creates a scene from primitives and their materials.
// At least one primitive is required for the scene to be valid.
func (bld *Builder) NewScene(prims []Primitive, mats []Material) *Scene {
	if len(prims) != len(mats) {
		bld.shapeErrorf("scene requires one material per primitive, got %d primitives and %d materials", len(prims), len(mats))
	}
	s := &Scene{}
	for i := range prims {
		var m Material
		if i < len(mats) {
			m = mats[i]
		}
		s.Add(prims[i], m)
	}
	if len(s.prims) == 0 {
		bld.shapeErrorf("empty scene")
	}
	return s
}

// DefaultScene returns the demo scene: an orange sphere of radius 1.5 at the origin
// resting above a grey ground plane at y=-2.
func DefaultScene() *Scene {
	var bld Builder
	return bld.NewScene(
		[]Primitive{
			bld.NewSphere(ms3.Vec{}, 1.5),
			bld.NewPlane(ms3.Vec{Y: 1}, 2),
		},
		[]Material{
			{BaseColor: ms3.Vec{X: 0.9, Y: 0.45, Z: 0.2}},
			{BaseColor: ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		},
	)
}

// Add appends a primitive with its material to the end of the scene's composition list.
func (s *Scene) Add(p Primitive, m Material) {
	if p == nil {
		panic("nil SDF argument: Scene.Add")
	}
	s.prims = append(s.prims, p)
	s.mats = append(s.mats, m)
}

// Len returns the number of primitives in the scene.
func (s *Scene) Len() int { return len(s.prims) }

// Primitive returns the i'th primitive in declaration order.
func (s *Scene) Primitive(i int) Primitive { return s.prims[i] }

// Material returns the material of the i'th primitive.
func (s *Scene) Material(i int) Material { return s.mats[i] }

// Primitives returns the scene's primitives as GL shaders, in declaration order.
func (s *Scene) Primitives() []glbuild.Shader3D {
	shaders := make([]glbuild.Shader3D, len(s.prims))
	for i := range s.prims {
		shaders[i] = s.prims[i]
	}
	return shaders
}

// Distance returns the minimum of all primitive distances at p.
func (s *Scene) Distance(p ms3.Vec) float32 {
	s.mustValidate()
	d := s.prims[0].Distance(p)
	for _, prim := range s.prims[1:] {
		d = minf(d, prim.Distance(p))
	}
	return d
}

// Classify returns the index of the primitive with the smallest distance at p.
// Ties are resolved in favor of the primitive declared first.
func (s *Scene) Classify(p ms3.Vec) int {
	s.mustValidate()
	id := 0
	dmin := s.prims[0].Distance(p)
	for i, prim := range s.prims[1:] {
		d := prim.Distance(p)
		if d < dmin {
			dmin = d
			id = i + 1
		}
	}
	return id
}

func (s *Scene) mustValidate() {
	if len(s.prims) == 0 {
		panic("empty scene")
	}
}

func (s *Scene) Bounds() ms3.Box {
	s.mustValidate()
	bb := s.prims[0].Bounds()
	for _, prim := range s.prims[1:] {
		bb = bb.Union(prim.Bounds())
	}
	return bb
}

func (s *Scene) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	for i := range s.prims {
		var child glbuild.Shader3D = s.prims[i]
		err := fn(userData, &child)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) AppendShaderName(b []byte) []byte {
	return append(b, "sdfScene"...)
}

func (s *Scene) AppendShaderBody(b []byte) []byte {
	s.mustValidate()
	b = glbuild.AppendDistanceDecl(b, "d", "p", s.prims[0])
	for _, prim := range s.prims[1:] {
		b = append(b, "d=min(d,"...)
		b = prim.AppendShaderName(b)
		b = append(b, "(p));\n"...)
	}
	b = append(b, "return d;"...)
	return b
}
