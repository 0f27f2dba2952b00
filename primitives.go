package marcher

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher/glbuild"
	"github.com/soypat/marcher/gleval"
)

// Primitive is a signed distance shape that can be evaluated on the CPU
// and written as a GL shader. Primitives are created by [Builder].
//
// Distance must be negative inside, zero on the boundary, positive outside and
// never overestimate the true distance to the surface so that marching steps stay safe.
type Primitive interface {
	glbuild.Shader3D
	gleval.SDF3
	Kind() Kind
	Distance(p ms3.Vec) float32
}

// Normaler is implemented by primitives with a cheap closed-form outward normal.
type Normaler interface {
	Normal(p ms3.Vec) ms3.Vec
}

var (
	_ Primitive            = (*sphere)(nil)
	_ Primitive            = (*plane)(nil)
	_ Normaler             = (*sphere)(nil)
	_ glbuild.NormalShader = (*sphere)(nil)
)

type sphere struct {
	c ms3.Vec
	r float32
}

// NewSphere creates a sphere with the given center and radius r.
func (bld *Builder) NewSphere(center ms3.Vec, r float32) Primitive {
	if r <= 0 {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	if !isFinite(center) {
		bld.shapeErrorf("non-finite sphere center")
	}
	return &sphere{c: center, r: r}
}

func (s *sphere) Kind() Kind { return KindSphere }

func (s *sphere) Distance(p ms3.Vec) float32 {
	return ms3.Norm(ms3.Sub(p, s.c)) - s.r
}

// Normal returns the unit vector pointing from the sphere's center to p.
// The zero vector is returned at the center where no direction is defined.
func (s *sphere) Normal(p ms3.Vec) ms3.Vec {
	d := ms3.Sub(p, s.c)
	l := ms3.Norm(d)
	if l < epstol {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, d)
}

func (s *sphere) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *sphere) AppendShaderName(b []byte) []byte {
	b = append(b, "sphere"...)
	b = glbuild.AppendFloats(b, 'q', 'n', 'p', s.c.X, s.c.Y, s.c.Z, s.r)
	return b
}

func (s *sphere) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "c", s.c)
	b = append(b, "return length(p-c)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.r)
	b = append(b, ';')
	return b
}

func (s *sphere) AppendNormalBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "c", s.c)
	b = append(b, "vec3 d=p-c;\nfloat l=length(d);\nreturn l<6e-7 ? vec3(0.0) : d/l;"...)
	return b
}

func (s *sphere) Bounds() ms3.Box {
	r := ms3.Vec{X: s.r, Y: s.r, Z: s.r}
	return ms3.Box{
		Min: ms3.Sub(s.c, r),
		Max: ms3.Add(s.c, r),
	}
}

type plane struct {
	n ms3.Vec
	h float32
}

// NewPlane creates an infinite plane with the points p satisfying dot(p,normal)+h = 0.
// normal is normalized. The plane's interior is the half-space opposite to normal.
func (bld *Builder) NewPlane(normal ms3.Vec, h float32) Primitive {
	l := ms3.Norm(normal)
	if l < epstol || !isFinite(normal) {
		bld.shapeErrorf("zero or non-finite plane normal")
		normal = ms3.Vec{Y: 1}
		l = 1
	}
	return &plane{n: ms3.Scale(1/l, normal), h: h}
}

func (s *plane) Kind() Kind { return KindPlane }

func (s *plane) Distance(p ms3.Vec) float32 {
	return ms3.Dot(p, s.n) + s.h
}

func (s *plane) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *plane) AppendShaderName(b []byte) []byte {
	b = append(b, "plane"...)
	b = glbuild.AppendFloats(b, 'q', 'n', 'p', s.n.X, s.n.Y, s.n.Z, s.h)
	return b
}

func (s *plane) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "n", s.n)
	b = append(b, "return dot(p,n)+"...)
	b = glbuild.AppendFloat(b, '-', '.', s.h)
	b = append(b, ';')
	return b
}

// Bounds returns a very large box since the plane is unbounded.
func (s *plane) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
		Max: ms3.Vec{X: largenum, Y: largenum, Z: largenum},
	}
}
