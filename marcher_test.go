package marcher_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glbuild"
	"github.com/soypat/marcher/gleval"
)

const tol = 1e-5

func randomVec(rng *rand.Rand, half float32) ms3.Vec {
	return ms3.Vec{
		X: half * (2*rng.Float32() - 1),
		Y: half * (2*rng.Float32() - 1),
		Z: half * (2*rng.Float32() - 1),
	}
}

func TestSphereDistance(t *testing.T) {
	var bld marcher.Builder
	center := ms3.Vec{X: 1, Y: -2, Z: 0.5}
	const r = 1.5
	s := bld.NewSphere(center, r)
	if s.Kind() != marcher.KindSphere {
		t.Fatalf("want sphere kind, got %s", s.Kind())
	}
	if d := s.Distance(center); math32.Abs(d+r) > tol {
		t.Errorf("distance at center: want %g, got %g", -r, d)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		dir := ms3.Unit(randomVec(rng, 1))
		if math32.IsNaN(dir.X) {
			continue
		}
		surface := ms3.Add(center, ms3.Scale(r, dir))
		if d := s.Distance(surface); math32.Abs(d) > tol {
			t.Errorf("surface point %v distance %g", surface, d)
		}
		inside := ms3.Add(center, ms3.Scale(r/2, dir))
		outside := ms3.Add(center, ms3.Scale(2*r, dir))
		if s.Distance(inside) >= 0 || s.Distance(outside) <= 0 {
			t.Errorf("bad sign along %v", dir)
		}
	}
	nm, ok := s.(marcher.Normaler)
	if !ok {
		t.Fatal("sphere has no closed-form normal")
	}
	if n := nm.Normal(ms3.Add(center, ms3.Vec{Y: 3})); ms3.Norm(ms3.Sub(n, ms3.Vec{Y: 1})) > tol {
		t.Errorf("want normal +Y, got %v", n)
	}
	if n := nm.Normal(center); n != (ms3.Vec{}) {
		t.Errorf("want zero normal at center, got %v", n)
	}
}

func TestPlaneDistance(t *testing.T) {
	var bld marcher.Builder
	p := bld.NewPlane(ms3.Vec{Y: 3}, 2)
	if p.Kind() != marcher.KindPlane {
		t.Fatalf("want plane kind, got %s", p.Kind())
	}
	tests := []struct {
		p    ms3.Vec
		want float32
	}{
		{p: ms3.Vec{Y: -2}, want: 0},
		{p: ms3.Vec{X: 100, Y: -2, Z: -50}, want: 0},
		{p: ms3.Vec{Y: 0}, want: 2},
		{p: ms3.Vec{Y: -5}, want: -3},
	}
	for _, test := range tests {
		if got := p.Distance(test.p); math32.Abs(got-test.want) > tol {
			t.Errorf("distance at %v: want %g, got %g", test.p, test.want, got)
		}
	}
	if _, ok := p.(marcher.Normaler); ok {
		t.Error("plane should rely on estimated normals")
	}
}

func TestSceneDistanceIsMinimum(t *testing.T) {
	scene := marcher.DefaultScene()
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		p := randomVec(rng, 10)
		want := scene.Primitive(0).Distance(p)
		for j := 1; j < scene.Len(); j++ {
			want = math32.Min(want, scene.Primitive(j).Distance(p))
		}
		if got := scene.Distance(p); got != want {
			t.Fatalf("distance at %v: want %g, got %g", p, want, got)
		}
		id := scene.Classify(p)
		if scene.Primitive(id).Distance(p) != want {
			t.Fatalf("classified primitive %d is not the closest at %v", id, p)
		}
	}
}

func TestSceneEvaluate(t *testing.T) {
	scene := marcher.DefaultScene()
	rng := rand.New(rand.NewSource(3))
	pos := make([]ms3.Vec, 64)
	for i := range pos {
		pos[i] = randomVec(rng, 5)
	}
	dist := make([]float32, len(pos))
	err := scene.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range pos {
		if want := scene.Distance(pos[i]); math32.Abs(dist[i]-want) > tol {
			t.Errorf("position %v: Evaluate %g != Distance %g", pos[i], dist[i], want)
		}
	}
	if err = scene.Evaluate(pos, dist[:1], nil); err == nil {
		t.Error("expected error on mismatched buffer lengths")
	}
	var _ gleval.SDF3 = scene
}

func TestClassifyTies(t *testing.T) {
	var bld marcher.Builder
	a := bld.NewSphere(ms3.Vec{}, 1)
	b := bld.NewSphere(ms3.Vec{}, 1)
	scene := bld.NewScene([]marcher.Primitive{a, b}, make([]marcher.Material, 2))
	if id := scene.Classify(ms3.Vec{X: 1}); id != 0 {
		t.Errorf("tie must resolve to first declared primitive, got %d", id)
	}
	// Equidistant point between two spheres.
	scene = bld.NewScene([]marcher.Primitive{
		bld.NewSphere(ms3.Vec{X: -2}, 1),
		bld.NewSphere(ms3.Vec{X: 2}, 1),
	}, make([]marcher.Material, 2))
	if id := scene.Classify(ms3.Vec{}); id != 0 {
		t.Errorf("tie must resolve to first declared primitive, got %d", id)
	}
	if id := scene.Classify(ms3.Vec{X: 1.5}); id != 1 {
		t.Errorf("want second sphere, got %d", id)
	}
}

func TestBuilderErrors(t *testing.T) {
	bld := marcher.Builder{NoDimensionPanic: true}
	bld.NewSphere(ms3.Vec{}, -1)
	bld.NewPlane(ms3.Vec{}, 0)
	bld.NewScene(nil, nil)
	err := bld.Err()
	if err == nil {
		t.Fatal("expected accumulated errors")
	}
	for _, want := range []string{"radius", "normal", "empty scene"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("accumulated error missing %q: %s", want, err)
		}
	}
	bld.ClearErrors()
	if bld.Err() != nil {
		t.Error("errors not cleared")
	}

	var panicky marcher.Builder
	defer func() {
		if recover() == nil {
			t.Error("expected panic on invalid sphere")
		}
	}()
	panicky.NewSphere(ms3.Vec{}, 0)
}

func TestSceneShader(t *testing.T) {
	scene := marcher.DefaultScene()
	if got := string(scene.AppendShaderName(nil)); got != "sdfScene" {
		t.Errorf("unexpected scene shader name %q", got)
	}
	body := string(scene.AppendShaderBody(nil))
	for i := 0; i < scene.Len(); i++ {
		name := string(scene.Primitive(i).AppendShaderName(nil))
		if !strings.Contains(body, name+"(p)") {
			t.Errorf("scene body does not call %s:\n%s", name, body)
		}
	}
	if !strings.Contains(body, "min(") {
		t.Errorf("scene body has no union:\n%s", body)
	}
	bb := scene.Bounds()
	if bb.Min.X > 0 || bb.Min.Y > 0 || bb.Min.Z > 0 || bb.Max.X < 0 || bb.Max.Y < 0 || bb.Max.Z < 0 {
		t.Error("scene bounds do not contain the origin")
	}
}

func TestKindString(t *testing.T) {
	if marcher.KindSphere.String() != "sphere" || marcher.KindPlane.String() != "plane" {
		t.Error("bad kind names")
	}
}

func TestShaderNamesDistinct(t *testing.T) {
	var bld marcher.Builder
	// Parameter digits would run together without a separator.
	a := bld.NewSphere(ms3.Vec{X: 1.5, Y: 6251}, 1)
	b := bld.NewSphere(ms3.Vec{X: 1.5625, Y: 1}, 1)
	if string(a.AppendShaderName(nil)) == string(b.AppendShaderName(nil)) {
		t.Errorf("distinct spheres share shader name %q", a.AppendShaderName(nil))
	}
	p1 := bld.NewPlane(ms3.Vec{X: 1, Y: 1}, 25)
	p2 := bld.NewPlane(ms3.Vec{X: 1, Y: 1}, 2.5)
	if string(p1.AppendShaderName(nil)) == string(p2.AppendShaderName(nil)) {
		t.Errorf("distinct planes share shader name %q", p1.AppendShaderName(nil))
	}
}

func TestSphereNormalBodyGuardsCenter(t *testing.T) {
	var bld marcher.Builder
	s := bld.NewSphere(ms3.Vec{}, 1)
	nb, ok := s.(glbuild.NormalShader)
	if !ok {
		t.Fatal("sphere has no closed-form normal body")
	}
	body := string(nb.AppendNormalBody(nil))
	if strings.Contains(body, "normalize(") || !strings.Contains(body, "vec3(0.0)") {
		t.Errorf("normal body must return zero vector at center:\n%s", body)
	}
}
