package marchaux_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glrender"
	"github.com/soypat/marcher/marchaux"
)

const tol = 1e-5

func newOrbit(t *testing.T) *marchaux.Orbit {
	t.Helper()
	o, err := marchaux.NewOrbit(marchaux.DefaultOrbitConfig())
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOrbitDefaults(t *testing.T) {
	o := newOrbit(t)
	pos := o.Position(ms3.Vec{})
	want := ms3.Vec{Y: 8 * math32.Sin(0.25), Z: 8 * math32.Cos(0.25)}
	if ms3.Norm(ms3.Sub(pos, want)) > tol {
		t.Errorf("want default position %v, got %v", want, pos)
	}
	target := ms3.Vec{X: 1, Y: 2, Z: 3}
	if d := ms3.Norm(ms3.Sub(o.Position(target), target)); math32.Abs(d-8) > tol {
		t.Errorf("camera not at orbit radius from target: %g", d)
	}
}

func TestOrbitReset(t *testing.T) {
	o := newOrbit(t)
	initial := o.Position(ms3.Vec{})
	o.PointerMoved(10, 10)
	o.PointerMoved(200, -50)
	o.Scroll(3)
	o.Rotate(1)
	if o.Position(ms3.Vec{}) == initial {
		t.Fatal("orbit did not move")
	}
	o.Reset()
	first := o.Position(ms3.Vec{})
	o.Reset()
	second := o.Position(ms3.Vec{})
	if first != initial || second != initial {
		t.Errorf("reset not idempotent: initial %v, first %v, second %v", initial, first, second)
	}
	// Pointer latch is dropped on reset.
	o.PointerMoved(500, 500)
	if o.Position(ms3.Vec{}) != initial {
		t.Error("first pointer sample after reset moved the camera")
	}
}

func TestOrbitPointer(t *testing.T) {
	o := newOrbit(t)
	o.PointerMoved(100, 100)
	if o.Azimuth() != 0 || o.Elevation() != 0.25 {
		t.Fatalf("first pointer sample moved the camera: az=%g el=%g", o.Azimuth(), o.Elevation())
	}
	o.PointerMoved(120, 100)
	if got := o.Azimuth(); math32.Abs(got-20*0.005) > tol {
		t.Errorf("want azimuth %g, got %g", 20*0.005, got)
	}
	// Moving the pointer up raises the camera.
	o.PointerMoved(120, 90)
	if got := o.Elevation(); math32.Abs(got-(0.25+10*0.005)) > tol {
		t.Errorf("want elevation %g, got %g", 0.25+10*0.005, got)
	}
	o.PointerMoved(120, -1e6)
	if got := o.Elevation(); got != marchaux.MaxElevation {
		t.Errorf("elevation not clamped at pole: %g", got)
	}
	o.PointerMoved(120, 1e6)
	if got := o.Elevation(); got != -marchaux.MaxElevation {
		t.Errorf("elevation not clamped at pole: %g", got)
	}
	az := o.Azimuth()
	o.PointerReleased()
	o.PointerMoved(5000, 1e6)
	if o.Azimuth() != az {
		t.Error("pointer jump after release rotated the camera")
	}
}

func TestOrbitScroll(t *testing.T) {
	o := newOrbit(t)
	o.Scroll(2)
	if got := o.Radius(); got != 7 {
		t.Errorf("want radius 7, got %g", got)
	}
	o.Scroll(100)
	if got := o.Radius(); got != 1 {
		t.Errorf("want radius clamped to 1, got %g", got)
	}
	o.Scroll(-100)
	if got := o.Radius(); got != 20 {
		t.Errorf("want radius clamped to 20, got %g", got)
	}
}

func TestOrbitConfigValidate(t *testing.T) {
	bad := []func(*marchaux.OrbitConfig){
		func(c *marchaux.OrbitConfig) { c.MinRadius = 0 },
		func(c *marchaux.OrbitConfig) { c.MaxRadius = 0.5 },
		func(c *marchaux.OrbitConfig) { c.Radius = 30 },
		func(c *marchaux.OrbitConfig) { c.Elevation = math32.Pi / 2 },
		func(c *marchaux.OrbitConfig) { c.Sensitivity = -1 },
	}
	for i, mutate := range bad {
		cfg := marchaux.DefaultOrbitConfig()
		mutate(&cfg)
		if _, err := marchaux.NewOrbit(cfg); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestFrameParams(t *testing.T) {
	o := newOrbit(t)
	cfg := glrender.DefaultConfig()
	tests := []struct {
		pointer ms2.Vec
		want    ms2.Vec
	}{
		{pointer: ms2.Vec{}, want: ms2.Vec{Y: 1}},
		{pointer: ms2.Vec{X: 800, Y: 600}, want: ms2.Vec{X: 1}},
		{pointer: ms2.Vec{X: 400, Y: 150}, want: ms2.Vec{X: 0.5, Y: 0.75}},
		{pointer: ms2.Vec{X: -100, Y: 9000}, want: ms2.Vec{}},
	}
	for _, test := range tests {
		u := marchaux.FrameParams(o, cfg, 800, 600, test.pointer, 1500*time.Millisecond)
		if u.Pointer != test.want {
			t.Errorf("pointer %v: want %v, got %v", test.pointer, test.want, u.Pointer)
		}
		if u.Resolution != (ms2.Vec{X: 800, Y: 600}) {
			t.Errorf("bad resolution %v", u.Resolution)
		}
		if u.Time != 1.5 {
			t.Errorf("want time 1.5, got %g", u.Time)
		}
		if u.CameraPos != o.Position(cfg.Target) {
			t.Errorf("camera position %v does not match orbit", u.CameraPos)
		}
	}
}

func TestQuadVertices(t *testing.T) {
	v := marchaux.QuadVertices()
	if len(v) != 12 {
		t.Fatalf("want 6 two dimensional vertices, got %d floats", len(v))
	}
	for _, f := range v {
		if f != 1 && f != -1 {
			t.Fatalf("vertex coordinate %g not at clip space edge", f)
		}
	}
}

func TestWriteFragmentProgram(t *testing.T) {
	var bld marcher.Builder
	sph := bld.NewSphere(ms3.Vec{}, 1.5)
	scene := bld.NewScene(
		[]marcher.Primitive{sph, bld.NewPlane(ms3.Vec{Y: 1}, 2), bld.NewSphere(ms3.Vec{}, 1.5)},
		make([]marcher.Material, 3),
	)
	var buf bytes.Buffer
	n, err := marchaux.WriteFragmentProgram(&buf, scene, glrender.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("wrote %d bytes but counted %d", buf.Len(), n)
	}
	src := buf.String()
	if !strings.HasPrefix(src, "#version 460\n") {
		t.Error("missing version header")
	}
	for i := 0; i < scene.Len(); i++ {
		name := string(scene.Primitive(i).AppendShaderName(nil))
		if c := strings.Count(src, "float "+name+"(vec3 p)"); c != 1 {
			t.Errorf("primitive %d %q declared %d times", i, name, c)
		}
	}
	for _, want := range []string{
		"uniform Params",
		"binding = 0",
		"float sdf(vec3 p)",
		"int sdfClassify(vec3 p)",
		"vec3 sdfNormal(int id, vec3 p)",
		"vec3 sdfNormal0(vec3 p)",
		"vec3 calcNormal(vec3 p)",
		"const vec3[3] MATERIALS=vec3[3](",
		"const bool USE_SHADOWS=false;",
		"void main()",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated program missing %q", want)
		}
	}
	if strings.Contains(src, "sdfNormal1(") {
		t.Error("plane has no closed-form normal function")
	}
	if strings.IndexByte(src, 0) >= 0 {
		t.Error("program contains NUL byte")
	}

	bad := glrender.DefaultConfig()
	bad.March.MaxSteps = 0
	if _, err := marchaux.WriteFragmentProgram(&buf, scene, bad); err == nil {
		t.Error("expected invalid config error")
	}
}

func TestWriteFragmentProgramSimilarSpheres(t *testing.T) {
	var bld marcher.Builder
	scene := bld.NewScene([]marcher.Primitive{
		bld.NewSphere(ms3.Vec{X: 1.5, Y: 6251}, 1),
		bld.NewSphere(ms3.Vec{X: 1.5625, Y: 1}, 1),
	}, make([]marcher.Material, 2))
	var buf bytes.Buffer
	_, err := marchaux.WriteFragmentProgram(&buf, scene, glrender.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "const vec3[2] MATERIALS=vec3[2](vec3(0.0,0.0,0.0),vec3(0.0,0.0,0.0));") {
		t.Errorf("unexpected materials declaration:\n%s", buf.String())
	}
}

func TestDrawHUD(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 60))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	err := marchaux.DrawHUD(img, "frame 16ms", "camera 0 2 8")
	if err != nil {
		t.Fatal(err)
	}
	lit := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 128 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("no text drawn")
	}
}

func TestScaleInto(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	draw.Draw(src, src.Bounds(), image.NewUniform(red), image.Point{}, draw.Src)
	dst := image.NewRGBA(image.Rect(0, 0, 8, 6))
	marchaux.ScaleInto(dst, src)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if got := dst.RGBAAt(x, y); got != red {
				t.Fatalf("pixel (%d,%d): want %v, got %v", x, y, red, got)
			}
		}
	}
}

func TestLogger(t *testing.T) {
	if marchaux.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should discard")
	}
	var buf bytes.Buffer
	marchaux.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	marchaux.Logger().Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Error("logger not installed")
	}
	marchaux.SetLogger(nil)
	if marchaux.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("nil logger should restore discard default")
	}
}

func TestUIValidation(t *testing.T) {
	if err := marchaux.UI(nil, marchaux.DefaultUIConfig()); err == nil {
		t.Error("expected error on nil scene")
	}
	cfg := marchaux.DefaultUIConfig()
	cfg.Width = 0
	if err := marchaux.UI(marcher.DefaultScene(), cfg); err == nil {
		t.Error("expected error on zero width")
	}
}
