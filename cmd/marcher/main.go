package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glbuild"
	"github.com/soypat/marcher/gleval"
	"github.com/soypat/marcher/glrender"
	"github.com/soypat/marcher/marchaux"
)

func init() {
	runtime.LockOSThread()
}

var (
	flagWidth      = 800
	flagHeight     = 600
	flagCPU        = false
	flagCPUScale   = 2
	flagWorkers    = 0
	flagShadows    = false
	flagAO         = false
	flagAutoRotate = 0.0
	flagHUD        = false
	flagGLSL       = false
	flagBench      = 0
	flagCheckGPU   = false
	flagVerbose    = false
)

func main() {
	flag.IntVar(&flagWidth, "width", flagWidth, "window width in pixels")
	flag.IntVar(&flagHeight, "height", flagHeight, "window height in pixels")
	flag.BoolVar(&flagCPU, "cpu", flagCPU, "shade frames on the CPU and upload them as a texture")
	flag.IntVar(&flagCPUScale, "cpuscale", flagCPUScale, "divide CPU frame resolution by this factor")
	flag.IntVar(&flagWorkers, "workers", flagWorkers, "goroutines shading CPU frames, 0 uses GOMAXPROCS")
	flag.BoolVar(&flagShadows, "shadows", flagShadows, "enable soft shadows")
	flag.BoolVar(&flagAO, "ao", flagAO, "enable ambient occlusion")
	flag.Float64Var(&flagAutoRotate, "rotate", flagAutoRotate, "auto rotation in radians per frame, i.e: 0.01")
	flag.BoolVar(&flagHUD, "hud", flagHUD, "overlay frame statistics on CPU frames")
	flag.BoolVar(&flagGLSL, "glsl", flagGLSL, "print generated fragment program to stdout and exit")
	flag.IntVar(&flagBench, "bench", flagBench, "render this many CPU frames headless and exit")
	flag.BoolVar(&flagCheckGPU, "check-gpu", flagCheckGPU, "compare CPU and GPU scene distances and exit")
	flag.BoolVar(&flagVerbose, "v", flagVerbose, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	marchaux.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := run(ctx, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("marcher failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	scene := marcher.DefaultScene()
	cfg := glrender.DefaultConfig()
	cfg.Shadows = flagShadows
	cfg.AmbientOcclusion = flagAO

	switch {
	case flagGLSL:
		var buf bytes.Buffer
		_, err := marchaux.WriteFragmentProgram(&buf, scene, cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	case flagBench > 0:
		return bench(ctx, log, scene, cfg)
	case flagCheckGPU:
		return checkGPU(log, scene)
	}

	uicfg := marchaux.DefaultUIConfig()
	uicfg.Width = flagWidth
	uicfg.Height = flagHeight
	uicfg.Context = ctx
	uicfg.Render = cfg
	uicfg.CPU = flagCPU
	uicfg.CPUScale = flagCPUScale
	uicfg.Workers = flagWorkers
	uicfg.AutoRotate = float32(flagAutoRotate)
	uicfg.HUD = flagHUD
	return marchaux.UI(scene, uicfg)
}

func bench(ctx context.Context, log *slog.Logger, scene *marcher.Scene, cfg glrender.Config) error {
	shader, err := glrender.NewShader(scene, cfg)
	if err != nil {
		return err
	}
	renderer, err := glrender.NewImageRenderer(shader, flagWorkers)
	if err != nil {
		return err
	}
	orbit, err := marchaux.NewOrbit(marchaux.DefaultOrbitConfig())
	if err != nil {
		return err
	}
	w, h := flagWidth, flagHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	center := ms2.Vec{X: float32(w) / 2, Y: float32(h) / 2}
	var total time.Duration
	for i := 0; i < flagBench; i++ {
		orbit.Rotate(float32(flagAutoRotate))
		u := marchaux.FrameParams(orbit, cfg, w, h, center, total)
		start := time.Now()
		err = renderer.Render(ctx, img, u)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		total += elapsed
		log.Debug("frame rendered", "frame", i, "elapsed", elapsed, "camera", u.CameraPos)
	}
	log.Info("benchmark done", "frames", flagBench, "size", fmt.Sprintf("%dx%d", w, h),
		"total", total.Round(time.Millisecond), "perframe", (total / time.Duration(flagBench)).Round(time.Microsecond))
	return nil
}

// checkGPU evaluates the scene distance on a grid of points with a compute
// program and compares with the CPU evaluation.
func checkGPU(log *slog.Logger, scene *marcher.Scene) error {
	const n, half = 16, 4
	const tol = 1e-4
	terminate, err := gleval.Init1x1GLFW()
	if err != nil {
		return err
	}
	defer terminate()
	programmer := glbuild.NewDefaultProgrammer()
	var source bytes.Buffer
	_, err = programmer.WriteComputeSDF3(&source, scene)
	if err != nil {
		return err
	}
	invocX, _, _ := programmer.ComputeInvocations()
	sdfgpu, err := gleval.NewComputeGPUSDF3(&source, scene.Bounds(), invocX)
	if err != nil {
		return err
	}

	pos := make([]ms3.Vec, 0, n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				pos = append(pos, ms3.Vec{
					X: -half + 2*half*float32(i)/(n-1),
					Y: -half + 2*half*float32(j)/(n-1),
					Z: -half + 2*half*float32(k)/(n-1),
				})
			}
		}
	}
	distCPU := make([]float32, len(pos))
	distGPU := make([]float32, len(pos))
	err = scene.Evaluate(pos, distCPU, nil)
	if err != nil {
		return err
	}
	err = sdfgpu.Evaluate(pos, distGPU, nil)
	if err != nil {
		return err
	}
	mismatches := 0
	for i := range pos {
		if diff := math32.Abs(distCPU[i] - distGPU[i]); diff > tol {
			if mismatches < 8 {
				log.Warn("distance mismatch", "pos", pos[i], "cpu", distCPU[i], "gpu", distGPU[i])
			}
			mismatches++
		}
	}
	if mismatches > 0 {
		return fmt.Errorf("%d/%d GPU distances differ from CPU", mismatches, len(pos))
	}
	log.Info("GPU distances match CPU", "points", len(pos), "evaluations", sdfgpu.Evaluations())
	return nil
}
