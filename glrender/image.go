package glrender

import (
	"context"
	"errors"
	"image"
	"runtime"

	"github.com/soypat/geometry/ms2"
	"golang.org/x/sync/errgroup"
)

// ImageRenderer renders frames on the CPU by evaluating a [Shader] for every
// pixel of an image. Rows are distributed among a bounded number of goroutines.
type ImageRenderer struct {
	shader  *Shader
	workers int
}

// NewImageRenderer returns a renderer using up to workers goroutines.
// A non-positive workers value uses GOMAXPROCS.
func NewImageRenderer(shader *Shader, workers int) (*ImageRenderer, error) {
	if shader == nil {
		return nil, errors.New("nil shader")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ImageRenderer{shader: shader, workers: workers}, nil
}

// Shader returns the shader used by the renderer.
func (ir *ImageRenderer) Shader() *Shader { return ir.shader }

// Render shades every pixel of dst for the frame described by u.
// The image may be smaller than u.Resolution, in which case each image pixel
// samples the screen position at its center. Row 0 of dst is the top of the screen.
// Render returns ctx.Err() if ctx is cancelled before all rows are shaded.
func (ir *ImageRenderer) Render(ctx context.Context, dst *image.RGBA, u Uniforms) error {
	bounds := dst.Bounds()
	dx, dy := bounds.Dx(), bounds.Dy()
	if dx == 0 || dy == 0 {
		return errors.New("empty image")
	}
	res := u.Resolution
	if res.X <= 0 || res.Y <= 0 {
		res = ms2.Vec{X: float32(dx), Y: float32(dy)}
	}
	sx := res.X / float32(dx)
	sy := res.Y / float32(dy)
	cam := ir.shader.Camera(u)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ir.workers)
	for j := 0; j < dy; j++ {
		if gctx.Err() != nil {
			break
		}
		row := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fy := (float32(dy-row) - 0.5) * sy
			y := bounds.Min.Y + row
			for i := 0; i < dx; i++ {
				frag := ms2.Vec{X: (float32(i) + 0.5) * sx, Y: fy}
				c := ir.shader.pixel(cam, frag, res)
				dst.SetRGBA(bounds.Min.X+i, y, c.RGBA8())
			}
			return nil
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
