package marchaux

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

const hudFontSize = 12

var hudFont = sync.OnceValues(func() (*truetype.Font, error) {
	return freetype.ParseFont(goregular.TTF)
})

// DrawHUD draws lines of text over the top left corner of dst, one line per argument.
func DrawHUD(dst draw.Image, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	font, err := hudFont()
	if err != nil {
		return err
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(font)
	ctx.SetFontSize(hudFontSize)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	lineHeight := ctx.PointToFixed(hudFontSize * 1.4)
	origin := dst.Bounds().Min
	shadow := image.NewUniform(color.RGBA{A: 255})
	for _, pass := range []struct {
		src    image.Image
		offset int
	}{
		{src: shadow, offset: 1},
		{src: image.White, offset: 0},
	} {
		ctx.SetSrc(pass.src)
		pt := freetype.Pt(origin.X+4+pass.offset, origin.Y+pass.offset)
		for _, line := range lines {
			pt.Y += lineHeight
			if _, err := ctx.DrawString(line, pt); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScaleInto scales src to fill dst using bilinear interpolation.
func ScaleInto(dst draw.Image, src image.Image) {
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}
