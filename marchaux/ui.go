//go:build !tinygo && cgo

package marchaux

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glrender"
)

const vertexSrc = `#version 460
in vec2 aPos;
out vec2 vTexCoord;
void main() {
    vTexCoord = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

const textureFragSrc = `#version 460
in vec2 vTexCoord;
out vec4 fragColor;
uniform sampler2D uFrame;
void main() {
    // Image rows are stored top to bottom.
    fragColor = texture(uFrame, vec2(vTexCoord.x, 1.0 - vTexCoord.y));
}
` + "\x00"

// frameDrawer draws one frame into the currently bound program.
type frameDrawer interface {
	draw(ctx context.Context, u glrender.Uniforms) error
	release()
}

func ui(scene *marcher.Scene, cfg UIConfig) error {
	log := Logger()
	orbit, err := NewOrbit(cfg.Orbit)
	if err != nil {
		return err
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	fbw, fbh := window.GetFramebufferSize()
	ww, wh := window.GetSize()

	var fragSrc string
	if cfg.CPU {
		fragSrc = textureFragSrc
	} else {
		var buf bytes.Buffer
		_, err = WriteFragmentProgram(&buf, scene, cfg.Render)
		if err != nil {
			return err
		}
		buf.WriteByte(0)
		fragSrc = buf.String()
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexSrc,
		Fragment: fragSrc,
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	defer prog.Delete()
	prog.Bind()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := QuadVertices()
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	var drawer frameDrawer
	if cfg.CPU {
		drawer, err = newTextureDrawer(prog, scene, cfg, fbw, fbh)
	} else {
		drawer = newUniformDrawer()
	}
	if err != nil {
		return err
	}
	defer drawer.release()
	log.Info("window ready", "framebuffer", [2]int{fbw, fbh}, "cpu", cfg.CPU)

	var (
		pointer        ms2.Vec
		isMousePressed bool
	)
	// Cursor positions arrive in window coordinates, scale them to framebuffer pixels.
	sx, sy := float32(fbw)/float32(ww), float32(fbh)/float32(wh)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		pointer = ms2.Vec{X: float32(xpos) * sx, Y: float32(ypos) * sy}
		if isMousePressed {
			orbit.PointerMoved(float32(xpos), float32(ypos))
		}
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		orbit.Scroll(float32(yoff))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			isMousePressed = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		case glfw.Release:
			isMousePressed = false
			orbit.PointerReleased()
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeySpace:
			orbit.Reset()
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	lastReport := start
	frames := 0
	for !window.ShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		orbit.Rotate(cfg.AutoRotate)
		u := FrameParams(orbit, cfg.Render, fbw, fbh, pointer, time.Since(start))

		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		prog.Bind()
		err = drawer.draw(ctx, u)
		if err != nil {
			return err
		}
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if since := time.Since(lastReport); since > time.Second {
			log.Debug("frame stats", "fps", float64(frames)/since.Seconds(), "camera", u.CameraPos)
			frames = 0
			lastReport = time.Now()
		}
	}
	return nil
}

// uniformDrawer uploads the parameter block for the generated fragment program.
type uniformDrawer struct {
	ubo uint32
	buf []byte
}

func newUniformDrawer() *uniformDrawer {
	d := &uniformDrawer{buf: make([]byte, 0, glrender.UniformsSize)}
	gl.GenBuffers(1, &d.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, glrender.UniformsSize, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, glrender.UniformBinding, d.ubo)
	return d
}

func (d *uniformDrawer) draw(_ context.Context, u glrender.Uniforms) error {
	d.buf = u.AppendBinary(d.buf[:0])
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(d.buf), gl.Ptr(d.buf))
	return nil
}

func (d *uniformDrawer) release() {
	gl.DeleteBuffers(1, &d.ubo)
}

// textureDrawer shades frames on the CPU and uploads them as a texture.
type textureDrawer struct {
	renderer *glrender.ImageRenderer
	low      *image.RGBA
	full     *image.RGBA
	tex      uint32
	hud      bool
}

func newTextureDrawer(prog glgl.Program, scene *marcher.Scene, cfg UIConfig, width, height int) (*textureDrawer, error) {
	shader, err := glrender.NewShader(scene, cfg.Render)
	if err != nil {
		return nil, err
	}
	renderer, err := glrender.NewImageRenderer(shader, cfg.Workers)
	if err != nil {
		return nil, err
	}
	d := &textureDrawer{
		renderer: renderer,
		low:      image.NewRGBA(image.Rect(0, 0, max(1, width/cfg.CPUScale), max(1, height/cfg.CPUScale))),
		full:     image.NewRGBA(image.Rect(0, 0, width, height)),
		hud:      cfg.HUD,
	}
	frameUniform, err := prog.UniformLocation("uFrame\x00")
	if err != nil {
		return nil, err
	}
	gl.Uniform1i(frameUniform, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.GenTextures(1, &d.tex)
	gl.BindTexture(gl.TEXTURE_2D, d.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	return d, nil
}

func (d *textureDrawer) draw(ctx context.Context, u glrender.Uniforms) error {
	watch := stopwatch()
	err := d.renderer.Render(ctx, d.low, u)
	if err != nil {
		return err
	}
	elapsed := watch()
	ScaleInto(d.full, d.low)
	if d.hud {
		lowSize := d.low.Bounds().Size()
		err = DrawHUD(d.full,
			fmt.Sprintf("cpu %dx%d %s", lowSize.X, lowSize.Y, elapsed.Round(time.Millisecond)),
			fmt.Sprintf("camera %.2f %.2f %.2f", u.CameraPos.X, u.CameraPos.Y, u.CameraPos.Z),
		)
		if err != nil {
			return err
		}
	}
	sz := d.full.Bounds().Size()
	gl.BindTexture(gl.TEXTURE_2D, d.tex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(sz.X), int32(sz.Y), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(d.full.Pix))
	return nil
}

func (d *textureDrawer) release() {
	gl.DeleteTextures(1, &d.tex)
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "marcher", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
