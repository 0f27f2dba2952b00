//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPUSDF3 instantiates a [SDF3] that runs on the GPU. The source code
// is expected to be generated by [glbuild.Programmer.WriteComputeSDF3].
func NewComputeGPUSDF3(glglSourceCode io.Reader, bb ms3.Box, invocX int) (*SDF3Compute, error) {
	if invocX < 1 {
		return nil, errors.New("zero or negative invocation size")
	}
	combinedSource, err := glgl.ParseCombined(glglSourceCode)
	if err != nil {
		return nil, err
	}
	glprog, err := glgl.CompileProgram(combinedSource)
	if err != nil {
		return nil, errors.New(string(combinedSource.Compute) + "\n" + err.Error())
	}
	sdf := SDF3Compute{
		prog:   glprog,
		bb:     bb,
		invocX: invocX,
	}
	return &sdf, nil
}

// SDF3Compute evaluates a compiled compute program over batches of positions.
// It must be used from the goroutine holding the GL context.
type SDF3Compute struct {
	prog   glgl.Program
	bb     ms3.Box
	invocX int
	evals  uint64
}

func (sdf *SDF3Compute) Bounds() ms3.Box {
	return sdf.bb
}

// Evaluations returns the number of positions evaluated during the SDF's lifetime.
func (sdf *SDF3Compute) Evaluations() uint64 { return sdf.evals }

func (sdf *SDF3Compute) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(dist) == 0 {
		return errEmptyBuffers
	}
	sdf.prog.Bind()
	defer sdf.prog.Unbind()
	err := computeEvaluate(pos, dist, sdf.invocX)
	if err != nil {
		return err
	}
	sdf.evals += uint64(len(pos))
	return nil
}

func computeEvaluate(pos []ms3.Vec, dist []float32, invocX int) (err error) {
	// std140 arrays of vec3 have a 16 byte stride.
	padded := make([][4]float32, len(pos))
	for i, p := range pos {
		padded[i] = [4]float32{p.X, p.Y, p.Z, 0}
	}
	var p runtime.Pinner
	var posSSBO, distSSBO uint32
	p.Pin(&posSSBO)
	p.Pin(&distSSBO)
	defer p.Unpin()

	posSSBO = loadSSBO(padded, 0, gl.STATIC_DRAW)
	if posSSBO == 0 {
		return glErrOrMessage("zero SSBO id set by GL during compute loading")
	}
	defer gl.DeleteBuffers(1, &posSSBO)

	distSSBO = createSSBO(elemSize[float32]()*len(dist), 1, gl.DYNAMIC_READ)
	if distSSBO == 0 {
		return glErrOrMessage("zero id SSBO creating distance buffer")
	}
	defer gl.DeleteBuffers(1, &distSSBO)
	nWorkX := (len(dist) + invocX - 1) / invocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = copySSBO(dist, distSSBO)
	if err != nil {
		return err
	}
	return glgl.Err()
}

func loadSSBO[T any](slice []T, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	size := len(slice) * elemSize[T]()
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, unsafe.Pointer(&slice[0]), usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func createSSBO(size int, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO[T any](dst []T, ssbo uint32) error {
	bufSize := elemSize[T]() * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO buffer during copy")
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gpuBytes := unsafe.Slice((*byte)(ptr), bufSize)
	bufBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dst[0])), bufSize)
	copy(bufBytes, gpuBytes)
	return nil
}

func elemSize[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
