package glrender

import (
	"encoding/binary"
	"math"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	// UniformBinding is the uniform buffer binding point of [Uniforms] in generated programs.
	UniformBinding = 0
	// UniformsSize is the size in bytes of the std140 encoding of [Uniforms].
	UniformsSize = 48
)

// Uniforms is the parameter block produced by the host once per frame and
// read once per pixel. It is passed by value and never modified during shading.
type Uniforms struct {
	// Resolution is the screen size in pixels.
	Resolution ms2.Vec
	// Time is the elapsed time in seconds.
	Time float32
	// Pointer is the normalized pointer position with origin at the bottom left.
	Pointer   ms2.Vec
	CameraPos ms3.Vec
}

// AppendBinary appends the std140 layout of u to b:
//
//	layout(std140) uniform Params {
//		vec2 uResolution; // offset 0
//		float uTime;      // offset 8
//		vec2 uPointer;    // offset 16
//		vec3 uCameraPos;  // offset 32
//	};                    // size 48
func (u Uniforms) AppendBinary(b []byte) []byte {
	var buf [UniformsSize]byte
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	put(0, u.Resolution.X)
	put(4, u.Resolution.Y)
	put(8, u.Time)
	put(16, u.Pointer.X)
	put(20, u.Pointer.Y)
	put(32, u.CameraPos.X)
	put(36, u.CameraPos.Y)
	put(40, u.CameraPos.Z)
	return append(b, buf[:]...)
}

// AppendUniformBlockDecl appends the GL declaration matching [Uniforms.AppendBinary].
func AppendUniformBlockDecl(b []byte) []byte {
	return append(b, `layout(std140, binding = 0) uniform Params {
	vec2 uResolution;
	float uTime;
	vec2 uPointer;
	vec3 uCameraPos;
};
`...)
}
