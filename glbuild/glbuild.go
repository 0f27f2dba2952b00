package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 460\n"

// Shader stores information for automatically generating SDF shader pipelines
// and evaluating them correctly on a GPU.
type Shader interface {
	// AppendShaderName appends the name of the GL shader function
	// to the buffer and returns the result. It should be unique to that shader.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the shader function to the
	// buffer and returns the result. The body receives a `vec3 p` argument
	// and must return a float distance.
	AppendShaderBody(b []byte) []byte
}

// Shader3D can create SDF shader source code for an arbitrary 3D shape.
type Shader3D interface {
	Shader
	// ForEachChild iterates over the Shader3D's direct Shader3D children.
	// Primitives have no children. A scene has one child per primitive.
	ForEachChild(userData any, fn func(userData any, s *Shader3D) error) error
	// Bounds returns the Shader3D's bounding box where the SDF is negative.
	Bounds() ms3.Box
}

// NormalShader is implemented by shaders with a closed-form outward surface normal.
type NormalShader interface {
	Shader3D
	// AppendNormalBody appends the body of a `vec3 f(vec3 p)` function
	// returning the unit outward normal at p.
	AppendNormalBody(b []byte) []byte
}

// Programmer implements shader generation logic for Shader type.
type Programmer struct {
	scratchNodes  []Shader3D
	scratch       []byte
	computeHeader []byte
	// names maps shader names to body hashes for checking duplicates.
	names map[uint64]uint64
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

var defaultComputeHeader = []byte("#shader compute\n" + VersionStr)

// NewDefaultProgrammer returns a Programmer with reasonable default parameters for use with glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratchNodes:  make([]Shader3D, 0, 16),
		scratch:       make([]byte, 1024),
		computeHeader: defaultComputeHeader,
		names:         make(map[uint64]uint64),
		invocX:        32,
	}
}

// SetComputeInvocations sets the work group local size in x.
func (p *Programmer) SetComputeInvocations(x int) {
	if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteSDFDecl writes the SDF shader function declarations of s and all its descendants
// and returns the top-level SDF function name. Identical shaders are written once.
func (p *Programmer) WriteSDFDecl(w io.Writer, s Shader3D) (baseName string, n int, err error) {
	baseName, nodes, err := ParseAppendNodes(p.scratchNodes[:0], s)
	if err != nil {
		return "", 0, err
	}
	p.scratchNodes = nodes[:0]
	n, err = p.writeShaders(w, nodes)
	if err != nil {
		return "", n, err
	}
	return baseName, n, nil
}

func (p *Programmer) writeShaders(w io.Writer, nodes []Shader3D) (n int, err error) {
	clear(p.names)
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		var name, body []byte
		p.scratch, name, body = AppendShaderSource(p.scratch[:0], node)
		nameHash := hash(name, 0)
		bodyHash := hash(body, nameHash)
		gotBodyHash, nameConflict := p.names[nameHash]
		if nameConflict {
			if bodyHash == gotBodyHash {
				continue // Shader already written and is identical, skip.
			}
			return n, fmt.Errorf("duplicate %T shader name %q with distinct body:\n%s", node, name, body)
		}
		p.names[nameHash] = bodyHash
		ngot, err := w.Write(p.scratch)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteClassifierDecl writes two functions over the ordered primitives:
//
//	int sdfClassify(vec3 p)      // index of the primitive closest to p, ties resolved to lowest index.
//	vec3 sdfNormal(int id, vec3 p) // closed-form normal of primitive id or fallbackNormal(p).
//
// The primitive SDF functions must already be declared, see [Programmer.WriteSDFDecl].
// fallbackNormal must name a `vec3 f(vec3 p)` function declared before this one.
func (p *Programmer) WriteClassifierDecl(w io.Writer, prims []Shader3D, fallbackNormal string) (int, error) {
	if len(prims) == 0 {
		return 0, errors.New("no primitives to classify")
	} else if fallbackNormal == "" {
		return 0, errors.New("empty fallback normal function name")
	}
	b := p.scratch[:0]
	for i, prim := range prims {
		ns, ok := prim.(NormalShader)
		if !ok {
			continue
		}
		b = append(b, "vec3 sdfNormal"...)
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(b, "(vec3 p){\n"...)
		b = ns.AppendNormalBody(b)
		b = append(b, "\n}\n"...)
	}

	b = append(b, "int sdfClassify(vec3 p){\nint id=0;\n"...)
	b = AppendDistanceDecl(b, "dmin", "p", prims[0])
	for i, prim := range prims[1:] {
		b = append(b, "{\n"...)
		b = AppendDistanceDecl(b, "d", "p", prim)
		b = append(b, "if(d<dmin){dmin=d;id="...)
		b = strconv.AppendInt(b, int64(i+1), 10)
		b = append(b, ";}\n}\n"...)
	}
	b = append(b, "return id;\n}\n"...)

	b = append(b, "vec3 sdfNormal(int id, vec3 p){\n"...)
	for i, prim := range prims {
		if _, ok := prim.(NormalShader); !ok {
			continue
		}
		b = append(b, "if(id=="...)
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(b, ") return sdfNormal"...)
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(b, "(p);\n"...)
	}
	b = append(b, "return "...)
	b = append(b, fallbackNormal...)
	b = append(b, "(p);\n}\n"...)
	p.scratch = b
	return w.Write(b)
}

// WriteComputeSDF3 creates the bare bones I/O compute program for calculating the SDF
// over a buffer of positions and writes it to the writer.
func (p *Programmer) WriteComputeSDF3(w io.Writer, obj Shader3D) (int, error) {
	n, err := w.Write(p.computeHeader)
	if err != nil {
		return n, err
	}
	baseName, ngot, err := p.WriteSDFDecl(w, obj)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `
layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: 3D positions at which to evaluate SDF.
layout(std140, binding = 0) buffer PositionsBuffer {
    vec3 vbo_positions[];
};

// Output: Result of SDF evaluation are the distances. Maps to position buffer.
layout(std430, binding = 1) buffer DistancesBuffer {
    float vbo_distances[];
};

void main() {
	int idx = int( gl_GlobalInvocationID.x );
	vec3 p = vbo_positions[idx];
	vbo_distances[idx] = %s(p);
}
`, p.invocX, baseName)
	n += ngot
	return n, err
}

// ParseAppendNodes appends root and all its descendants to dst in BFS order and
// returns the root's shader function name.
func ParseAppendNodes(dst []Shader3D, root Shader3D) (baseName string, nodes []Shader3D, err error) {
	if root == nil {
		return "", nil, errors.New("nil shader object")
	}
	baseName = string(root.AppendShaderName([]byte{}))
	if baseName == "" {
		return "", nil, errors.New("empty shader name")
	}
	dst, err = AppendAllNodes(dst, root)
	if err != nil {
		return "", nil, err
	}
	return baseName, dst, nil
}

// AppendAllNodes BFS iterates over all of root's descendants and appends all nodes
// found to dst.
//
// To generate shaders one must iterate over nodes in reverse order to ensure
// the first iterated nodes are the nodes with no dependencies on other nodes.
func AppendAllNodes(dst []Shader3D, root Shader3D) ([]Shader3D, error) {
	var userData any
	start := len(dst)
	dst = append(dst, root)
	nilChild := errors.New("got nil child in AppendAllNodes")
	for next := start; next < len(dst); next++ {
		err := dst[next].ForEachChild(userData, func(userData any, s *Shader3D) error {
			if s == nil || *s == nil {
				return nilChild
			}
			dst = append(dst, *s)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// AppendShaderSource appends the GL code of a single shader to the dst byte buffer.
// name and body byte slices pointing to the result buffer are also returned for convenience.
func AppendShaderSource(dst []byte, s Shader) (result, name, body []byte) {
	dst = append(dst, "float "...)
	nameStart := len(dst)
	dst = s.AppendShaderName(dst)
	nameEnd := len(dst)
	dst = append(dst, "(vec3 p){\n"...)
	bodyStart := len(dst)
	dst = s.AppendShaderBody(dst)
	bodyEnd := len(dst)
	dst = append(dst, "\n}\n"...)
	return dst, dst[nameStart:nameEnd], dst[bodyStart:bodyEnd]
}

func AppendDistanceDecl(b []byte, floatVarname, sdfPositionArgInput string, s Shader) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = s.AppendShaderName(b)
	b = append(b, '(')
	b = append(b, sdfPositionArgInput...)
	b = append(b, ");\n"...)
	return b
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, "=vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	b = append(b, ')', ';', '\n')
	return b
}

// AppendConstVec3Decl is like [AppendVec3Decl] but declares a compile-time constant.
func AppendConstVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "const "...)
	return AppendVec3Decl(b, vec3Varname, v)
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

// AppendConstFloatDecl is like [AppendFloatDecl] but declares a compile-time constant.
func AppendConstFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "const "...)
	return AppendFloatDecl(b, floatVarname, v)
}

func AppendIntDecl(b []byte, intVarname string, v int) []byte {
	b = append(b, "int "...)
	b = append(b, intVarname...)
	b = append(b, '=')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, ';', '\n')
	return b
}

// AppendConstIntDecl is like [AppendIntDecl] but declares a compile-time constant.
func AppendConstIntDecl(b []byte, intVarname string, v int) []byte {
	b = append(b, "const "...)
	return AppendIntDecl(b, intVarname, v)
}

const decimalDigits = 9

// AppendFloat appends v with a fixed number of decimals and trailing zeros trimmed.
// The neg and decimal bytes replace the minus sign and the decimal point respectively,
// which lets callers build valid GL identifiers from numbers, i.e: 'n' and 'p'.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes, keeping one digit after the decimal point.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

const maxLineLim = 500

func AppendVec3SliceDecl(b []byte, vec3Varname string, vecs []ms3.Vec) []byte {
	return AppendGenericSliceDecl(b, "vec3", vec3Varname, len(vecs), func(b []byte, i int) []byte {
		v := vecs[i]
		b = append(b, "vec3("...)
		b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
		b = append(b, ')')
		return b
	})
}

func AppendGenericSliceDecl(b []byte, typename, varname string, nelem int, appendElement func(b []byte, i int) []byte) []byte {
	lineStart := len(b)
	b = appendStartSliceDecl(b, typename, varname, nelem)
	for i := 0; i < nelem; i++ {
		last := i == nelem-1
		b = appendElement(b, i)
		if !last {
			b = append(b, ',')
			lineLen := len(b) - lineStart
			if lineLen > maxLineLim {
				b = append(b, '\n')
				lineStart = len(b)
			}
		}
	}
	b = append(b, ");\n"...)
	return b
}

func appendStartSliceDecl(b []byte, typeName, varName string, length int) []byte {
	typeStart := len(b)
	b = append(b, typeName...)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(length), 10)
	b = append(b, ']')
	typeEnd := len(b)
	b = append(b, ' ')
	b = append(b, varName...)
	b = append(b, '=')
	b = append(b, b[typeStart:typeEnd]...) // Reuse typename appended earlier.
	b = append(b, '(')
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
