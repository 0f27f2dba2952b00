package marchaux

import (
	"errors"
	"io"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glbuild"
	"github.com/soypat/marcher/glrender"
)

// WriteFragmentProgram writes a complete GLSL fragment program rendering scene
// with the shading pipeline described by cfg. Per-frame parameters are read
// from the uniform block written by [glrender.Uniforms.AppendBinary] and the
// program expects a vTexCoord input in [0,1]² over the screen.
func WriteFragmentProgram(w io.Writer, scene *marcher.Scene, cfg glrender.Config) (n int, err error) {
	if scene == nil || scene.Len() == 0 {
		return 0, errors.New("empty scene")
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	programmer := glbuild.NewDefaultProgrammer()
	b := make([]byte, 0, 4096)
	b = append(b, glbuild.VersionStr...)
	b = glrender.AppendUniformBlockDecl(b)
	ngot, err := w.Write(b)
	n += ngot
	if err != nil {
		return n, err
	}
	root, ngot, err := programmer.WriteSDFDecl(w, scene)
	n += ngot
	if err != nil {
		return n, err
	}

	b = b[:0]
	b = append(b, "float sdf(vec3 p){\nreturn "...)
	b = append(b, root...)
	b = append(b, "(p);\n}\n"...)
	b = appendConstants(b, cfg)
	b = append(b, calcNormalSrc...)
	ngot, err = w.Write(b)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = programmer.WriteClassifierDecl(w, scene.Primitives(), "calcNormal")
	n += ngot
	if err != nil {
		return n, err
	}

	b = b[:0]
	b = appendMaterials(b, scene)
	b = append(b, shadingSrc...)
	ngot, err = w.Write(b)
	n += ngot
	return n, err
}

func appendConstants(b []byte, cfg glrender.Config) []byte {
	b = glbuild.AppendConstIntDecl(b, "MARCH_STEPS", cfg.March.MaxSteps)
	b = glbuild.AppendConstFloatDecl(b, "SURF_EPS", cfg.March.SurfaceEpsilon)
	b = glbuild.AppendConstFloatDecl(b, "MAX_DIST", cfg.March.MaxDistance)
	b = glbuild.AppendConstFloatDecl(b, "STEP_SCALE", cfg.March.StepScale)
	b = glbuild.AppendConstFloatDecl(b, "NORMAL_EPS", cfg.NormalEpsilon)

	b = glbuild.AppendConstIntDecl(b, "SHADOW_STEPS", cfg.Shadow.Steps)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_K", cfg.Shadow.K)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_MINSTEP", cfg.Shadow.MinStep)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_MAXSTEP", cfg.Shadow.MaxStep)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_EPS", cfg.Shadow.Epsilon)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_TMIN", cfg.ShadowTMin)
	b = glbuild.AppendConstFloatDecl(b, "SHADOW_TMAX", cfg.ShadowTMax)
	b = appendConstBool(b, "USE_SHADOWS", cfg.Shadows)

	b = glbuild.AppendConstIntDecl(b, "AO_SAMPLES", cfg.AO.Samples)
	b = glbuild.AppendConstFloatDecl(b, "AO_START", cfg.AO.Start)
	b = glbuild.AppendConstFloatDecl(b, "AO_SPACING", cfg.AO.Spacing)
	b = glbuild.AppendConstFloatDecl(b, "AO_DECAY", cfg.AO.Decay)
	b = glbuild.AppendConstFloatDecl(b, "AO_STRENGTH", cfg.AO.Strength)
	b = appendConstBool(b, "USE_AO", cfg.AmbientOcclusion)

	b = glbuild.AppendConstVec3Decl(b, "LIGHT_DIR", cfg.LightDir)
	b = glbuild.AppendConstVec3Decl(b, "AMBIENT", cfg.Ambient)
	b = glbuild.AppendConstVec3Decl(b, "SKY_LOW", cfg.SkyLow)
	b = glbuild.AppendConstVec3Decl(b, "SKY_HIGH", cfg.SkyHigh)
	b = glbuild.AppendConstVec3Decl(b, "TARGET", cfg.Target)
	b = glbuild.AppendConstVec3Decl(b, "WORLD_UP", cfg.WorldUp)
	return b
}

func appendConstBool(b []byte, name string, v bool) []byte {
	b = append(b, "const bool "...)
	b = append(b, name...)
	if v {
		return append(b, "=true;\n"...)
	}
	return append(b, "=false;\n"...)
}

func appendMaterials(b []byte, scene *marcher.Scene) []byte {
	colors := make([]ms3.Vec, scene.Len())
	for i := range colors {
		colors[i] = scene.Material(i).BaseColor
	}
	b = append(b, "const "...)
	return glbuild.AppendVec3SliceDecl(b, "MATERIALS", colors)
}

const calcNormalSrc = `vec3 calcNormal(vec3 p){
	vec2 e = vec2(NORMAL_EPS, 0.0);
	vec3 g = vec3(
		sdf(p+e.xyy) - sdf(p-e.xyy),
		sdf(p+e.yxy) - sdf(p-e.yxy),
		sdf(p+e.yyx) - sdf(p-e.yyx)
	);
	float l = length(g);
	return l < 6e-7 ? vec3(0.0) : g/l;
}
`

const shadingSrc = `
in vec2 vTexCoord;
out vec4 fragColor;

float softShadow(vec3 ro, vec3 rd, float tmin, float tmax){
	float res = 1.0;
	float t = tmin;
	for (int i = 0; i < SHADOW_STEPS; i++) {
		float d = sdf(ro + t*rd);
		if (d < SHADOW_EPS) {
			return 0.0;
		}
		if (t > 0.0) {
			res = min(res, SHADOW_K*d/t);
		}
		t += clamp(d, SHADOW_MINSTEP, SHADOW_MAXSTEP);
		if (t > tmax) {
			break;
		}
	}
	return clamp(res, 0.0, 1.0);
}

float ambientOcclusion(vec3 p, vec3 n){
	float occ = 0.0;
	float w = 1.0;
	for (int i = 0; i < AO_SAMPLES; i++) {
		float h = AO_START + AO_SPACING*float(i);
		float d = sdf(p + h*n);
		occ += (h - d)*w;
		w *= AO_DECAY;
	}
	return clamp(1.0 - AO_STRENGTH*occ, 0.0, 1.0);
}

vec3 background(vec3 dir){
	float a = clamp(0.5*(clamp(dir.y, -1.0, 1.0) + 1.0), 0.0, 1.0);
	return mix(SKY_LOW, SKY_HIGH, a);
}

vec3 shade(vec3 ro, vec3 rd){
	float t = 0.0;
	bool hit = false;
	vec3 p = ro;
	for (int i = 0; i < MARCH_STEPS; i++) {
		p = ro + t*rd;
		float d = sdf(p);
		if (d < SURF_EPS) {
			hit = true;
			break;
		}
		t += d*STEP_SCALE;
		if (t > MAX_DIST) {
			break;
		}
	}
	if (!hit) {
		return background(rd);
	}
	int id = sdfClassify(p);
	vec3 n = sdfNormal(id, p);
	vec3 light = normalize(LIGHT_DIR);
	float diffuse = max(0.0, dot(n, light));
	if (USE_SHADOWS && diffuse > 0.0) {
		diffuse *= softShadow(p + 2.0*SURF_EPS*n, light, SHADOW_TMIN, SHADOW_TMAX);
	}
	vec3 ambient = AMBIENT;
	if (USE_AO) {
		ambient *= ambientOcclusion(p, n);
	}
	return clamp(ambient + MATERIALS[id]*diffuse, 0.0, 1.0);
}

vec3 safeNormalize(vec3 v){
	float l = length(v);
	return l < 6e-7 ? vec3(0.0) : v/l;
}

void main(){
	vec2 fragCoord = vTexCoord*uResolution;
	vec2 uv = (2.0*fragCoord - uResolution)/uResolution.y;
	vec3 fwd = safeNormalize(TARGET - uCameraPos);
	vec3 right = safeNormalize(cross(WORLD_UP, fwd));
	vec3 up = cross(fwd, right);
	vec3 rd = safeNormalize(fwd + uv.x*right + uv.y*up);
	fragColor = vec4(shade(uCameraPos, rd), 1.0);
}
`
