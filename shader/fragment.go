package shader

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

const fragmentSkeleton = `#version 300 es
precision highp float;
precision highp int;

in vec3 vPosition;
in vec3 vNormal;
in vec2 vUv;

out vec4 fragColor;

// Custom uniforms
#include <uniforms>

// Shader commons
#include <commons>

#include <main>
`

const defaultTextureSize = 512

var (
	whiteOnce sync.Once
	white     *graphics.DataTexture
)

// defaultWhite is the shared sampler default. Data textures are immutable so
// every program can point at the same one.
func defaultWhite() *graphics.DataTexture {
	whiteOnce.Do(func() {
		white = graphics.White(defaultTextureSize, defaultTextureSize)
	})
	return white
}

var baseFragmentDefinition = Definition{
	Name:     "BaseFragmentShader",
	Skeleton: fragmentSkeleton,
	Main: `
void main() {
    fragColor = vec4(1.0, 1.0, 1.0, 1.0);
}
`,
	Kernel: Kernel{Fragment: func(FragmentInput, Table) mgl32.Vec4 {
		return mgl32.Vec4{1, 1, 1, 1}
	}},
}

// NewBaseFragment returns the flat white fragment shader.
func NewBaseFragment() *Program {
	return mustProgram(baseFragmentDefinition, nil)
}

func textureDefinition() Definition {
	return Definition{
		Name:     "TextureFragmentShader",
		Skeleton: fragmentSkeleton,
		Uniforms: []Declaration{
			{Name: "map", Type: Sampler2D, Default: defaultWhite()},
		},
		Main: `
void main() {
    fragColor = texture(map, vUv);
}
`,
		Kernel: Kernel{Fragment: func(in FragmentInput, u Table) mgl32.Vec4 {
			return SampleTexture(u.Texture("map"), in.UV)
		}},
	}
}

// NewTextureFragment displays the texture bound to "map" unchanged.
func NewTextureFragment(overrides map[string]any) (*Program, error) {
	return NewProgram(textureDefinition(), overrides)
}

func colorDefinition() Definition {
	return Definition{
		Name:     "ColorFragmentShader",
		Skeleton: fragmentSkeleton,
		Uniforms: []Declaration{
			{Name: "map", Type: Sampler2D, Default: defaultWhite()},
			{Name: "color", Type: Vec3, Default: graphics.Hex(0xffffff)},
		},
		Main: `
void main() {
    fragColor = texture(map, vUv) * vec4(color.xyz, 1.0);
}
`,
		Kernel: Kernel{Fragment: func(in FragmentInput, u Table) mgl32.Vec4 {
			c := u.Vec3("color")
			px := SampleTexture(u.Texture("map"), in.UV)
			return mgl32.Vec4{px.X() * c.X(), px.Y() * c.Y(), px.Z() * c.Z(), px.W()}
		}},
	}
}

// NewColorFragment tints the "map" texture with "color".
func NewColorFragment(overrides map[string]any) (*Program, error) {
	return NewProgram(colorDefinition(), overrides)
}

var uvDefinition = Definition{
	Name:     "DisplayUVFragmentShader",
	Skeleton: fragmentSkeleton,
	Main: `
void main() {
    fragColor = vec4(vUv.xy, 1.0, 1.0);
}
`,
	Kernel: Kernel{Fragment: func(in FragmentInput, _ Table) mgl32.Vec4 {
		return mgl32.Vec4{in.UV.X(), in.UV.Y(), 1, 1}
	}},
}

// NewUVFragment displays the mesh UVs.
func NewUVFragment() *Program {
	return mustProgram(uvDefinition, nil)
}

func gradientDefinition() Definition {
	return Definition{
		Name:     "GradientFragmentShader",
		Skeleton: fragmentSkeleton,
		Uniforms: []Declaration{
			{Name: "baseTexture", Type: Sampler2D, Default: defaultWhite()},
			{Name: "toColor", Type: Vec3, Default: graphics.Hex(0x00ffff)},
			{Name: "screenSize", Type: Vec2, Default: mgl32.Vec2{1, 1}},
		},
		Main: `
void main() {
    vec4 pixel = texture(baseTexture, vUv);
    float t = gl_FragCoord.x / screenSize.x;
    fragColor = mix(pixel, vec4(toColor.xyz, 1.0), t);
}
`,
		Kernel: Kernel{Fragment: func(in FragmentInput, u Table) mgl32.Vec4 {
			pixel := SampleTexture(u.Texture("baseTexture"), in.UV)
			var t float32
			if w := u.Vec2("screenSize").X(); w != 0 {
				t = in.FragCoord.X() / w
			}
			return mix(pixel, u.Vec3("toColor").Vec4(1), t)
		}},
		// screenSize follows the render target, which is the canvas scaled
		// by the pass scale.
		Update: func(t Target, frame *graphics.FrameInfo, scale float32) error {
			if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
				return nil
			}
			size := mgl32.Vec2{float32(frame.Width) * scale, float32(frame.Height) * scale}
			return setIfDeclared(t, "screenSize", size)
		},
	}
}

// NewGradientFragment blends "baseTexture" towards "toColor" from the left
// edge (t=0) to the right edge (t=1) of the target.
func NewGradientFragment(overrides map[string]any) (*Program, error) {
	return NewProgram(gradientDefinition(), overrides)
}

func pulseDefinition() Definition {
	return Definition{
		Name:     "PulseFragmentShader",
		Skeleton: fragmentSkeleton,
		Uniforms: []Declaration{
			{Name: "time", Type: Float, Default: 0},
			{Name: "baseTexture", Type: Sampler2D, Default: defaultWhite()},
			{Name: "color", Type: Vec3, Default: graphics.Hex(0x0000ff)},
		},
		Main: `
void main() {
    float t = remap(sin(time), -1.0, 1.0, 0.0, 1.0);
    fragColor = mix(texture(baseTexture, vUv), vec4(color, 1.0), t);
}
`,
		Kernel: Kernel{Fragment: func(in FragmentInput, u Table) mgl32.Vec4 {
			t := Remap(float32(math.Sin(float64(u.Float("time")))), -1, 1, 0, 1)
			return mix(SampleTexture(u.Texture("baseTexture"), in.UV), u.Vec3("color").Vec4(1), t)
		}},
		Update: func(t Target, frame *graphics.FrameInfo, _ float32) error {
			if frame == nil {
				return nil
			}
			return setIfDeclared(t, "time", frame.ElapsedTime)
		},
	}
}

// NewPulseFragment oscillates between "baseTexture" and "color" over time.
func NewPulseFragment(overrides map[string]any) (*Program, error) {
	return NewProgram(pulseDefinition(), overrides)
}
