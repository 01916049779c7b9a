package shader

import "github.com/go-gl/mathgl/mgl32"

const vertexSkeleton = `#version 300 es
precision highp float;
precision highp int;

layout (location = 0) in vec3 position;
layout (location = 1) in vec3 normal;
layout (location = 2) in vec2 uv;

uniform mat4 modelViewMatrix;
uniform mat4 projectionMatrix;

out vec3 vPosition;
out vec3 vNormal;
out vec2 vUv;

// Custom uniforms
#include <uniforms>

// Shader commons
#include <commons>

#include <main>
`

const baseVertexMain = `
void main() {
    vPosition = position;
    vNormal = normal;
    vUv = uv;

    vec4 modelViewPosition = modelViewMatrix * vec4(position, 1.0);
    gl_Position = projectionMatrix * modelViewPosition;
}
`

// The quad covers clip space directly; vUv keeps the mesh UVs so textures
// are sampled over [0,1].
const fullScreenVertexMain = `
void main() {
    vPosition = position;
    vNormal = normal;
    vUv = uv;

    gl_Position = vec4((uv - vec2(0.5)) * 2.0, 0.0, 1.0);
}
`

func passVaryings(in VertexInput) Varyings {
	return Varyings{Position: in.Position, Normal: in.Normal, UV: in.UV}
}

func baseVertex(in VertexInput, _ Table) (mgl32.Vec4, Varyings) {
	clip := in.Projection.Mul4(in.ModelView).Mul4x1(in.Position.Vec4(1))
	return clip, passVaryings(in)
}

func fullScreenVertex(in VertexInput, _ Table) (mgl32.Vec4, Varyings) {
	p := in.UV.Sub(mgl32.Vec2{0.5, 0.5}).Mul(2)
	return mgl32.Vec4{p.X(), p.Y(), 0, 1}, passVaryings(in)
}

var baseVertexDefinition = Definition{
	Name:     "BaseVertexShader",
	Skeleton: vertexSkeleton,
	Main:     baseVertexMain,
	Kernel:   Kernel{Vertex: baseVertex},
}

var fullScreenVertexDefinition = Definition{
	Name:     "FullScreenVertexShader",
	Skeleton: vertexSkeleton,
	Main:     fullScreenVertexMain,
	Kernel:   Kernel{Vertex: fullScreenVertex},
}

// NewBaseVertex returns the pass-through vertex shader that projects the mesh
// with the camera matrices.
func NewBaseVertex() *Program {
	return mustProgram(baseVertexDefinition, nil)
}

// NewFullScreenVertex returns a vertex shader that stretches a unit quad over
// the whole render target regardless of camera.
func NewFullScreenVertex() *Program {
	return mustProgram(fullScreenVertexDefinition, nil)
}
