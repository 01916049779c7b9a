package renderer

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

// Device is the graphics runtime the pipeline draws with. It is only used to
// allocate targets, bind them, clear them and draw meshes.
type Device interface {
	// NewRenderTarget allocates an offscreen colour target.
	NewRenderTarget(width, height int) (graphics.RenderTarget, error)
	// Release frees the device resources behind a render target or an
	// uploaded data texture. Releasing an unknown texture is a no-op.
	Release(tex graphics.Texture)
	// SetRenderTarget binds target as the draw destination; nil binds the
	// visible framebuffer.
	SetRenderTarget(target graphics.RenderTarget)
	// SetSize sets the size of the visible framebuffer.
	SetSize(width, height int)
	// Clear clears the bound destination to transparent black.
	Clear()
	// Render draws mesh into the bound destination as seen by camera.
	Render(mesh *Mesh, camera *graphics.Camera) error
	// ReadPixels reads back target (nil for the visible framebuffer) as an
	// image whose first row is the top row.
	ReadPixels(target graphics.RenderTarget) (*image.RGBA, error)
}

// ProgramSource is implemented by materials. Devices call OnBeforeProgramBuild
// once, before the first draw of the source, to obtain sources and uniforms.
type ProgramSource interface {
	OnBeforeProgramBuild(params *ProgramParams)
}

// ProgramParams is the program description a device compiles. Uniform slots
// are shared with the material, so values written after the build are seen by
// every later draw.
type ProgramParams struct {
	Uniforms       shader.Table
	VertexShader   string
	FragmentShader string
	Kernel         shader.Kernel
}

// Mesh is a unit plane (x and y in [-0.5, 0.5], uv in [0, 1]) transformed by
// Position and Scale.
type Mesh struct {
	Material ProgramSource
	Position mgl32.Vec3
	Scale    mgl32.Vec3
}

func NewMesh(material ProgramSource) *Mesh {
	return &Mesh{Material: material, Scale: mgl32.Vec3{1, 1, 1}}
}

// Model returns the model matrix.
func (m *Mesh) Model() mgl32.Mat4 {
	return mgl32.Translate3D(m.Position.X(), m.Position.Y(), m.Position.Z()).
		Mul4(mgl32.Scale3D(m.Scale.X(), m.Scale.Y(), m.Scale.Z()))
}

// PlaneVertices is the unit plane as interleaved position, normal and uv,
// two counter-clockwise triangles.
var PlaneVertices = []float32{
	// position        normal     uv
	-0.5, -0.5, 0, 0, 0, 1, 0, 0,
	0.5, -0.5, 0, 0, 0, 1, 1, 0,
	0.5, 0.5, 0, 0, 0, 1, 1, 1,
	-0.5, -0.5, 0, 0, 0, 1, 0, 0,
	0.5, 0.5, 0, 0, 0, 1, 1, 1,
	-0.5, 0.5, 0, 0, 0, 1, 0, 1,
}

// PlaneStride is the number of floats per vertex in PlaneVertices.
const PlaneStride = 8
