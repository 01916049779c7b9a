package canvas

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/renderer"
)

// PlaneOptions configures a Plane.
type PlaneOptions struct {
	Material *renderer.Material
	// Width and Height are in canvas pixels. Ignored when FullSize is set.
	Width, Height float32
	// FullSize keeps the plane covering the whole canvas across resizes.
	FullSize bool
	Position mgl32.Vec3
}

// Plane is a rectangle drawn with a material.
type Plane struct {
	material *renderer.Material
	mesh     *renderer.Mesh
	fullSize bool
}

func NewPlane(opts PlaneOptions) (*Plane, error) {
	if opts.Material == nil {
		return nil, ErrMissingMaterial
	}
	p := &Plane{
		material: opts.Material,
		mesh:     renderer.NewMesh(opts.Material),
		fullSize: opts.FullSize,
	}
	p.mesh.Position = opts.Position
	p.mesh.Scale = mgl32.Vec3{opts.Width, opts.Height, 1}
	return p, nil
}

func (p *Plane) Material() *renderer.Material { return p.material }
func (p *Plane) Mesh() *renderer.Mesh         { return p.mesh }
func (p *Plane) FullSize() bool               { return p.fullSize }

// Size returns the plane size in canvas pixels.
func (p *Plane) Size() (float32, float32) { return p.mesh.Scale.X(), p.mesh.Scale.Y() }

func (p *Plane) Init(device renderer.Device, width, height int) error {
	p.fit(width, height)
	return p.material.Init(device, width, height)
}

func (p *Plane) Update(frame *graphics.FrameInfo) error {
	return p.material.Update(frame)
}

func (p *Plane) Resize(width, height int) error {
	p.fit(width, height)
	return p.material.Resize(width, height)
}

func (p *Plane) fit(width, height int) {
	if p.fullSize {
		p.mesh.Scale = mgl32.Vec3{float32(width), float32(height), 1}
	}
}
