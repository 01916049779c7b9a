package renderer

import (
	"errors"
	"image"

	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

type fakeTarget struct {
	id            int
	width, height int
	destroyed     bool
}

func (t *fakeTarget) Size() (int, int) { return t.width, t.height }
func (t *fakeTarget) Destroyed() bool  { return t.destroyed }

type fakeDraw struct {
	target   graphics.RenderTarget
	mesh     *Mesh
	samplers map[string]graphics.Texture
}

// fakeDevice records what the pipeline asks of a device.
type fakeDevice struct {
	nextID    int
	bound     graphics.RenderTarget
	draws     []fakeDraw
	released  []graphics.Texture
	programs  map[ProgramSource]*ProgramParams
	failAlloc bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{programs: make(map[ProgramSource]*ProgramParams)}
}

func (d *fakeDevice) NewRenderTarget(width, height int) (graphics.RenderTarget, error) {
	if d.failAlloc {
		return nil, errors.New("out of memory")
	}
	d.nextID++
	return &fakeTarget{id: d.nextID, width: width, height: height}, nil
}

func (d *fakeDevice) Release(tex graphics.Texture) {
	if t, ok := tex.(*fakeTarget); ok {
		t.destroyed = true
	}
	d.released = append(d.released, tex)
}

func (d *fakeDevice) SetRenderTarget(target graphics.RenderTarget) { d.bound = target }
func (d *fakeDevice) SetSize(int, int)                             {}
func (d *fakeDevice) Clear()                                       {}

func (d *fakeDevice) Render(mesh *Mesh, _ *graphics.Camera) error {
	p, ok := d.programs[mesh.Material]
	if !ok {
		p = &ProgramParams{}
		mesh.Material.OnBeforeProgramBuild(p)
		d.programs[mesh.Material] = p
	}
	samplers := make(map[string]graphics.Texture)
	for name, u := range p.Uniforms {
		if u.Type == shader.Sampler2D {
			samplers[name] = p.Uniforms.Texture(name)
		}
	}
	d.draws = append(d.draws, fakeDraw{target: d.bound, mesh: mesh, samplers: samplers})
	return nil
}

func (d *fakeDevice) ReadPixels(graphics.RenderTarget) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (d *fakeDevice) wasReleased(tex graphics.Texture) bool {
	for _, r := range d.released {
		if r == tex {
			return true
		}
	}
	return false
}
