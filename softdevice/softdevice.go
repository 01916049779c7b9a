// Package softdevice is a CPU rasteriser implementing renderer.Device. It
// runs the Go kernels of a program instead of its GLSL and is used for
// headless rendering and tests.
package softdevice

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/renderer"
	"github.com/richinsley/goshaderpass/shader"
)

var (
	ErrNoKernel      = errors.New("program has no CPU kernel")
	ErrInvalidSize   = errors.New("invalid render target size")
	ErrForeignTarget = errors.New("render target belongs to another device")
)

// Target is a float RGBA colour buffer. Pixel (0,0) is the bottom-left one.
type Target struct {
	width, height int
	pix           []mgl32.Vec4
	destroyed     bool
}

func newTarget(width, height int) *Target {
	return &Target{width: width, height: height, pix: make([]mgl32.Vec4, width*height)}
}

func (t *Target) Size() (int, int) { return t.width, t.height }

func (t *Target) Destroyed() bool { return t.destroyed }

// At returns the colour of pixel (x, y), counted from the bottom-left.
func (t *Target) At(x, y int) mgl32.Vec4 {
	if t.destroyed || x < 0 || y < 0 || x >= t.width || y >= t.height {
		return mgl32.Vec4{}
	}
	return t.pix[y*t.width+x]
}

func (t *Target) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	if t.destroyed {
		return mgl32.Vec4{}
	}
	return graphics.SampleBilinear(t.width, t.height, t.At, uv)
}

func (t *Target) clear() {
	clear(t.pix)
}

// Device renders into Targets on the CPU.
type Device struct {
	screen   *Target
	bound    *Target
	boundErr error
	programs map[renderer.ProgramSource]*renderer.ProgramParams
	live     map[*Target]struct{}
}

// New creates a device whose visible framebuffer is width x height.
func New(width, height int) *Device {
	d := &Device{
		screen:   newTarget(max(width, 0), max(height, 0)),
		programs: make(map[renderer.ProgramSource]*renderer.ProgramParams),
		live:     make(map[*Target]struct{}),
	}
	d.bound = d.screen
	return d
}

func (d *Device) NewRenderTarget(width, height int) (graphics.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	t := newTarget(width, height)
	d.live[t] = struct{}{}
	return t, nil
}

func (d *Device) Release(tex graphics.Texture) {
	t, ok := tex.(*Target)
	if !ok {
		return
	}
	if _, ok := d.live[t]; !ok {
		return
	}
	delete(d.live, t)
	t.destroyed = true
	t.pix = nil
	if d.bound == t {
		d.bound = d.screen
	}
}

// Live returns the number of render targets allocated and not released.
func (d *Device) Live() int { return len(d.live) }

func (d *Device) SetRenderTarget(target graphics.RenderTarget) {
	d.boundErr = nil
	if target == nil {
		d.bound = d.screen
		return
	}
	t, ok := target.(*Target)
	if !ok {
		d.bound = nil
		d.boundErr = fmt.Errorf("%w: %T", ErrForeignTarget, target)
		return
	}
	if _, ok := d.live[t]; !ok {
		d.bound = nil
		d.boundErr = fmt.Errorf("%w: released or unknown target", ErrForeignTarget)
		return
	}
	d.bound = t
}

func (d *Device) SetSize(width, height int) {
	rebind := d.bound == d.screen
	d.screen = newTarget(max(width, 0), max(height, 0))
	if rebind {
		d.bound = d.screen
	}
}

// Screen returns the visible framebuffer.
func (d *Device) Screen() *Target { return d.screen }

func (d *Device) Clear() {
	if d.bound != nil {
		d.bound.clear()
	}
}

func (d *Device) program(src renderer.ProgramSource) *renderer.ProgramParams {
	if p, ok := d.programs[src]; ok {
		return p
	}
	p := &renderer.ProgramParams{}
	src.OnBeforeProgramBuild(p)
	d.programs[src] = p
	graphics.Logger().Info("program built", "device", "software", "uniforms", len(p.Uniforms))
	return p
}

type vertex struct {
	window mgl32.Vec2
	vary   shader.Varyings
}

func (d *Device) Render(mesh *renderer.Mesh, camera *graphics.Camera) error {
	if d.boundErr != nil {
		return d.boundErr
	}
	if d.bound == nil || mesh == nil || mesh.Material == nil {
		return nil
	}
	p := d.program(mesh.Material)
	if p.Kernel.Vertex == nil || p.Kernel.Fragment == nil {
		return ErrNoKernel
	}

	target := d.bound
	modelView := camera.View().Mul4(mesh.Model())
	projection := camera.Projection()

	n := len(renderer.PlaneVertices) / renderer.PlaneStride
	verts := make([]vertex, n)
	for i := range verts {
		v := renderer.PlaneVertices[i*renderer.PlaneStride:]
		clip, vary := p.Kernel.Vertex(shader.VertexInput{
			Position:   mgl32.Vec3{v[0], v[1], v[2]},
			Normal:     mgl32.Vec3{v[3], v[4], v[5]},
			UV:         mgl32.Vec2{v[6], v[7]},
			ModelView:  modelView,
			Projection: projection,
		}, p.Uniforms)
		if clip.W() == 0 {
			return nil
		}
		ndc := clip.Vec3().Mul(1 / clip.W())
		verts[i] = vertex{
			window: mgl32.Vec2{
				(ndc.X() + 1) / 2 * float32(target.width),
				(ndc.Y() + 1) / 2 * float32(target.height),
			},
			vary: vary,
		}
	}
	for i := 0; i+2 < n; i += 3 {
		rasterize(target, verts[i], verts[i+1], verts[i+2], p.Kernel.Fragment, p.Uniforms)
	}
	return nil
}

func edge(a, b, p mgl32.Vec2) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// rasterize fills the pixels whose centres fall inside the triangle.
// Orthographic projection keeps w at 1, so varyings interpolate linearly.
func rasterize(t *Target, a, b, c vertex, frag shader.FragmentFunc, u shader.Table) {
	area := edge(a.window, b.window, c.window)
	if area == 0 {
		return
	}
	minX := max(0, int(math.Floor(float64(min(a.window.X(), b.window.X(), c.window.X())))))
	maxX := min(t.width-1, int(math.Ceil(float64(max(a.window.X(), b.window.X(), c.window.X())))))
	minY := max(0, int(math.Floor(float64(min(a.window.Y(), b.window.Y(), c.window.Y())))))
	maxY := min(t.height-1, int(math.Ceil(float64(max(a.window.Y(), b.window.Y(), c.window.Y())))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			w0 := edge(b.window, c.window, p) / area
			w1 := edge(c.window, a.window, p) / area
			w2 := edge(a.window, b.window, p) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			in := shader.FragmentInput{
				FragCoord: p,
				Varyings: shader.Varyings{
					Position: a.vary.Position.Mul(w0).Add(b.vary.Position.Mul(w1)).Add(c.vary.Position.Mul(w2)),
					Normal:   a.vary.Normal.Mul(w0).Add(b.vary.Normal.Mul(w1)).Add(c.vary.Normal.Mul(w2)),
					UV:       a.vary.UV.Mul(w0).Add(b.vary.UV.Mul(w1)).Add(c.vary.UV.Mul(w2)),
				},
			}
			t.pix[y*t.width+x] = frag(in, u)
		}
	}
}

// ReadPixels converts target to 8-bit RGBA, top row first.
func (d *Device) ReadPixels(target graphics.RenderTarget) (*image.RGBA, error) {
	t := d.screen
	if target != nil {
		var ok bool
		if t, ok = target.(*Target); !ok {
			return nil, fmt.Errorf("%w: %T", ErrForeignTarget, target)
		}
	}
	if t.destroyed {
		return nil, fmt.Errorf("%w: released target", ErrForeignTarget)
	}
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	for y := 0; y < t.height; y++ {
		row := t.height - 1 - y
		for x := 0; x < t.width; x++ {
			img.SetRGBA(x, row, toRGBA(t.pix[y*t.width+x]))
		}
	}
	return img, nil
}

func toRGBA(c mgl32.Vec4) color.RGBA {
	conv := func(v float32) uint8 {
		return uint8(math.Round(float64(mgl32.Clamp(v, 0, 1) * 255)))
	}
	return color.RGBA{R: conv(c.X()), G: conv(c.Y()), B: conv(c.Z()), A: conv(c.W())}
}
