// Package gldevice implements renderer.Device on OpenGL 4.1. A GL context
// must be current on the calling thread for every method.
package gldevice

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/renderer"
)

var ErrForeignTexture = errors.New("texture belongs to another device")

var (
	glInitOnce sync.Once
	glInitErr  error
)

// Device draws with OpenGL into framebuffer objects or the window.
type Device struct {
	gles     bool
	quadVAO  uint32
	quadVBO  uint32
	width    int
	height   int
	bound    *Target
	programs map[renderer.ProgramSource]*program
	textures map[*graphics.DataTexture]uint32
	targets  map[*Target]struct{}
}

// New loads the GL function pointers once and creates the quad buffers.
// gles selects ESSL output from the shader translator.
func New(width, height int, gles bool) (*Device, error) {
	glInitOnce.Do(func() {
		glInitErr = gl.Init()
	})
	if glInitErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", glInitErr)
	}

	d := &Device{
		gles:     gles,
		width:    width,
		height:   height,
		programs: make(map[renderer.ProgramSource]*program),
		textures: make(map[*graphics.DataTexture]uint32),
		targets:  make(map[*Target]struct{}),
	}

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(renderer.PlaneVertices)*4, gl.Ptr(renderer.PlaneVertices), gl.STATIC_DRAW)
	stride := int32(renderer.PlaneStride * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.ClearColor(0, 0, 0, 0)
	return d, nil
}

func (d *Device) NewRenderTarget(width, height int) (graphics.RenderTarget, error) {
	t, err := newTarget(width, height)
	if err != nil {
		return nil, err
	}
	d.targets[t] = struct{}{}
	graphics.Logger().Debug("render target allocated", "fbo", t.fbo, "width", width, "height", height)
	return t, nil
}

func (d *Device) Release(tex graphics.Texture) {
	switch t := tex.(type) {
	case *Target:
		if _, ok := d.targets[t]; !ok {
			return
		}
		delete(d.targets, t)
		if d.bound == t {
			d.SetRenderTarget(nil)
		}
		t.destroy()
	case *graphics.DataTexture:
		if id, ok := d.textures[t]; ok {
			gl.DeleteTextures(1, &id)
			delete(d.textures, t)
		}
	}
}

func (d *Device) SetRenderTarget(target graphics.RenderTarget) {
	t, ok := target.(*Target)
	if target != nil && !ok {
		graphics.Logger().Warn("foreign render target, drawing to the window", "type", fmt.Sprintf("%T", target))
	}
	d.bound = t
	if t == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(d.width), int32(d.height))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
}

func (d *Device) SetSize(width, height int) {
	d.width, d.height = width, height
	if d.bound == nil {
		gl.Viewport(0, 0, int32(width), int32(height))
	}
}

func (d *Device) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) Render(mesh *renderer.Mesh, camera *graphics.Camera) error {
	p, ok := d.programs[mesh.Material]
	if !ok {
		var err error
		if p, err = d.buildProgram(mesh.Material); err != nil {
			return err
		}
		d.programs[mesh.Material] = p
	}

	gl.UseProgram(p.id)
	if p.modelViewLoc >= 0 {
		mv := camera.View().Mul4(mesh.Model())
		gl.UniformMatrix4fv(p.modelViewLoc, 1, false, &mv[0])
	}
	if p.projectionLoc >= 0 {
		proj := camera.Projection()
		gl.UniformMatrix4fv(p.projectionLoc, 1, false, &proj[0])
	}
	units, err := d.upload(p)
	if err != nil {
		unbindTextures(units)
		return err
	}
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(renderer.PlaneVertices)/renderer.PlaneStride))
	gl.BindVertexArray(0)
	unbindTextures(units)
	return nil
}

// ReadPixels reads target back as 8-bit RGBA with the top row first.
func (d *Device) ReadPixels(target graphics.RenderTarget) (*image.RGBA, error) {
	width, height := d.width, d.height
	fbo := uint32(0)
	if target != nil {
		t, ok := target.(*Target)
		if !ok || t.destroyed {
			return nil, fmt.Errorf("%w: %T", ErrForeignTexture, target)
		}
		width, height, fbo = t.width, t.height, t.fbo
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return img, nil
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return graphics.FlipRows(img), nil
}

// Destroy deletes every program, target and uploaded texture.
func (d *Device) Destroy() {
	for _, p := range d.programs {
		gl.DeleteProgram(p.id)
	}
	for t := range d.targets {
		t.destroy()
	}
	for _, id := range d.textures {
		gl.DeleteTextures(1, &id)
	}
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
	d.programs = nil
	d.targets = nil
	d.textures = nil
}
