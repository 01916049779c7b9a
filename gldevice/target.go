package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Target is a framebuffer with a floating point colour texture, so values
// outside [0,1] survive between passes.
type Target struct {
	fbo       uint32
	textureID uint32
	width     int
	height    int
	destroyed bool
}

func newTarget(width, height int) (*Target, error) {
	t := &Target{width: width, height: height}

	gl.GenTextures(1, &t.textureID)
	gl.BindTexture(gl.TEXTURE_2D, t.textureID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.textureID, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		t.destroy()
		return nil, fmt.Errorf("framebuffer is not complete: 0x%x", status)
	}
	return t, nil
}

func (t *Target) Size() (int, int) { return t.width, t.height }
func (t *Target) Destroyed() bool  { return t.destroyed }

// TextureID returns the GL name of the colour texture.
func (t *Target) TextureID() uint32 { return t.textureID }

func (t *Target) destroy() {
	if t.destroyed {
		return
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.textureID)
	t.destroyed = true
}
