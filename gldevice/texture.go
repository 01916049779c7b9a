package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderpass/graphics"
)

// textureID resolves tex to a GL texture, uploading data textures on first
// use. A nil texture binds the empty texture 0, which samples as black.
func (d *Device) textureID(tex graphics.Texture) (uint32, error) {
	switch t := tex.(type) {
	case nil:
		return 0, nil
	case *Target:
		if t.destroyed {
			return 0, fmt.Errorf("%w: released render target", ErrForeignTexture)
		}
		return t.textureID, nil
	case *graphics.DataTexture:
		if id, ok := d.textures[t]; ok {
			return id, nil
		}
		id := uploadDataTexture(t)
		d.textures[t] = id
		w, h := t.Size()
		graphics.Logger().Debug("texture uploaded", "texture", id, "width", w, "height", h)
		return id, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrForeignTexture, tex)
	}
}

// uploadDataTexture copies an RGBA texture to the GPU. Data textures keep
// the bottom row first, which is the row order TexImage2D expects.
func uploadDataTexture(t *graphics.DataTexture) uint32 {
	width, height := t.Size()
	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(t.Pix.Stride/4))
	if len(t.Pix.Pix) > 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(t.Pix.Pix))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return textureID
}
