package graphics

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// Texture is an image that shaders can sample. Devices decide how it is stored.
type Texture interface {
	Size() (width, height int)
}

// RenderTarget is an offscreen colour buffer a device can draw into and that
// later passes sample as a Texture.
type RenderTarget interface {
	Texture
	// Destroyed reports whether the owning device has released the target.
	Destroyed() bool
}

// Sampler is implemented by textures that can be read on the CPU. UV (0,0) is
// the bottom-left corner.
type Sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec4
}

// DataTexture is an RGBA texture held in CPU memory. Row 0 of Pix is the
// bottom row (v=0), matching how GL uploads client memory.
type DataTexture struct {
	Pix *image.RGBA
}

// NewDataTexture wraps an RGBA image whose first row is the bottom row.
func NewDataTexture(pix *image.RGBA) *DataTexture {
	return &DataTexture{Pix: pix}
}

func (t *DataTexture) Size() (int, int) {
	b := t.Pix.Bounds()
	return b.Dx(), b.Dy()
}

func (t *DataTexture) texel(x, y int) mgl32.Vec4 {
	b := t.Pix.Bounds()
	c := t.Pix.RGBAAt(b.Min.X+x, b.Min.Y+y)
	return mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func (t *DataTexture) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	w, h := t.Size()
	return SampleBilinear(w, h, t.texel, uv)
}

// SampleBilinear filters four texels around uv with clamp-to-edge addressing.
// Texel centres sit at (i+0.5)/width, so sampling a same-sized texture at pixel
// centres returns texels unchanged.
func SampleBilinear(width, height int, texel func(x, y int) mgl32.Vec4, uv mgl32.Vec2) mgl32.Vec4 {
	if width <= 0 || height <= 0 {
		return mgl32.Vec4{}
	}
	fx := uv.X()*float32(width) - 0.5
	fy := uv.Y()*float32(height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	clamp := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}
	xa, xb := clamp(x0, width), clamp(x0+1, width)
	ya, yb := clamp(y0, height), clamp(y0+1, height)

	c00 := texel(xa, ya)
	c10 := texel(xb, ya)
	c01 := texel(xa, yb)
	c11 := texel(xb, yb)
	bottom := c00.Mul(1 - tx).Add(c10.Mul(tx))
	top := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return bottom.Mul(1 - ty).Add(top.Mul(ty))
}

// Hex converts a 0xRRGGBB colour into a vec3 in [0,1].
func Hex(rgb uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((rgb>>16)&0xff) / 255,
		float32((rgb>>8)&0xff) / 255,
		float32(rgb&0xff) / 255,
	}
}

// White creates an opaque white texture.
func White(width, height int) *DataTexture {
	return Colored(mgl32.Vec3{1, 1, 1}, width, height)
}

// Colored creates an opaque texture filled with a single colour.
func Colored(c mgl32.Vec3, width, height int) *DataTexture {
	pix := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{
		R: uint8(math.Floor(float64(clamp01(c.X()) * 255))),
		G: uint8(math.Floor(float64(clamp01(c.Y()) * 255))),
		B: uint8(math.Floor(float64(clamp01(c.Z()) * 255))),
		A: 255,
	}
	for i := 0; i < len(pix.Pix); i += 4 {
		pix.Pix[i] = fill.R
		pix.Pix[i+1] = fill.G
		pix.Pix[i+2] = fill.B
		pix.Pix[i+3] = fill.A
	}
	return &DataTexture{Pix: pix}
}

// FromImage resamples img to width x height and stores it bottom row first so
// that the top of the picture ends up at v=1.
func FromImage(img image.Image, width, height int) *DataTexture {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return &DataTexture{Pix: vflip(dst)}
}

// vflip vertically flips an RGBA image.
func vflip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()
	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}

// FlipRows returns a copy of img with its rows reversed. Devices read pixels
// bottom row first; image encoders expect the top row first.
func FlipRows(img *image.RGBA) *image.RGBA {
	return vflip(img)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
