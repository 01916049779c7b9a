package graphics

import "github.com/go-gl/mathgl/mgl32"

const (
	cameraNear = 0.1
	cameraFar  = 2000
	cameraZ    = 1000
)

// Camera is an orthographic camera looking down -Z from z=1000.
type Camera struct {
	Left, Right, Top, Bottom float32
}

// NewOrthoCamera creates a camera whose frustum is centred on the origin and
// spans width x height units.
func NewOrthoCamera(width, height int) *Camera {
	c := &Camera{}
	c.SetSize(width, height)
	return c
}

// SetSize recomputes the frustum to cover width x height units.
func (c *Camera) SetSize(width, height int) {
	c.Left = -float32(width) / 2
	c.Right = float32(width) / 2
	c.Top = float32(height) / 2
	c.Bottom = -float32(height) / 2
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Ortho(c.Left, c.Right, c.Bottom, c.Top, cameraNear, cameraFar)
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -cameraZ)
}
