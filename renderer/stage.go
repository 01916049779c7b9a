package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

// Stage renders one full-canvas quad with its shader into an offscreen
// target. A double-buffered stage alternates between two targets so that it
// never writes the texture it was handed as input on the previous frame.
type Stage struct {
	device   Device
	shader   shader.Shader
	inputKey string
	scale    float32

	camera   *graphics.Camera
	quad     *Mesh
	material *Material

	targets []graphics.RenderTarget
	current int
	ready   bool
}

func newStage(device Device, d StageDescriptor, width, height int, doubleBuffered bool) (*Stage, error) {
	material, err := NewMaterial(MaterialOptions{
		VertexShader:   shader.NewBaseVertex(),
		FragmentShader: d.Shader,
	})
	if err != nil {
		return nil, err
	}
	s := &Stage{
		device:   device,
		shader:   d.Shader,
		inputKey: d.InputKey,
		scale:    d.Scale,
		camera:   graphics.NewOrthoCamera(width, height),
		material: material,
		targets:  make([]graphics.RenderTarget, 1),
	}
	if doubleBuffered {
		s.targets = make([]graphics.RenderTarget, 2)
	}
	s.quad = NewMesh(material)
	s.quad.Scale = mgl32.Vec3{float32(width), float32(height), 1}

	targets, err := s.allocate(width, height)
	if err != nil {
		return nil, err
	}
	s.targets = targets
	return s, nil
}

// Render binds input to the input key, refreshes the shader uniforms at the
// stage scale and draws the quad into the stage's write target.
func (s *Stage) Render(frame *graphics.FrameInfo, input graphics.Texture) error {
	next := s.current
	if len(s.targets) == 2 && s.ready {
		next = 1 - s.current
	}
	target := s.targets[next]

	s.device.SetRenderTarget(target)
	s.device.Clear()
	if err := s.shader.Update(s.material.Uniforms(), frame, s.scale, shader.Bindings{s.inputKey: input}); err != nil {
		return err
	}
	if err := s.device.Render(s.quad, s.camera); err != nil {
		return fmt.Errorf("%s: %w", s.shader.Name(), err)
	}
	s.current = next
	s.ready = true
	return nil
}

// Resize rebuilds the targets at the new size scaled by the stage scale and
// refits the camera and quad to the canvas. The old targets are released
// only once the new ones exist.
func (s *Stage) Resize(width, height int) error {
	targets, err := s.allocate(width, height)
	if err != nil {
		return err
	}
	for _, t := range s.targets {
		s.device.Release(t)
	}
	s.targets = targets
	s.current = 0
	s.camera.SetSize(width, height)
	s.quad.Scale = mgl32.Vec3{float32(width), float32(height), 1}
	return nil
}

func (s *Stage) allocate(width, height int) ([]graphics.RenderTarget, error) {
	w, h := s.TargetSize(width, height)
	targets := make([]graphics.RenderTarget, len(s.targets))
	for i := range targets {
		t, err := s.device.NewRenderTarget(w, h)
		if err != nil {
			for _, allocated := range targets[:i] {
				s.device.Release(allocated)
			}
			return nil, fmt.Errorf("render target %dx%d: %w", w, h, err)
		}
		targets[i] = t
	}
	graphics.Logger().Debug("stage targets allocated",
		"shader", s.shader.Name(), "width", w, "height", h, "count", len(targets))
	return targets, nil
}

// TargetSize returns the target size for a width x height canvas.
func (s *Stage) TargetSize(width, height int) (int, int) {
	w := int(float32(width) * s.scale)
	h := int(float32(height) * s.scale)
	return max(w, 1), max(h, 1)
}

// Output returns the target written by the most recent Render.
func (s *Stage) Output() graphics.Texture { return s.targets[s.current] }

// Ready reports whether the stage has rendered at least once.
func (s *Stage) Ready() bool { return s.ready }

func (s *Stage) Shader() shader.Shader            { return s.shader }
func (s *Stage) Material() *Material              { return s.material }
func (s *Stage) Camera() *graphics.Camera         { return s.camera }
func (s *Stage) Quad() *Mesh                      { return s.quad }
func (s *Stage) InputKey() string                 { return s.inputKey }
func (s *Stage) Scale() float32                   { return s.scale }
func (s *Stage) Targets() []graphics.RenderTarget { return s.targets }

func (s *Stage) release() {
	for _, t := range s.targets {
		s.device.Release(t)
	}
}
