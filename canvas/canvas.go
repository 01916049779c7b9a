// Package canvas hosts materials on the visible framebuffer: it samples the
// clock and pointer once per frame, updates every object and draws the
// planes.
package canvas

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/renderer"
)

var (
	ErrUnsupportedObject = errors.New("unsupported object")
	ErrMissingMaterial   = errors.New("plane requires a material")
)

// Object is anything the canvas updates every frame.
type Object interface {
	Init(device renderer.Device, width, height int) error
	Update(frame *graphics.FrameInfo) error
	Resize(width, height int) error
}

// Drawer is an Object with a mesh the canvas draws.
type Drawer interface {
	Mesh() *renderer.Mesh
}

// Options configures a Canvas.
type Options struct {
	Device renderer.Device
	Width  int
	Height int
	// Time returns monotonic seconds. Defaults to the wall clock since New.
	Time func() float64
	// Input is the pointer service. Without it frames report no pointer.
	Input graphics.InputSource
}

// Canvas owns the device, the screen camera, the clock and the objects.
type Canvas struct {
	device  renderer.Device
	camera  *graphics.Camera
	clock   *graphics.Clock
	input   graphics.InputSource
	objects []Object
	width   int
	height  int
	frame   graphics.FrameInfo
}

func New(opts Options) *Canvas {
	now := opts.Time
	if now == nil {
		start := time.Now()
		now = func() float64 { return time.Since(start).Seconds() }
	}
	c := &Canvas{
		device: opts.Device,
		camera: graphics.NewOrthoCamera(opts.Width, opts.Height),
		clock:  graphics.NewClock(now),
		input:  opts.Input,
		width:  opts.Width,
		height: opts.Height,
	}
	c.device.SetSize(opts.Width, opts.Height)
	return c
}

// Add initialises obj for the current canvas size and appends it to the
// draw list. Only Objects are accepted.
func (c *Canvas) Add(obj any) error {
	o, ok := obj.(Object)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
	}
	if err := o.Init(c.device, c.width, c.height); err != nil {
		return fmt.Errorf("init %T: %w", obj, err)
	}
	c.objects = append(c.objects, o)
	return nil
}

// Remove drops obj from the draw list. It reports whether obj was present.
func (c *Canvas) Remove(obj Object) bool {
	i := slices.Index(c.objects, obj)
	if i < 0 {
		return false
	}
	c.objects = slices.Delete(c.objects, i, i+1)
	return true
}

func (c *Canvas) Objects() []Object { return c.objects }

func (c *Canvas) Camera() *graphics.Camera { return c.camera }

func (c *Canvas) Device() renderer.Device { return c.device }

func (c *Canvas) Size() (int, int) { return c.width, c.height }

// Frame returns the values sampled by the most recent Update.
func (c *Canvas) Frame() graphics.FrameInfo { return c.frame }

func (c *Canvas) sample() graphics.FrameInfo {
	dt, elapsed, n := c.clock.Tick()
	f := graphics.FrameInfo{
		DeltaTime:   dt,
		ElapsedTime: elapsed,
		Frame:       n,
		Width:       c.width,
		Height:      c.height,
	}
	if c.input != nil {
		f.Pointer, f.HasPointer = c.input.PointerPosition()
		f.PointerPressed = c.input.PointerPressed()
	}
	return f
}

// Update samples the frame, updates every object in insertion order, then
// clears the screen and draws every object that has a mesh.
func (c *Canvas) Update() error {
	c.frame = c.sample()
	for _, o := range c.objects {
		if err := o.Update(&c.frame); err != nil {
			return fmt.Errorf("update %T: %w", o, err)
		}
	}
	c.device.SetRenderTarget(nil)
	c.device.Clear()
	for _, o := range c.objects {
		d, ok := o.(Drawer)
		if !ok {
			continue
		}
		if err := c.device.Render(d.Mesh(), c.camera); err != nil {
			return fmt.Errorf("draw %T: %w", o, err)
		}
	}
	return nil
}

// Resize refits the camera and the device viewport and notifies every
// object.
func (c *Canvas) Resize(width, height int) error {
	c.width, c.height = width, height
	c.camera.SetSize(width, height)
	c.device.SetSize(width, height)
	for _, o := range c.objects {
		if err := o.Resize(width, height); err != nil {
			return fmt.Errorf("resize %T: %w", o, err)
		}
	}
	graphics.Logger().Debug("canvas resized", "width", width, "height", height)
	return nil
}
