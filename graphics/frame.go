package graphics

import "github.com/go-gl/mathgl/mgl32"

// FrameInfo holds the per-frame host values that shaders derive their
// uniforms from. It is sampled once per tick by the host and passed down
// explicitly to every Update and Render call of that tick.
type FrameInfo struct {
	DeltaTime      float64 // seconds since the previous tick, >= 0
	ElapsedTime    float64 // seconds since the clock started, >= 0
	Frame          int64
	Pointer        mgl32.Vec2
	HasPointer     bool
	PointerPressed bool
	Width          int
	Height         int
}

// Clock turns a monotonic time source into delta and elapsed times.
type Clock struct {
	now     func() float64
	start   float64
	last    float64
	started bool
	frame   int64
}

// NewClock creates a Clock reading the given time source in seconds.
func NewClock(now func() float64) *Clock {
	return &Clock{now: now}
}

// Tick advances the clock and returns delta, elapsed and the frame index.
// The first tick reports a zero delta.
func (c *Clock) Tick() (delta, elapsed float64, frame int64) {
	t := c.now()
	if !c.started {
		c.start, c.last, c.started = t, t, true
	}
	delta = t - c.last
	if delta < 0 {
		delta = 0
	}
	c.last = t
	elapsed = t - c.start
	frame = c.frame
	c.frame++
	return delta, elapsed, frame
}
