package graphics

import "github.com/go-gl/mathgl/mgl32"

// Context defines the interface for the host window that owns the visible
// framebuffer, the clock and the pointer.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
	InputSource
}

// InputSource exposes the pointer service consumed by interactive shaders.
type InputSource interface {
	// PointerPosition returns the pointer in canvas pixel space with the
	// origin at the bottom-left corner. ok is false until the pointer has
	// entered the canvas at least once.
	PointerPosition() (pos mgl32.Vec2, ok bool)
	// PointerPressed reports whether the primary button is held.
	PointerPressed() bool
}
