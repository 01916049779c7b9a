package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

var _ graphics.Context = (*Context)(nil)

// Context wraps a GLFW window. It implements graphics.Context and reports the
// pointer in framebuffer pixels with the origin at the bottom-left corner.
type Context struct {
	window       *glfw.Window
	pointer      mgl32.Vec2
	pointerSeen  bool
	keyCallbacks map[glfw.Key]func()
}

// New creates a window with an OpenGL 4.1 core context.
func New(width, height int, title string, visible bool) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	if visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.glfwCursorPosCallback)
	return c, nil
}

// RegisterKeyCallback registers f to run when key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

func (c *Context) glfwCursorPosCallback(w *glfw.Window, x, y float64) {
	c.pointer = c.toFramebuffer(x, y)
	c.pointerSeen = true
}

// toFramebuffer converts window coordinates (origin top-left, screen units)
// to framebuffer pixels with the origin at the bottom-left.
func (c *Context) toFramebuffer(x, y float64) mgl32.Vec2 {
	fbWidth, fbHeight := c.GetFramebufferSize()
	winWidth, winHeight := c.window.GetSize()
	var scaleX, scaleY float64 = 1.0, 1.0
	if winWidth > 0 && winHeight > 0 {
		scaleX = float64(fbWidth) / float64(winWidth)
		scaleY = float64(fbHeight) / float64(winHeight)
	}
	return mgl32.Vec2{float32(x * scaleX), float32(fbHeight) - float32(y*scaleY)}
}

// PointerPosition returns the last cursor position seen inside the window.
func (c *Context) PointerPosition() (mgl32.Vec2, bool) {
	return c.pointer, c.pointerSeen
}

// PointerPressed reports whether the left mouse button is held.
func (c *Context) PointerPressed() bool {
	return c.window.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down GLFW. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}
