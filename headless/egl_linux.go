//go:build linux

// Package headless creates an EGL OpenGL ES context without a window for
// offscreen recording on Linux servers.
package headless

import (
	"fmt"
	"unsafe"

	"github.com/richinsley/goshaderpass/graphics"
)

/*
#cgo LDFLAGS: -lEGL -lGLESv2
#include <EGL/egl.h>
#include <EGL/eglext.h>

// Go doesn't have a great way to call function pointers from C,
// so we'll create simple wrappers for the extension functions.
static PFNEGLQUERYDEVICESEXTPROC eglQueryDevicesEXT_ptr = NULL;
static PFNEGLGETPLATFORMDISPLAYEXTPROC eglGetPlatformDisplayEXT_ptr = NULL;

static void initialize_egl_extension_pointers() {
    eglQueryDevicesEXT_ptr = (PFNEGLQUERYDEVICESEXTPROC) eglGetProcAddress("eglQueryDevicesEXT");
    eglGetPlatformDisplayEXT_ptr = (PFNEGLGETPLATFORMDISPLAYEXTPROC) eglGetProcAddress("eglGetPlatformDisplayEXT");
}

static EGLDisplay get_platform_display(EGLenum platform, void *native_display, const EGLint *attrib_list) {
    if (eglGetPlatformDisplayEXT_ptr) {
        return eglGetPlatformDisplayEXT_ptr(platform, native_display, attrib_list);
    }
    return EGL_NO_DISPLAY;
}

static EGLBoolean query_devices(EGLint max_devices, EGLDeviceEXT *devices, EGLint *num_devices) {
    if (eglQueryDevicesEXT_ptr) {
        return eglQueryDevicesEXT_ptr(max_devices, devices, num_devices);
    }
    return EGL_FALSE;
}
*/
import "C"

// Context is a surfaceless-style EGL context backed by a small pbuffer. The
// device renders into framebuffer objects, so the pbuffer is never read.
type Context struct {
	display C.EGLDisplay
	context C.EGLContext
	surface C.EGLSurface
}

// getEGLDisplay tries device enumeration first and falls back to the default
// display.
func getEGLDisplay() (C.EGLDisplay, error) {
	C.initialize_egl_extension_pointers()

	var numDevices C.EGLint
	if C.query_devices(0, nil, &numDevices) == C.EGL_FALSE || numDevices == 0 {
		graphics.Logger().Warn("EGL_EXT_device_query unavailable, using EGL_DEFAULT_DISPLAY")
		display := C.eglGetDisplay(C.EGLNativeDisplayType(C.EGL_DEFAULT_DISPLAY))
		if display == C.EGLDisplay(C.EGL_NO_DISPLAY) {
			return C.EGLDisplay(C.EGL_NO_DISPLAY), fmt.Errorf("eglGetDisplay(EGL_DEFAULT_DISPLAY) failed")
		}
		return display, nil
	}

	devices := make([]C.EGLDeviceEXT, numDevices)
	if C.query_devices(numDevices, &devices[0], &numDevices) == C.EGL_FALSE {
		return C.EGLDisplay(C.EGL_NO_DISPLAY), fmt.Errorf("failed to query EGL devices")
	}

	// In an NVIDIA container the first usable device is the GPU.
	for i := 0; i < int(numDevices); i++ {
		display := C.get_platform_display(C.EGL_PLATFORM_DEVICE_EXT, unsafe.Pointer(devices[i]), nil)
		if display != C.EGLDisplay(C.EGL_NO_DISPLAY) {
			graphics.Logger().Info("EGL display selected", "device", i, "devices", int(numDevices))
			return display, nil
		}
	}
	return C.EGLDisplay(C.EGL_NO_DISPLAY), fmt.Errorf("no EGL device provides a display")
}

// New creates an OpenGL ES 3 context and makes it current on the calling
// thread. Pair it with an ESSL device.
func New() (*Context, error) {
	c := &Context{
		display: C.EGLDisplay(C.EGL_NO_DISPLAY),
		context: C.EGLContext(C.EGL_NO_CONTEXT),
		surface: C.EGLSurface(C.EGL_NO_SURFACE),
	}

	var err error
	c.display, err = getEGLDisplay()
	if err != nil {
		return nil, fmt.Errorf("failed to get EGL display: %w", err)
	}

	var major, minor C.EGLint
	if C.eglInitialize(c.display, &major, &minor) == C.EGL_FALSE {
		return nil, fmt.Errorf("failed to initialize EGL")
	}
	graphics.Logger().Info("EGL initialized", "major", int(major), "minor", int(minor))

	configAttribs := []C.EGLint{
		C.EGL_SURFACE_TYPE, C.EGL_PBUFFER_BIT,
		C.EGL_RED_SIZE, 8,
		C.EGL_GREEN_SIZE, 8,
		C.EGL_BLUE_SIZE, 8,
		C.EGL_ALPHA_SIZE, 8,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES3_BIT,
		C.EGL_NONE,
	}
	var config C.EGLConfig
	var numConfig C.EGLint
	if C.eglChooseConfig(c.display, &configAttribs[0], &config, 1, &numConfig) == C.EGL_FALSE || numConfig == 0 {
		c.Shutdown()
		return nil, fmt.Errorf("failed to choose EGL config")
	}

	pbufferAttribs := []C.EGLint{
		C.EGL_WIDTH, 1,
		C.EGL_HEIGHT, 1,
		C.EGL_NONE,
	}
	c.surface = C.eglCreatePbufferSurface(c.display, config, &pbufferAttribs[0])
	if c.surface == C.EGLSurface(C.EGL_NO_SURFACE) {
		c.Shutdown()
		return nil, fmt.Errorf("failed to create pbuffer surface")
	}

	contextAttribs := []C.EGLint{
		C.EGL_CONTEXT_CLIENT_VERSION, 3,
		C.EGL_NONE,
	}
	c.context = C.eglCreateContext(c.display, config, C.EGLContext(C.EGL_NO_CONTEXT), &contextAttribs[0])
	if c.context == C.EGLContext(C.EGL_NO_CONTEXT) {
		c.Shutdown()
		return nil, fmt.Errorf("failed to create EGL context")
	}

	if err := c.MakeCurrent(); err != nil {
		c.Shutdown()
		return nil, err
	}
	return c, nil
}

func (c *Context) MakeCurrent() error {
	if C.eglMakeCurrent(c.display, c.surface, c.surface, c.context) == C.EGL_FALSE {
		return fmt.Errorf("failed to make EGL context current")
	}
	return nil
}

// Shutdown releases the context, the surface and the display.
func (c *Context) Shutdown() {
	if c.display == C.EGLDisplay(C.EGL_NO_DISPLAY) {
		return
	}
	C.eglMakeCurrent(c.display, C.EGLSurface(C.EGL_NO_SURFACE), C.EGLSurface(C.EGL_NO_SURFACE), C.EGLContext(C.EGL_NO_CONTEXT))
	if c.context != C.EGLContext(C.EGL_NO_CONTEXT) {
		C.eglDestroyContext(c.display, c.context)
	}
	if c.surface != C.EGLSurface(C.EGL_NO_SURFACE) {
		C.eglDestroySurface(c.display, c.surface)
	}
	C.eglTerminate(c.display)
	c.display = C.EGLDisplay(C.EGL_NO_DISPLAY)
}
