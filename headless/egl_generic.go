//go:build !linux

package headless

import "errors"

var ErrUnsupported = errors.New("egl headless rendering is not supported on this platform")

// Context is unavailable outside Linux.
type Context struct{}

func New() (*Context, error) {
	return nil, ErrUnsupported
}

func (c *Context) MakeCurrent() error { return ErrUnsupported }
func (c *Context) Shutdown()          {}
