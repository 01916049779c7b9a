package shader

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrUnknownShader = errors.New("unknown shader")

// Constructor builds a shader variant from uniform overrides.
type Constructor func(overrides map[string]any) (Shader, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		"base-vertex": func(map[string]any) (Shader, error) { return NewBaseVertex(), nil },
		"fullscreen-vertex": func(map[string]any) (Shader, error) {
			return NewFullScreenVertex(), nil
		},
		"base": func(map[string]any) (Shader, error) { return NewBaseFragment(), nil },
		"uv":   func(map[string]any) (Shader, error) { return NewUVFragment(), nil },
		"texture": func(o map[string]any) (Shader, error) {
			s, err := NewTextureFragment(o)
			return wrap(s, err)
		},
		"color": func(o map[string]any) (Shader, error) {
			s, err := NewColorFragment(o)
			return wrap(s, err)
		},
		"gradient": func(o map[string]any) (Shader, error) {
			s, err := NewGradientFragment(o)
			return wrap(s, err)
		},
		"pulse": func(o map[string]any) (Shader, error) {
			s, err := NewPulseFragment(o)
			return wrap(s, err)
		},
		"drawable": func(o map[string]any) (Shader, error) {
			s, err := NewDrawableFragment(o)
			return wrap(s, err)
		},
	}
)

// wrap avoids returning a typed nil inside a non-nil Shader.
func wrap[S Shader](s S, err error) (Shader, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds or replaces a variant under tag.
func Register(tag string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = c
}

// New builds the variant registered under tag.
func New(tag string, overrides map[string]any) (Shader, error) {
	registryMu.RLock()
	c, ok := registry[tag]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShader, tag)
	}
	return c(overrides)
}

// Tags lists the registered variant tags in sorted order.
func Tags() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
