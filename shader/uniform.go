package shader

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

var (
	ErrUnknownUniform = errors.New("unknown uniform")
	ErrTypeMismatch   = errors.New("uniform type mismatch")
)

// Type is the GLSL type of a uniform.
type Type int

const (
	Float Type = iota
	Vec2
	Vec3
	Bool
	Sampler2D
)

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Bool:
		return "bool"
	case Sampler2D:
		return "sampler2D"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Uniform is a typed value slot.
type Uniform struct {
	Type  Type
	Value any
}

// Clone returns a new slot holding the same value.
func (u *Uniform) Clone() *Uniform {
	return &Uniform{Type: u.Type, Value: u.Value}
}

// Set coerces v to the slot's type and stores it.
func (u *Uniform) Set(v any) error {
	cv, err := Coerce(u.Type, v)
	if err != nil {
		return err
	}
	u.Value = cv
	return nil
}

// Declaration describes one uniform of a shader definition.
type Declaration struct {
	Name    string
	Type    Type
	Default any
}

// Bindings are extra values assigned into a Target during Update.
type Bindings map[string]any

// Target receives uniform values. Materials and Tables implement it.
type Target interface {
	Has(name string) bool
	Set(name string, value any) error
}

// Table maps uniform names to their value slots.
type Table map[string]*Uniform

func (t Table) Has(name string) bool {
	_, ok := t[name]
	return ok
}

func (t Table) Set(name string, value any) error {
	u, ok := t[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	if err := u.Set(value); err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	return nil
}

// Names returns the uniform names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone copies every slot so the copy can be mutated independently.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	for name, u := range t {
		c[name] = u.Clone()
	}
	return c
}

func (t Table) Float(name string) float32 {
	if u, ok := t[name]; ok {
		if v, ok := u.Value.(float32); ok {
			return v
		}
	}
	return 0
}

func (t Table) Vec2(name string) mgl32.Vec2 {
	if u, ok := t[name]; ok {
		if v, ok := u.Value.(mgl32.Vec2); ok {
			return v
		}
	}
	return mgl32.Vec2{}
}

func (t Table) Vec3(name string) mgl32.Vec3 {
	if u, ok := t[name]; ok {
		if v, ok := u.Value.(mgl32.Vec3); ok {
			return v
		}
	}
	return mgl32.Vec3{}
}

func (t Table) Bool(name string) bool {
	if u, ok := t[name]; ok {
		if v, ok := u.Value.(bool); ok {
			return v
		}
	}
	return false
}

func (t Table) Texture(name string) graphics.Texture {
	if u, ok := t[name]; ok {
		if v, ok := u.Value.(graphics.Texture); ok {
			return v
		}
	}
	return nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name is a usable GLSL identifier.
func ValidName(name string) bool {
	return identifier.MatchString(name) && !strings.HasPrefix(name, "gl_")
}

// Coerce converts v into the canonical Go representation of t:
// float32, mgl32.Vec2, mgl32.Vec3, bool or graphics.Texture (nil allowed).
// JSON-decoded numbers, arrays and "#rrggbb" strings are accepted.
func Coerce(t Type, v any) (any, error) {
	switch t {
	case Float:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case Vec2:
		switch x := v.(type) {
		case mgl32.Vec2:
			return x, nil
		case [2]float32:
			return mgl32.Vec2(x), nil
		default:
			if fs, ok := toFloats(v); ok && len(fs) == 2 {
				return mgl32.Vec2{fs[0], fs[1]}, nil
			}
		}
	case Vec3:
		switch x := v.(type) {
		case mgl32.Vec3:
			return x, nil
		case [3]float32:
			return mgl32.Vec3(x), nil
		case uint32:
			return graphics.Hex(x), nil
		case int:
			return graphics.Hex(uint32(x)), nil
		case string:
			if c, err := parseHexColor(x); err == nil {
				return c, nil
			}
		default:
			if fs, ok := toFloats(v); ok && len(fs) == 3 {
				return mgl32.Vec3{fs[0], fs[1], fs[2]}, nil
			}
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Sampler2D:
		if v == nil {
			return nil, nil
		}
		if tex, ok := v.(graphics.Texture); ok {
			return tex, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, t)
}

func toFloat(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	case int32:
		return float32(x), true
	case int64:
		return float32(x), true
	}
	return 0, false
}

func toFloats(v any) ([]float32, bool) {
	switch x := v.(type) {
	case []float32:
		return x, true
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func parseHexColor(s string) (mgl32.Vec3, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(s) != 6 {
		return mgl32.Vec3{}, fmt.Errorf("invalid colour %q", s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return graphics.Hex(uint32(n)), nil
}
