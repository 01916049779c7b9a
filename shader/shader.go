package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

// Template slots replaced by Body.
const (
	SlotUniforms = "#include <uniforms>"
	SlotCommons  = "#include <commons>"
	SlotMain     = "#include <main>"
)

var ErrMalformedTemplate = errors.New("malformed shader template")

// Shader is a program a Material can compose: a uniform table, final GLSL
// source, an optional CPU kernel and a per-frame uniform refresh.
type Shader interface {
	Name() string
	Uniforms() Table
	Body() string
	Kernel() Kernel
	Update(t Target, frame *graphics.FrameInfo, scale float32, b Bindings) error
}

// VertexInput is what a vertex kernel sees for one vertex.
type VertexInput struct {
	Position   mgl32.Vec3
	Normal     mgl32.Vec3
	UV         mgl32.Vec2
	ModelView  mgl32.Mat4
	Projection mgl32.Mat4
}

// Varyings are interpolated between the vertex and fragment kernels.
type Varyings struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// FragmentInput is what a fragment kernel sees for one pixel. FragCoord is
// the pixel centre in target space, origin bottom-left.
type FragmentInput struct {
	FragCoord mgl32.Vec2
	Varyings
}

type VertexFunc func(in VertexInput, u Table) (clip mgl32.Vec4, out Varyings)
type FragmentFunc func(in FragmentInput, u Table) mgl32.Vec4

// Kernel is the Go rendition of a program's main function, run by devices
// that rasterise on the CPU. A nil func means the stage has no CPU path.
type Kernel struct {
	Vertex   VertexFunc
	Fragment FragmentFunc
}

// UpdateFunc derives uniforms from the frame after bindings were applied.
type UpdateFunc func(t Target, frame *graphics.FrameInfo, scale float32) error

// Definition is the static record of a shader variant.
type Definition struct {
	Name     string
	Skeleton string
	Main     string
	Uniforms []Declaration
	Kernel   Kernel
	Update   UpdateFunc
}

// Program is a Shader built from a Definition plus per-instance default
// overrides.
type Program struct {
	name      string
	skeleton  string
	main      string
	uniforms  Table
	overrides map[string]any
	applied   map[string]bool
	kernel    Kernel
	update    UpdateFunc
}

// NewProgram validates def and returns a Program. Overrides for names the
// definition does not declare are ignored; overrides of the wrong type fail.
func NewProgram(def Definition, overrides map[string]any) (*Program, error) {
	for _, slot := range []string{SlotUniforms, SlotCommons, SlotMain} {
		if n := strings.Count(def.Skeleton, slot); n != 1 {
			return nil, fmt.Errorf("%w: %s: slot %q appears %d times", ErrMalformedTemplate, def.Name, slot, n)
		}
	}

	p := &Program{
		name:      def.Name,
		skeleton:  def.Skeleton,
		main:      def.Main,
		uniforms:  make(Table, len(def.Uniforms)),
		overrides: make(map[string]any),
		applied:   make(map[string]bool),
		kernel:    def.Kernel,
		update:    def.Update,
	}
	for _, d := range def.Uniforms {
		if !ValidName(d.Name) {
			return nil, fmt.Errorf("%s: invalid uniform name %q", def.Name, d.Name)
		}
		if p.uniforms.Has(d.Name) {
			return nil, fmt.Errorf("%s: uniform %q declared twice", def.Name, d.Name)
		}
		v, err := Coerce(d.Type, d.Default)
		if err != nil {
			return nil, fmt.Errorf("%s: default of %q: %w", def.Name, d.Name, err)
		}
		p.uniforms[d.Name] = &Uniform{Type: d.Type, Value: v}
	}
	for name, value := range overrides {
		u, ok := p.uniforms[name]
		if !ok {
			continue
		}
		v, err := Coerce(u.Type, value)
		if err != nil {
			return nil, fmt.Errorf("%s: override of %q: %w", def.Name, name, err)
		}
		p.overrides[name] = v
	}
	return p, nil
}

func mustProgram(def Definition, overrides map[string]any) *Program {
	p, err := NewProgram(def, overrides)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Program) Name() string { return p.name }

func (p *Program) Kernel() Kernel { return p.kernel }

// Main returns the main-function source.
func (p *Program) Main() string { return p.main }

// Uniforms returns the declaration table. Each override is written into its
// slot the first time the table is read.
func (p *Program) Uniforms() Table {
	for name, v := range p.overrides {
		if p.applied[name] {
			continue
		}
		p.uniforms[name].Value = v
		p.applied[name] = true
	}
	return p.uniforms
}

// Body returns the final GLSL source.
func (p *Program) Body() string {
	body := strings.Replace(p.skeleton, SlotUniforms, p.formatUniforms(), 1)
	body = strings.Replace(body, SlotMain, p.main, 1)
	return importCommons(body)
}

// Update assigns every binding the target declares, then runs the variant's
// per-frame derivations.
func (p *Program) Update(t Target, frame *graphics.FrameInfo, scale float32, b Bindings) error {
	for name, value := range b {
		if !t.Has(name) {
			continue
		}
		if err := t.Set(name, value); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	if p.update != nil {
		if err := p.update(t, frame, scale); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

func (p *Program) formatUniforms() string {
	names := p.uniforms.Names()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("uniform %s %s;", p.uniforms[name].Type, name)
	}
	return strings.Join(lines, "\n")
}

// setIfDeclared writes value when the target declares name.
func setIfDeclared(t Target, name string, value any) error {
	if !t.Has(name) {
		return nil
	}
	return t.Set(name, value)
}
