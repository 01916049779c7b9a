package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

// MaterialOptions configures a Material.
type MaterialOptions struct {
	// VertexShader defaults to shader.NewBaseVertex.
	VertexShader shader.Shader
	// FragmentShader defaults to shader.NewBaseFragment.
	FragmentShader shader.Shader
	// Pipeline, when set, is rendered every Update and its output bound to
	// the fragment shader's PipelineInputKey uniform.
	Pipeline *PipelineOptions
	// PipelineInputKey defaults to "map".
	PipelineInputKey string
}

// Property names a material already exposes. Uniforms with these names stay
// in the compiled table but get no accessor.
var reservedProperties = map[string]bool{
	"id":             true,
	"uuid":           true,
	"name":           true,
	"type":           true,
	"uniforms":       true,
	"defines":        true,
	"visible":        true,
	"opacity":        true,
	"transparent":    true,
	"side":           true,
	"vertexShader":   true,
	"fragmentShader": true,
	"pipeline":       true,
	"update":         true,
	"init":           true,
	"resize":         true,
}

// Material composes a vertex and a fragment shader into one drawable program
// and owns the uniform values of that program.
//
// Every uniform of both shaders gets its own value slot, seeded from the
// shader declarations. When both shaders declare the same name, the slot of
// the shader declared first (vertex) wins and a warning is logged.
type Material struct {
	vertex   shader.Shader
	fragment shader.Shader
	pipeline *Pipeline
	inputKey string

	// uniforms is the compiled table; properties is the accessor view of it.
	uniforms   shader.Table
	properties shader.Table
}

// NewMaterial builds a material. With a pipeline, the fragment shader must
// declare the input key uniform.
func NewMaterial(opts MaterialOptions) (*Material, error) {
	m := &Material{
		vertex:     opts.VertexShader,
		fragment:   opts.FragmentShader,
		inputKey:   opts.PipelineInputKey,
		uniforms:   make(shader.Table),
		properties: make(shader.Table),
	}
	if m.vertex == nil {
		m.vertex = shader.NewBaseVertex()
	}
	if m.fragment == nil {
		m.fragment = shader.NewBaseFragment()
	}
	if m.inputKey == "" {
		m.inputKey = DefaultInputKey
	}

	m.addUniforms(m.vertex)
	m.addUniforms(m.fragment)

	if opts.Pipeline != nil {
		if !m.fragment.Uniforms().Has(m.inputKey) {
			return nil, fmt.Errorf("%w: %s does not declare %q", ErrMissingInputKey, m.fragment.Name(), m.inputKey)
		}
		p, err := NewPipeline(*opts.Pipeline)
		if err != nil {
			return nil, err
		}
		m.pipeline = p
	}
	return m, nil
}

func (m *Material) addUniforms(s shader.Shader) {
	table := s.Uniforms()
	for _, name := range table.Names() {
		if m.uniforms.Has(name) {
			graphics.Logger().Warn("duplicated uniform, shader compilation might fail",
				"uniform", name, "shader", s.Name())
			continue
		}
		slot := table[name].Clone()
		m.uniforms[name] = slot
		if reservedProperties[name] {
			graphics.Logger().Warn("uniform shadows a material property, no accessor created",
				"uniform", name, "shader", s.Name())
			continue
		}
		m.properties[name] = slot
	}
}

func (m *Material) VertexShader() shader.Shader   { return m.vertex }
func (m *Material) FragmentShader() shader.Shader { return m.fragment }

// Pipeline returns the attached pipeline, or nil.
func (m *Material) Pipeline() *Pipeline { return m.pipeline }

// Uniforms returns the compiled uniform table. Devices read it at draw time.
func (m *Material) Uniforms() shader.Table { return m.uniforms }

// Has reports whether the material exposes an accessor for name.
func (m *Material) Has(name string) bool { return m.properties.Has(name) }

// Get returns the current value behind the accessor for name.
func (m *Material) Get(name string) (any, bool) {
	u, ok := m.properties[name]
	if !ok {
		return nil, false
	}
	return u.Value, true
}

// Set writes through the accessor for name. The value is coerced to the
// uniform's type.
func (m *Material) Set(name string, value any) error {
	return m.properties.Set(name, value)
}

// Float returns a float accessor value. ok is false when the accessor is
// missing or of another type.
func (m *Material) Float(name string) (v float32, ok bool) {
	if u, found := m.properties[name]; found {
		v, ok = u.Value.(float32)
	}
	return v, ok
}

func (m *Material) Vec2(name string) (v mgl32.Vec2, ok bool) {
	if u, found := m.properties[name]; found {
		v, ok = u.Value.(mgl32.Vec2)
	}
	return v, ok
}

func (m *Material) Vec3(name string) (v mgl32.Vec3, ok bool) {
	if u, found := m.properties[name]; found {
		v, ok = u.Value.(mgl32.Vec3)
	}
	return v, ok
}

func (m *Material) Bool(name string) (v bool, ok bool) {
	if u, found := m.properties[name]; found {
		v, ok = u.Value.(bool)
	}
	return v, ok
}

func (m *Material) Texture(name string) (v graphics.Texture, ok bool) {
	if u, found := m.properties[name]; found && u.Type == shader.Sampler2D {
		v, _ = u.Value.(graphics.Texture)
		ok = true
	}
	return v, ok
}

func (m *Material) SetFloat(name string, v float32) error   { return m.setTyped(name, shader.Float, v) }
func (m *Material) SetVec2(name string, v mgl32.Vec2) error { return m.setTyped(name, shader.Vec2, v) }
func (m *Material) SetVec3(name string, v mgl32.Vec3) error { return m.setTyped(name, shader.Vec3, v) }
func (m *Material) SetBool(name string, v bool) error       { return m.setTyped(name, shader.Bool, v) }
func (m *Material) SetTexture(name string, v graphics.Texture) error {
	return m.setTyped(name, shader.Sampler2D, v)
}

func (m *Material) setTyped(name string, t shader.Type, v any) error {
	u, ok := m.properties[name]
	if !ok {
		return fmt.Errorf("%w: %q", shader.ErrUnknownUniform, name)
	}
	if u.Type != t {
		return fmt.Errorf("%w: %q is %s, not %s", shader.ErrTypeMismatch, name, u.Type, t)
	}
	u.Value = v
	return nil
}

// Init initialises the attached pipeline, if any.
func (m *Material) Init(device Device, width, height int) error {
	if m.pipeline == nil {
		return nil
	}
	return m.pipeline.Init(device, width, height)
}

// Resize forwards the new canvas size to the attached pipeline, if any.
func (m *Material) Resize(width, height int) error {
	if m.pipeline == nil {
		return nil
	}
	return m.pipeline.Resize(width, height)
}

// Update refreshes the vertex shader uniforms, renders the pipeline and
// binds its output to the input key, then refreshes the fragment shader
// uniforms. Uniforms are written at scale 1.
func (m *Material) Update(frame *graphics.FrameInfo) error {
	if err := m.vertex.Update(m.uniforms, frame, 1, nil); err != nil {
		return err
	}
	var bindings shader.Bindings
	if m.pipeline != nil {
		out, err := m.pipeline.Render(frame)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		bindings = shader.Bindings{m.inputKey: out}
	}
	return m.fragment.Update(m.uniforms, frame, 1, bindings)
}

// OnBeforeProgramBuild adds the material's uniform slots to params (names
// params already holds are kept) and sets the program sources and kernels.
func (m *Material) OnBeforeProgramBuild(params *ProgramParams) {
	if params.Uniforms == nil {
		params.Uniforms = make(shader.Table, len(m.uniforms))
	}
	for _, s := range []shader.Shader{m.vertex, m.fragment} {
		for _, name := range s.Uniforms().Names() {
			if params.Uniforms.Has(name) {
				continue
			}
			params.Uniforms[name] = m.uniforms[name]
		}
	}
	params.VertexShader = m.vertex.Body()
	params.FragmentShader = m.fragment.Body()
	params.Kernel = shader.Kernel{
		Vertex:   m.vertex.Kernel().Vertex,
		Fragment: m.fragment.Kernel().Fragment,
	}
}
