package gldevice

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/renderer"
	"github.com/richinsley/goshaderpass/shader"
	xlate "github.com/richinsley/goshaderpass/translator"
)

// program is a linked material program with cached uniform locations.
type program struct {
	id            uint32
	uniforms      shader.Table
	locations     map[string]int32
	modelViewLoc  int32
	projectionLoc int32
}

func (d *Device) buildProgram(src renderer.ProgramSource) (*program, error) {
	params := &renderer.ProgramParams{}
	src.OnBeforeProgramBuild(params)

	vs, err := xlate.Translate(params.VertexShader, xlate.Vertex, d.gles)
	if err != nil {
		return nil, err
	}
	fs, err := xlate.Translate(params.FragmentShader, xlate.Fragment, d.gles)
	if err != nil {
		return nil, err
	}
	attribs := make(map[uint32]string, len(attributeNames))
	for loc, name := range attributeNames {
		if mapped, ok := vs.MappedName(name); ok {
			attribs[uint32(loc)] = mapped
		}
	}
	id, err := newProgram(vs.Code, fs.Code, attribs)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	p := &program{
		id:        id,
		uniforms:  params.Uniforms,
		locations: make(map[string]int32, len(params.Uniforms)),
	}
	gl.UseProgram(id)
	p.modelViewLoc = uniformLocation(id, vs, "modelViewMatrix")
	p.projectionLoc = uniformLocation(id, vs, "projectionMatrix")
	for _, name := range params.Uniforms.Names() {
		loc := uniformLocation(id, fs, name)
		if loc < 0 {
			loc = uniformLocation(id, vs, name)
		}
		// Unused uniforms are optimised out by the driver.
		if loc >= 0 {
			p.locations[name] = loc
		}
	}
	graphics.Logger().Info("program built", "device", "gl", "program", id, "uniforms", len(p.locations))
	return p, nil
}

func uniformLocation(program uint32, r *xlate.Result, name string) int32 {
	mapped, ok := r.MappedName(name)
	if !ok {
		return -1
	}
	return gl.GetUniformLocation(program, gl.Str(mapped+"\x00"))
}

// upload writes every uniform of p and returns the number of texture units
// used. Samplers take consecutive units starting at 0.
func (d *Device) upload(p *program) (int, error) {
	t := p.uniforms
	unit := int32(0)
	for _, name := range t.Names() {
		loc, ok := p.locations[name]
		if !ok {
			continue
		}
		switch typ := t[name].Type; typ {
		case shader.Float:
			gl.Uniform1f(loc, t.Float(name))
		case shader.Vec2:
			v := t.Vec2(name)
			gl.Uniform2f(loc, v.X(), v.Y())
		case shader.Vec3:
			v := t.Vec3(name)
			gl.Uniform3f(loc, v.X(), v.Y(), v.Z())
		case shader.Bool:
			var i int32
			if t.Bool(name) {
				i = 1
			}
			gl.Uniform1i(loc, i)
		case shader.Sampler2D:
			tex, err := d.textureID(t.Texture(name))
			if err != nil {
				return int(unit), fmt.Errorf("uniform %q: %w", name, err)
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, tex)
			gl.Uniform1i(loc, unit)
			unit++
		default:
			graphics.Logger().Warn("unsupported uniform type", "uniform", name, "type", typ.String())
		}
	}
	return int(unit), nil
}

func unbindTextures(count int) {
	for i := 0; i < count; i++ {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

// attributeNames are the vertex inputs in layout location order.
var attributeNames = []string{"position", "normal", "uv"}

func newProgram(vertexShaderSource, fragmentShaderSource string, attribs map[uint32]string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	for loc, name := range attribs {
		gl.BindAttribLocation(program, loc, gl.Str(name+"\x00"))
	}
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}
