// Package shader compiles GLSL programs and resolves their uniforms.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Program is a linked GL program with its uniform locations resolved once.
type Program struct {
	id       uint32
	uniforms map[string]int32
}

// Stage is one shader source of a program.
type Stage struct {
	Kind   uint32 // gl.VERTEX_SHADER, gl.FRAGMENT_SHADER
	Source string
}

// Link compiles the stages, links them and looks up every uniform in required.
// A required uniform the driver does not report is an error; optional ones
// resolve to -1, which GL ignores on upload.
func Link(stages []Stage, required, optional []string) (*Program, error) {
	ids := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range ids {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		s, err := compile(st)
		if err != nil {
			return nil, err
		}
		ids = append(ids, s)
	}

	id := gl.CreateProgram()
	for _, s := range ids {
		gl.AttachShader(id, s)
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(id, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("link: %s", msg)
	}

	p := &Program{id: id, uniforms: make(map[string]int32, len(required)+len(optional))}
	for _, name := range required {
		loc := location(id, name)
		if loc < 0 {
			p.Delete()
			return nil, fmt.Errorf("uniform %q not found in program %d", name, id)
		}
		p.uniforms[name] = loc
	}
	for _, name := range optional {
		p.uniforms[name] = location(id, name)
	}
	return p, nil
}

func compile(st Stage) (uint32, error) {
	s := gl.CreateShader(st.Kind)
	src, free := gl.Strs(st.Source + "\x00")
	gl.ShaderSource(s, 1, src, nil)
	free()
	gl.CompileShader(s)

	var status int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(s, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(s)
		return 0, fmt.Errorf("%s shader: %s", stageName(st.Kind), msg)
	}
	return s, nil
}

func infoLog(id uint32, param func(uint32, uint32, *int32), read func(uint32, int32, *int32, *uint8)) string {
	var n int32
	param(id, gl.INFO_LOG_LENGTH, &n)
	if n <= 0 {
		return "no info log"
	}
	buf := make([]byte, n)
	read(id, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00\n")
}

func location(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func stageName(kind uint32) string {
	switch kind {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	case gl.GEOMETRY_SHADER:
		return "geometry"
	}
	return fmt.Sprintf("stage 0x%x", kind)
}

// Use makes p the current program.
func (p *Program) Use() { gl.UseProgram(p.id) }

// Delete releases the program.
func (p *Program) Delete() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

// Uniform returns the location resolved at link time, or -1.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

// SetMat4 uploads a column-major matrix. p must be in use.
func (p *Program) SetMat4(name string, m *[16]float32) {
	gl.UniformMatrix4fv(p.Uniform(name), 1, false, &m[0])
}

// SetFloat uploads a scalar. p must be in use.
func (p *Program) SetFloat(name string, v float32) {
	gl.Uniform1f(p.Uniform(name), v)
}
