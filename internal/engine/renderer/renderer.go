// Package renderer draws the wireframe viewport with OpenGL.
package renderer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/engine/debug"
	"github.com/Faultbox/van-studio/internal/engine/framebuffer"
	"github.com/Faultbox/van-studio/internal/engine/shader"
	"github.com/Faultbox/van-studio/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

const vertexStride = int32(unsafe.Sizeof(debug.Vertex{}))

const lineVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aColor;

uniform mat4 uViewProj;
uniform float uOpacity;

out vec4 vertexColor;

void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
	vertexColor = vec4(aColor, uOpacity);
}
`

const lineFragmentShader = `
#version 410 core

in vec4 vertexColor;
out vec4 FragColor;

void main() {
	FragColor = vertexColor;
}
`

const (
	uniformViewProj = "uViewProj"
	uniformOpacity  = "uOpacity"
)

// Renderer uploads line vertices each frame and draws them.
type Renderer struct {
	config Config

	program *shader.Program

	vao      uint32
	vbo      uint32
	capacity int

	log *zap.Logger
}

// New creates a renderer. It must be called after the OpenGL context exists.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{config: cfg, log: logger.Named("renderer")}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	r.program, err = shader.Link([]shader.Stage{
		{Kind: gl.VERTEX_SHADER, Source: lineVertexShader},
		{Kind: gl.FRAGMENT_SHADER, Source: lineFragmentShader},
	}, []string{uniformViewProj}, []string{uniformOpacity})
	if err != nil {
		return nil, fmt.Errorf("line shader: %w", err)
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, vertexStride, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, vertexStride, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases GL objects.
func (r *Renderer) Close() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Begin clears the frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// DrawLines draws verts as GL_LINES with the given view-projection.
func (r *Renderer) DrawLines(verts []debug.Vertex, viewProj mgl64.Mat4, opacity float32) {
	if len(verts) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	size := len(verts) * int(vertexStride)
	if len(verts) > r.capacity {
		gl.BufferData(gl.ARRAY_BUFFER, size, unsafe.Pointer(&verts[0]), gl.DYNAMIC_DRAW)
		r.capacity = len(verts)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, unsafe.Pointer(&verts[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	m := mat4f(viewProj)
	r.program.Use()
	r.program.SetMat4(uniformViewProj, &m)
	r.program.SetFloat(uniformOpacity, opacity)
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.LINES, 0, int32(len(verts)))
	gl.BindVertexArray(0)
}

// ReadPixels returns the framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return nil, 0, 0
	}
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}

func mat4f(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Thumbnail draws verts into an offscreen target of the given size and returns the image.
func (r *Renderer) Thumbnail(verts []debug.Vertex, viewProj mgl64.Mat4, width, height int) (*image.RGBA, error) {
	fb, err := framebuffer.New(int32(width), int32(height))
	if err != nil {
		return nil, err
	}
	defer fb.Destroy()

	restore := fb.BindWithViewport()
	r.Begin()
	r.DrawLines(verts, viewProj, 1)
	pixels := fb.ReadPixels()
	restore()

	w, h := fb.Size()
	return debug.FlipRGBA(pixels, w, h)
}
