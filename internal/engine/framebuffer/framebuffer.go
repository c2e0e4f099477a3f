// Package framebuffer renders into an offscreen target, used for design thumbnails.
package framebuffer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Framebuffer is an offscreen render target with a colour renderbuffer and depth.
type Framebuffer struct {
	fbo      uint32
	colorRBO uint32
	depthRBO uint32
	width    int32
	height   int32
}

// New creates a framebuffer of the given size. Sizes below one are clamped.
func New(width, height int32) (*Framebuffer, error) {
	fb := &Framebuffer{width: max(width, 1), height: max(height, 1)}
	if err := fb.create(); err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}
	return fb, nil
}

func (fb *Framebuffer) create() error {
	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	fb.colorRBO = fb.attach(gl.RGBA8, gl.COLOR_ATTACHMENT0)
	fb.depthRBO = fb.attach(gl.DEPTH_COMPONENT24, gl.DEPTH_ATTACHMENT)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return nil
}

// attach allocates a renderbuffer sized to fb on the bound framebuffer.
func (fb *Framebuffer) attach(format, attachment uint32) uint32 {
	var rbo uint32
	gl.GenRenderbuffers(1, &rbo)
	gl.BindRenderbuffer(gl.RENDERBUFFER, rbo)
	gl.RenderbufferStorage(gl.RENDERBUFFER, format, fb.width, fb.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, rbo)
	return rbo
}

// BindWithViewport makes fb the render target and returns a function that
// restores the previous target and viewport.
func (fb *Framebuffer) BindWithViewport() func() {
	var prevFBO int32
	var prevViewport [4]int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)

	return func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
		gl.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
	}
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int) {
	return int(fb.width), int(fb.height)
}

// ReadPixels returns the colour attachment as bottom-up RGBA rows.
func (fb *Framebuffer) ReadPixels() []byte {
	pixels := make([]byte, fb.width*fb.height*4)

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.ReadPixels(0, 0, fb.width, fb.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))

	return pixels
}

// Destroy releases all OpenGL resources.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
	for _, rbo := range []*uint32{&fb.colorRBO, &fb.depthRBO} {
		if *rbo != 0 {
			gl.DeleteRenderbuffers(1, rbo)
			*rbo = 0
		}
	}
}
