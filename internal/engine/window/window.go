// Package window handles SDL2 window and OpenGL context creation.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/logger"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// OpenGL 4.1 Core is the highest macOS offers.
var glAttributes = []struct {
	attr  sdl.GLattr
	value int
}{
	{sdl.GL_CONTEXT_MAJOR_VERSION, 4},
	{sdl.GL_CONTEXT_MINOR_VERSION, 1},
	{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE},
	{sdl.GL_DOUBLEBUFFER, 1},
	{sdl.GL_DEPTH_SIZE, 24},
}

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// FromViewer builds a window config from the viewer settings.
func FromViewer(title string, v config.ViewerConfig) Config {
	return Config{
		Title:      title,
		Width:      v.Width,
		Height:     v.Height,
		Fullscreen: v.Fullscreen,
		VSync:      v.VSync,
	}
}

// Window wraps SDL2 window and OpenGL context.
type Window struct {
	config    Config
	sdlWindow *sdl.Window
	glContext sdl.GLContext
	cursors   map[sdl.SystemCursor]*sdl.Cursor
	log       *zap.Logger
}

// New creates a new window with OpenGL context.
func New(cfg Config) (*Window, error) {
	w := &Window{
		config:  cfg,
		cursors: make(map[sdl.SystemCursor]*sdl.Cursor),
		log:     logger.Named("window"),
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	for _, a := range glAttributes {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			w.log.Warn("gl attribute rejected", zap.Int("attr", int(a.attr)), zap.Error(err))
		}
	}

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		w.log.Warn("failed to set swap interval", zap.Error(err))
	}

	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)
	return w, nil
}

// Close destroys the window and cleans up SDL2.
func (w *Window) Close() {
	w.log.Info("closing window")
	for _, c := range w.cursors {
		sdl.FreeCursor(c)
	}
	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
	}
	if w.sdlWindow != nil {
		_ = w.sdlWindow.Destroy()
	}
	sdl.Quit()
}

// SwapBuffers swaps the OpenGL buffers.
func (w *Window) SwapBuffers() {
	w.sdlWindow.GLSwap()
}

// GetSize returns the current window size.
func (w *Window) GetSize() (int, int) {
	width, height := w.sdlWindow.GetSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// SetPointerCursor switches between the hand and the arrow cursor.
func (w *Window) SetPointerCursor(pointer bool) {
	id := sdl.SystemCursor(sdl.SYSTEM_CURSOR_ARROW)
	if pointer {
		id = sdl.SystemCursor(sdl.SYSTEM_CURSOR_HAND)
	}
	c, ok := w.cursors[id]
	if !ok {
		c = sdl.CreateSystemCursor(id)
		w.cursors[id] = c
	}
	if c != nil {
		sdl.SetCursor(c)
	}
}

// ShowMessage shows a modal message box.
func (w *Window) ShowMessage(title, msg string, isErr bool) {
	flags := uint32(sdl.MESSAGEBOX_INFORMATION)
	if isErr {
		flags = sdl.MESSAGEBOX_ERROR
	}
	if err := sdl.ShowSimpleMessageBox(flags, title, msg, w.sdlWindow); err != nil {
		w.log.Warn("message box", zap.Error(err))
	}
}

// Confirm asks a yes/no question and reports whether the user chose yes.
func (w *Window) Confirm(prompt string) bool {
	data := sdl.MessageBoxData{
		Flags:      sdl.MESSAGEBOX_WARNING,
		Window:     w.sdlWindow,
		Title:      w.config.Title,
		Message:    prompt,
		NumButtons: 2,
		Buttons: []sdl.MessageBoxButtonData{
			{Flags: sdl.MESSAGEBOX_BUTTON_ESCAPEKEY_DEFAULT, ButtonID: 0, Text: "Cancel"},
			{Flags: sdl.MESSAGEBOX_BUTTON_RETURNKEY_DEFAULT, ButtonID: 1, Text: "OK"},
		},
	}
	id, err := sdl.ShowMessageBox(&data)
	if err != nil {
		w.log.Warn("confirm dialog", zap.Error(err))
		return false
	}
	return id == 1
}
