// Package input turns SDL2 events into editor events.
package input

import (
	"strings"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/van-studio/internal/editor"
)

// EventType tags an Event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventWheel
)

// Event is a processed input event.
type Event struct {
	Type    EventType
	Key     string // lower-case key name, see KeyName
	Ctrl    bool
	Shift   bool
	Width   int
	Height  int
	Pointer editor.PointerEvent
	Wheel   float64
}

// Input polls SDL and buffers the frame's events.
type Input struct {
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Update polls SDL events. It returns true when the window should close.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		ev, ok := Translate(event)
		if !ok {
			continue
		}
		i.events = append(i.events, ev)
		if ev.Type == EventQuit {
			quit = true
		}
	}
	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Translate converts one SDL event.
func Translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)}, true
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN {
			return Event{}, false
		}
		mod := uint32(e.Keysym.Mod)
		return Event{
			Type:  EventKeyDown,
			Key:   KeyName(e.Keysym.Sym),
			Ctrl:  mod&uint32(sdl.KMOD_CTRL|sdl.KMOD_GUI) != 0,
			Shift: mod&uint32(sdl.KMOD_SHIFT) != 0,
		}, true

	case *sdl.MouseMotionEvent:
		return Event{Type: EventMouseMove, Pointer: editor.PointerEvent{X: float64(e.X), Y: float64(e.Y)}}, true

	case *sdl.MouseButtonEvent:
		p := editor.PointerEvent{X: float64(e.X), Y: float64(e.Y), Button: Button(e.Button)}
		if e.Type == sdl.MOUSEBUTTONDOWN {
			return Event{Type: EventMouseDown, Pointer: p}, true
		}
		return Event{Type: EventMouseUp, Pointer: p}, true

	case *sdl.MouseWheelEvent:
		return Event{Type: EventWheel, Wheel: float64(e.Y)}, true
	}
	return Event{}, false
}

// Button maps an SDL mouse button.
func Button(b uint8) editor.Button {
	switch b {
	case sdl.BUTTON_MIDDLE:
		return editor.ButtonMiddle
	case sdl.BUTTON_RIGHT:
		return editor.ButtonSecondary
	default:
		return editor.ButtonPrimary
	}
}

// KeyName returns the lower-case name of a key, e.g. "z", "escape", "delete".
func KeyName(k sdl.Keycode) string {
	switch k {
	case sdl.K_BACKSPACE:
		return "delete"
	case sdl.K_KP_ENTER:
		return "return"
	}
	return strings.ToLower(sdl.GetKeyName(k))
}
