package studio

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
)

// Key names understood by KeyDown. Letters are lower case.
const (
	KeyEscape = "escape"
	KeyDelete = "delete"
	KeyHome   = "home"
)

// KeyEvent is a key press with its modifiers.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Shift bool
}

// KeyDown runs the shortcut bound to ev and reports whether one matched.
func (s *Studio) KeyDown(ev KeyEvent) bool {
	key := strings.ToLower(ev.Key)
	if ev.Ctrl {
		switch {
		case key == "z" && ev.Shift, key == "y":
			s.Redo()
			return true
		case key == "z":
			s.Undo()
			return true
		}
		return false
	}

	switch key {
	case "g":
		return s.setMode(editor.ModeTranslate)
	case "r":
		return s.setMode(editor.ModeRotate)
	case "s":
		return s.setMode(editor.ModeScale)
	case "x":
		if s.gizmo.ToggleSnap() {
			s.notify("Rotation snapping on", nil)
		} else {
			s.notify("Rotation snapping off", nil)
		}
	case "d":
		if s.drag.Toggle() {
			s.notify("Dragging enabled", nil)
		} else {
			s.notify("Dragging disabled", nil)
		}
	case "f":
		s.FocusSelection()
	case KeyHome:
		s.ResetCamera()
	case KeyEscape:
		s.gizmo.Detach()
		s.scene.Deselect()
	case KeyDelete:
		if _, err := s.DeleteSelected(); err != nil {
			s.notify("Cannot delete this item", err)
		}
	default:
		return false
	}
	return true
}

// setMode only reacts while the gizmo is attached.
func (s *Studio) setMode(m editor.Mode) bool {
	if s.gizmo.Active() == nil {
		return false
	}
	if err := s.toolbar.SetMode(m); err != nil {
		s.log.Debug("mode key", zap.Stringer("mode", m), zap.Error(err))
	}
	return true
}

// Undo steps back in history.
func (s *Studio) Undo() bool {
	if s.gizmo.State() == gizmo.Dragging || s.drag.Dragging() {
		return false
	}
	return s.history.Undo()
}

// Redo steps forward in history.
func (s *Studio) Redo() bool {
	if s.gizmo.State() == gizmo.Dragging || s.drag.Dragging() {
		return false
	}
	return s.history.Redo()
}
