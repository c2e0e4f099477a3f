// Package editor holds the vocabulary shared by the interactive editing tools:
// pointer events, transform modes and the hooks tools use to coordinate.
package editor

import "github.com/Faultbox/van-studio/internal/scene"

// Button identifies a pointer button.
type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent is a pointer position in viewport pixels plus the button involved.
type PointerEvent struct {
	X, Y   float64
	Button Button
}

// Mode is the active transform mode of the gizmo.
type Mode uint8

const (
	ModeTranslate Mode = iota
	ModeRotate
	ModeScale
)

func (m Mode) String() string {
	switch m {
	case ModeTranslate:
		return "translate"
	case ModeRotate:
		return "rotate"
	case ModeScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Committer records the current scene as a new undo step.
type Committer interface {
	Commit()
}

// Peer is an input tool that can be put on hold while another tool owns the pointer.
type Peer interface {
	Suspend()
	Resume()
	// Owns reports whether the tool currently claims n.
	Owns(n *scene.Node) bool
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(msg string, err error)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string, err error)

// Notify calls f.
func (f NotifyFunc) Notify(msg string, err error) { f(msg, err) }
