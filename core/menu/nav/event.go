package nav

import (
	"strconv"

	"github.com/m3rciful/infobot/core/menu/content"
)

// Event is an inbound navigation event. The set of implementations is closed:
// Command and ControlActivation.
type Event interface {
	isEvent()
}

// Command is a top-level text command issued by the user, e.g. "/info".
type Command struct {
	Name string
}

// ControlActivation is a press of an inline control hosted by Ref.
type ControlActivation struct {
	Token string
	Ref   MessageRef
}

func (Command) isEvent()           {}
func (ControlActivation) isEvent() {}

// MessageRef identifies a previously sent display. It satisfies tele.Editable.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MessageSig implements tele.Editable.
func (r MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// DisplayMode tells the output adapter whether to send a new message or edit one.
type DisplayMode int

const (
	// ModeNew sends a new message to the chat.
	ModeNew DisplayMode = iota
	// ModeEdit edits the message referenced by Instruction.Ref.
	ModeEdit
)

func (m DisplayMode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeEdit:
		return "edit"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Signal carries recoverable conditions detected while deciding.
type Signal int

const (
	// SignalNone marks a regular transition.
	SignalNone Signal = iota
	// SignalUnknownControl marks an activation whose token resolved to nothing.
	SignalUnknownControl
)

func (s Signal) String() string {
	if s == SignalUnknownControl {
		return "unknown_control"
	}
	return "none"
}

// Control is a single inline control: visible label and opaque routing token.
type Control struct {
	Label string
	Token string
}

// Instruction is the decided next state of a conversation.
type Instruction struct {
	Target   content.ScreenID
	Mode     DisplayMode
	Ref      MessageRef
	Controls [][]Control
	Signal   Signal
}
