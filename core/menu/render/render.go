// Package render turns navigation instructions into display payloads.
package render

import (
	"errors"
	"fmt"

	"github.com/m3rciful/infobot/core/menu/content"
	"github.com/m3rciful/infobot/core/menu/nav"
)

// ErrUnknownScreen means the machine chose a screen the registry does not hold.
// It indicates a mismatch between transitions and content, not a user error.
var ErrUnknownScreen = errors.New("render: unknown screen")

// Payload is a display ready for the output adapter.
type Payload struct {
	Screen content.ScreenID
	Text   string
	Mode   nav.DisplayMode
	Ref    nav.MessageRef
	Rows   [][]nav.Control
}

// Renderer resolves screen texts from a registry.
type Renderer struct {
	reg *content.Registry
}

// New returns a renderer backed by reg.
func New(reg *content.Registry) (*Renderer, error) {
	if reg == nil {
		return nil, fmt.Errorf("render: nil registry")
	}
	return &Renderer{reg: reg}, nil
}

// Render builds the payload for in. The text is passed through verbatim.
func (r *Renderer) Render(in nav.Instruction) (Payload, error) {
	text, ok := r.reg.Text(in.Target)
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownScreen, in.Target)
	}
	return Payload{
		Screen: in.Target,
		Text:   text,
		Mode:   in.Mode,
		Ref:    in.Ref,
		Rows:   in.Controls,
	}, nil
}
