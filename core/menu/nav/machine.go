// Package nav decides screen transitions for the menu. It performs no I/O:
// the next screen is derived from the inbound event and the content registry
// alone, so there is no per-conversation session to keep.
package nav

import (
	"errors"
	"fmt"

	"github.com/m3rciful/infobot/core/menu/content"
)

// DefaultEntryCommand opens the menu.
const DefaultEntryCommand = "/info"

// ErrNotHandled is returned for commands other than the entry command.
var ErrNotHandled = errors.New("nav: event not handled")

// Machine maps events to instructions. It is immutable and safe for concurrent use.
type Machine struct {
	entry string
	reg   *content.Registry

	menuControls [][]Control
	backControls [][]Control
}

// NewMachine builds a machine for the registry; entry defaults to DefaultEntryCommand.
func NewMachine(reg *content.Registry, entry string) (*Machine, error) {
	if reg == nil {
		return nil, fmt.Errorf("nav: nil registry")
	}
	if entry == "" {
		entry = DefaultEntryCommand
	}

	screens := reg.Screens()
	menu := make([][]Control, 0, len(screens))
	for _, s := range screens {
		menu = append(menu, []Control{{Label: s.Label, Token: s.Token}})
	}

	return &Machine{
		entry:        entry,
		reg:          reg,
		menuControls: menu,
		backControls: [][]Control{{{Label: reg.BackLabel(), Token: reg.BackToken()}}},
	}, nil
}

// EntryCommand returns the command surface that opens the menu.
func (m *Machine) EntryCommand() string { return m.entry }

// Next returns the instruction for ev. Unresolved control tokens are not an
// error: they yield the Unknown screen with SignalUnknownControl set.
func (m *Machine) Next(ev Event) (Instruction, error) {
	switch e := ev.(type) {
	case Command:
		if e.Name != m.entry {
			return Instruction{}, ErrNotHandled
		}
		return Instruction{Target: content.Menu, Mode: ModeNew, Controls: m.MenuControls()}, nil
	case ControlActivation:
		if e.Token == m.reg.BackToken() {
			return Instruction{Target: content.Menu, Mode: ModeEdit, Ref: e.Ref, Controls: m.MenuControls()}, nil
		}
		if s, ok := m.reg.ByToken(e.Token); ok {
			return Instruction{Target: s.ID, Mode: ModeEdit, Ref: e.Ref, Controls: m.BackControls()}, nil
		}
		return Instruction{
			Target:   content.Unknown,
			Mode:     ModeEdit,
			Ref:      e.Ref,
			Controls: m.BackControls(),
			Signal:   SignalUnknownControl,
		}, nil
	case nil:
		return Instruction{}, ErrNotHandled
	}
	return Instruction{}, fmt.Errorf("%w: %T", ErrNotHandled, ev)
}

// MenuControls returns the menu layout: one control per row in declared order.
func (m *Machine) MenuControls() [][]Control {
	return cloneRows(m.menuControls)
}

// BackControls returns the single-row back layout.
func (m *Machine) BackControls() [][]Control {
	return cloneRows(m.backControls)
}

func cloneRows(rows [][]Control) [][]Control {
	out := make([][]Control, len(rows))
	for i, row := range rows {
		out[i] = append([]Control(nil), row...)
	}
	return out
}
