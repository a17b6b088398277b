// Package content holds the immutable table of menu screens: their routing
// tokens, button labels and display texts. Texts are stored in Telegram
// MarkdownV2 exactly as they are sent; authors are responsible for escaping.
package content

import (
	"errors"
	"fmt"
	"strings"
)

// ScreenID names a distinct display state.
type ScreenID string

const (
	// Menu is the root screen listing every content screen.
	Menu ScreenID = "Menu"
	// Unknown is the neutral screen shown when a control token does not resolve.
	Unknown ScreenID = "Unknown"
)

// DefaultBackToken is the reserved routing token of the back control.
const DefaultBackToken = "back_to_menu"

// maxCallbackData is Telegram's limit on callback data, which carries a token as "\f"+token.
const maxCallbackData = 64

var (
	// ErrInvalidDefinition reports a malformed registry definition.
	ErrInvalidDefinition = errors.New("content: invalid definition")
	// ErrReservedToken reports a content screen using the reserved back token.
	ErrReservedToken = errors.New("content: token collides with reserved back token")
)

// Screen is a content screen reachable from the menu.
type Screen struct {
	ID    ScreenID `yaml:"id"`
	Token string   `yaml:"token"`
	Label string   `yaml:"label"`
	Text  string   `yaml:"text"`
}

// Definition is the serialized form of a registry.
type Definition struct {
	MenuText    string   `yaml:"menu_text"`
	UnknownText string   `yaml:"unknown_text"`
	BackLabel   string   `yaml:"back_label"`
	BackToken   string   `yaml:"back_token"`
	Screens     []Screen `yaml:"screens"`
}

// Registry maps screen identifiers to their texts. It is read-only after New
// and safe to share between goroutines.
type Registry struct {
	menuText    string
	unknownText string
	backLabel   string
	backToken   string

	screens []Screen
	byID    map[ScreenID]int
	byToken map[string]int
}

// New validates the definition and freezes it into a Registry.
func New(def Definition) (*Registry, error) {
	if strings.TrimSpace(def.MenuText) == "" {
		return nil, fmt.Errorf("%w: menu_text is required", ErrInvalidDefinition)
	}
	if strings.TrimSpace(def.UnknownText) == "" {
		return nil, fmt.Errorf("%w: unknown_text is required", ErrInvalidDefinition)
	}
	if strings.TrimSpace(def.BackLabel) == "" {
		return nil, fmt.Errorf("%w: back_label is required", ErrInvalidDefinition)
	}
	backToken := strings.TrimSpace(def.BackToken)
	if backToken == "" {
		backToken = DefaultBackToken
	}
	if err := checkTokenSize(backToken); err != nil {
		return nil, fmt.Errorf("%w: back_token: %v", ErrInvalidDefinition, err)
	}
	if len(def.Screens) == 0 {
		return nil, fmt.Errorf("%w: at least one screen is required", ErrInvalidDefinition)
	}

	reg := &Registry{
		menuText:    def.MenuText,
		unknownText: def.UnknownText,
		backLabel:   def.BackLabel,
		backToken:   backToken,
		screens:     make([]Screen, 0, len(def.Screens)),
		byID:        make(map[ScreenID]int, len(def.Screens)),
		byToken:     make(map[string]int, len(def.Screens)),
	}

	for i, s := range def.Screens {
		s.ID = ScreenID(strings.TrimSpace(string(s.ID)))
		s.Token = strings.TrimSpace(s.Token)
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("%w: screens[%d]: id is required", ErrInvalidDefinition, i)
		case s.ID == Menu || s.ID == Unknown:
			return nil, fmt.Errorf("%w: screens[%d]: id %q is reserved", ErrInvalidDefinition, i, s.ID)
		case s.Token == "":
			return nil, fmt.Errorf("%w: screen %s: token is required", ErrInvalidDefinition, s.ID)
		case s.Token == backToken:
			return nil, fmt.Errorf("%w: screen %s uses %q", ErrReservedToken, s.ID, s.Token)
		case strings.ContainsAny(s.Token, "|\f"):
			return nil, fmt.Errorf("%w: screen %s: token %q contains a separator", ErrInvalidDefinition, s.ID, s.Token)
		case checkTokenSize(s.Token) != nil:
			return nil, fmt.Errorf("%w: screen %s: %v", ErrInvalidDefinition, s.ID, checkTokenSize(s.Token))
		case strings.TrimSpace(s.Label) == "":
			return nil, fmt.Errorf("%w: screen %s: label is required", ErrInvalidDefinition, s.ID)
		case strings.TrimSpace(s.Text) == "":
			return nil, fmt.Errorf("%w: screen %s: text is required", ErrInvalidDefinition, s.ID)
		}
		if _, dup := reg.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate screen id %q", ErrInvalidDefinition, s.ID)
		}
		if _, dup := reg.byToken[s.Token]; dup {
			return nil, fmt.Errorf("%w: duplicate token %q", ErrInvalidDefinition, s.Token)
		}
		reg.byID[s.ID] = len(reg.screens)
		reg.byToken[s.Token] = len(reg.screens)
		reg.screens = append(reg.screens, s)
	}
	return reg, nil
}

func checkTokenSize(token string) error {
	if n := len("\f" + token); n > maxCallbackData {
		return fmt.Errorf("token is %d bytes as callback data, limit %d", n, maxCallbackData)
	}
	return nil
}

// Screens returns the content screens in declared order.
func (r *Registry) Screens() []Screen {
	out := make([]Screen, len(r.screens))
	copy(out, r.screens)
	return out
}

// Len returns the number of content screens.
func (r *Registry) Len() int {
	return len(r.screens)
}

// ByToken resolves a routing token to its content screen.
func (r *Registry) ByToken(token string) (Screen, bool) {
	i, ok := r.byToken[token]
	if !ok {
		return Screen{}, false
	}
	return r.screens[i], true
}

// Text returns the display text for any screen, including Menu and Unknown.
func (r *Registry) Text(id ScreenID) (string, bool) {
	switch id {
	case Menu:
		return r.menuText, true
	case Unknown:
		return r.unknownText, true
	}
	i, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.screens[i].Text, true
}

// BackToken returns the reserved token of the back control.
func (r *Registry) BackToken() string { return r.backToken }

// BackLabel returns the visible label of the back control.
func (r *Registry) BackLabel() string { return r.backLabel }
