package hotkeys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Norgate-AV/evelens/internal/native"
)

// ErrInvalidHotkey is returned by Parse for strings that do not describe a hotkey.
var ErrInvalidHotkey = errors.New("invalid hotkey")

// Virtual-key codes used by the parser and the capture filter.
const (
	vkBack     = 0x08
	vkTab      = 0x09
	vkReturn   = 0x0D
	vkShift    = 0x10
	vkControl  = 0x11
	vkMenu     = 0x12
	vkEscape   = 0x1B
	vkSpace    = 0x20
	vkPrior    = 0x21
	vkNext     = 0x22
	vkEnd      = 0x23
	vkHome     = 0x24
	vkLeft     = 0x25
	vkUp       = 0x26
	vkRight    = 0x27
	vkDown     = 0x28
	vkInsert   = 0x2D
	vkDelete   = 0x2E
	vkLWin     = 0x5B
	vkRWin     = 0x5C
	vkNumPad0  = 0x60
	vkF1       = 0x70
	vkF24      = 0x87
	vkLShift   = 0xA0
	vkRShift   = 0xA1
	vkLControl = 0xA2
	vkRControl = 0xA3
	vkLMenu    = 0xA4
	vkRMenu    = 0xA5
)

// Hotkey is a parsed key combination.
type Hotkey struct {
	Modifiers native.Modifiers
	Key       uint32
}

var modifierNames = map[string]native.Modifiers{
	"ctrl":    native.ModCtrl,
	"control": native.ModCtrl,
	"alt":     native.ModAlt,
	"shift":   native.ModShift,
	"win":     native.ModWin,
	"windows": native.ModWin,
}

// Named keys, keyed by lowercase name with spaces removed. The first name listed for
// a code in keyDisplay is the canonical spelling.
var namedKeys = map[string]uint32{
	"space":     vkSpace,
	"enter":     vkReturn,
	"return":    vkReturn,
	"tab":       vkTab,
	"escape":    vkEscape,
	"esc":       vkEscape,
	"backspace": vkBack,
	"delete":    vkDelete,
	"del":       vkDelete,
	"insert":    vkInsert,
	"ins":       vkInsert,
	"home":      vkHome,
	"end":       vkEnd,
	"pageup":    vkPrior,
	"pgup":      vkPrior,
	"pagedown":  vkNext,
	"pgdn":      vkNext,
	"left":      vkLeft,
	"up":        vkUp,
	"right":     vkRight,
	"down":      vkDown,
}

var keyDisplay = map[uint32]string{
	vkSpace:  "Space",
	vkReturn: "Enter",
	vkTab:    "Tab",
	vkEscape: "Escape",
	vkBack:   "Backspace",
	vkDelete: "Delete",
	vkInsert: "Insert",
	vkHome:   "Home",
	vkEnd:    "End",
	vkPrior:  "PageUp",
	vkNext:   "PageDown",
	vkLeft:   "Left",
	vkUp:     "Up",
	vkRight:  "Right",
	vkDown:   "Down",
}

// Parse reads a "Ctrl+Shift+F5" style string. Modifier names are case-insensitive and
// the last token is the key.
func Parse(s string) (Hotkey, error) {
	tokens := strings.Split(s, "+")

	var h Hotkey
	for i, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			return Hotkey{}, fmt.Errorf("%w: %q", ErrInvalidHotkey, s)
		}

		if i < len(tokens)-1 {
			mod, ok := modifierNames[tok]
			if !ok {
				return Hotkey{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidHotkey, tok)
			}

			h.Modifiers |= mod
			continue
		}

		vk, ok := keyCode(tok)
		if !ok {
			return Hotkey{}, fmt.Errorf("%w: unknown key %q", ErrInvalidHotkey, tok)
		}

		h.Key = vk
	}

	return h, nil
}

func keyCode(tok string) (uint32, bool) {
	tok = strings.ReplaceAll(tok, " ", "")

	if vk, ok := namedKeys[tok]; ok {
		return vk, true
	}

	if len(tok) == 1 {
		c := tok[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c-'a') + 'A', true
		case c >= '0' && c <= '9':
			return uint32(c), true
		}

		return 0, false
	}

	var n int
	if rest, ok := strings.CutPrefix(tok, "numpad"); ok {
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil && len(rest) == 1 && n >= 0 && n <= 9 {
			return vkNumPad0 + uint32(n), true
		}

		return 0, false
	}

	if rest, ok := strings.CutPrefix(tok, "f"); ok {
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil && fmt.Sprint(n) == rest && n >= 1 && n <= 24 {
			return vkF1 + uint32(n-1), true
		}
	}

	return 0, false
}

// KeyName returns the canonical name of a virtual key, or "" when it has none.
func KeyName(vk uint32) string {
	switch {
	case vk >= 'A' && vk <= 'Z', vk >= '0' && vk <= '9':
		return string(rune(vk))
	case vk >= vkF1 && vk <= vkF24:
		return fmt.Sprintf("F%d", vk-vkF1+1)
	case vk >= vkNumPad0 && vk <= vkNumPad0+9:
		return fmt.Sprintf("NumPad%d", vk-vkNumPad0)
	}

	return keyDisplay[vk]
}

// String formats h in the form accepted by Parse.
func (h Hotkey) String() string {
	var parts []string

	for _, m := range []struct {
		mod  native.Modifiers
		name string
	}{
		{native.ModCtrl, "Ctrl"},
		{native.ModAlt, "Alt"},
		{native.ModShift, "Shift"},
		{native.ModWin, "Win"},
	} {
		if h.Modifiers.Has(m.mod) {
			parts = append(parts, m.name)
		}
	}

	return strings.Join(append(parts, KeyName(h.Key)), "+")
}

// modifierOf maps a modifier virtual key to its flag.
func modifierOf(vk uint32) (native.Modifiers, bool) {
	switch vk {
	case vkControl, vkLControl, vkRControl:
		return native.ModCtrl, true
	case vkMenu, vkLMenu, vkRMenu:
		return native.ModAlt, true
	case vkShift, vkLShift, vkRShift:
		return native.ModShift, true
	case vkLWin, vkRWin:
		return native.ModWin, true
	}

	return 0, false
}
