package hotkeys

import "github.com/Norgate-AV/evelens/internal/native"

// capture turns a stream of low-level key events into one Hotkey. Escape without
// modifiers cancels.
type capture struct {
	held native.Modifiers
}

// feed consumes one event. done is set once the combination is complete; ok reports
// whether it produced a usable hotkey rather than a cancel.
func (c *capture) feed(ev native.KeyEvent) (h Hotkey, done, ok bool) {
	if mod, isMod := modifierOf(ev.VirtualKey); isMod {
		if ev.Down {
			c.held |= mod
		} else {
			c.held &^= mod
		}

		return Hotkey{}, false, false
	}

	if !ev.Down {
		return Hotkey{}, false, false
	}

	if ev.VirtualKey == vkEscape && c.held == 0 {
		return Hotkey{}, true, false
	}

	if KeyName(ev.VirtualKey) == "" {
		return Hotkey{}, false, false
	}

	return Hotkey{Modifiers: c.held, Key: ev.VirtualKey}, true, true
}
