package hotkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/native"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		mods native.Modifiers
		key  uint32
	}{
		{"Ctrl+Shift+F5", native.ModCtrl | native.ModShift, vkF1 + 4},
		{"A", 0, 'A'},
		{"a", 0, 'A'},
		{"7", 0, '7'},
		{"control+alt+Delete", native.ModCtrl | native.ModAlt, vkDelete},
		{"WINDOWS + Page Up", native.ModWin, vkPrior},
		{"Win+NumPad3", native.ModWin, vkNumPad0 + 3},
		{"F24", 0, vkF24},
		{"Alt+Space", native.ModAlt, vkSpace},
		{"Shift+Esc", native.ModShift, vkEscape},
		{"Ctrl+Left", native.ModCtrl, vkLeft},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mods, h.Modifiers)
			assert.Equal(t, tt.key, h.Key)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"Banana", "", "Ctrl+", "Ctrl+Shift", "Hyper+A", "F25", "F0", "NumPad10", "Ctrl++A", "!"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidHotkey)
		})
	}
}

func TestFormat_IsInverseOfParse(t *testing.T) {
	for _, in := range []string{"Ctrl+Shift+F5", "A", "Ctrl+Alt+Shift+Win+NumPad9", "Alt+PageDown", "Enter"} {
		h, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, in, h.String())

		again, err := Parse(h.String())
		require.NoError(t, err)
		assert.Equal(t, h, again)
	}

	h, err := Parse("shift+control+f1")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+F1", h.String())
}

func TestCapture(t *testing.T) {
	var c capture

	_, done, _ := c.feed(native.KeyEvent{VirtualKey: vkLControl, Down: true})
	assert.False(t, done)
	_, done, _ = c.feed(native.KeyEvent{VirtualKey: vkRShift, Down: true})
	assert.False(t, done)

	h, done, ok := c.feed(native.KeyEvent{VirtualKey: vkF1 + 4, Down: true})
	require.True(t, done)
	require.True(t, ok)
	assert.Equal(t, "Ctrl+Shift+F5", h.String())
}

func TestCapture_ReleasedModifierAndCancel(t *testing.T) {
	var c capture

	c.feed(native.KeyEvent{VirtualKey: vkLMenu, Down: true})
	c.feed(native.KeyEvent{VirtualKey: vkLMenu, Down: false})

	_, done, ok := c.feed(native.KeyEvent{VirtualKey: vkEscape, Down: true})
	assert.True(t, done)
	assert.False(t, ok)

	c = capture{}
	c.feed(native.KeyEvent{VirtualKey: vkShift, Down: true})
	h, done, ok := c.feed(native.KeyEvent{VirtualKey: vkEscape, Down: true})
	assert.True(t, done)
	assert.True(t, ok)
	assert.Equal(t, "Shift+Escape", h.String())
}

func TestIDPool(t *testing.T) {
	p := newIDPool(FirstID, FirstID+1)

	id, err := p.take()
	require.NoError(t, err)
	assert.Equal(t, 9000, id)

	id, err = p.take()
	require.NoError(t, err)
	assert.Equal(t, 9001, id)

	_, err = p.take()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	p.reset()
	id, _ = p.take()
	assert.Equal(t, 9000, id)
}

func TestBindingTable_ProfileWins(t *testing.T) {
	tbl := newBindingTable()
	tbl.groups[9000] = Binding{ID: 9000, Action: Action{Kind: ActionCycleGroup, GroupID: 3}}
	tbl.profiles[9000] = Binding{ID: 9000, Action: Action{Kind: ActionSwitchProfile, ProfileID: 7}}

	b, ok := tbl.lookup(9000)
	require.True(t, ok)
	assert.Equal(t, ActionSwitchProfile, b.Action.Kind)
	assert.Equal(t, int64(7), b.Action.ProfileID)

	_, ok = tbl.lookup(9001)
	assert.False(t, ok)
}
