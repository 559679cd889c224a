package hotkeys_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/hotkeys"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/testutil"
)

type actionRecorder struct {
	mu      sync.Mutex
	actions []hotkeys.Action
}

func (r *actionRecorder) HandleHotkey(a hotkeys.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *actionRecorder) all() []hotkeys.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hotkeys.Action(nil), r.actions...)
}

func startService(t *testing.T, fake *testutil.FakeNative, opts hotkeys.Options) (*hotkeys.Service, *actionRecorder) {
	t.Helper()

	rec := &actionRecorder{}
	opts.Logger = logger.NewNoOpLogger()
	opts.Host = fake
	opts.Dispatcher = rec

	svc := hotkeys.New(opts)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Shutdown)

	return svc, rec
}

func bindings(t *testing.T, svc *hotkeys.Service) []hotkeys.Binding {
	t.Helper()

	b, err := svc.Bindings()
	require.NoError(t, err)
	sort.Slice(b, func(i, j int) bool { return b[i].ID < b[j].ID })
	return b
}

func plan() hotkeys.Plan {
	return hotkeys.Plan{
		Profiles: []hotkeys.ProfileHotkey{
			{ProfileID: 1, Name: "Default", Hotkey: "Ctrl+F1"},
			{ProfileID: 2, Name: "Mining", Hotkey: "Ctrl+F2"},
		},
		Groups: []hotkeys.GroupHotkeys{
			{GroupID: 10, Name: "Fleet", Forward: "Ctrl+Tab", Backward: "Ctrl+Shift+Tab"},
		},
	}
}

func TestService_RegistersProfilesThenGroups(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{})

	svc.Register(plan())
	got := bindings(t, svc)

	require.Len(t, got, 4)
	assert.Equal(t, 9000, got[0].ID)
	assert.Equal(t, "Ctrl+F1", got[0].Hotkey.String())
	assert.Equal(t, hotkeys.ActionSwitchProfile, got[1].Action.Kind)
	assert.Equal(t, int64(2), got[1].Action.ProfileID)
	assert.Equal(t, hotkeys.Action{Kind: hotkeys.ActionCycleGroup, GroupID: 10, Forward: true}, got[2].Action)
	assert.Equal(t, hotkeys.Action{Kind: hotkeys.ActionCycleGroup, GroupID: 10}, got[3].Action)

	for _, reg := range fake.Hotkeys() {
		assert.True(t, reg.Modifiers.Has(native.ModNoRepeat))
	}
}

func TestService_RegisterIsIdempotent(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{})

	svc.Register(plan())
	svc.Register(plan())
	svc.Register(plan())

	assert.Len(t, bindings(t, svc), 4)
	assert.Len(t, fake.Hotkeys(), 4)

	svc.UnregisterAll()
	assert.Empty(t, bindings(t, svc))
	assert.Empty(t, fake.Hotkeys())
}

func TestService_SkipsConflictsAndGarbage(t *testing.T) {
	fake := testutil.NewFakeNative().WithTakenHotkey(native.ModCtrl, 0x71) // Ctrl+F2
	svc, _ := startService(t, fake, hotkeys.Options{})

	p := plan()
	p.Groups = append(p.Groups, hotkeys.GroupHotkeys{GroupID: 11, Name: "Bad", Forward: "Banana", Backward: ""})
	svc.Register(p)

	got := bindings(t, svc)
	require.Len(t, got, 3)

	labels := make([]string, 0, len(got))
	for _, b := range got {
		labels = append(labels, b.Hotkey.String())
	}
	assert.Equal(t, []string{"Ctrl+F1", "Ctrl+Tab", "Ctrl+Shift+Tab"}, labels)
}

func TestService_PoolExhaustionStopsRegistration(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{FirstID: 9000, LastID: 9002})

	svc.Register(plan())

	got := bindings(t, svc)
	require.Len(t, got, 3)
	assert.Equal(t, 9002, got[2].ID)
}

func TestService_FireDispatchesAction(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, rec := startService(t, fake, hotkeys.Options{})

	svc.Register(plan())
	_ = bindings(t, svc)

	fake.FireHotkey(9001)
	fake.FireHotkey(9003)
	fake.FireHotkey(4242)

	assert.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []hotkeys.Action{
		{Kind: hotkeys.ActionSwitchProfile, ProfileID: 2},
		{Kind: hotkeys.ActionCycleGroup, GroupID: 10},
	}, rec.all())
}

func TestService_CaptureUnregistersAndRestores(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{})
	svc.Register(plan())
	_ = bindings(t, svc)

	results := make(chan hotkeys.Hotkey, 1)
	svc.BeginCapture(func(h hotkeys.Hotkey, ok bool) {
		if ok {
			results <- h
		}
	})

	assert.Empty(t, bindings(t, svc))
	require.True(t, fake.HookInstalled())

	assert.True(t, fake.PressKey(0xA2, true)) // LControl
	assert.True(t, fake.PressKey(0x74, true)) // F5

	select {
	case h := <-results:
		assert.Equal(t, "Ctrl+F5", h.String())
	case <-time.After(time.Second):
		t.Fatal("capture result not delivered")
	}

	assert.Eventually(t, func() bool {
		b, err := svc.Bindings()
		return err == nil && len(b) == 4
	}, time.Second, 5*time.Millisecond)
	assert.False(t, fake.HookInstalled())
}

func TestService_EndCaptureWithoutKey(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{})
	svc.Register(plan())

	svc.BeginCapture(func(hotkeys.Hotkey, bool) {})
	assert.Empty(t, bindings(t, svc))

	svc.EndCapture()
	assert.Len(t, bindings(t, svc), 4)
	assert.False(t, fake.HookInstalled())
}

func TestService_WindowRetryThenDisabled(t *testing.T) {
	fake := testutil.NewFakeNative().WithMessageWindowFailures(1)
	svc, _ := startService(t, fake, hotkeys.Options{})
	assert.True(t, svc.Enabled())

	broken := testutil.NewFakeNative().WithMessageWindowFailures(2)
	disabled := hotkeys.New(hotkeys.Options{Logger: logger.NewNoOpLogger(), Host: broken, Dispatcher: &actionRecorder{}})

	assert.ErrorIs(t, disabled.Start(), hotkeys.ErrDisabled)
	assert.False(t, disabled.Enabled())
	assert.NotPanics(t, func() {
		disabled.Register(plan())
		disabled.Shutdown()
	})

	_, err := disabled.Bindings()
	assert.ErrorIs(t, err, hotkeys.ErrDisabled)
}

func TestService_ShutdownUnregisters(t *testing.T) {
	fake := testutil.NewFakeNative()
	svc, _ := startService(t, fake, hotkeys.Options{})
	svc.Register(plan())
	_ = bindings(t, svc)

	svc.Shutdown()
	svc.Shutdown()

	assert.Empty(t, fake.Hotkeys())
}
