package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/scanner"
	"github.com/Norgate-AV/evelens/internal/testutil"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
	"github.com/Norgate-AV/evelens/internal/uithread"
)

type staticSource struct {
	names []string
	err   error
}

func (s *staticSource) WatchList(context.Context) ([]string, error) { return s.names, s.err }

func (s *staticSource) Settings(context.Context, string) thumbnail.Settings {
	return thumbnail.DefaultSettings()
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) WindowAdded(w *registry.TrackedWindow) {
	l.events = append(l.events, "added:"+w.Title)
}

func (l *recordingListener) WindowRemoved(w *registry.TrackedWindow) {
	l.events = append(l.events, "removed:"+w.Title)
}

type fixture struct {
	fake     *testutil.FakeNative
	reg      *registry.Registry
	listener *recordingListener
	source   *staticSource
	scanner  *scanner.Scanner
}

func newFixture() *fixture {
	f := &fixture{
		fake:     testutil.NewFakeNative(),
		reg:      registry.New(),
		listener: &recordingListener{},
		source:   &staticSource{names: []string{"exefile"}},
	}

	f.scanner = scanner.New(scanner.Options{
		Logger:   logger.NewNoOpLogger(),
		Procs:    f.fake,
		Registry: f.reg,
		Surfaces: thumbnail.NewManager(logger.NewNoOpLogger(), f.fake),
		UI:       uithread.Immediate{},
		Source:   f.source,
		Listener: f.listener,
	})

	return f
}

func TestScan_AddsMatchingWindows(t *testing.T) {
	f := newFixture()
	f.fake.
		WithProcess("exefile.exe", 10, 0x100, "EVE - Alpha").
		WithProcess("exefile.exe", 20, 0x200, "EVE - Bravo")

	f.scanner.Scan(context.Background())

	assert.Equal(t, []uint32{10, 20}, f.reg.PIDs())
	assert.Equal(t, 2, f.fake.LiveThumbnails())
	assert.Equal(t, []string{"added:EVE - Alpha", "added:EVE - Bravo"}, f.listener.events)
}

func TestScan_RepeatedPassesNeverDuplicate(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")

	for range 5 {
		f.scanner.Scan(context.Background())
	}

	assert.Equal(t, 1, f.reg.Len())
	assert.Equal(t, 1, f.fake.LiveThumbnails())
	assert.Len(t, f.listener.events, 1)
}

func TestScan_ExcludesLauncherAndWindowless(t *testing.T) {
	f := newFixture()
	f.fake.
		WithProcess("exefile", 10, 0x100, "EVE").
		WithProcess("exefile", 11, 0x110, "eve ").
		WithProcess("exefile", 12, 0, "").
		WithProcess("exefile", 13, 0x130, "EVE - Charlie")

	f.scanner.Scan(context.Background())

	assert.Equal(t, []uint32{13}, f.reg.PIDs())
}

func TestScan_RemovesExitedProcessDestroyingSurfaceFirst(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	f.scanner.Scan(context.Background())

	w, ok := f.reg.Get(10)
	require.True(t, ok)
	preview, thumb := w.Surface()

	f.fake.WithoutProcess(10)
	f.scanner.Scan(context.Background())

	assert.Zero(t, f.reg.Len())
	assert.False(t, w.HasSurface())
	assert.Equal(t, []string{
		fmt.Sprintf("create:%#x", preview),
		fmt.Sprintf("register:%d", thumb),
		fmt.Sprintf("unregister:%d", thumb),
		fmt.Sprintf("destroy:%#x", preview),
	}, f.fake.CallLog())
	assert.Equal(t, []string{"added:EVE - Alpha", "removed:EVE - Alpha"}, f.listener.events)
}

func TestScan_TransientQueryErrorRemovesEntry(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	f.scanner.Scan(context.Background())
	require.Equal(t, 1, f.reg.Len())

	// Same pid now reports a failed query.
	f.fake.WithoutProcess(10)
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	procs := scannerProcsWithError{FakeNative: f.fake, pid: 10, err: native.ErrInvalidHandle}

	s := scanner.New(scanner.Options{
		Logger:   logger.NewNoOpLogger(),
		Procs:    procs,
		Registry: f.reg,
		Surfaces: thumbnail.NewManager(logger.NewNoOpLogger(), f.fake),
		UI:       uithread.Immediate{},
		Source:   f.source,
	})
	s.Scan(context.Background())

	assert.Zero(t, f.reg.Len())
}

type scannerProcsWithError struct {
	*testutil.FakeNative
	pid uint32
	err error
}

func (p scannerProcsWithError) Processes(name string) ([]native.ProcessInfo, error) {
	procs, err := p.FakeNative.Processes(name)
	for i := range procs {
		if procs[i].PID == p.pid {
			procs[i].Err = p.err
		}
	}

	return procs, err
}

func TestScan_EnumerationFailureKeepsEntries(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	f.scanner.Scan(context.Background())

	f.fake.WithProcessError("exefile", errors.New("snapshot failed"))
	f.scanner.Scan(context.Background())

	assert.Equal(t, 1, f.reg.Len())
}

func TestScan_MainWindowChangeReplacesEntry(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	f.scanner.Scan(context.Background())

	f.fake.WithoutProcess(10).WithProcess("exefile", 10, 0x101, "EVE - Alpha")
	f.scanner.Scan(context.Background())

	w, ok := f.reg.Get(10)
	require.True(t, ok)
	assert.Equal(t, native.Handle(0x101), w.Source)
	assert.Equal(t, 1, f.fake.LiveThumbnails())
}

func TestScan_RetriesFailedSurface(t *testing.T) {
	f := newFixture()
	f.fake.WithRegisterError(native.ErrAccessDenied).WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	f.scanner.Scan(context.Background())

	w, ok := f.reg.Get(10)
	require.True(t, ok)
	assert.False(t, w.HasSurface())

	f.fake.WithRegisterError(nil)
	f.scanner.Scan(context.Background())
	assert.True(t, w.HasSurface())
}

func TestScan_PausedDoesNotMutate(t *testing.T) {
	f := newFixture()
	f.fake.WithProcess("exefile", 10, 0x100, "EVE - Alpha")

	f.scanner.Pause()
	f.scanner.Scan(context.Background())
	assert.Zero(t, f.reg.Len())

	f.scanner.Resume()
	f.scanner.Scan(context.Background())
	assert.Equal(t, 1, f.reg.Len())

	f.fake.WithoutProcess(10)
	f.scanner.Pause()
	f.scanner.Scan(context.Background())
	assert.Equal(t, 1, f.reg.Len())
}

func TestRemoveAll(t *testing.T) {
	f := newFixture()
	f.fake.
		WithProcess("exefile", 10, 0x100, "EVE - Alpha").
		WithProcess("exefile", 20, 0x200, "EVE - Bravo")
	f.scanner.Scan(context.Background())

	require.NoError(t, f.scanner.RemoveAll())

	assert.Zero(t, f.reg.Len())
	assert.Zero(t, f.fake.LiveThumbnails())
	assert.Equal(t, []string{"added:EVE - Alpha", "added:EVE - Bravo", "removed:EVE - Alpha", "removed:EVE - Bravo"}, f.listener.events)
}

func TestRemoveAll_WaitsForUIThread(t *testing.T) {
	fake := testutil.NewFakeNative().WithProcess("exefile", 10, 0x100, "EVE - Alpha")
	reg := registry.New()

	ui := uithread.New(logger.NewNoOpLogger(), fake.PumpMessages)
	ui.Start()
	defer ui.Stop(time.Second)

	s := scanner.New(scanner.Options{
		Logger:   logger.NewNoOpLogger(),
		Procs:    fake,
		Registry: reg,
		Surfaces: thumbnail.NewManager(logger.NewNoOpLogger(), fake),
		UI:       ui,
		Source:   &staticSource{names: []string{"exefile"}},
	})

	s.Scan(context.Background())
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	// A rescan straight after teardown must re-add the still running client.
	require.NoError(t, s.RemoveAll())
	assert.Zero(t, reg.Len())

	s.Scan(context.Background())
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return reg.Len() != 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestIsLauncherTitle(t *testing.T) {
	assert.True(t, scanner.IsLauncherTitle("EVE"))
	assert.True(t, scanner.IsLauncherTitle("eve"))
	assert.False(t, scanner.IsLauncherTitle("EVE - Alpha"))
	assert.False(t, scanner.IsLauncherTitle(""))
}
