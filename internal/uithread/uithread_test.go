package uithread_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/uithread"
)

func TestThread_RunsPostedWorkInOrder(t *testing.T) {
	th := uithread.New(logger.NewNoOpLogger(), nil)
	th.Start()
	defer th.Stop(time.Second)

	var order []int
	for i := range 5 {
		th.Post(func() { order = append(order, i) })
	}

	// Call is queued behind the posts, so it observes all of them.
	err := th.Call(func() error {
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
		return nil
	})
	require.NoError(t, err)
}

func TestThread_CallReturnsError(t *testing.T) {
	th := uithread.New(logger.NewNoOpLogger(), nil)
	th.Start()
	defer th.Stop(time.Second)

	boom := errors.New("boom")
	assert.ErrorIs(t, th.Call(func() error { return boom }), boom)
}

func TestThread_RecoversFromPanic(t *testing.T) {
	th := uithread.New(logger.NewNoOpLogger(), nil)
	th.Start()
	defer th.Stop(time.Second)

	th.Post(func() { panic("bad work") })
	assert.NoError(t, th.Call(func() error { return nil }))
}

func TestThread_PumpsWhenIdle(t *testing.T) {
	var pumps atomic.Int32

	th := uithread.New(logger.NewNoOpLogger(), func() { pumps.Add(1) })
	th.Start()
	defer th.Stop(time.Second)

	assert.Eventually(t, func() bool { return pumps.Load() > 0 }, time.Second, 5*time.Millisecond)
}

func TestThread_CallAfterStop(t *testing.T) {
	th := uithread.New(logger.NewNoOpLogger(), nil)
	th.Start()
	th.Stop(time.Second)

	assert.ErrorIs(t, th.Call(func() error { return nil }), uithread.ErrStopped)
	assert.NotPanics(t, func() { th.Post(func() {}) })
}

func TestImmediate(t *testing.T) {
	var ran bool
	uithread.Immediate{}.Post(func() { ran = true })
	assert.True(t, ran)
}
