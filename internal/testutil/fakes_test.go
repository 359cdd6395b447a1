package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
)

func TestFakeLauncher_HoldAndRelease(t *testing.T) {
	l := &FakeLauncher{Hold: true}

	p1, err := l.Launch(dispatch.Task{Path: "a"})
	require.NoError(t, err)
	_, err = l.Launch(dispatch.Task{Path: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Gauge.Current())

	done := make(chan dispatch.Exit)
	go func() { done <- p1.Wait() }()

	select {
	case <-done:
		t.Fatal("held process exited")
	case <-time.After(10 * time.Millisecond):
	}

	l.ReleaseAll()
	assert.True(t, (<-done).Success())
	assert.Equal(t, 2, l.Gauge.Peak())
	assert.Len(t, l.Launched(), 2)
}

func TestFakeLauncher_ExitAndFailure(t *testing.T) {
	l := &FakeLauncher{
		ExitFor: func(task dispatch.Task) dispatch.Exit {
			if task.Path == "bad" {
				return dispatch.Exit{Code: 3}
			}
			return dispatch.Exit{}
		},
		FailFor: func(task dispatch.Task) error {
			if task.Path == "missing" {
				return errors.New("no such file")
			}
			return nil
		},
	}

	p, err := l.Launch(dispatch.Task{Path: "bad"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Wait().Code)
	assert.Equal(t, 0, l.Gauge.Current())

	_, err = l.Launch(dispatch.Task{Path: "missing"})
	assert.Error(t, err)
	assert.Len(t, l.Launched(), 1)
}

func TestSliceSource(t *testing.T) {
	boom := errors.New("boom")
	src := &SliceSource{Items: WorkItems("/tmp", 2), Err: boom}

	item, ok, err := src.Next()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "000000", string(item.ID))

	_, ok, _ = src.Next()
	assert.True(t, ok)

	_, ok, err = src.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, src.Pulled())
}

func TestSteppingClock(t *testing.T) {
	c := NewSteppingClock(time.Second)
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestSeededRand(t *testing.T) {
	a, b := SeededRand(42), SeededRand(42)
	for range 5 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}
