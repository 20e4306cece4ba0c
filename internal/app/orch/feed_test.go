package orch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedReplaysCurrentValue(t *testing.T) {
	f := newFeed[int](2, true)
	f.Publish(1)
	f.Publish(2)

	ch := f.Subscribe(t.Context())
	assert.Equal(t, 2, <-ch)
}

func TestFeedConflatesSlowSubscriber(t *testing.T) {
	f := newFeed[int](2, false)
	ch := f.Subscribe(t.Context())
	for i := 1; i <= 5; i++ {
		f.Publish(i)
	}
	assert.Equal(t, 4, <-ch)
	assert.Equal(t, 5, <-ch)
}

func TestFeedClosesOnCancel(t *testing.T) {
	f := newFeed[int](1, false)
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Subscribe(ctx)
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	// publishing after the subscriber left must not block or panic
	f.Publish(1)
}
