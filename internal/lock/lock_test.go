package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_LockUnlock(t *testing.T) {
	m := NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "CMP-1")
	require.NoError(t, err)
	unlock()

	unlock, err = m.Lock(context.Background(), "CMP-1")
	require.NoError(t, err)
	unlock()

	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_DifferentKeys(t *testing.T) {
	m := NewKeyedMutex()

	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		unlockB, err := m.Lock(context.Background(), "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("key b blocked by key a")
	}
	unlockA()
}

func TestKeyedMutex_Concurrent(t *testing.T) {
	m := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "shared")
			if err != nil {
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_ContextCancelledWhileWaiting(t *testing.T) {
	m := NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "w1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "w1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, m.Len())
}
