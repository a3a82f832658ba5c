package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLGetSet(t *testing.T) {
	c := NewTTL(time.Minute, 0)
	defer c.Stop()

	c.Set("key", "value")

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLExpiredEntryEvictedOnRead(t *testing.T) {
	c := NewTTL(time.Minute, 0)
	defer c.Stop()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("key", "value")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLSetWithTTLOverridesDefault(t *testing.T) {
	c := NewTTL(time.Minute, 0)
	defer c.Stop()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.SetWithTTL("key", "value", time.Hour)

	c.now = func() time.Time { return base.Add(30 * time.Minute) }

	_, ok := c.Get("key")
	assert.True(t, ok)
}

func TestTTLIncrement(t *testing.T) {
	c := NewTTL(time.Second, 0)
	defer c.Stop()

	assert.Equal(t, 1, c.Increment("ip"))
	assert.Equal(t, 2, c.Increment("ip"))
	assert.Equal(t, 3, c.Increment("ip"))
	assert.Equal(t, 1, c.Increment("other"))
}

func TestTTLIncrementRollsOverAfterExpiry(t *testing.T) {
	c := NewTTL(time.Second, 0)
	defer c.Stop()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Increment("ip")
	c.Increment("ip")

	// Expiry is fixed at first increment, so a later bump starts a new window.
	c.now = func() time.Time { return base.Add(2 * time.Second) }

	assert.Equal(t, 1, c.Increment("ip"))
}

func TestTTLDelete(t *testing.T) {
	c := NewTTL(time.Minute, 0)
	defer c.Stop()

	c.Set("key", "value")
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestTTLConcurrentIncrement(t *testing.T) {
	c := NewTTL(time.Minute, 0)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment("ip")
		}()
	}
	wg.Wait()

	got, ok := c.Get("ip")
	assert.True(t, ok)
	assert.Equal(t, 50, got)
}

func TestTTLStopIsIdempotent(t *testing.T) {
	c := NewTTL(time.Minute, time.Millisecond)
	c.Stop()
	c.Stop()
}
