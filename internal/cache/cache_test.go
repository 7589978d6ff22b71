package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGetDelete(t *testing.T) {
	c := NewMemory()

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	require.NoError(t, c.Delete("k"))
	_, err = c.Get("k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Delete("k"))
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	base := time.Now()
	c.now = func() time.Time { return base }

	require.NoError(t, c.Set("block", []byte("1"), 10*time.Second))
	_, err := c.Get("block")
	require.NoError(t, err)

	c.now = func() time.Time { return base.Add(10 * time.Second) }
	_, err = c.Get("block")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryNoExpiry(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Set("forever", []byte("x"), 0))
	c.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	_, err := c.Get("forever")
	assert.NoError(t, err)
}

// Requires a running memcached; skipped otherwise.
func TestMemcache(t *testing.T) {
	mc := NewMemcache("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("memcached is not available, skipping test")
	}

	require.NoError(t, mc.Set("secondprice_test_key", []byte("test_value"), time.Second))
	value, err := mc.Get("secondprice_test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	require.NoError(t, mc.Delete("secondprice_test_key"))
	_, err = mc.Get("secondprice_test_key")
	assert.ErrorIs(t, err, ErrMiss)
}
