package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avelesov/neyra/internal/model/chat"
)

func TestSessionCacheEvictIdle(t *testing.T) {
	c := newSessionCache(10 * time.Minute)

	c.put(chat.Session{UserID: "alice"})
	c.put(chat.Session{UserID: "bob"})

	// Nothing is idle yet.
	assert.Equal(t, 0, c.evictIdle(time.Now()))

	evicted := c.evictIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 2, evicted)

	_, ok := c.get("alice")
	assert.False(t, ok, "evicted entry must miss")
}

func TestSessionCacheGetRefreshesIdleClock(t *testing.T) {
	c := newSessionCache(10 * time.Minute)
	c.put(chat.Session{UserID: "alice"})

	// A read counts as activity.
	_, ok := c.get("alice")
	assert.True(t, ok)

	assert.Equal(t, 0, c.evictIdle(time.Now().Add(5*time.Minute)))
}

func TestSessionCacheDisabledTTL(t *testing.T) {
	c := newSessionCache(0)
	c.put(chat.Session{UserID: "alice"})
	assert.Equal(t, 0, c.evictIdle(time.Now().Add(24*time.Hour)))
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("alice")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("alice")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		u := km.Lock("bob")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct users must not contend")
	}
}
