package timeouts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeverNeverExpires(t *testing.T) {
	n := Never()
	far := time.Now().Add(24 * 365 * time.Hour)
	assert.False(t, n.HasExpired(far))
	for i := 0; i < 100; i++ {
		assert.False(t, n.IncrementUses(far))
	}
	assert.False(t, n.HasExpired(far))
}

func TestSlidingWindowSlides(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Sliding(30*time.Second, WithMaxUses(Unlimited))

	// Arms on first observation.
	assert.False(t, s.HasExpired(start))

	// A use at t=25s pushes the window forward.
	s.IncrementUses(start.Add(25 * time.Second))
	assert.False(t, s.HasExpired(start.Add(40*time.Second)))

	// 31s after the last use with no further activity.
	assert.True(t, s.HasExpired(start.Add(56*time.Second)))
}

func TestSlidingDefaultsToSingleUse(t *testing.T) {
	now := time.Now()
	s := Sliding(time.Hour)
	assert.False(t, s.HasExpired(now))
	assert.True(t, s.IncrementUses(now))
	assert.True(t, s.HasExpired(now))
}

func TestSlidingMaxUses(t *testing.T) {
	now := time.Now()
	s := Sliding(time.Hour, WithMaxUses(3))
	assert.False(t, s.IncrementUses(now))
	assert.False(t, s.IncrementUses(now))
	assert.True(t, s.IncrementUses(now))
	assert.True(t, s.HasExpired(now))
}

func TestStaticExpiresAtInstant(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Static(at, WithMaxUses(Unlimited))
	assert.False(t, s.HasExpired(at.Add(-time.Second)))
	assert.False(t, s.HasExpired(at))
	assert.True(t, s.HasExpired(at.Add(time.Second)))
}

func TestStaticUsesDoNotExtendDeadline(t *testing.T) {
	at := time.Now().Add(time.Minute)
	s := Static(at, WithMaxUses(Unlimited))
	for i := 0; i < 5; i++ {
		assert.False(t, s.IncrementUses(at.Add(time.Hour)))
	}
	assert.True(t, s.HasExpired(at.Add(2*time.Hour)))
}

func TestStaticDepletesByUse(t *testing.T) {
	at := time.Now().Add(time.Hour)
	s := Static(at)
	assert.True(t, s.IncrementUses(time.Now()))
	assert.True(t, s.HasExpired(time.Now()))
}
