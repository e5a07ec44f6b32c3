package infra

import (
	"context"
	"testing"
	"time"

	"contact-gateway/contact/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bg = context.Background()

func TestMemoryStore_UnseenClient(t *testing.T) {
	s := NewMemoryStore(5, time.Hour)

	reset, err := s.ResetTime(bg, "new")
	require.NoError(t, err)
	assert.Zero(t, reset)

	limited, err := s.IsLimited(bg, "new")
	require.NoError(t, err)
	assert.False(t, limited)

	rem, err := s.Remaining(bg, "new")
	require.NoError(t, err)
	assert.Equal(t, 5, rem)
}

func TestMemoryStore_LimitedAfterLimitIncrements(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(5, time.Hour, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		limited, _ := s.IsLimited(bg, "a")
		require.False(t, limited, "check %d", i)
		require.NoError(t, s.Increment(bg, "a"))
	}

	limited, _ := s.IsLimited(bg, "a")
	assert.True(t, limited)
	rem, _ := s.Remaining(bg, "a")
	assert.Zero(t, rem)
}

func TestMemoryStore_WindowBoundaryIsStrict(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(1, time.Hour, WithClock(clock.Now))

	_, _ = s.IsLimited(bg, "a")
	_ = s.Increment(bg, "a")

	// exatamente no fim da janela ainda conta
	clock.Advance(time.Hour)
	limited, _ := s.IsLimited(bg, "a")
	assert.True(t, limited)
	reset, _ := s.ResetTime(bg, "a")
	assert.Zero(t, reset)

	clock.Advance(time.Nanosecond)
	limited, _ = s.IsLimited(bg, "a")
	assert.False(t, limited)
	reset, _ = s.ResetTime(bg, "a")
	assert.Equal(t, time.Hour, reset)
}

func TestMemoryStore_RemainingResetsExpiredWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(3, time.Minute, WithClock(clock.Now))

	_, _ = s.IsLimited(bg, "a")
	_ = s.Increment(bg, "a")
	_ = s.Increment(bg, "a")
	rem, _ := s.Remaining(bg, "a")
	require.Equal(t, 1, rem)

	clock.Advance(2 * time.Minute)
	rem, _ = s.Remaining(bg, "a")
	assert.Equal(t, 3, rem)
}

func TestMemoryStore_ResetTimeCountsDown(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(5, time.Hour, WithClock(clock.Now))

	_, _ = s.IsLimited(bg, "a")
	clock.Advance(15 * time.Minute)

	reset, _ := s.ResetTime(bg, "a")
	assert.Equal(t, 45*time.Minute, reset)
}

func TestMemoryStore_IncrementInitializesAbsentEntry(t *testing.T) {
	s := NewMemoryStore(5, time.Hour)

	require.NoError(t, s.Increment(bg, "a"))
	assert.Equal(t, 1, s.Len())
	rem, _ := s.Remaining(bg, "a")
	assert.Equal(t, 5, rem)
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore(1, time.Hour)

	_, _ = s.IsLimited(bg, "a")
	_ = s.Increment(bg, "a")

	la, _ := s.IsLimited(bg, "a")
	lb, _ := s.IsLimited(bg, "b")
	assert.True(t, la)
	assert.False(t, lb)
}

func TestMemoryStore_CleanupDropsOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(5, time.Hour, WithClock(clock.Now), WithCleanupEvery(0))

	_, _ = s.IsLimited(bg, "old")
	clock.Advance(30 * time.Minute)
	_, _ = s.IsLimited(bg, "recent")
	clock.Advance(31 * time.Minute)

	s.Cleanup()

	assert.Equal(t, 1, s.Len())
	_, ok := s.entries.Get("recent")
	assert.True(t, ok)
}

func TestMemoryStore_RemainingStaysInBounds(t *testing.T) {
	const limit = 5
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// ops: 0=IsLimited, 1=Increment, 2=avança 10min
	properties.Property("remaining in [0, limit]", prop.ForAll(
		func(ops []int) bool {
			clock := newFakeClock()
			s := NewMemoryStore(limit, time.Hour, WithClock(clock.Now))
			id := domain.ClientID("p")
			for _, op := range ops {
				switch op {
				case 0:
					_, _ = s.IsLimited(bg, id)
				case 1:
					_ = s.Increment(bg, id)
				case 2:
					clock.Advance(10 * time.Minute)
				}
				rem, _ := s.Remaining(bg, id)
				if rem < 0 || rem > limit {
					return false
				}
				reset, _ := s.ResetTime(bg, id)
				if reset < 0 || reset > time.Hour {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	// checar antes de incrementar nunca deixa passar mais que `limit` por janela
	properties.Property("admitted per window never exceeds limit", prop.ForAll(
		func(attempts int) bool {
			s := NewMemoryStore(limit, time.Hour)
			admitted := 0
			for i := 0; i < attempts; i++ {
				limited, _ := s.IsLimited(bg, "p")
				if !limited {
					admitted++
					_ = s.Increment(bg, "p")
				}
			}
			return admitted == min(attempts, limit)
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
