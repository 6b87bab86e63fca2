package httpserver

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func newTestLimits(cfg LimitsConfig) (*ConnectionLimits, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewConnectionLimits(cfg, clock), clock
}

func TestConnectionLimits_GlobalLimit(t *testing.T) {
	limits, _ := newTestLimits(LimitsConfig{MaxConnections: 2, MaxConnectionsPerIP: 2, ConnectionRate: 100, ConnectionBurst: 100})

	ok, _ := limits.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = limits.Acquire("10.0.0.2")
	assert.True(t, ok)

	ok, reason := limits.Acquire("10.0.0.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)

	limits.Release("10.0.0.1")
	ok, _ = limits.Acquire("10.0.0.3")
	assert.True(t, ok)
	assert.Equal(t, 2, limits.Current())
}

func TestConnectionLimits_PerIPLimit(t *testing.T) {
	limits, _ := newTestLimits(LimitsConfig{MaxConnections: 10, MaxConnectionsPerIP: 2, ConnectionRate: 100, ConnectionBurst: 100})

	for range 2 {
		ok, _ := limits.Acquire("10.0.0.1")
		assert.True(t, ok)
	}

	ok, reason := limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, 2, limits.CountFor("10.0.0.1"))

	// Other IPs are unaffected
	ok, _ = limits.Acquire("10.0.0.2")
	assert.True(t, ok)
}

func TestConnectionLimits_RateLimit(t *testing.T) {
	limits, clock := newTestLimits(LimitsConfig{MaxConnections: 10, MaxConnectionsPerIP: 10, ConnectionRate: 1, ConnectionBurst: 2})

	for range 2 {
		ok, _ := limits.Acquire("10.0.0.1")
		assert.True(t, ok)
	}

	ok, reason := limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	// One token refills per second
	clock.Advance(time.Second)
	ok, _ = limits.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestConnectionLimits_ReleaseUnknownIP(t *testing.T) {
	limits, _ := newTestLimits(LimitsConfig{MaxConnections: 1, MaxConnectionsPerIP: 1, ConnectionRate: 1, ConnectionBurst: 1})

	limits.Release("never-seen")
	assert.Equal(t, 0, limits.Current())

	ok, _ := limits.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestConnectionLimits_CleanupKeepsActiveIPs(t *testing.T) {
	limits, clock := newTestLimits(LimitsConfig{MaxConnections: 10, MaxConnectionsPerIP: 10, ConnectionRate: 1, ConnectionBurst: 1})

	limits.Acquire("active")
	limits.Acquire("idle")
	limits.Release("idle")

	clock.Advance(rateLimiterIdle + time.Minute)
	limits.Acquire("trigger")

	limits.mu.Lock()
	defer limits.mu.Unlock()
	assert.Contains(t, limits.buckets, "active")
	assert.NotContains(t, limits.buckets, "idle")
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	limits, _ := newTestLimits(LimitsConfig{MaxConnections: 100, MaxConnectionsPerIP: 1000, ConnectionRate: 1000, ConnectionBurst: 1000})
	var admitted atomic.Int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := limits.Acquire("10.0.0.1"); ok {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(100), admitted.Load())
	assert.Equal(t, 100, limits.Current())
}
