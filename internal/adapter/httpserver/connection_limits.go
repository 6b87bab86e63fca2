package httpserver

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterIdle    = 10 * time.Minute
	rateLimiterCleanup = 5 * time.Minute
)

// LimitReason describes why a connection was rejected. Used as a metric label.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// LimitsConfig configures WebSocket admission.
type LimitsConfig struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	// ConnectionRate is the sustained number of new connections per second per IP.
	ConnectionRate  float64
	ConnectionBurst int
}

// ConnectionLimits admits WebSocket connections against a global cap, a per-IP
// cap and a per-IP token bucket.
type ConnectionLimits struct {
	mu        sync.Mutex
	cfg       LimitsConfig
	clock     clockwork.Clock
	total     int
	perIP     map[string]int
	buckets   map[string]*bucket
	cleanupAt time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewConnectionLimits(cfg LimitsConfig, clock clockwork.Clock) *ConnectionLimits {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionLimits{
		cfg:       cfg,
		clock:     clock,
		perIP:     make(map[string]int),
		buckets:   make(map[string]*bucket),
		cleanupAt: clock.Now().Add(rateLimiterCleanup),
	}
}

// Acquire reserves a connection slot for ip. On success the caller must Release it.
// A rejected attempt still spends a rate token.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.cleanupAt) {
		l.cleanup(now)
		l.cleanupAt = now.Add(rateLimiterCleanup)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.ConnectionRate), l.cfg.ConnectionBurst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	if !b.limiter.AllowN(now, 1) {
		return false, LimitReasonRate
	}

	if l.total >= l.cfg.MaxConnections {
		return false, LimitReasonGlobal
	}
	if l.perIP[ip] >= l.cfg.MaxConnectionsPerIP {
		return false, LimitReasonPerIP
	}

	l.total++
	l.perIP[ip]++
	return true, ""
}

// Release frees a slot taken by Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, ok := l.perIP[ip]
	if !ok {
		return
	}
	if count <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip] = count - 1
	}
	l.total--
}

// Current returns the total number of admitted connections.
func (l *ConnectionLimits) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// CountFor returns the number of admitted connections from ip.
func (l *ConnectionLimits) CountFor(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// cleanup drops token buckets of IPs that have been quiet for a while. Must be called with mu held.
func (l *ConnectionLimits) cleanup(now time.Time) {
	cutoff := now.Add(-rateLimiterIdle)
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) && l.perIP[ip] == 0 {
			delete(l.buckets, ip)
		}
	}
}
