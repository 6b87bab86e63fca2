package httpserver

import (
	"testing"

	"github.com/jonboulle/clockwork"
)

type testServerOption func(*Options)

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *Options) { o.HealthChecks = checks }
}

func withOptions(fn func(*Options)) testServerOption {
	return func(o *Options) { fn(o) }
}

func newTestServer(t *testing.T, opts ...testServerOption) (*Server, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	o := Options{Port: "0", Clock: clock}
	for _, opt := range opts {
		opt(&o)
	}
	return NewServer(o), clock
}
