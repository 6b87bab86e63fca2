package presence

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Sohum-Nikam/RealTime-Trakcer/internal/domain"
)

type entry struct {
	conn     domain.Conn
	location *domain.Location
	// seq orders located sessions by when their current location was first set.
	seq uint64
}

// registry maps session ids to their connection and last known location.
// Not safe for concurrent use; only the broadcaster goroutine touches it.
type registry struct {
	entries map[domain.SessionID]*entry
	nextSeq uint64
}

func newRegistry() *registry {
	return &registry{entries: make(map[domain.SessionID]*entry)}
}

func (r *registry) add(id domain.SessionID, conn domain.Conn) {
	r.entries[id] = &entry{conn: conn}
}

func (r *registry) has(id domain.SessionID) bool {
	_, ok := r.entries[id]
	return ok
}

// setLocation overwrites the session's location. Returns false for unknown ids.
func (r *registry) setLocation(id domain.SessionID, loc domain.Location) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if e.location == nil {
		r.nextSeq++
		e.seq = r.nextSeq
	}
	e.location = &loc
	return true
}

// clearLocations blanks every location and returns how many were set.
func (r *registry) clearLocations() int {
	cleared := 0
	for _, e := range r.entries {
		if e.location != nil {
			cleared++
		}
		e.location = nil
		e.seq = 0
	}
	return cleared
}

func (r *registry) remove(id domain.SessionID) (domain.Conn, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	return e.conn, true
}

// drain empties the registry and returns every connection it held.
func (r *registry) drain() []domain.Conn {
	conns := make([]domain.Conn, 0, len(r.entries))
	for id, e := range r.entries {
		conns = append(conns, e.conn)
		delete(r.entries, id)
	}
	return conns
}

// snapshot returns the located sessions as wire records, oldest location first.
// The result is never nil so it encodes as [] rather than null.
func (r *registry) snapshot() []domain.LocationRecord {
	located := make([]*entry, 0, len(r.entries))
	ids := make(map[*entry]domain.SessionID, len(r.entries))
	for id, e := range r.entries {
		if e.location == nil {
			continue
		}
		located = append(located, e)
		ids[e] = id
	}
	slices.SortFunc(located, func(a, b *entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	records := make([]domain.LocationRecord, 0, len(located))
	for _, e := range located {
		records = append(records, domain.NewLocationRecord(ids[e], *e.location))
	}
	return records
}

// sessions returns copies of every entry, sorted by id.
func (r *registry) sessions() []domain.Session {
	out := make([]domain.Session, 0, len(r.entries))
	for id, e := range r.entries {
		s := domain.Session{ID: id}
		if e.location != nil {
			loc := *e.location
			s.Location = &loc
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b domain.Session) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

func (r *registry) stats() Stats {
	stats := Stats{Connected: len(r.entries)}
	for _, e := range r.entries {
		if e.location != nil {
			stats.Located++
		}
	}
	return stats
}

// recipients lists every connection except the one belonging to skip.
func (r *registry) recipients(skip domain.SessionID) map[domain.SessionID]domain.Conn {
	out := make(map[domain.SessionID]domain.Conn, len(r.entries))
	for id, e := range r.entries {
		if id == skip {
			continue
		}
		out[id] = e.conn
	}
	return out
}
