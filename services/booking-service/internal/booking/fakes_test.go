package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/lock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

type memStore struct {
	mu     sync.Mutex
	seq    int
	appts  map[string]model.Appointment
	idem   map[string][]string
	events []string
	// forceConflict emulates the exclusion constraint firing on the next write.
	forceConflict bool
	// missLookups makes the next n FindIdempotent calls miss, as if the
	// original request had not committed yet.
	missLookups int
	lookups     int
}

func newMemStore(appts ...model.Appointment) *memStore {
	s := &memStore{appts: map[string]model.Appointment{}, idem: map[string][]string{}}
	for _, a := range appts {
		s.appts[a.ID] = a
	}
	return s
}

func (s *memStore) sorted(keep func(model.Appointment) bool) []model.Appointment {
	var out []model.Appointment
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out
}

func (s *memStore) ListForDates(_ context.Context, masterID string, from, to clock.Date) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a model.Appointment) bool {
		return a.MasterID == masterID && !a.Date.Before(from) && !a.Date.After(to)
	}), nil
}

func (s *memStore) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *memStore) ListByClient(_ context.Context, clientID string, _ int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a model.Appointment) bool { return a.ClientID == clientID }), nil
}

func (s *memStore) ListByMaster(_ context.Context, masterID string, _ int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a model.Appointment) bool { return a.MasterID == masterID }), nil
}

func (s *memStore) byIDs(ids []string) []model.Appointment {
	out := make([]model.Appointment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.appts[id])
	}
	return out
}

func (s *memStore) FindIdempotent(_ context.Context, clientID, key string) ([]model.Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.missLookups > 0 {
		s.missLookups--
		return nil, false, nil
	}
	ids, ok := s.idem[clientID+"/"+key]
	if !ok {
		return nil, false, nil
	}
	return s.byIDs(ids), true, nil
}

func (s *memStore) CreateBatch(_ context.Context, clientID, key string, appts []model.Appointment) ([]model.Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok := s.idem[clientID+"/"+key]; ok && key != "" {
		return s.byIDs(ids), true, nil
	}
	if s.forceConflict {
		s.forceConflict = false
		return nil, false, fmt.Errorf("insert: %w", storage.ErrConflict)
	}
	var ids []string
	for i := range appts {
		s.seq++
		appts[i].ID = fmt.Sprintf("appt-%d", s.seq)
		s.appts[appts[i].ID] = appts[i]
		s.events = append(s.events, "booked:"+appts[i].ID)
		ids = append(ids, appts[i].ID)
	}
	if key != "" {
		s.idem[clientID+"/"+key] = ids
	}
	return appts, false, nil
}

func (s *memStore) Update(_ context.Context, id, eventType string, mutate func(*model.Appointment) error) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	if err := mutate(&a); err != nil {
		return model.Appointment{}, err
	}
	if s.forceConflict {
		s.forceConflict = false
		return model.Appointment{}, storage.ErrConflict
	}
	s.appts[id] = a
	s.events = append(s.events, eventType+":"+id)
	return a, nil
}

func (s *memStore) Delete(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	delete(s.appts, id)
	s.events = append(s.events, "deleted:"+id)
	return a, nil
}

type memCatalog []model.Service

func (c memCatalog) ListServices(context.Context) ([]model.Service, error) { return c, nil }

type memHours map[string]availability.WorkingHours

func (h memHours) WorkingHours(_ context.Context, masterID string) (*availability.WorkingHours, error) {
	wh, ok := h[masterID]
	if !ok {
		return nil, nil
	}
	return &wh, nil
}

func (h memHours) ReplaceWorkingHours(_ context.Context, masterID string, wh availability.WorkingHours) error {
	h[masterID] = wh
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
	took []string
}

func (l *memLocker) Acquire(_ context.Context, key string) (lock.Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, lock.ErrNotAcquired
	}
	l.held[key] = true
	l.took = append(l.took, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

var (
	tuesday = clock.MustParseDate("2026-10-20")
	// Thursday 15 October 2026, 12:00 in Moscow.
	fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	moscow   = time.FixedZone("MSK", 3*60*60)
)

func tod(s string) clock.TimeOfDay { return clock.MustParseTimeOfDay(s) }

func testServices() memCatalog {
	return memCatalog{
		{ID: "cut", Title: "Haircut", Price: 1500, DurationMinutes: 60},
		{ID: "brows", Title: "Brows", Price: 700, DurationMinutes: 30},
		{ID: "nails", Title: "Nails", Price: 1200, DurationMinutes: 45},
	}
}

type fixture struct {
	svc    *Service
	store  *memStore
	hours  memHours
	locker *memLocker
}

func newFixture(t *testing.T, appts ...model.Appointment) fixture {
	t.Helper()
	f := fixture{
		store:  newMemStore(appts...),
		hours:  memHours{},
		locker: &memLocker{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.store, testServices(), f.hours, f.locker, logger, Config{
		Location: moscow,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func existing(id, client, service string, date clock.Date, at string, status model.Status) model.Appointment {
	return model.Appointment{
		ID: id, ClientID: client, MasterID: "m1", ServiceID: service,
		Date: date, TimeSlot: tod(at), Status: status, Price: 1000,
	}
}
