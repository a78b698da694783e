package availability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for tests.
type memRepo struct {
	mu     sync.Mutex
	avs    map[uuid.UUID]Availability
	slots  map[uuid.UUID]AppointmentSlot
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		avs:   make(map[uuid.UUID]Availability),
		slots: make(map[uuid.UUID]AppointmentSlot),
	}
}

func (m *memRepo) CreateAvailabilities(ctx context.Context, avs []Availability, slots []AppointmentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range avs {
		m.avs[a.ID] = a
	}
	for _, s := range slots {
		m.slots[s.ID] = s
	}
	return nil
}

func (m *memRepo) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.avs[id]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	return &a, nil
}

func (m *memRepo) GetAvailabilitiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]Availability, len(ids))
	for _, id := range ids {
		if a, ok := m.avs[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (m *memRepo) ListAvailabilitiesByGroup(ctx context.Context, groupID uuid.UUID) ([]Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Availability
	for _, a := range m.avs {
		if a.RecurrenceGroupID != nil && *a.RecurrenceGroupID == groupID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateAvailability(ctx context.Context, av *Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.avs[av.ID]; !ok {
		return ErrAvailabilityNotFound
	}
	m.avs[av.ID] = *av
	return nil
}

func (m *memRepo) DeleteAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.avs[id]; !ok {
		return false, nil
	}
	delete(m.avs, id)
	return true, nil
}

func (m *memRepo) GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (m *memRepo) ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range m.slots {
		if s.AvailabilityID == availabilityID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) ListSlotsOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range m.slots {
		if s.ProviderID == providerID && Overlaps(start, end, s.Start, s.End) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range m.slots {
		if f.ProviderID != nil && s.ProviderID != *f.ProviderID {
			continue
		}
		if f.From != nil && s.Start.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.Start.Before(*f.To) {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.AppointmentType != nil && s.AppointmentType != *f.AppointmentType {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memRepo) UpdateSlot(ctx context.Context, slot *AppointmentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return ErrSlotNotFound
	}
	m.slots[slot.ID] = *slot
	return nil
}

func (m *memRepo) DeleteSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return false, nil
	}
	delete(m.slots, id)
	return true, nil
}

func (m *memRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) slotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// mutexLocker serializes per provider in-process, standing in for the Redis
// locker.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	pm, ok := l.locks[providerID]
	if !ok {
		pm = &sync.Mutex{}
		l.locks[providerID] = pm
	}
	l.mu.Unlock()

	pm.Lock()
	defer pm.Unlock()
	return fn(ctx)
}

// memDirectory is an in-memory ProviderDirectory for tests.
type memDirectory struct {
	providers map[uuid.UUID]Provider
}

func newMemDirectory(providers ...Provider) *memDirectory {
	d := &memDirectory{providers: make(map[uuid.UUID]Provider)}
	for _, p := range providers {
		d.providers[p.ID] = p
	}
	return d
}

func (d *memDirectory) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := d.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}
