package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotFilter narrows SearchSlots. Nil fields mean "not filtered".
type SlotFilter struct {
	ProviderID      *uuid.UUID
	From            *time.Time // slot start on/after, UTC
	To              *time.Time // slot start before, UTC
	Status          *SlotStatus
	AppointmentType *AppointmentType
}

// Repository contains all storage interactions needed by the service. The
// engine does not choose a backend; pg_repository.go is one implementation.
type Repository interface {
	// CreateAvailabilities persists one or more availability records and
	// their generated slots in a single transaction (all-or-nothing).
	CreateAvailabilities(ctx context.Context, avs []Availability, slots []AppointmentSlot) error

	GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	GetAvailabilitiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Availability, error)
	ListAvailabilitiesByGroup(ctx context.Context, groupID uuid.UUID) ([]Availability, error)
	UpdateAvailability(ctx context.Context, av *Availability) error
	DeleteAvailability(ctx context.Context, id uuid.UUID) (bool, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error)
	ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]AppointmentSlot, error)
	// ListSlotsOverlapping returns the provider's slots whose UTC interval
	// overlaps [start, end). Used by the conflict detector.
	ListSlotsOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]AppointmentSlot, error)
	SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error)
	UpdateSlot(ctx context.Context, slot *AppointmentSlot) error
	DeleteSlot(ctx context.Context, id uuid.UUID) (bool, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// ProviderDirectory is the read-only view of the external provider service.
type ProviderDirectory interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
}
