package availability

import (
	"time"

	"github.com/google/uuid"
)

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "none"
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusBooked      AvailabilityStatus = "booked"
	StatusCancelled   AvailabilityStatus = "cancelled"
	StatusBlocked     AvailabilityStatus = "blocked"
	StatusMaintenance AvailabilityStatus = "maintenance"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusCancelled, StatusBlocked, StatusMaintenance:
		return true
	}
	return false
}

// SlotStatus is the subset of statuses a generated slot can carry.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotBlocked   SlotStatus = "blocked"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotBooked, SlotCancelled, SlotBlocked:
		return true
	}
	return false
}

// CanTransitionTo enforces the slot status state machine:
// available -> booked|blocked, blocked -> available, booked -> cancelled.
// Cancelled is terminal; a fresh slot must be generated to offer the
// interval again.
func (s SlotStatus) CanTransitionTo(to SlotStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case SlotAvailable:
		return to == SlotBooked || to == SlotBlocked
	case SlotBlocked:
		return to == SlotAvailable
	case SlotBooked:
		return to == SlotCancelled
	}
	return false
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeEmergency    AppointmentType = "emergency"
	TypeTelemedicine AppointmentType = "telemedicine"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeTelemedicine:
		return true
	}
	return false
}

type LocationType string

const (
	LocationClinic       LocationType = "clinic"
	LocationHospital     LocationType = "hospital"
	LocationTelemedicine LocationType = "telemedicine"
	LocationHomeVisit    LocationType = "home_visit"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationClinic, LocationHospital, LocationTelemedicine, LocationHomeVisit:
		return true
	}
	return false
}

type Location struct {
	Type       LocationType `json:"type"`
	Address    *string      `json:"address,omitempty"`
	RoomNumber *string      `json:"room_number,omitempty"`
}

type Pricing struct {
	BaseFee           float64 `json:"base_fee"`
	InsuranceAccepted bool    `json:"insurance_accepted"`
	Currency          string  `json:"currency"`
}

// Availability is one declared working window on a calendar date. A
// recurring series is stored as one Availability per occurrence date, all
// sharing the same RecurrenceGroupID.
type Availability struct {
	ID                uuid.UUID
	ProviderID        uuid.UUID
	Date              time.Time // calendar date, midnight UTC
	StartTime         string    // wall-clock HH:MM in Timezone
	EndTime           string
	Timezone          string
	IsRecurring       bool
	RecurrencePattern RecurrencePattern
	RecurrenceEndDate *time.Time
	RecurrenceGroupID *uuid.UUID
	SlotDuration      int // minutes
	BreakDuration     int // minutes
	Status            AvailabilityStatus
	MaxPerSlot        int
	BookedCount       int
	AppointmentType   AppointmentType
	Location          Location
	Pricing           *Pricing
	Notes             *string
	Requirements      []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AppointmentSlot is one bookable unit carved out of an availability
// window. Start and End are absolute UTC instants.
type AppointmentSlot struct {
	ID               uuid.UUID
	AvailabilityID   uuid.UUID
	ProviderID       uuid.UUID
	Start            time.Time
	End              time.Time
	Status           SlotStatus
	PatientID        *uuid.UUID
	AppointmentType  AppointmentType
	BookingReference *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Provider is the directory record an external provider service owns; the
// search surface only reads it.
type Provider struct {
	ID             uuid.UUID
	Name           string
	Specialization string
	YearsExp       int
	Rating         float64
	ClinicAddress  string
}

type EventLog struct {
	ID             int64
	EventType      string
	AvailabilityID *uuid.UUID
	SlotID         *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}
