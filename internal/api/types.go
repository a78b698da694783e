package api

import (
	"github.com/healthfirst/provider-scheduling/internal/availability"
)

type LocationPayload struct {
	Type       string  `json:"type"`
	Address    *string `json:"address,omitempty"`
	RoomNumber *string `json:"room_number,omitempty"`
}

type PricingPayload struct {
	BaseFee           float64 `json:"base_fee"`
	InsuranceAccepted *bool   `json:"insurance_accepted,omitempty"`
	Currency          string  `json:"currency,omitempty"`
}

type CreateAvailabilityRequest struct {
	ProviderID          string          `json:"provider_id"`
	Date                string          `json:"date"` // YYYY-MM-DD
	StartTime           string          `json:"start_time"`
	EndTime             string          `json:"end_time"`
	Timezone            string          `json:"timezone,omitempty"`
	IsRecurring         bool            `json:"is_recurring,omitempty"`
	RecurrencePattern   string          `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate   string          `json:"recurrence_end_date,omitempty"`
	SlotDuration        int             `json:"slot_duration,omitempty"`
	BreakDuration       int             `json:"break_duration,omitempty"`
	MaxPerSlot          int             `json:"max_appointments_per_slot,omitempty"`
	AppointmentType     string          `json:"appointment_type,omitempty"`
	Location            LocationPayload `json:"location"`
	Pricing             *PricingPayload `json:"pricing,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	SpecialRequirements []string        `json:"special_requirements,omitempty"`
}

type DateRangePayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CreateAvailabilityData struct {
	AvailabilityID    string           `json:"availability_id"`
	SlotsCreated      int              `json:"slots_created"`
	DateRange         DateRangePayload `json:"date_range"`
	TotalAppointments int              `json:"total_appointments_available"`
}

type UpdateSlotRequest struct {
	StartTime           *string         `json:"start_time,omitempty"`
	EndTime             *string         `json:"end_time,omitempty"`
	Status              *string         `json:"status,omitempty"`
	PatientID           *string         `json:"patient_id,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	Pricing             *PricingPayload `json:"pricing,omitempty"`
	SpecialRequirements []string        `json:"special_requirements,omitempty"`
}

type SlotPayload struct {
	SlotID          string           `json:"slot_id"`
	StartTime       string           `json:"start_time"`
	EndTime         string           `json:"end_time"`
	Status          string           `json:"status"`
	AppointmentType string           `json:"appointment_type"`
	Location        *LocationPayload `json:"location,omitempty"`
	Pricing         *PricingPayload  `json:"pricing,omitempty"`
}

type DayPayload struct {
	Date  string        `json:"date"`
	Slots []SlotPayload `json:"slots"`
}

type AvailabilitySummaryPayload struct {
	TotalSlots     int `json:"total_slots"`
	AvailableSlots int `json:"available_slots"`
	BookedSlots    int `json:"booked_slots"`
	CancelledSlots int `json:"cancelled_slots"`
}

type ProviderAvailabilityData struct {
	ProviderID   string                     `json:"provider_id"`
	Summary      AvailabilitySummaryPayload `json:"availability_summary"`
	Availability []DayPayload               `json:"availability"`
}

type ProviderPayload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	YearsExp       int     `json:"years_of_experience"`
	Rating         float64 `json:"rating"`
	ClinicAddress  string  `json:"clinic_address"`
}

type SearchSlotPayload struct {
	SlotID              string           `json:"slot_id"`
	Date                string           `json:"date"`
	StartTime           string           `json:"start_time"`
	EndTime             string           `json:"end_time"`
	AppointmentType     string           `json:"appointment_type"`
	Location            *LocationPayload `json:"location,omitempty"`
	Pricing             *PricingPayload  `json:"pricing,omitempty"`
	SpecialRequirements []string         `json:"special_requirements,omitempty"`
}

type SearchResultPayload struct {
	Provider       ProviderPayload     `json:"provider"`
	AvailableSlots []SearchSlotPayload `json:"available_slots"`
}

type SearchData struct {
	SearchCriteria map[string]any        `json:"search_criteria"`
	TotalResults   int                   `json:"total_results"`
	Results        []SearchResultPayload `json:"results"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	StatusCode int                 `json:"status_code"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

func locationPayload(loc *availability.Location) *LocationPayload {
	if loc == nil {
		return nil
	}
	return &LocationPayload{
		Type:       string(loc.Type),
		Address:    loc.Address,
		RoomNumber: loc.RoomNumber,
	}
}

func pricingPayload(p *availability.Pricing) *PricingPayload {
	if p == nil {
		return nil
	}
	accepted := p.InsuranceAccepted
	return &PricingPayload{
		BaseFee:           p.BaseFee,
		InsuranceAccepted: &accepted,
		Currency:          p.Currency,
	}
}
