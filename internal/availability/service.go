package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/healthfirst/provider-scheduling/internal/redis"
)

const (
	EventAvailabilityCreated = "AVAILABILITY_CREATED"
	EventSlotUpdated         = "SLOT_UPDATED"
	EventSlotDeleted         = "SLOT_DELETED"
)

const (
	minSlotDuration = 15
	maxSlotDuration = 480
	maxBreak        = 120
	maxPerSlot      = 10
	maxNotesLen     = 500
)

// CreateRequest is a provider's declared working window, possibly the
// template for a recurring series.
type CreateRequest struct {
	ProviderID        uuid.UUID
	Date              time.Time // calendar date
	StartTime         string    // HH:MM wall clock in Timezone
	EndTime           string
	Timezone          string
	IsRecurring       bool
	RecurrencePattern RecurrencePattern
	RecurrenceEndDate *time.Time
	SlotDuration      int // minutes, default 30
	BreakDuration     int // minutes
	MaxPerSlot        int // default 1
	AppointmentType   AppointmentType
	Location          Location
	Pricing           *Pricing
	Notes             *string
	Requirements      []string
}

// CreateSummary reports what a create persisted.
type CreateSummary struct {
	AvailabilityID    uuid.UUID // record id, or series group id when recurring
	SlotsCreated      int
	DateRangeStart    time.Time
	DateRangeEnd      time.Time
	TotalAppointments int
}

// UpdateRequest patches one slot. Nil fields are left untouched. Pricing,
// notes and requirements live on the owning availability and are patched
// there.
type UpdateRequest struct {
	StartTime    *string // HH:MM in the owning availability's zone
	EndTime      *string
	Status       *SlotStatus
	PatientID    *uuid.UUID
	Notes        *string
	Pricing      *Pricing
	Requirements []string
}

// DeleteResult reports whether anything was actually removed; deleting an
// absent slot succeeds with Deleted=false.
type DeleteResult struct {
	Deleted      int
	GroupDeleted bool
}

type StatusSummary struct {
	Total     int
	Available int
	Booked    int
	Cancelled int
}

type SlotView struct {
	SlotID          uuid.UUID
	StartTime       string // wall clock in the display zone
	EndTime         string
	Status          SlotStatus
	AppointmentType AppointmentType
	Location        *Location
	Pricing         *Pricing
}

type DaySlots struct {
	Date  time.Time
	Slots []SlotView
}

type ProviderSchedule struct {
	ProviderID uuid.UUID
	Summary    StatusSummary
	Days       []DaySlots
}

// Service orchestrates availability creation, mutation and retrieval. All
// conflict-check-then-write paths run inside the per-provider lock.
type Service struct {
	repo      Repository
	conflicts *ConflictDetector
	locker    redisclient.Locker
}

func NewService(repo Repository, locker redisclient.Locker) *Service {
	return &Service{
		repo:      repo,
		conflicts: NewConflictDetector(repo),
		locker:    locker,
	}
}

// Create validates the window, expands recurrence, conflict-checks every
// occurrence and persists availabilities plus generated slots atomically.
// A conflict on any occurrence aborts the whole series.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateSummary, error) {
	normalize(&req)
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	dates := []time.Time{req.Date}
	if req.IsRecurring {
		var err error
		dates, err = ExpandRecurrence(req.Date, req.RecurrencePattern, *req.RecurrenceEndDate)
		if err != nil {
			return nil, err
		}
	}

	var groupID *uuid.UUID
	if req.IsRecurring {
		id := uuid.New()
		groupID = &id
	}

	var summary *CreateSummary

	err := s.locker.WithProviderLock(ctx, req.ProviderID, func(lockCtx context.Context) error {
		// Every occurrence is converted to UTC on its own date so DST
		// shifts within the series are respected.
		type window struct {
			date       time.Time
			start, end time.Time
		}
		windows := make([]window, 0, len(dates))
		var conflictDates []string

		for _, d := range dates {
			start, err := ToUTC(req.StartTime, d, req.Timezone)
			if err != nil {
				return err
			}
			end, err := ToUTC(req.EndTime, d, req.Timezone)
			if err != nil {
				return err
			}

			ids, err := s.conflicts.Conflicts(lockCtx, req.ProviderID, start, end, nil)
			if err != nil {
				return err
			}
			if len(ids) > 0 {
				if !req.IsRecurring {
					return &ConflictError{
						ProviderID:     req.ProviderID.String(),
						Start:          start,
						End:            end,
						ConflictingIDs: idStrings(ids),
					}
				}
				conflictDates = append(conflictDates, d.Format(DateLayout))
				continue
			}
			windows = append(windows, window{date: d, start: start, end: end})
		}

		if len(conflictDates) > 0 {
			return &ConflictError{
				ProviderID:      req.ProviderID.String(),
				OccurrenceDates: conflictDates,
			}
		}

		now := time.Now().UTC()
		avs := make([]Availability, 0, len(windows))
		var slots []AppointmentSlot
		for _, w := range windows {
			av := materialize(req, w.date, groupID, now)
			generated := GenerateSlots(&av, w.start, w.end)
			avs = append(avs, av)
			slots = append(slots, generated...)
		}

		if err := s.repo.CreateAvailabilities(lockCtx, avs, slots); err != nil {
			return fmt.Errorf("persist availabilities: %w", err)
		}

		resultID := avs[0].ID
		if groupID != nil {
			resultID = *groupID
		}
		summary = &CreateSummary{
			AvailabilityID:    resultID,
			SlotsCreated:      len(slots),
			DateRangeStart:    dates[0],
			DateRangeEnd:      dates[len(dates)-1],
			TotalAppointments: len(slots) * req.MaxPerSlot,
		}

		s.logEvent(lockCtx, EventAvailabilityCreated, &avs[0].ID, nil, map[string]any{
			"provider_id":   req.ProviderID.String(),
			"slots_created": len(slots),
			"occurrences":   len(avs),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrProviderBusy
		}
		return nil, err
	}

	return summary, nil
}

// Update patches a slot in place. A changed time range is re-validated and
// re-checked for conflicts with the slot itself excluded.
func (s *Service) Update(ctx context.Context, slotID uuid.UUID, req UpdateRequest) (*AppointmentSlot, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	av, err := s.repo.GetAvailabilityByID(ctx, slot.AvailabilityID)
	if err != nil {
		return nil, err
	}

	if req.StartTime != nil || req.EndTime != nil {
		if err := s.reschedule(ctx, slot, av, req.StartTime, req.EndTime); err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				return nil, ErrProviderBusy
			}
			return nil, err
		}
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			ve := newValidationError()
			ve.add("status", fmt.Sprintf("unknown status %q", *req.Status))
			return nil, ve
		}
		if !slot.Status.CanTransitionTo(*req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, slot.Status, *req.Status)
		}
		if *req.Status == SlotBooked && slot.Status != SlotBooked {
			ref := newBookingReference()
			slot.BookingReference = &ref
			slot.PatientID = req.PatientID
		}
		slot.Status = *req.Status
	} else if req.PatientID != nil {
		slot.PatientID = req.PatientID
	}

	slot.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	if req.Notes != nil || req.Pricing != nil || req.Requirements != nil {
		if req.Notes != nil {
			av.Notes = req.Notes
		}
		if req.Pricing != nil {
			av.Pricing = req.Pricing
		}
		if req.Requirements != nil {
			av.Requirements = req.Requirements
		}
		av.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateAvailability(ctx, av); err != nil {
			return nil, fmt.Errorf("update availability: %w", err)
		}
	}

	s.logEvent(ctx, EventSlotUpdated, &av.ID, &slot.ID, map[string]any{
		"status": string(slot.Status),
	})

	return slot, nil
}

// reschedule moves a slot's UTC interval based on new wall-clock times on
// the slot's original calendar date in the availability's stored zone.
func (s *Service) reschedule(ctx context.Context, slot *AppointmentSlot, av *Availability, newStart, newEnd *string) error {
	startStr, err := valueOrLocal(newStart, slot.Start, av.Timezone)
	if err != nil {
		return err
	}
	endStr, err := valueOrLocal(newEnd, slot.End, av.Timezone)
	if err != nil {
		return err
	}

	if err := validateTimeOrder(startStr, endStr); err != nil {
		return err
	}

	date, err := DateOf(slot.Start, av.Timezone)
	if err != nil {
		return err
	}
	start, err := ToUTC(startStr, date, av.Timezone)
	if err != nil {
		return err
	}
	end, err := ToUTC(endStr, date, av.Timezone)
	if err != nil {
		return err
	}

	return s.locker.WithProviderLock(ctx, slot.ProviderID, func(lockCtx context.Context) error {
		ids, err := s.conflicts.Conflicts(lockCtx, slot.ProviderID, start, end, &slot.ID)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return &ConflictError{
				ProviderID:     slot.ProviderID.String(),
				Start:          start,
				End:            end,
				ConflictingIDs: idStrings(ids),
			}
		}
		slot.Start = start
		slot.End = end
		slot.UpdatedAt = time.Now().UTC()
		// Persist inside the lock so the checked interval is written
		// before another writer can run its own conflict check.
		if err := s.repo.UpdateSlot(lockCtx, slot); err != nil {
			return fmt.Errorf("update slot times: %w", err)
		}
		return nil
	})
}

// Delete removes one slot, or the whole recurring series when
// deleteRecurring is set. Deleting an absent slot is a no-op success.
// Booked slots refuse direct deletion; the series cascade skips them.
func (s *Service) Delete(ctx context.Context, slotID uuid.UUID, deleteRecurring bool, reason string) (*DeleteResult, error) {
	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return &DeleteResult{}, nil
		}
		return nil, err
	}

	if slot.Status == SlotBooked {
		return nil, fmt.Errorf("%w: cannot delete booked slot %s", ErrSlotBooked, slotID)
	}

	res := &DeleteResult{}

	deleted, err := s.repo.DeleteSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("delete slot: %w", err)
	}
	if deleted {
		res.Deleted++
	}

	if deleteRecurring {
		n, err := s.deleteSeries(ctx, slot)
		if err != nil {
			return nil, err
		}
		res.Deleted += n
		res.GroupDeleted = true
	}

	s.logEvent(ctx, EventSlotDeleted, &slot.AvailabilityID, &slot.ID, map[string]any{
		"deleted":          res.Deleted,
		"delete_recurring": deleteRecurring,
		"reason":           reason,
	})

	return res, nil
}

// deleteSeries removes the remaining non-booked slots of every occurrence
// sharing the slot's recurring-series origin, cascading to the occurrence
// availabilities once emptied.
func (s *Service) deleteSeries(ctx context.Context, slot *AppointmentSlot) (int, error) {
	av, err := s.repo.GetAvailabilityByID(ctx, slot.AvailabilityID)
	if err != nil {
		return 0, err
	}

	occurrences := []Availability{*av}
	if av.RecurrenceGroupID != nil {
		occurrences, err = s.repo.ListAvailabilitiesByGroup(ctx, *av.RecurrenceGroupID)
		if err != nil {
			return 0, fmt.Errorf("list series occurrences: %w", err)
		}
	}

	deleted := 0
	for _, occ := range occurrences {
		slots, err := s.repo.ListSlotsByAvailability(ctx, occ.ID)
		if err != nil {
			return deleted, fmt.Errorf("list occurrence slots: %w", err)
		}

		remaining := 0
		for _, sl := range slots {
			if sl.ID == slot.ID {
				continue
			}
			if sl.Status == SlotBooked {
				remaining++
				continue
			}
			ok, err := s.repo.DeleteSlot(ctx, sl.ID)
			if err != nil {
				return deleted, fmt.Errorf("delete slot %s: %w", sl.ID, err)
			}
			if ok {
				deleted++
			}
		}

		if remaining == 0 {
			if _, err := s.repo.DeleteAvailability(ctx, occ.ID); err != nil {
				return deleted, fmt.Errorf("delete availability %s: %w", occ.ID, err)
			}
		}
	}

	return deleted, nil
}

// GetByProvider returns the provider's slots with start dates inside
// [startDate, endDate], grouped by date with times rendered in displayZone.
// An empty displayZone falls back to each slot's availability's stored zone.
func (s *Service) GetByProvider(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time, status *SlotStatus, apptType *AppointmentType, displayZone string) (*ProviderSchedule, error) {
	if endDate.Before(startDate) {
		ve := newValidationError()
		ve.add("end_date", "must be on or after start_date")
		return nil, ve
	}
	if displayZone != "" {
		if _, err := time.LoadLocation(displayZone); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, displayZone)
		}
	}

	// Date filtering is on the slot's UTC start; widen by a day on each
	// side so zone offsets cannot drop boundary slots, then filter by the
	// local calendar date below.
	from := startDate.AddDate(0, 0, -1)
	to := endDate.AddDate(0, 0, 2)
	slots, err := s.repo.SearchSlots(ctx, SlotFilter{
		ProviderID:      &providerID,
		From:            &from,
		To:              &to,
		Status:          status,
		AppointmentType: apptType,
	})
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}

	avIDs := make([]uuid.UUID, 0, len(slots))
	seen := make(map[uuid.UUID]bool)
	for _, sl := range slots {
		if !seen[sl.AvailabilityID] {
			seen[sl.AvailabilityID] = true
			avIDs = append(avIDs, sl.AvailabilityID)
		}
	}
	avs, err := s.repo.GetAvailabilitiesByIDs(ctx, avIDs)
	if err != nil {
		return nil, fmt.Errorf("load availabilities: %w", err)
	}

	schedule := &ProviderSchedule{ProviderID: providerID}
	byDate := make(map[time.Time][]SlotView)

	for _, sl := range slots {
		av, ok := avs[sl.AvailabilityID]
		if !ok {
			continue
		}

		zone := displayZone
		if zone == "" {
			zone = av.Timezone
		}

		date, err := DateOf(sl.Start, zone)
		if err != nil {
			return nil, err
		}
		if date.Before(startDate) || date.After(endDate) {
			continue
		}

		startStr, err := FromUTC(sl.Start, zone)
		if err != nil {
			return nil, err
		}
		endStr, err := FromUTC(sl.End, zone)
		if err != nil {
			return nil, err
		}

		loc := av.Location
		byDate[date] = append(byDate[date], SlotView{
			SlotID:          sl.ID,
			StartTime:       startStr,
			EndTime:         endStr,
			Status:          sl.Status,
			AppointmentType: sl.AppointmentType,
			Location:        &loc,
			Pricing:         av.Pricing,
		})

		schedule.Summary.Total++
		switch sl.Status {
		case SlotAvailable:
			schedule.Summary.Available++
		case SlotBooked:
			schedule.Summary.Booked++
		case SlotCancelled:
			schedule.Summary.Cancelled++
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sortDates(dates)
	for _, d := range dates {
		schedule.Days = append(schedule.Days, DaySlots{Date: d, Slots: byDate[d]})
	}

	return schedule, nil
}

func (s *Service) logEvent(ctx context.Context, eventType string, availabilityID, slotID *uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType:      eventType,
		AvailabilityID: availabilityID,
		SlotID:         slotID,
		Payload:        data,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}

func normalize(req *CreateRequest) {
	if req.Timezone == "" {
		req.Timezone = "America/New_York"
	}
	if req.SlotDuration == 0 {
		req.SlotDuration = 30
	}
	if req.MaxPerSlot == 0 {
		req.MaxPerSlot = 1
	}
	if req.AppointmentType == "" {
		req.AppointmentType = TypeConsultation
	}
	if !req.IsRecurring && req.RecurrencePattern == "" {
		req.RecurrencePattern = RecurrenceNone
	}
	if req.Pricing != nil && req.Pricing.Currency == "" {
		req.Pricing.Currency = "USD"
	}
}

func validateCreate(req CreateRequest) error {
	ve := newValidationError()

	if req.ProviderID == uuid.Nil {
		ve.add("provider_id", "is required")
	}
	if req.Date.IsZero() {
		ve.add("date", "is required")
	}

	startOK, endOK := true, true
	if _, _, err := ParseClock(req.StartTime); err != nil {
		ve.add("start_time", "must be HH:MM in 24-hour format")
		startOK = false
	}
	if _, _, err := ParseClock(req.EndTime); err != nil {
		ve.add("end_time", "must be HH:MM in 24-hour format")
		endOK = false
	}
	if startOK && endOK && !clockBefore(req.StartTime, req.EndTime) {
		ve.add("end_time", "must be after start_time")
	}

	if req.SlotDuration < minSlotDuration || req.SlotDuration > maxSlotDuration {
		ve.add("slot_duration", fmt.Sprintf("must be between %d and %d minutes", minSlotDuration, maxSlotDuration))
	}
	if req.BreakDuration < 0 || req.BreakDuration > maxBreak {
		ve.add("break_duration", fmt.Sprintf("must be between 0 and %d minutes", maxBreak))
	}
	if req.MaxPerSlot < 1 || req.MaxPerSlot > maxPerSlot {
		ve.add("max_appointments_per_slot", fmt.Sprintf("must be between 1 and %d", maxPerSlot))
	}

	if req.IsRecurring {
		switch req.RecurrencePattern {
		case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		default:
			ve.add("recurrence_pattern", "is required for recurring availability")
		}
		if req.RecurrenceEndDate == nil {
			ve.add("recurrence_end_date", "is required for recurring availability")
		} else if req.RecurrenceEndDate.Before(req.Date) {
			ve.add("recurrence_end_date", "must be on or after the start date")
		}
	} else if req.RecurrencePattern != RecurrenceNone && req.RecurrencePattern != "" {
		ve.add("recurrence_pattern", "must be omitted unless is_recurring is true")
	}

	if !req.AppointmentType.Valid() {
		ve.add("appointment_type", fmt.Sprintf("unknown appointment type %q", req.AppointmentType))
	}
	if !req.Location.Type.Valid() {
		ve.add("location.type", fmt.Sprintf("unknown location type %q", req.Location.Type))
	}
	if req.Pricing != nil && req.Pricing.BaseFee < 0 {
		ve.add("pricing.base_fee", "must not be negative")
	}
	if req.Notes != nil && len(*req.Notes) > maxNotesLen {
		ve.add("notes", fmt.Sprintf("must not exceed %d characters", maxNotesLen))
	}

	if ve.any() {
		return ve
	}
	return nil
}

func validateTimeOrder(start, end string) error {
	if !clockBefore(start, end) {
		ve := newValidationError()
		ve.add("end_time", "must be after start_time")
		return ve
	}
	return nil
}

// clockBefore compares two HH:MM strings; lexicographic order matches
// chronological order for zero-padded 24-hour clocks.
func clockBefore(a, b string) bool { return a < b }

func materialize(req CreateRequest, date time.Time, groupID *uuid.UUID, now time.Time) Availability {
	return Availability{
		ID:                uuid.New(),
		ProviderID:        req.ProviderID,
		Date:              date,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Timezone:          req.Timezone,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		RecurrenceEndDate: req.RecurrenceEndDate,
		RecurrenceGroupID: groupID,
		SlotDuration:      req.SlotDuration,
		BreakDuration:     req.BreakDuration,
		Status:            StatusAvailable,
		MaxPerSlot:        req.MaxPerSlot,
		AppointmentType:   req.AppointmentType,
		Location:          req.Location,
		Pricing:           req.Pricing,
		Notes:             req.Notes,
		Requirements:      req.Requirements,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func valueOrLocal(v *string, instant time.Time, zone string) (string, error) {
	if v != nil {
		return *v, nil
	}
	return FromUTC(instant, zone)
}

func newBookingReference() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
