package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, newMutexLocker()), repo
}

func baseCreateRequest(providerID uuid.UUID) CreateRequest {
	return CreateRequest{
		ProviderID:      providerID,
		Date:            date(2024, time.July, 10),
		StartTime:       "09:00",
		EndTime:         "17:00",
		Timezone:        "America/New_York",
		SlotDuration:    30,
		MaxPerSlot:      1,
		AppointmentType: TypeConsultation,
		Location:        Location{Type: LocationClinic},
	}
}

func TestCreate_SingleDay(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	summary, err := svc.Create(ctx, baseCreateRequest(providerID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if summary.SlotsCreated != 16 {
		t.Fatalf("expected 16 slots from an 8h window of 30min slots, got %d", summary.SlotsCreated)
	}
	if summary.TotalAppointments != 16 {
		t.Fatalf("expected 16 bookable appointments, got %d", summary.TotalAppointments)
	}
	if !summary.DateRangeStart.Equal(summary.DateRangeEnd) {
		t.Fatal("single-day create should report a one-day range")
	}

	// July 10 is under daylight saving in New York: 09:00 local = 13:00 UTC.
	slots, err := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	if err != nil {
		t.Fatalf("SearchSlots: %v", err)
	}
	wantFirst := time.Date(2024, time.July, 10, 13, 0, 0, 0, time.UTC)
	first := slots[0].Start
	for _, s := range slots {
		if s.Start.Before(first) {
			first = s.Start
		}
	}
	if !first.Equal(wantFirst) {
		t.Fatalf("expected first slot at %s UTC, got %s", wantFirst, first)
	}
}

func TestCreate_WinterOffset(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.Date = date(2024, time.January, 15)
	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	wantFirst := time.Date(2024, time.January, 15, 14, 0, 0, 0, time.UTC)
	found := false
	for _, s := range slots {
		if s.Start.Equal(wantFirst) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a slot at %s UTC in standard time", wantFirst)
	}
}

func TestCreate_Conflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	if _, err := svc.Create(ctx, baseCreateRequest(providerID)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// 09:15-09:45 falls inside the already generated 09:00-09:30 and
	// 09:30-10:00 slots.
	req := baseCreateRequest(providerID)
	req.StartTime = "09:15"
	req.EndTime = "09:45"

	_, err := svc.Create(ctx, req)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(ce.ConflictingIDs) == 0 {
		t.Fatal("conflict should identify the colliding slots")
	}
}

func TestCreate_DifferentProvidersDoNotConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, baseCreateRequest(uuid.New())); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, baseCreateRequest(uuid.New())); err != nil {
		t.Fatalf("second provider with the same window should succeed: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"end before start", func(r *CreateRequest) { r.StartTime = "17:00"; r.EndTime = "09:00" }, "end_time"},
		{"bad time format", func(r *CreateRequest) { r.StartTime = "9am" }, "start_time"},
		{"slot duration too small", func(r *CreateRequest) { r.SlotDuration = 10 }, "slot_duration"},
		{"slot duration too large", func(r *CreateRequest) { r.SlotDuration = 481 }, "slot_duration"},
		{"break too long", func(r *CreateRequest) { r.BreakDuration = 121 }, "break_duration"},
		{"capacity negative", func(r *CreateRequest) { r.MaxPerSlot = -1 }, "max_appointments_per_slot"},
		{"recurring without pattern", func(r *CreateRequest) {
			r.IsRecurring = true
			d := date(2024, time.August, 1)
			r.RecurrenceEndDate = &d
		}, "recurrence_pattern"},
		{"recurring without end date", func(r *CreateRequest) {
			r.IsRecurring = true
			r.RecurrencePattern = RecurrenceDaily
		}, "recurrence_end_date"},
		{"recurrence end before start", func(r *CreateRequest) {
			r.IsRecurring = true
			r.RecurrencePattern = RecurrenceDaily
			d := date(2024, time.July, 1)
			r.RecurrenceEndDate = &d
		}, "recurrence_end_date"},
		{"unknown appointment type", func(r *CreateRequest) { r.AppointmentType = "walk_in" }, "appointment_type"},
		{"unknown location type", func(r *CreateRequest) { r.Location.Type = "spaceship" }, "location.type"},
		{"negative fee", func(r *CreateRequest) { r.Pricing = &Pricing{BaseFee: -5} }, "pricing.base_fee"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseCreateRequest(uuid.New())
			tc.mutate(&req)

			_, err := svc.Create(ctx, req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, ve.Fields)
			}
		})
	}

	if repo.slotCount() != 0 {
		t.Fatal("validation failures must not persist slots")
	}
}

func TestCreate_RecurringWeekly(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.Date = date(2024, time.February, 15)
	req.IsRecurring = true
	req.RecurrencePattern = RecurrenceWeekly
	end := date(2024, time.March, 7)
	req.RecurrenceEndDate = &end

	summary, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if summary.SlotsCreated != 4*16 {
		t.Fatalf("expected 64 slots over 4 weekly occurrences, got %d", summary.SlotsCreated)
	}
	if !summary.DateRangeStart.Equal(req.Date) || !summary.DateRangeEnd.Equal(end) {
		t.Fatalf("unexpected date range %s..%s",
			summary.DateRangeStart.Format(DateLayout), summary.DateRangeEnd.Format(DateLayout))
	}

	// Each occurrence shares one series id.
	avs, err := repo.ListAvailabilitiesByGroup(ctx, summary.AvailabilityID)
	if err != nil {
		t.Fatalf("ListAvailabilitiesByGroup: %v", err)
	}
	if len(avs) != 4 {
		t.Fatalf("expected 4 occurrence availabilities, got %d", len(avs))
	}
}

func TestCreate_RecurringConflictAbortsWholeSeries(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	// Occupy the middle occurrence date first.
	blocker := baseCreateRequest(providerID)
	blocker.Date = date(2024, time.July, 17)
	if _, err := svc.Create(ctx, blocker); err != nil {
		t.Fatalf("blocker create: %v", err)
	}
	before := repo.slotCount()

	req := baseCreateRequest(providerID)
	req.IsRecurring = true
	req.RecurrencePattern = RecurrenceWeekly
	end := date(2024, time.July, 24)
	req.RecurrenceEndDate = &end

	_, err := svc.Create(ctx, req)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(ce.OccurrenceDates) != 1 || ce.OccurrenceDates[0] != "2024-07-17" {
		t.Fatalf("expected the conflicting occurrence 2024-07-17 to be reported, got %v", ce.OccurrenceDates)
	}
	if repo.slotCount() != before {
		t.Fatal("a conflicting occurrence must abort the whole series without persisting anything")
	}
}

func TestCreate_ConcurrentOverlapOnlyOneSucceeds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Create(ctx, baseCreateRequest(providerID))
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range results {
		var ce *ConflictError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &ce):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one success and one conflict, got %d/%d", successes, conflicts)
	}
}

func TestUpdate_StatusTransitions(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	if _, err := svc.Create(ctx, baseCreateRequest(providerID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	slotID := slots[0].ID
	patientID := uuid.New()

	booked := SlotBooked
	updated, err := svc.Update(ctx, slotID, UpdateRequest{Status: &booked, PatientID: &patientID})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if updated.BookingReference == nil {
		t.Fatal("booking must assign a booking reference")
	}
	if updated.PatientID == nil || *updated.PatientID != patientID {
		t.Fatal("booking must record the patient")
	}

	// booked -> available is not allowed
	avail := SlotAvailable
	if _, err := svc.Update(ctx, slotID, UpdateRequest{Status: &avail}); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	cancelled := SlotCancelled
	if _, err := svc.Update(ctx, slotID, UpdateRequest{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// cancelled -> booked is not allowed
	if _, err := svc.Update(ctx, slotID, UpdateRequest{Status: &booked}); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition after cancellation, got %v", err)
	}
}

func TestUpdate_BlockAndRelease(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	if _, err := svc.Create(ctx, baseCreateRequest(providerID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	slotID := slots[0].ID

	blocked := SlotBlocked
	if _, err := svc.Update(ctx, slotID, UpdateRequest{Status: &blocked}); err != nil {
		t.Fatalf("block: %v", err)
	}
	avail := SlotAvailable
	if _, err := svc.Update(ctx, slotID, UpdateRequest{Status: &avail}); err != nil {
		t.Fatalf("unblock: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService()
	notes := "n"
	if _, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{Notes: &notes}); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestUpdate_RescheduleConflictsExcludeSelf(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.EndTime = "10:00" // two slots: 09:00-09:30, 09:30-10:00
	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	first := slots[0]
	for _, s := range slots {
		if s.Start.Before(first.Start) {
			first = s
		}
	}

	// Shifting the first slot by five minutes overlaps its old interval,
	// which must be excluded, but also the neighbor, which must not.
	start, end := "09:05", "09:35"
	_, err := svc.Update(ctx, first.ID, UpdateRequest{StartTime: &start, EndTime: &end})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict with the neighboring slot, got %v", err)
	}

	// Moving entirely clear of the neighbor succeeds.
	start, end = "08:00", "08:30"
	moved, err := svc.Update(ctx, first.ID, UpdateRequest{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	wantStart := time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC) // 08:00 EDT
	if !moved.Start.Equal(wantStart) {
		t.Fatalf("expected moved slot at %s UTC, got %s", wantStart, moved.Start)
	}
}

func TestDelete_IdempotentOnMissing(t *testing.T) {
	svc, _ := newTestService()

	res, err := svc.Delete(context.Background(), uuid.New(), false, "")
	if err != nil {
		t.Fatalf("deleting an absent slot must be a no-op success, got %v", err)
	}
	if res.Deleted != 0 {
		t.Fatalf("expected 0 deletions, got %d", res.Deleted)
	}
}

func TestDelete_BookedSlotRefused(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	if _, err := svc.Create(ctx, baseCreateRequest(providerID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	booked := SlotBooked
	if _, err := svc.Update(ctx, slots[0].ID, UpdateRequest{Status: &booked}); err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := svc.Delete(ctx, slots[0].ID, false, ""); !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("expected ErrSlotBooked, got %v", err)
	}
}

func TestDelete_SingleSlotLeavesSeriesIntact(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.EndTime = "10:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurrenceDaily
	end := date(2024, time.July, 12)
	req.RecurrenceEndDate = &end

	summary, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if summary.SlotsCreated != 6 {
		t.Fatalf("expected 6 slots over 3 occurrences, got %d", summary.SlotsCreated)
	}

	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	res, err := svc.Delete(ctx, slots[0].ID, false, "lunch meeting")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Deleted != 1 {
		t.Fatalf("expected exactly one deletion, got %d", res.Deleted)
	}

	remaining, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	if len(remaining) != 5 {
		t.Fatalf("expected the other 5 slots untouched, got %d", len(remaining))
	}
	for _, s := range remaining {
		if s.Status != SlotAvailable {
			t.Fatalf("remaining slot %s changed status to %s", s.ID, s.Status)
		}
	}
}

func TestDelete_RecurringGroupSkipsBooked(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.EndTime = "10:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurrenceDaily
	end := date(2024, time.July, 12)
	req.RecurrenceEndDate = &end

	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	booked := SlotBooked
	bookedID := slots[1].ID
	if _, err := svc.Update(ctx, bookedID, UpdateRequest{Status: &booked}); err != nil {
		t.Fatalf("book: %v", err)
	}

	target := slots[0]
	if target.ID == bookedID {
		target = slots[2]
	}
	if _, err := svc.Delete(ctx, target.ID, true, "vacation"); err != nil {
		t.Fatalf("Delete recurring: %v", err)
	}

	remaining, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	if len(remaining) != 1 {
		t.Fatalf("expected only the booked slot to survive, got %d", len(remaining))
	}
	if remaining[0].ID != bookedID || remaining[0].Status != SlotBooked {
		t.Fatal("the surviving slot should be the booked one")
	}
}

func TestGetByProvider_SummaryAndDisplayZone(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.EndTime = "11:00" // four 30min slots
	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	booked := SlotBooked
	if _, err := svc.Update(ctx, slots[0].ID, UpdateRequest{Status: &booked}); err != nil {
		t.Fatalf("book: %v", err)
	}

	schedule, err := svc.GetByProvider(ctx, providerID,
		date(2024, time.July, 10), date(2024, time.July, 10), nil, nil, "")
	if err != nil {
		t.Fatalf("GetByProvider: %v", err)
	}

	if schedule.Summary.Total != 4 || schedule.Summary.Available != 3 || schedule.Summary.Booked != 1 {
		t.Fatalf("unexpected summary %+v", schedule.Summary)
	}
	if len(schedule.Days) != 1 {
		t.Fatalf("expected one day, got %d", len(schedule.Days))
	}

	// Default display zone is the availability's own stored zone.
	found := false
	for _, sl := range schedule.Days[0].Slots {
		if sl.StartTime == "09:00" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a 09:00 wall-clock slot in the stored zone")
	}

	// An explicit display zone shifts the rendered wall-clock times.
	chicago, err := svc.GetByProvider(ctx, providerID,
		date(2024, time.July, 10), date(2024, time.July, 10), nil, nil, "America/Chicago")
	if err != nil {
		t.Fatalf("GetByProvider with zone: %v", err)
	}
	found = false
	for _, sl := range chicago.Days[0].Slots {
		if sl.StartTime == "08:00" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the first slot rendered as 08:00 in Chicago")
	}
}

func TestGetByProvider_StatusFilter(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	providerID := uuid.New()

	req := baseCreateRequest(providerID)
	req.EndTime = "10:00"
	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slots, _ := repo.SearchSlots(ctx, SlotFilter{ProviderID: &providerID})
	booked := SlotBooked
	if _, err := svc.Update(ctx, slots[0].ID, UpdateRequest{Status: &booked}); err != nil {
		t.Fatalf("book: %v", err)
	}

	onlyBooked := SlotBooked
	schedule, err := svc.GetByProvider(ctx, providerID,
		date(2024, time.July, 10), date(2024, time.July, 10), &onlyBooked, nil, "")
	if err != nil {
		t.Fatalf("GetByProvider: %v", err)
	}
	if schedule.Summary.Total != 1 || schedule.Summary.Booked != 1 {
		t.Fatalf("expected only the booked slot, got %+v", schedule.Summary)
	}
}

func TestGetByProvider_InvalidRange(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetByProvider(context.Background(), uuid.New(),
		date(2024, time.July, 10), date(2024, time.July, 9), nil, nil, "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
