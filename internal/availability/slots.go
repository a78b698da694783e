package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateSlots carves [start, end) into consecutive slots of slotDuration
// minutes, advancing by slotDuration+breakDuration between slots. A window
// not evenly divisible yields fewer slots, never a truncated trailing slot.
// Output is chronological.
func GenerateSlots(av *Availability, start, end time.Time) []AppointmentSlot {
	slotLen := time.Duration(av.SlotDuration) * time.Minute
	step := slotLen + time.Duration(av.BreakDuration)*time.Minute

	now := time.Now().UTC()
	var slots []AppointmentSlot
	for cur := start; !cur.Add(slotLen).After(end); cur = cur.Add(step) {
		slots = append(slots, AppointmentSlot{
			ID:              uuid.New(),
			AvailabilityID:  av.ID,
			ProviderID:      av.ProviderID,
			Start:           cur,
			End:             cur.Add(slotLen),
			Status:          SlotAvailable,
			AppointmentType: av.AppointmentType,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return slots
}

// ExpandRecurrence produces the occurrence dates of a series, inclusive of
// baseDate and endDate. Weekly preserves the weekday; monthly preserves the
// day-of-month, clamped when the target month is shorter.
func ExpandRecurrence(baseDate time.Time, pattern RecurrencePattern, endDate time.Time) ([]time.Time, error) {
	var dates []time.Time
	switch pattern {
	case RecurrenceDaily:
		for d := baseDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	case RecurrenceWeekly:
		for d := baseDate; !d.After(endDate); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	case RecurrenceMonthly:
		day := baseDate.Day()
		for i := 0; ; i++ {
			d := addMonthsClamped(baseDate, i, day)
			if d.After(endDate) {
				break
			}
			dates = append(dates, d)
		}
	default:
		return nil, fmt.Errorf("invalid recurrence pattern: %q", pattern)
	}
	return dates, nil
}

// addMonthsClamped adds n months to base keeping day-of-month, clamping to
// the last day when the target month is shorter (Jan 31 -> Feb 28/29).
func addMonthsClamped(base time.Time, n, day int) time.Time {
	first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location())
	target := first.AddDate(0, n, 0)
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, base.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
