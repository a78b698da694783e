package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testAvailability(slotDur, breakDur int) *Availability {
	return &Availability{
		ID:              uuid.New(),
		ProviderID:      uuid.New(),
		SlotDuration:    slotDur,
		BreakDuration:   breakDur,
		AppointmentType: TypeConsultation,
	}
}

func TestGenerateSlots_Count(t *testing.T) {
	start := time.Date(2024, 7, 10, 13, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		windowMin int
		slotDur   int
		breakDur  int
		want      int
	}{
		{"8h window, 30min slots", 480, 30, 0, 16},
		{"8h window, 30min slots, 15min breaks", 480, 30, 15, 11},
		{"1h window, 15min slots", 60, 15, 0, 4},
		{"uneven window drops partial slot", 70, 30, 0, 2},
		{"window shorter than slot", 20, 30, 0, 0},
		{"trailing break does not fit another slot", 105, 30, 15, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			end := start.Add(time.Duration(tc.windowMin) * time.Minute)
			slots := GenerateSlots(testAvailability(tc.slotDur, tc.breakDur), start, end)

			if len(slots) != tc.want {
				t.Fatalf("expected %d slots, got %d", tc.want, len(slots))
			}
			for i, s := range slots {
				if s.End.After(end) {
					t.Errorf("slot %d ends %s after window end %s", i, s.End, end)
				}
				if got := s.End.Sub(s.Start); got != time.Duration(tc.slotDur)*time.Minute {
					t.Errorf("slot %d duration %s", i, got)
				}
				if i > 0 && !slots[i-1].Start.Before(s.Start) {
					t.Errorf("slots out of order at %d", i)
				}
			}
		})
	}
}

func TestGenerateSlots_CursorAdvancesPastBreak(t *testing.T) {
	start := time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	slots := GenerateSlots(testAvailability(30, 15), start, end)

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	second := start.Add(45 * time.Minute)
	if !slots[1].Start.Equal(second) {
		t.Fatalf("expected second slot at %s, got %s", second, slots[1].Start)
	}
}

func TestExpandRecurrence_Weekly(t *testing.T) {
	dates, err := ExpandRecurrence(date(2024, time.February, 15), RecurrenceWeekly, date(2024, time.March, 7))
	if err != nil {
		t.Fatalf("ExpandRecurrence: %v", err)
	}

	want := []time.Time{
		date(2024, time.February, 15),
		date(2024, time.February, 22),
		date(2024, time.February, 29),
		date(2024, time.March, 7),
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("date %d: expected %s, got %s", i, want[i].Format(DateLayout), dates[i].Format(DateLayout))
		}
		if dates[i].Weekday() != time.Thursday {
			t.Errorf("date %d is %s, expected Thursday", i, dates[i].Weekday())
		}
	}
}

func TestExpandRecurrence_Daily(t *testing.T) {
	dates, err := ExpandRecurrence(date(2024, time.June, 1), RecurrenceDaily, date(2024, time.June, 5))
	if err != nil {
		t.Fatalf("ExpandRecurrence: %v", err)
	}
	if len(dates) != 5 {
		t.Fatalf("expected 5 dates inclusive of both ends, got %d", len(dates))
	}
}

func TestExpandRecurrence_MonthlyClamped(t *testing.T) {
	dates, err := ExpandRecurrence(date(2024, time.January, 31), RecurrenceMonthly, date(2024, time.April, 30))
	if err != nil {
		t.Fatalf("ExpandRecurrence: %v", err)
	}

	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29), // leap year clamp
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("date %d: expected %s, got %s", i, want[i].Format(DateLayout), dates[i].Format(DateLayout))
		}
	}
}

func TestExpandRecurrence_SingleDay(t *testing.T) {
	d := date(2024, time.June, 1)
	dates, err := ExpandRecurrence(d, RecurrenceWeekly, d)
	if err != nil {
		t.Fatalf("ExpandRecurrence: %v", err)
	}
	if len(dates) != 1 || !dates[0].Equal(d) {
		t.Fatalf("expected just the base date, got %v", dates)
	}
}

func TestExpandRecurrence_InvalidPattern(t *testing.T) {
	if _, err := ExpandRecurrence(date(2024, time.June, 1), RecurrencePattern("yearly"), date(2024, time.June, 30)); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
}
