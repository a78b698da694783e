package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConflictDetector tests a candidate UTC interval against a provider's
// existing slots. Intervals are half-open: [s1,e1) and [s2,e2) conflict iff
// s1 < e2 && e1 > s2, so a slot ending exactly when another begins is fine.
// Slots of different providers never conflict.
type ConflictDetector struct {
	repo Repository
}

func NewConflictDetector(repo Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// Conflicts returns the ids of the provider's slots overlapping [start, end),
// skipping exclude when non-nil (the slot being updated).
func (d *ConflictDetector) Conflicts(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]uuid.UUID, error) {
	existing, err := d.repo.ListSlotsOverlapping(ctx, providerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list overlapping slots: %w", err)
	}

	var ids []uuid.UUID
	for _, slot := range existing {
		if exclude != nil && slot.ID == *exclude {
			continue
		}
		if Overlaps(start, end, slot.Start, slot.End) {
			ids = append(ids, slot.ID)
		}
	}
	return ids, nil
}

// HasConflict reports whether any existing slot overlaps the interval.
func (d *ConflictDetector) HasConflict(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	ids, err := d.Conflicts(ctx, providerID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Overlaps is the half-open interval test all conflict checks reduce to.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}
