package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SearchCriteria is a conjunction of optional predicates; nil fields are
// not filtered on.
type SearchCriteria struct {
	Date              *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	Specialization    *string
	Location          *string
	AppointmentType   *AppointmentType
	InsuranceAccepted *bool
	MaxPrice          *float64
	Timezone          *string
	AvailableOnly     bool
}

type SearchSlotView struct {
	SlotID          uuid.UUID
	Date            time.Time
	StartTime       string
	EndTime         string
	AppointmentType AppointmentType
	Location        *Location
	Pricing         *Pricing
	Requirements    []string
}

type ProviderResult struct {
	Provider Provider
	Slots    []SearchSlotView
}

type SearchResult struct {
	TotalResults int
	Results      []ProviderResult
}

// SearchEngine runs read-only multi-criteria queries over the slot corpus,
// grouping matches under their owning providers.
type SearchEngine struct {
	repo      Repository
	directory ProviderDirectory
}

func NewSearchEngine(repo Repository, directory ProviderDirectory) *SearchEngine {
	return &SearchEngine{repo: repo, directory: directory}
}

func (e *SearchEngine) Search(ctx context.Context, c SearchCriteria) (*SearchResult, error) {
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		ve := newValidationError()
		ve.add("end_date", "must be on or after start_date")
		return nil, ve
	}
	if c.Timezone != nil {
		if _, err := time.LoadLocation(*c.Timezone); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, *c.Timezone)
		}
	}

	filter := SlotFilter{AppointmentType: c.AppointmentType}
	if c.AvailableOnly {
		st := SlotAvailable
		filter.Status = &st
	}

	slots, err := e.repo.SearchSlots(ctx, filter)
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
	avs, err := e.repo.GetAvailabilitiesByIDs(ctx, avIDs)
	if err != nil {
		return nil, fmt.Errorf("load availabilities: %w", err)
	}

	providers := make(map[uuid.UUID]*ProviderResult)
	var order []uuid.UUID

	for _, sl := range slots {
		av, ok := avs[sl.AvailabilityID]
		if !ok {
			continue
		}

		slotDate := truncateToDate(sl.Start)
		if c.Date != nil && !slotDate.Equal(truncateToDate(*c.Date)) {
			continue
		}
		if c.StartDate != nil && slotDate.Before(truncateToDate(*c.StartDate)) {
			continue
		}
		if c.EndDate != nil && slotDate.After(truncateToDate(*c.EndDate)) {
			continue
		}

		if c.MaxPrice != nil {
			fee := 0.0
			if av.Pricing != nil {
				fee = av.Pricing.BaseFee
			}
			if fee > *c.MaxPrice {
				continue
			}
		}
		if c.InsuranceAccepted != nil {
			accepted := true
			if av.Pricing != nil {
				accepted = av.Pricing.InsuranceAccepted
			}
			if accepted != *c.InsuranceAccepted {
				continue
			}
		}

		provider, err := e.directory.GetProviderByID(ctx, sl.ProviderID)
		if err != nil {
			if errors.Is(err, ErrProviderNotFound) {
				continue
			}
			return nil, fmt.Errorf("load provider %s: %w", sl.ProviderID, err)
		}

		if c.Specialization != nil && !containsFold(provider.Specialization, *c.Specialization) {
			continue
		}
		if c.Location != nil && !matchesLocation(provider, av.Location, *c.Location) {
			continue
		}

		zone := "UTC"
		if c.Timezone != nil {
			zone = *c.Timezone
		}
		startStr, err := FromUTC(sl.Start, zone)
		if err != nil {
			return nil, err
		}
		endStr, err := FromUTC(sl.End, zone)
		if err != nil {
			return nil, err
		}

		group, ok := providers[sl.ProviderID]
		if !ok {
			group = &ProviderResult{Provider: *provider}
			providers[sl.ProviderID] = group
			order = append(order, sl.ProviderID)
		}

		loc := av.Location
		group.Slots = append(group.Slots, SearchSlotView{
			SlotID:          sl.ID,
			Date:            slotDate,
			StartTime:       startStr,
			EndTime:         endStr,
			AppointmentType: sl.AppointmentType,
			Location:        &loc,
			Pricing:         av.Pricing,
			Requirements:    av.Requirements,
		})
	}

	result := &SearchResult{TotalResults: len(providers)}
	for _, id := range order {
		result.Results = append(result.Results, *providers[id])
	}
	return result, nil
}

// matchesLocation matches the query against the provider's clinic address
// and the availability's own address, case-insensitively.
func matchesLocation(p *Provider, loc Location, query string) bool {
	if containsFold(p.ClinicAddress, query) {
		return true
	}
	if loc.Address != nil && containsFold(*loc.Address, query) {
		return true
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
