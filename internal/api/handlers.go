package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthfirst/provider-scheduling/internal/availability"
)

func createAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "provider_id must be a valid UUID")
			return
		}

		date, err := time.Parse(availability.DateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		var endDate *time.Time
		if req.RecurrenceEndDate != "" {
			d, err := time.Parse(availability.DateLayout, req.RecurrenceEndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "recurrence_end_date must be YYYY-MM-DD")
				return
			}
			endDate = &d
		}

		create := availability.CreateRequest{
			ProviderID:        providerID,
			Date:              date,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			Timezone:          req.Timezone,
			IsRecurring:       req.IsRecurring,
			RecurrencePattern: availability.RecurrencePattern(req.RecurrencePattern),
			RecurrenceEndDate: endDate,
			SlotDuration:      req.SlotDuration,
			BreakDuration:     req.BreakDuration,
			MaxPerSlot:        req.MaxPerSlot,
			AppointmentType:   availability.AppointmentType(req.AppointmentType),
			Location: availability.Location{
				Type:       availability.LocationType(req.Location.Type),
				Address:    req.Location.Address,
				RoomNumber: req.Location.RoomNumber,
			},
			Notes:        req.Notes,
			Requirements: req.SpecialRequirements,
		}
		if req.Pricing != nil {
			pricing := availability.Pricing{
				BaseFee:           req.Pricing.BaseFee,
				InsuranceAccepted: true,
				Currency:          req.Pricing.Currency,
			}
			if req.Pricing.InsuranceAccepted != nil {
				pricing.InsuranceAccepted = *req.Pricing.InsuranceAccepted
			}
			create.Pricing = &pricing
		}

		summary, err := svc.Create(r.Context(), create)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SuccessResponse{
			Success: true,
			Message: "Availability slots created successfully",
			Data: CreateAvailabilityData{
				AvailabilityID: summary.AvailabilityID.String(),
				SlotsCreated:   summary.SlotsCreated,
				DateRange: DateRangePayload{
					Start: summary.DateRangeStart.Format(availability.DateLayout),
					End:   summary.DateRangeEnd.Format(availability.DateLayout),
				},
				TotalAppointments: summary.TotalAppointments,
			},
		})
	}
}

func getProviderAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "provider_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "provider_id must be a valid UUID")
			return
		}

		q := r.URL.Query()
		if q.Get("start_date") == "" || q.Get("end_date") == "" {
			writeError(w, http.StatusBadRequest, "start_date and end_date are required")
			return
		}
		startDate, err := time.Parse(availability.DateLayout, q.Get("start_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.Parse(availability.DateLayout, q.Get("end_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}

		var status *availability.SlotStatus
		if s := q.Get("status"); s != "" {
			st := availability.SlotStatus(s)
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "unknown status filter")
				return
			}
			status = &st
		}
		var apptType *availability.AppointmentType
		if s := q.Get("appointment_type"); s != "" {
			at := availability.AppointmentType(s)
			if !at.Valid() {
				writeError(w, http.StatusBadRequest, "unknown appointment type filter")
				return
			}
			apptType = &at
		}

		schedule, err := svc.GetByProvider(r.Context(), providerID, startDate, endDate, status, apptType, q.Get("timezone"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		data := ProviderAvailabilityData{
			ProviderID: providerID.String(),
			Summary: AvailabilitySummaryPayload{
				TotalSlots:     schedule.Summary.Total,
				AvailableSlots: schedule.Summary.Available,
				BookedSlots:    schedule.Summary.Booked,
				CancelledSlots: schedule.Summary.Cancelled,
			},
			Availability: []DayPayload{},
		}
		for _, day := range schedule.Days {
			dp := DayPayload{Date: day.Date.Format(availability.DateLayout)}
			for _, sl := range day.Slots {
				dp.Slots = append(dp.Slots, SlotPayload{
					SlotID:          sl.SlotID.String(),
					StartTime:       sl.StartTime,
					EndTime:         sl.EndTime,
					Status:          string(sl.Status),
					AppointmentType: string(sl.AppointmentType),
					Location:        locationPayload(sl.Location),
					Pricing:         pricingPayload(sl.Pricing),
				})
			}
			data.Availability = append(data.Availability, dp)
		}

		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
	}
}

func updateSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, err := uuid.Parse(chi.URLParam(r, "slot_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "slot_id must be a valid UUID")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON")
			return
		}

		update := availability.UpdateRequest{
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			Notes:        req.Notes,
			Requirements: req.SpecialRequirements,
		}
		if req.Status != nil {
			st := availability.SlotStatus(*req.Status)
			update.Status = &st
		}
		if req.PatientID != nil {
			pid, err := uuid.Parse(*req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "patient_id must be a valid UUID")
				return
			}
			update.PatientID = &pid
		}
		if req.Pricing != nil {
			pricing := availability.Pricing{
				BaseFee:           req.Pricing.BaseFee,
				InsuranceAccepted: true,
				Currency:          req.Pricing.Currency,
			}
			if req.Pricing.InsuranceAccepted != nil {
				pricing.InsuranceAccepted = *req.Pricing.InsuranceAccepted
			}
			update.Pricing = &pricing
		}

		slot, err := svc.Update(r.Context(), slotID, update)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuccessResponse{
			Success: true,
			Message: "Slot updated successfully",
			Data: map[string]any{
				"slot_id": slot.ID.String(),
				"status":  string(slot.Status),
			},
		})
	}
}

func deleteSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, err := uuid.Parse(chi.URLParam(r, "slot_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "slot_id must be a valid UUID")
			return
		}

		q := r.URL.Query()
		deleteRecurring := false
		if v := q.Get("delete_recurring"); v != "" {
			deleteRecurring, err = strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "delete_recurring must be a boolean")
				return
			}
		}

		res, err := svc.Delete(r.Context(), slotID, deleteRecurring, q.Get("reason"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuccessResponse{
			Success: true,
			Message: "Slot deleted successfully",
			Data: map[string]any{
				"deleted_count":    res.Deleted,
				"delete_recurring": res.GroupDeleted,
			},
		})
	}
}

func searchAvailabilityHandler(engine *availability.SearchEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		criteria := availability.SearchCriteria{AvailableOnly: true}
		echo := map[string]any{}

		parseDate := func(key string) (*time.Time, bool) {
			v := q.Get(key)
			if v == "" {
				return nil, true
			}
			d, err := time.Parse(availability.DateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, key+" must be YYYY-MM-DD")
				return nil, false
			}
			echo[key] = v
			return &d, true
		}

		var ok bool
		if criteria.Date, ok = parseDate("date"); !ok {
			return
		}
		if criteria.StartDate, ok = parseDate("start_date"); !ok {
			return
		}
		if criteria.EndDate, ok = parseDate("end_date"); !ok {
			return
		}

		if v := q.Get("specialization"); v != "" {
			criteria.Specialization = &v
			echo["specialization"] = v
		}
		if v := q.Get("location"); v != "" {
			criteria.Location = &v
			echo["location"] = v
		}
		if v := q.Get("appointment_type"); v != "" {
			at := availability.AppointmentType(v)
			if !at.Valid() {
				writeError(w, http.StatusBadRequest, "unknown appointment type filter")
				return
			}
			criteria.AppointmentType = &at
			echo["appointment_type"] = v
		}
		if v := q.Get("insurance_accepted"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "insurance_accepted must be a boolean")
				return
			}
			criteria.InsuranceAccepted = &b
			echo["insurance_accepted"] = b
		}
		if v := q.Get("max_price"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "max_price must be a number")
				return
			}
			criteria.MaxPrice = &f
			echo["max_price"] = f
		}
		if v := q.Get("timezone"); v != "" {
			criteria.Timezone = &v
			echo["timezone"] = v
		}
		if v := q.Get("available_only"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "available_only must be a boolean")
				return
			}
			criteria.AvailableOnly = b
		}

		result, err := engine.Search(r.Context(), criteria)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		data := SearchData{
			SearchCriteria: echo,
			TotalResults:   result.TotalResults,
			Results:        []SearchResultPayload{},
		}
		for _, pr := range result.Results {
			rp := SearchResultPayload{
				Provider: ProviderPayload{
					ID:             pr.Provider.ID.String(),
					Name:           pr.Provider.Name,
					Specialization: pr.Provider.Specialization,
					YearsExp:       pr.Provider.YearsExp,
					Rating:         pr.Provider.Rating,
					ClinicAddress:  pr.Provider.ClinicAddress,
				},
			}
			for _, sl := range pr.Slots {
				rp.AvailableSlots = append(rp.AvailableSlots, SearchSlotPayload{
					SlotID:              sl.SlotID.String(),
					Date:                sl.Date.Format(availability.DateLayout),
					StartTime:           sl.StartTime,
					EndTime:             sl.EndTime,
					AppointmentType:     string(sl.AppointmentType),
					Location:            locationPayload(sl.Location),
					Pricing:             pricingPayload(sl.Pricing),
					SpecialRequirements: sl.Requirements,
				})
			}
			data.Results = append(data.Results, rp)
		}

		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
	}
}
