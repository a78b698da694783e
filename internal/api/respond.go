package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/healthfirst/provider-scheduling/internal/availability"
	redisclient "github.com/healthfirst/provider-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Success:    false,
		Message:    message,
		StatusCode: status,
	})
}

func writeFieldErrors(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	writeJSON(w, status, ErrorResponse{
		Success:    false,
		Message:    message,
		StatusCode: status,
		Errors:     fields,
	})
}

// handleDomainError maps domain errors onto the HTTP error envelope.
// Anything unrecognized becomes an opaque 500.
func handleDomainError(w http.ResponseWriter, err error) {
	var ve *availability.ValidationError
	var ce *availability.ConflictError

	switch {
	case errors.As(err, &ve):
		writeFieldErrors(w, http.StatusUnprocessableEntity, "validation failed", ve.Fields)
	case errors.As(err, &ce):
		fields := map[string][]string{}
		if len(ce.OccurrenceDates) > 0 {
			fields["occurrence_dates"] = ce.OccurrenceDates
		}
		if len(ce.ConflictingIDs) > 0 {
			fields["conflicting_slot_ids"] = ce.ConflictingIDs
		}
		writeFieldErrors(w, http.StatusConflict, ce.Error(), fields)
	case errors.Is(err, availability.ErrInvalidTimeZone),
		errors.Is(err, availability.ErrInvalidTimeFormat),
		errors.Is(err, availability.ErrSlotBooked):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, availability.ErrSlotNotFound),
		errors.Is(err, availability.ErrAvailabilityNotFound),
		errors.Is(err, availability.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, availability.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, availability.ErrProviderBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "provider schedule is being modified, please retry shortly")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
