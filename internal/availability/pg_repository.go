package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const availabilityColumns = `
	id, provider_id, date, start_time, end_time, timezone,
	is_recurring, recurrence_pattern, recurrence_end_date, recurrence_group_id,
	slot_duration, break_duration, status, max_per_slot, booked_count,
	appointment_type, location_type, location_address, location_room,
	pricing_base_fee, pricing_insurance_accepted, pricing_currency,
	notes, requirements, created_at, updated_at`

const slotColumns = `
	id, availability_id, provider_id, start_time, end_time,
	status, patient_id, appointment_type, booking_reference, created_at, updated_at`

// Helpers

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var pattern *string
	var baseFee *float64
	var insurance *bool
	var currency *string

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Timezone,
		&a.IsRecurring,
		&pattern,
		&a.RecurrenceEndDate,
		&a.RecurrenceGroupID,
		&a.SlotDuration,
		&a.BreakDuration,
		&a.Status,
		&a.MaxPerSlot,
		&a.BookedCount,
		&a.AppointmentType,
		&a.Location.Type,
		&a.Location.Address,
		&a.Location.RoomNumber,
		&baseFee,
		&insurance,
		&currency,
		&a.Notes,
		&a.Requirements,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	if pattern != nil {
		a.RecurrencePattern = RecurrencePattern(*pattern)
	} else {
		a.RecurrencePattern = RecurrenceNone
	}
	if baseFee != nil {
		a.Pricing = &Pricing{BaseFee: *baseFee}
		if insurance != nil {
			a.Pricing.InsuranceAccepted = *insurance
		}
		if currency != nil {
			a.Pricing.Currency = *currency
		}
	}

	return &a, nil
}

func scanSlot(row pgx.Row) (*AppointmentSlot, error) {
	var s AppointmentSlot

	err := row.Scan(
		&s.ID,
		&s.AvailabilityID,
		&s.ProviderID,
		&s.Start,
		&s.End,
		&s.Status,
		&s.PatientID,
		&s.AppointmentType,
		&s.BookingReference,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func availabilityArgs(a *Availability) []any {
	var pattern *string
	if a.RecurrencePattern != "" && a.RecurrencePattern != RecurrenceNone {
		p := string(a.RecurrencePattern)
		pattern = &p
	}
	var baseFee *float64
	var insurance *bool
	var currency *string
	if a.Pricing != nil {
		baseFee = &a.Pricing.BaseFee
		insurance = &a.Pricing.InsuranceAccepted
		currency = &a.Pricing.Currency
	}
	return []any{
		a.ID, a.ProviderID, a.Date, a.StartTime, a.EndTime, a.Timezone,
		a.IsRecurring, pattern, a.RecurrenceEndDate, a.RecurrenceGroupID,
		a.SlotDuration, a.BreakDuration, a.Status, a.MaxPerSlot, a.BookedCount,
		a.AppointmentType, a.Location.Type, a.Location.Address, a.Location.RoomNumber,
		baseFee, insurance, currency,
		a.Notes, a.Requirements, a.CreatedAt, a.UpdatedAt,
	}
}

// Interface methods

func (r *PgRepository) CreateAvailabilities(ctx context.Context, avs []Availability, slots []AppointmentSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range avs {
		_, err := tx.Exec(ctx, `
			INSERT INTO provider_availability (`+availabilityColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		`, availabilityArgs(&avs[i])...)
		if err != nil {
			return fmt.Errorf("insert availability %s: %w", avs[i].ID, err)
		}
	}

	for i := range slots {
		s := &slots[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_slots (`+slotColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, s.ID, s.AvailabilityID, s.ProviderID, s.Start, s.End,
			s.Status, s.PatientID, s.AppointmentType, s.BookingReference, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", s.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM provider_availability
		WHERE id = $1
	`, id)
	return scanAvailability(row)
}

func (r *PgRepository) GetAvailabilitiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Availability, error) {
	result := make(map[uuid.UUID]Availability, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM provider_availability
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result[a.ID] = *a
	}
	return result, rows.Err()
}

func (r *PgRepository) ListAvailabilitiesByGroup(ctx context.Context, groupID uuid.UUID) ([]Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM provider_availability
		WHERE recurrence_group_id = $1
		ORDER BY date
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAvailability(ctx context.Context, av *Availability) error {
	var baseFee *float64
	var insurance *bool
	var currency *string
	if av.Pricing != nil {
		baseFee = &av.Pricing.BaseFee
		insurance = &av.Pricing.InsuranceAccepted
		currency = &av.Pricing.Currency
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_availability
		SET status = $2,
		    notes = $3,
		    requirements = $4,
		    pricing_base_fee = $5,
		    pricing_insurance_accepted = $6,
		    pricing_currency = $7,
		    booked_count = $8,
		    updated_at = $9
		WHERE id = $1
	`, av.ID, av.Status, av.Notes, av.Requirements, baseFee, insurance, currency, av.BookedCount, av.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (r *PgRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM provider_availability
		WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]AppointmentSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE availability_id = $1
		ORDER BY start_time
	`, availabilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *PgRepository) ListSlotsOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]AppointmentSlot, error) {
	// Half-open overlap: existing.start < end AND existing.end > start.
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE provider_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, providerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *PgRepository) SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE 1=1`
	args := []any{}
	n := 0

	add := func(clause string, v any) {
		n++
		query += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, v)
	}

	if f.ProviderID != nil {
		add("provider_id =", *f.ProviderID)
	}
	if f.From != nil {
		add("start_time >=", *f.From)
	}
	if f.To != nil {
		add("start_time <", *f.To)
	}
	if f.Status != nil {
		add("status =", *f.Status)
	}
	if f.AppointmentType != nil {
		add("appointment_type =", *f.AppointmentType)
	}
	query += " ORDER BY start_time"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *PgRepository) UpdateSlot(ctx context.Context, slot *AppointmentSlot) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment_slots
		SET start_time = $2,
		    end_time = $3,
		    status = $4,
		    patient_id = $5,
		    booking_reference = $6,
		    updated_at = $7
		WHERE id = $1
	`, slot.ID, slot.Start, slot.End, slot.Status, slot.PatientID, slot.BookingReference, slot.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointment_slots
		WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, availability_id, slot_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AvailabilityID, ev.SlotID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func collectSlots(rows pgx.Rows) ([]AppointmentSlot, error) {
	var result []AppointmentSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
