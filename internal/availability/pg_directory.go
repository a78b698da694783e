package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgProviderDirectory reads the provider records the external provider
// service maintains.
type PgProviderDirectory struct {
	pool *pgxpool.Pool
}

func NewPgProviderDirectory(pool *pgxpool.Pool) *PgProviderDirectory {
	return &PgProviderDirectory{pool: pool}
}

func (d *PgProviderDirectory) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, specialization, years_experience, rating, clinic_address
		FROM providers
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Specialization, &p.YearsExp, &p.Rating, &p.ClinicAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}
