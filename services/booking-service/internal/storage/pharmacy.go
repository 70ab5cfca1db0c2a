package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
)

func (r *Repository) GetPharmacy(ctx context.Context, id string) (model.Pharmacy, error) {
	var p model.Pharmacy
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, business_hours_text, updated_at
		FROM pharmacies
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.BusinessHoursText, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Pharmacy{}, booking.ErrPharmacyNotFound
	}
	if err != nil {
		return model.Pharmacy{}, classify("get pharmacy", err)
	}
	return p, nil
}

// UpsertPharmacy stores a directory snapshot unless a newer one is already
// present. It reports whether the row changed.
func (r *Repository) UpsertPharmacy(ctx context.Context, p model.Pharmacy) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO pharmacies (id, name, business_hours_text, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			business_hours_text = EXCLUDED.business_hours_text,
			updated_at = EXCLUDED.updated_at
		WHERE pharmacies.updated_at <= EXCLUDED.updated_at
	`, p.ID, p.Name, p.BusinessHoursText, p.UpdatedAt)
	if err != nil {
		return false, classify("upsert pharmacy", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeletePharmacy removes a pharmacy from the local directory. Appointments
// referencing it stay in place and drop out of upcoming listings.
func (r *Repository) DeletePharmacy(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pharmacies WHERE id = $1`, id)
	return classify("delete pharmacy", err)
}
