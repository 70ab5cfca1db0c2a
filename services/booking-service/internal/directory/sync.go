package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
)

// UpdatedTopic carries pharmacy directory changes published by pharmacy
// administration.
const UpdatedTopic = "pharmacy.directory.updated.v1"

// Update is the payload of a directory change event.
type Update struct {
	PharmacyID        string    `json:"pharmacy_id"`
	Name              string    `json:"name"`
	BusinessHoursText string    `json:"business_hours_text"`
	UpdatedAt         time.Time `json:"updated_at"`
	Deleted           bool      `json:"deleted"`
}

var ErrInvalidUpdate = errors.New("invalid directory update")

func DecodeUpdate(b []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(b, &u); err != nil {
		return Update{}, errors.Join(ErrInvalidUpdate, err)
	}
	u.PharmacyID = strings.TrimSpace(u.PharmacyID)
	if u.PharmacyID == "" {
		return Update{}, ErrInvalidUpdate
	}
	if !u.Deleted && strings.TrimSpace(u.Name) == "" {
		return Update{}, ErrInvalidUpdate
	}
	return u, nil
}

// Store persists the local copy of the directory.
type Store interface {
	UpsertPharmacy(ctx context.Context, p model.Pharmacy) (bool, error)
	DeletePharmacy(ctx context.Context, id string) error
}

// Syncer applies directory updates to the local table and evicts the cache.
type Syncer struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

func NewSyncer(store Store, cache *Cache, logger *slog.Logger) *Syncer {
	return &Syncer{store: store, cache: cache, logger: logger}
}

func (s *Syncer) Apply(ctx context.Context, u Update) error {
	if u.Deleted {
		if err := s.store.DeletePharmacy(ctx, u.PharmacyID); err != nil {
			return err
		}
	} else {
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = time.Now().UTC()
		}
		changed, err := s.store.UpsertPharmacy(ctx, model.Pharmacy{
			ID:                u.PharmacyID,
			Name:              strings.TrimSpace(u.Name),
			BusinessHoursText: u.BusinessHoursText,
			UpdatedAt:         u.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if !changed {
			s.logger.Info("stale directory update ignored", "pharmacy_id", u.PharmacyID)
			return nil
		}
	}
	if err := s.cache.Evict(ctx, u.PharmacyID); err != nil {
		s.logger.Warn("directory cache evict failed", "pharmacy_id", u.PharmacyID, "err", err)
	}
	s.logger.Info("directory updated", "pharmacy_id", u.PharmacyID, "deleted", u.Deleted)
	return nil
}
