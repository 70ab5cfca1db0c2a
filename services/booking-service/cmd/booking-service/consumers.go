package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
	"github.com/segmentio/kafka-go"
)

const identityChangedTopic = "patient.identity.changed.v1"

var errInvalidIdentityChange = errors.New("invalid identity change")

type identityChangedPayload struct {
	PatientID string    `json:"patient_id"`
	ChangedAt time.Time `json:"changed_at"`
}

func decodeIdentityChange(b []byte) (session.IdentityChange, error) {
	var p identityChangedPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return session.IdentityChange{}, errors.Join(errInvalidIdentityChange, err)
	}
	id := strings.TrimSpace(p.PatientID)
	if id == "" {
		return session.IdentityChange{}, errInvalidIdentityChange
	}
	return session.IdentityChange{PatientID: id, At: p.ChangedAt}, nil
}

// identityGroupID returns a consumer group owned by this process alone, so
// every replica receives every identity change. A fresh group starts at the
// earliest retained offset and rebuilds revocations after a restart.
func identityGroupID(base string) string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "local"
	}
	return base + "-identity-" + host + "-" + uuid.NewString()[:8]
}

// directoryHandler applies pharmacy updates. Malformed payloads are dropped
// since redelivery cannot fix them.
func directoryHandler(syncer *directory.Syncer, logger *slog.Logger) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		u, err := directory.DecodeUpdate(msg.Value)
		if err != nil {
			logger.Error("invalid directory update", "err", err, "topic", msg.Topic)
			return nil
		}
		return syncer.Apply(ctx, u)
	}
}

// identityHandler forwards identity changes to the binder's channel.
func identityHandler(changes chan<- session.IdentityChange, logger *slog.Logger) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		change, err := decodeIdentityChange(msg.Value)
		if err != nil {
			logger.Error("invalid identity change", "err", err, "topic", msg.Topic)
			return nil
		}
		// Replayed events keep their original time instead of revoking as of now.
		if change.At.IsZero() {
			change.At = msg.Time
		}
		select {
		case changes <- change:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
