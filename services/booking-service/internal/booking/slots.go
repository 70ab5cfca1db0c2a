package booking

import (
	"context"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Available returns the slots a patient may still book at a pharmacy on
// localDate, observed in the session's zone. Results are computed fresh on
// every call.
func (s *Service) Available(ctx context.Context, sess session.Session, pharmacyID, localDate string) ([]availability.TimeOfDay, error) {
	if err := s.checkSession(sess); err != nil {
		return nil, err
	}
	pharmacyID = strings.TrimSpace(pharmacyID)
	localDate = strings.TrimSpace(localDate)

	var bad []string
	if pharmacyID == "" {
		bad = append(bad, "pharmacy_id")
	}
	if _, err := time.Parse(availability.DateFormat, localDate); err != nil {
		bad = append(bad, "date")
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad}
	}

	ctx, span := s.tracer.Start(ctx, "booking.available", trace.WithAttributes(
		attribute.String("pharmacy.id", pharmacyID),
		attribute.String("booking.local_date", localDate),
	))
	defer span.End()

	pharmacy, err := s.directory.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pharmacy lookup failed")
		return nil, err
	}

	template, rejected := availability.ParseBusinessHours(pharmacy.BusinessHoursText)
	for _, r := range rejected {
		s.logger.Warn("business hours fragment ignored",
			"pharmacy_id", pharmacyID,
			"fragment", r.Fragment,
			"reason", r.Reason,
		)
	}
	if s.metrics != nil && len(rejected) > 0 {
		s.metrics.Rejected.Add(float64(len(rejected)))
	}

	booked, err := s.store.BookedFor(ctx, pharmacyID, localDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booked query failed")
		return nil, err
	}

	slots := availability.Available(template, booked, localDate, s.now(), sess.Loc())
	span.SetAttributes(attribute.Int("booking.slots", len(slots)))
	if s.metrics != nil {
		s.metrics.SlotsOffered.Observe(float64(len(slots)))
	}
	return slots, nil
}
