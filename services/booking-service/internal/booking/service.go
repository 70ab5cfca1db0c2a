package booking

import (
	"context"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/pharmavisit/libs/otel"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence boundary. Implementations enforce the active slot
// uniqueness key and report violations as ErrSlotConflict.
type Store interface {
	BookedFor(ctx context.Context, pharmacyID, localDate string) ([]time.Time, error)
	InsertAppointment(ctx context.Context, appt model.Appointment) error
	InsertPayment(ctx context.Context, rec model.PaymentRecord) error
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	PaymentFor(ctx context.Context, appointmentID string) (model.PaymentRecord, bool, error)
	SetCheckoutSession(ctx context.Context, paymentID, sessionID string) error
	MarkPaid(ctx context.Context, paymentID, sessionID string, paidAt time.Time) (bool, error)
	UpcomingRows(ctx context.Context, patientID, fromDate string) ([]UpcomingRow, error)
}

// Directory resolves pharmacies. Missing pharmacies yield ErrPharmacyNotFound.
type Directory interface {
	GetPharmacy(ctx context.Context, id string) (model.Pharmacy, error)
}

// Guard refuses sessions whose identity binding is no longer current.
type Guard interface {
	Validate(s session.Session) error
}

// Checkout starts hosted card payments.
type Checkout interface {
	Create(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error)
}

// UpcomingRow is one appointment joined with its pharmacy and latest payment.
// PharmacyName is nil when the pharmacy link cannot be resolved.
type UpcomingRow struct {
	Appointment  model.Appointment
	PharmacyName *string
	Payment      *model.PaymentRecord
}

type Service struct {
	store        Store
	directory    Directory
	logger       *slog.Logger
	now          func() time.Time
	guard        Guard
	checkout     Checkout
	tracer       trace.Tracer
	metrics      *Metrics
	writeTimeout time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithGuard(g Guard) Option {
	return func(s *Service) { s.guard = g }
}

func WithCheckout(c Checkout) Option {
	return func(s *Service) { s.checkout = c }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithWriteTimeout bounds the booking writes, which run detached from the
// caller's cancellation once validation passes.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func NewService(store Store, directory Directory, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		directory:    directory,
		logger:       logger,
		now:          time.Now,
		tracer:       otelx.Tracer("booking"),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) checkSession(sess session.Session) error {
	if !sess.Bound() {
		return session.ErrNoPatient
	}
	if s.guard != nil {
		return s.guard.Validate(sess)
	}
	return nil
}

// Metrics counts booking outcomes.
type Metrics struct {
	Outcomes     *prometheus.CounterVec
	SlotsOffered prometheus.Histogram
	Rejected     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmavisit",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking attempts by outcome.",
		}, []string{"outcome"}),
		SlotsOffered: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pharmavisit",
			Subsystem: "booking",
			Name:      "slots_offered",
			Help:      "Number of slots returned per availability query.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 48},
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pharmavisit",
			Subsystem: "booking",
			Name:      "hours_fragments_rejected_total",
			Help:      "Business-hours fragments that produced no slots.",
		}),
	}
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.Outcomes.WithLabelValues(outcome).Inc()
	}
}
