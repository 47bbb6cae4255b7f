package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons reported on RegistrationsRejected.
const (
	ReasonMissingFields          = "missing_fields"
	ReasonInvalid                = "invalid"
	ReasonDuplicateEmail         = "duplicate_email"
	ReasonDuplicateTransactionID = "duplicate_transaction_id"
)

// Metrics holds the Prometheus collectors for the registration API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RegistrationsCreated  prometheus.Counter
	RegistrationsRejected *prometheus.CounterVec
	UploadsStoredTotal    prometheus.Counter
	UploadsSweptTotal     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "registrations_created_total",
			Help: "Total number of registrations stored",
		}),
		RegistrationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registrations_rejected_total",
			Help: "Total number of registration submissions rejected, by reason",
		}, []string{"reason"}),
		UploadsStoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "uploads_stored_total",
			Help: "Total number of payment proof files stored",
		}),
		UploadsSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "uploads_swept_total",
			Help: "Total number of unclaimed payment proof files removed",
		}),
	}
}

func (m *Metrics) RegistrationCreated() {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
}

func (m *Metrics) RegistrationRejected(reason string) {
	if m == nil {
		return
	}
	m.RegistrationsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) UploadStored() {
	if m == nil {
		return
	}
	m.UploadsStoredTotal.Inc()
}

func (m *Metrics) UploadsSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.UploadsSweptTotal.Add(float64(n))
}
