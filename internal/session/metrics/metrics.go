package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginsTotal      *prometheus.CounterVec
	LoginFailures    prometheus.Counter
	SessionsRestored prometheus.Counter
	SessionsExpired  prometheus.Counter
	Logouts          prometheus.Counter
	ProfileUpdates   prometheus.Counter
	UsersRegistered  prometheus.Counter
}

// New registers the session metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-provided registry. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not panic.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imovan_session_logins_total",
			Help: "Total number of successful logins, labeled by storage tier",
		}, []string{"tier"}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_session_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		SessionsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_session_restored_total",
			Help: "Total number of sessions restored from a persisted record",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_session_expired_total",
			Help: "Total number of persisted records found expired at read time",
		}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_session_logouts_total",
			Help: "Total number of logouts",
		}),
		ProfileUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_profile_updates_total",
			Help: "Total number of profile updates",
		}),
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "imovan_users_registered_total",
			Help: "Total number of registered users",
		}),
	}
}

func (m *Metrics) IncrementLogins(tier string) {
	m.LoginsTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	m.LoginFailures.Inc()
}

func (m *Metrics) IncrementSessionsRestored() {
	m.SessionsRestored.Inc()
}

func (m *Metrics) IncrementSessionsExpired() {
	m.SessionsExpired.Inc()
}

func (m *Metrics) IncrementLogouts() {
	m.Logouts.Inc()
}

func (m *Metrics) IncrementProfileUpdates() {
	m.ProfileUpdates.Inc()
}

func (m *Metrics) IncrementUsersRegistered() {
	m.UsersRegistered.Inc()
}
