package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	checkIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewtime",
			Name:      "checkin_total",
			Help:      "Count of successful check-ins by hall and role.",
		},
		[]string{"hall", "role"},
	)

	checkOuts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewtime",
			Name:      "checkout_total",
			Help:      "Count of successful check-outs by hall and role.",
		},
		[]string{"hall", "role"},
	)

	checkInConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crewtime",
			Name:      "checkin_conflict_total",
			Help:      "Count of check-ins rejected because the slot was already open.",
		},
	)

	pinFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crewtime",
			Name:      "pin_failure_total",
			Help:      "Count of rejected check-in time corrections (wrong PIN).",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewtime",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(checkIns, checkOuts, checkInConflicts, pinFailures, httpRequests)
	})
}

func IncCheckIn(hall, role string) {
	checkIns.WithLabelValues(hall, role).Inc()
}

func IncCheckOut(hall, role string) {
	checkOuts.WithLabelValues(hall, role).Inc()
}

func IncCheckInConflict() {
	checkInConflicts.Inc()
}

func IncPINFailure() {
	pinFailures.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
