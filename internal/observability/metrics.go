package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitnote",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to Postgres.",
	})
	validationFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitnote",
		Subsystem: "rules",
		Name:      "validation_failures_total",
		Help:      "Business-rule validation failures by rule key.",
	}, []string{"rule"})
	workoutsCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitnote",
		Subsystem: "domain",
		Name:      "workouts_created_total",
		Help:      "Workouts successfully created.",
	})
	exercisesCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitnote",
		Subsystem: "domain",
		Name:      "exercises_created_total",
		Help:      "Custom exercises successfully created.",
	})
)

func init() {
	prometheus.MustRegister(
		workoutPersistGauge,
		validationFailureCounter,
		workoutsCreatedCounter,
		exercisesCreatedCounter,
	)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordValidationFailure counts a business-rule violation.
func RecordValidationFailure(rule string) {
	validationFailureCounter.WithLabelValues(rule).Inc()
}

// RecordWorkoutCreated counts a successful workout creation.
func RecordWorkoutCreated() {
	workoutsCreatedCounter.Inc()
}

// RecordExerciseCreated counts a successful custom-exercise creation.
func RecordExerciseCreated() {
	exercisesCreatedCounter.Inc()
}
