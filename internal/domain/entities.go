// Package domain defines the entities and business logic for the fitness backend.
package domain

import "time"

// WorkoutStatus represents the lifecycle state of a workout session.
type WorkoutStatus string

const (
	WorkoutStatusPlanned    WorkoutStatus = "planned"
	WorkoutStatusInProgress WorkoutStatus = "in_progress"
	WorkoutStatusCompleted  WorkoutStatus = "completed"
)

// SubscriptionTier gates numeric resource limits per user.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

// ExerciseCategory classifies catalog entries.
type ExerciseCategory string

const (
	CategoryStrength    ExerciseCategory = "strength"
	CategoryBodyWeight  ExerciseCategory = "body_weight"
	CategoryCardio      ExerciseCategory = "cardio"
	CategoryFlexibility ExerciseCategory = "flexibility"
	CategoryOther       ExerciseCategory = "other"
)

// SetType distinguishes how a performed set counts toward the session.
type SetType string

const (
	SetTypeWarmup  SetType = "warmup"
	SetTypeWorking SetType = "working"
	SetTypeDrop    SetType = "drop"
	SetTypeFailure SetType = "failure"
)

// User is an authenticated account. PasswordHash is a bcrypt digest.
type User struct {
	ID           string
	Email        string
	Username     string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subscription is the billing record read by the rules engine. It is written
// by an external billing collaborator, never by this service.
type Subscription struct {
	ID        string
	UserID    string
	Tier      SubscriptionTier
	IsActive  bool
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exercise is a catalog entry. Default exercises have IsDefault set and an
// empty CreatedByUserID; user-created ones carry their creator.
type Exercise struct {
	ID                    string
	Name                  string
	Description           string
	Category              ExerciseCategory
	PrimaryMuscleGroup    string
	SecondaryMuscleGroups []string
	Instructions          string
	IsDefault             bool
	CreatedByUserID       string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Workout is a dated session owned by exactly one user.
type Workout struct {
	ID          string
	UserID      string
	Name        string
	Notes       string
	Date        time.Time
	Status      WorkoutStatus
	DurationMin int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkoutExercise links a workout to a catalog exercise with an explicit
// display position. Ownership is transitively the workout's owner.
type WorkoutExercise struct {
	ID         string
	WorkoutID  string
	ExerciseID string
	Position   int
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExerciseSet is one performed set belonging to a workout exercise.
type ExerciseSet struct {
	ID                string
	WorkoutExerciseID string
	SetNumber         int
	Reps              int
	WeightKg          float64
	DurationSec       int
	DistanceM         float64
	SetType           SetType
	Completed         bool
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WorkoutExerciseDetail is a workout exercise with its catalog entry and sets
// eagerly loaded, ordered by set number.
type WorkoutExerciseDetail struct {
	WorkoutExercise
	Exercise Exercise
	Sets     []ExerciseSet
}

// WorkoutDetail is the full aggregate returned by create/get operations:
// the workout plus its exercises ordered by position.
type WorkoutDetail struct {
	Workout
	Exercises []WorkoutExerciseDetail
}
