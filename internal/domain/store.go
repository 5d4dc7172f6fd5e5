package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDenied covers both a missing entity and an ownership mismatch. Callers
// must not be able to distinguish the two, so there is exactly one sentinel.
var ErrDenied = errors.New("not found or access denied")

// ExerciseFilter narrows catalog listings. Zero values mean "no filter".
type ExerciseFilter struct {
	Category     ExerciseCategory
	MuscleGroup  string
	Search       string
	CreatedBy    string
	DefaultsOnly bool
}

// UserStore captures persistence operations on accounts.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
}

// SubscriptionStore reads billing state. Absence is (nil, nil).
type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, userID string) (*Subscription, error)
}

// ExerciseStore captures persistence operations on the catalog.
// CreateExercise takes a per-creator ceiling; see WorkoutStore.
type ExerciseStore interface {
	GetExercise(ctx context.Context, id string) (*Exercise, error)
	ListExercises(ctx context.Context, filter ExerciseFilter) ([]Exercise, error)
	CreateExercise(ctx context.Context, exercise Exercise, maxPerCreator int) (bool, error)
	DeleteExercise(ctx context.Context, id string) error
	CountUserExercises(ctx context.Context, userID string) (int, error)
	ExerciseInUse(ctx context.Context, exerciseID string) (bool, error)
}

// WorkoutStore captures persistence operations on workouts and their
// children. Multi-entity writes execute inside a single transaction so a
// partial failure never leaves an orphaned child row. Missing rows are
// (nil, nil), never an error.
//
// Create operations take a ceiling and reserve a slot atomically: when the
// ceiling is positive and the owner already holds that many rows, the insert
// is refused and (false, nil) is returned. A ceiling of zero or below means
// unbounded. This keeps concurrent creates from slipping past a limit that
// was checked before the insert.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id string) (*Workout, error)
	GetWorkoutDetail(ctx context.Context, id string) (*WorkoutDetail, error)
	ListUserWorkouts(ctx context.Context, userID string, from, to *time.Time) ([]Workout, error)
	RecentUserWorkouts(ctx context.Context, userID string, limit int) ([]Workout, error)
	CreateWorkout(ctx context.Context, workout Workout, maxPerUser int) (bool, error)
	UpdateWorkout(ctx context.Context, workout Workout) error
	DeleteWorkout(ctx context.Context, id string) error
	CountUserWorkouts(ctx context.Context, userID string) (int, error)

	GetWorkoutExercise(ctx context.Context, id string) (*WorkoutExercise, error)
	GetWorkoutExerciseDetail(ctx context.Context, id string) (*WorkoutExerciseDetail, error)
	CreateWorkoutExercise(ctx context.Context, we WorkoutExercise, maxPerWorkout int) (bool, error)
	DeleteWorkoutExercise(ctx context.Context, id string) error
	CountWorkoutExercises(ctx context.Context, workoutID string) (int, error)

	GetSet(ctx context.Context, id string) (*ExerciseSet, error)
	CreateSet(ctx context.Context, set ExerciseSet, maxPerExercise int) (bool, error)
	UpdateSet(ctx context.Context, set ExerciseSet) error
	DeleteSet(ctx context.Context, id string) error
	CountSets(ctx context.Context, workoutExerciseID string) (int, error)
}

// Store is the full persistence gateway consumed by the services.
type Store interface {
	UserStore
	SubscriptionStore
	ExerciseStore
	WorkoutStore
}
