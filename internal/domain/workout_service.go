package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/fitnote/internal/observability"
)

// WorkoutService orchestrates workout use cases: it runs the rules engine,
// enforces ownership chains, performs the write and returns the freshly
// reloaded aggregate so server-computed fields are always reflected.
type WorkoutService struct {
	store Store
	rules *Rules
}

// NewWorkoutService constructs a WorkoutService.
func NewWorkoutService(store Store, rules *Rules) *WorkoutService {
	return &WorkoutService{store: store, rules: rules}
}

// CreateWorkoutInput captures the payload from the API layer.
type CreateWorkoutInput struct {
	Name        string
	Notes       string
	Date        time.Time
	DurationMin int
}

// UpdateWorkoutInput applies a partial update: nil fields leave the stored
// value unchanged.
type UpdateWorkoutInput struct {
	Name        *string
	Notes       *string
	Date        *time.Time
	Status      *WorkoutStatus
	DurationMin *int
}

// AddExerciseInput links a catalog exercise to a workout at an explicit
// position. No server-side renumbering happens.
type AddExerciseInput struct {
	WorkoutID  string
	ExerciseID string
	Position   int
	Notes      string
}

// AddSetInput captures one performed set.
type AddSetInput struct {
	WorkoutExerciseID string
	SetNumber         int
	Reps              int
	WeightKg          float64
	DurationSec       int
	DistanceM         float64
	SetType           SetType
	Completed         bool
	Notes             string
}

// UpdateSetInput applies a partial update to a set.
type UpdateSetInput struct {
	SetNumber   *int
	Reps        *int
	WeightKg    *float64
	DurationSec *int
	DistanceM   *float64
	SetType     *SetType
	Completed   *bool
	Notes       *string
}

// CreateWorkout validates the creation and subscription limits, persists the
// workout and returns the reloaded aggregate. Any validation failure aborts
// with no partial write.
func (s *WorkoutService) CreateWorkout(ctx context.Context, input CreateWorkoutInput, userID string) (*WorkoutDetail, error) {
	result, err := s.rules.ValidateWorkoutCreation(ctx, userID, input.Date)
	if err != nil {
		return nil, err
	}
	subResult, err := s.rules.ValidateSubscriptionLimits(ctx, userID, OpCreateWorkout)
	if err != nil {
		return nil, err
	}
	result.Violations = append(result.Violations, subResult.Violations...)
	if !result.Valid() {
		return nil, &ValidationError{Result: result}
	}

	now := time.Now().UTC()
	workout := Workout{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        input.Name,
		Notes:       input.Notes,
		Date:        input.Date.UTC(),
		Status:      WorkoutStatusPlanned,
		DurationMin: input.DurationMin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ceiling, err := s.rules.WorkoutCeiling(ctx, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateWorkout(ctx, workout, ceiling)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent create took the last slot between validation and
		// the insert.
		result.Add("workout_limit", fmt.Sprintf("maximum number of workouts (%d) reached", ceiling))
		return nil, &ValidationError{Result: result}
	}
	observability.RecordWorkoutCreated()
	observability.RecordWorkoutPersisted(now)

	return s.reloadWorkout(ctx, workout.ID)
}

// GetWorkout returns the aggregate, hiding existence from non-owners.
func (s *WorkoutService) GetWorkout(ctx context.Context, id, userID string) (*WorkoutDetail, error) {
	detail, err := s.store.GetWorkoutDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil || detail.UserID != userID {
		return nil, ErrDenied
	}
	return detail, nil
}

// ListWorkouts returns the user's workouts, optionally bounded by date.
func (s *WorkoutService) ListWorkouts(ctx context.Context, userID string, from, to *time.Time) ([]Workout, error) {
	return s.store.ListUserWorkouts(ctx, userID, from, to)
}

// RecentWorkouts returns the most recent sessions for the user.
func (s *WorkoutService) RecentWorkouts(ctx context.Context, userID string, limit int) ([]Workout, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.RecentUserWorkouts(ctx, userID, limit)
}

// UpdateWorkout applies the fields present in the input, stamps the update
// timestamp and returns the reloaded aggregate.
func (s *WorkoutService) UpdateWorkout(ctx context.Context, id string, input UpdateWorkoutInput, userID string) (*WorkoutDetail, error) {
	workout, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	if workout == nil || workout.UserID != userID {
		return nil, ErrDenied
	}

	if input.Name != nil {
		workout.Name = *input.Name
	}
	if input.Notes != nil {
		workout.Notes = *input.Notes
	}
	if input.Date != nil {
		workout.Date = input.Date.UTC()
	}
	if input.Status != nil {
		workout.Status = *input.Status
	}
	if input.DurationMin != nil {
		workout.DurationMin = *input.DurationMin
	}
	workout.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateWorkout(ctx, *workout); err != nil {
		return nil, err
	}

	return s.reloadWorkout(ctx, workout.ID)
}

// DeleteWorkout removes the workout and its children after the ownership
// check. Deleting an already-gone workout reports ErrDenied.
func (s *WorkoutService) DeleteWorkout(ctx context.Context, id, userID string) error {
	workout, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return err
	}
	if workout == nil || workout.UserID != userID {
		return ErrDenied
	}
	return s.store.DeleteWorkout(ctx, id)
}

// AddExerciseToWorkout verifies workout ownership and exercise existence,
// then creates the link. The exercise may be any catalog entry, not
// necessarily one the caller created.
func (s *WorkoutService) AddExerciseToWorkout(ctx context.Context, input AddExerciseInput, userID string) (*WorkoutExerciseDetail, error) {
	result, err := s.rules.ValidateExerciseAddition(ctx, userID, input.WorkoutID)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		if result.Violations[0].Key == "workout_access" {
			return nil, ErrDenied
		}
		return nil, &ValidationError{Result: result}
	}

	exercise, err := s.store.GetExercise(ctx, input.ExerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrDenied
	}

	now := time.Now().UTC()
	we := WorkoutExercise{
		ID:         uuid.NewString(),
		WorkoutID:  input.WorkoutID,
		ExerciseID: input.ExerciseID,
		Position:   input.Position,
		Notes:      input.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.store.CreateWorkoutExercise(ctx, we, s.rules.ExercisesPerWorkoutCeiling())
	if err != nil {
		return nil, err
	}
	if !created {
		result.Add("exercise_limit", fmt.Sprintf("maximum number of exercises per workout (%d) reached", s.rules.ExercisesPerWorkoutCeiling()))
		return nil, &ValidationError{Result: result}
	}

	detail, err := s.store.GetWorkoutExerciseDetail(ctx, we.ID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("workout exercise %s vanished after create", we.ID)
	}
	return detail, nil
}

// RemoveExerciseFromWorkout deletes the link and its sets after walking the
// ownership chain.
func (s *WorkoutService) RemoveExerciseFromWorkout(ctx context.Context, workoutExerciseID, userID string) error {
	we, err := s.store.GetWorkoutExercise(ctx, workoutExerciseID)
	if err != nil {
		return err
	}
	if we == nil {
		return ErrDenied
	}
	workout, err := s.store.GetWorkout(ctx, we.WorkoutID)
	if err != nil {
		return err
	}
	if workout == nil || workout.UserID != userID {
		return ErrDenied
	}
	return s.store.DeleteWorkoutExercise(ctx, workoutExerciseID)
}

// AddSet validates the set addition and persists the set.
func (s *WorkoutService) AddSet(ctx context.Context, input AddSetInput, userID string) (*ExerciseSet, error) {
	result, err := s.rules.ValidateSetAddition(ctx, userID, input.WorkoutExerciseID)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		switch result.Violations[0].Key {
		case "workout_exercise_not_found", "workout_access":
			return nil, ErrDenied
		}
		return nil, &ValidationError{Result: result}
	}

	now := time.Now().UTC()
	set := ExerciseSet{
		ID:                uuid.NewString(),
		WorkoutExerciseID: input.WorkoutExerciseID,
		SetNumber:         input.SetNumber,
		Reps:              input.Reps,
		WeightKg:          input.WeightKg,
		DurationSec:       input.DurationSec,
		DistanceM:         input.DistanceM,
		SetType:           input.SetType,
		Completed:         input.Completed,
		Notes:             input.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if set.SetType == "" {
		set.SetType = SetTypeWorking
	}

	created, err := s.store.CreateSet(ctx, set, s.rules.SetsPerExerciseCeiling())
	if err != nil {
		return nil, err
	}
	if !created {
		result.Add("set_limit", fmt.Sprintf("maximum number of sets per exercise (%d) reached", s.rules.SetsPerExerciseCeiling()))
		return nil, &ValidationError{Result: result}
	}
	return s.store.GetSet(ctx, set.ID)
}

// UpdateSet verifies the full three-level ownership chain before the write.
func (s *WorkoutService) UpdateSet(ctx context.Context, setID string, input UpdateSetInput, userID string) (*ExerciseSet, error) {
	set, err := s.ownedSet(ctx, setID, userID)
	if err != nil {
		return nil, err
	}

	if input.SetNumber != nil {
		set.SetNumber = *input.SetNumber
	}
	if input.Reps != nil {
		set.Reps = *input.Reps
	}
	if input.WeightKg != nil {
		set.WeightKg = *input.WeightKg
	}
	if input.DurationSec != nil {
		set.DurationSec = *input.DurationSec
	}
	if input.DistanceM != nil {
		set.DistanceM = *input.DistanceM
	}
	if input.SetType != nil {
		set.SetType = *input.SetType
	}
	if input.Completed != nil {
		set.Completed = *input.Completed
	}
	if input.Notes != nil {
		set.Notes = *input.Notes
	}
	set.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSet(ctx, *set); err != nil {
		return nil, err
	}
	return s.store.GetSet(ctx, set.ID)
}

// DeleteSet removes the set after the ownership chain check. A second delete
// of the same id reports ErrDenied because the set is already gone.
func (s *WorkoutService) DeleteSet(ctx context.Context, setID, userID string) error {
	if _, err := s.ownedSet(ctx, setID, userID); err != nil {
		return err
	}
	return s.store.DeleteSet(ctx, setID)
}

// ownedSet walks Set -> WorkoutExercise -> Workout -> User and returns the
// set only when the chain terminates at the caller.
func (s *WorkoutService) ownedSet(ctx context.Context, setID, userID string) (*ExerciseSet, error) {
	set, err := s.store.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, ErrDenied
	}
	we, err := s.store.GetWorkoutExercise(ctx, set.WorkoutExerciseID)
	if err != nil {
		return nil, err
	}
	if we == nil {
		return nil, ErrDenied
	}
	workout, err := s.store.GetWorkout(ctx, we.WorkoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil || workout.UserID != userID {
		return nil, ErrDenied
	}
	return set, nil
}

func (s *WorkoutService) reloadWorkout(ctx context.Context, id string) (*WorkoutDetail, error) {
	detail, err := s.store.GetWorkoutDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("workout %s vanished after write", id)
	}
	return detail, nil
}
