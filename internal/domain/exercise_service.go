package domain

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/fitnote/internal/observability"
)

// ExerciseService manages the exercise catalog.
type ExerciseService struct {
	store Store
	rules *Rules
}

// NewExerciseService constructs an ExerciseService.
func NewExerciseService(store Store, rules *Rules) *ExerciseService {
	return &ExerciseService{store: store, rules: rules}
}

// CreateExerciseInput captures the payload from the API layer.
type CreateExerciseInput struct {
	Name                  string
	Description           string
	Category              ExerciseCategory
	PrimaryMuscleGroup    string
	SecondaryMuscleGroups []string
	Instructions          string
}

// CreateExercise validates the subscription limit and persists the catalog
// entry. Callers can never create default exercises.
func (s *ExerciseService) CreateExercise(ctx context.Context, input CreateExerciseInput, userID string) (*Exercise, error) {
	result, err := s.rules.ValidateSubscriptionLimits(ctx, userID, OpCreateExercise)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, &ValidationError{Result: result}
	}

	now := time.Now().UTC()
	exercise := Exercise{
		ID:                    uuid.NewString(),
		Name:                  input.Name,
		Description:           input.Description,
		Category:              input.Category,
		PrimaryMuscleGroup:    input.PrimaryMuscleGroup,
		SecondaryMuscleGroups: input.SecondaryMuscleGroups,
		Instructions:          input.Instructions,
		IsDefault:             false,
		CreatedByUserID:       userID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	ceiling, err := s.rules.CustomExerciseCeiling(ctx, userID)
	if err != nil {
		return nil, err
	}
	inserted, err := s.store.CreateExercise(ctx, exercise, ceiling)
	if err != nil {
		return nil, err
	}
	if !inserted {
		result.Add("subscription_limit", fmt.Sprintf("your subscription allows up to %d custom exercises", ceiling))
		return nil, &ValidationError{Result: result}
	}
	observability.RecordExerciseCreated()

	created, err := s.store.GetExercise(ctx, exercise.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("exercise %s vanished after create", exercise.ID)
	}
	return created, nil
}

// GetExercise returns a catalog entry. The catalog is readable by any caller.
func (s *ExerciseService) GetExercise(ctx context.Context, id string) (*Exercise, error) {
	exercise, err := s.store.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrDenied
	}
	return exercise, nil
}

// ListExercises returns catalog entries matching the filter.
func (s *ExerciseService) ListExercises(ctx context.Context, filter ExerciseFilter) ([]Exercise, error) {
	return s.store.ListExercises(ctx, filter)
}

// DeleteExercise removes a catalog entry. Only the creator may delete it,
// default exercises are never deletable here, and an exercise still
// referenced by any workout stays put.
func (s *ExerciseService) DeleteExercise(ctx context.Context, id, userID string) error {
	exercise, err := s.store.GetExercise(ctx, id)
	if err != nil {
		return err
	}
	if exercise == nil || exercise.IsDefault || exercise.CreatedByUserID != userID {
		return ErrDenied
	}

	inUse, err := s.store.ExerciseInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		log.Printf("exercise: refused delete of %s, still referenced by a workout", id)
		return ErrDenied
	}

	return s.store.DeleteExercise(ctx, id)
}
