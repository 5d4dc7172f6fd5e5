package domain_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/fitnote/internal/domain"
	"example.com/fitnote/internal/persistence/memory"
)

func newExerciseService(store *memory.Store) *domain.ExerciseService {
	return domain.NewExerciseService(store, domain.NewRules(store, testLimits))
}

func TestCreateExerciseStampsCreator(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newExerciseService(store)

	created, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
		Name:               "Cable Row",
		Category:           domain.CategoryStrength,
		PrimaryMuscleGroup: "back",
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", created.CreatedByUserID)
	require.False(t, created.IsDefault)
	require.NotEmpty(t, created.ID)
}

func TestCreateExerciseSubscriptionLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newExerciseService(store)

	// Free tier allows five custom exercises.
	for i := 0; i < 5; i++ {
		_, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
			Name:               "Custom",
			Category:           domain.CategoryOther,
			PrimaryMuscleGroup: "core",
		}, "user-1")
		require.NoError(t, err)
	}

	_, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
		Name:               "One Too Many",
		Category:           domain.CategoryOther,
		PrimaryMuscleGroup: "core",
	}, "user-1")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "subscription_limit", valErr.Result.Violations[0].Key)
}

func TestGetExerciseMissing(t *testing.T) {
	ctx := context.Background()
	svc := newExerciseService(memory.NewStore())

	_, err := svc.GetExercise(ctx, "no-such-exercise")
	require.ErrorIs(t, err, domain.ErrDenied)
}

func TestListExercisesFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newExerciseService(store)

	_, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
		Name:               "Zercher Squat",
		Category:           domain.CategoryStrength,
		PrimaryMuscleGroup: "quadriceps",
	}, "user-1")
	require.NoError(t, err)

	defaults, err := svc.ListExercises(ctx, domain.ExerciseFilter{DefaultsOnly: true})
	require.NoError(t, err)
	for _, ex := range defaults {
		require.True(t, ex.IsDefault)
	}

	mine, err := svc.ListExercises(ctx, domain.ExerciseFilter{CreatedBy: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Zercher Squat", mine[0].Name)

	chest, err := svc.ListExercises(ctx, domain.ExerciseFilter{MuscleGroup: "chest"})
	require.NoError(t, err)
	require.NotEmpty(t, chest)
}

func TestDeleteExerciseRules(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newExerciseService(store)

	// Defaults are never deletable, regardless of caller.
	def := defaultExercise(t, store)
	require.ErrorIs(t, svc.DeleteExercise(ctx, def.ID, "user-1"), domain.ErrDenied)

	created, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
		Name:               "Custom Curl",
		Category:           domain.CategoryStrength,
		PrimaryMuscleGroup: "biceps",
	}, "user-1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteExercise(ctx, created.ID, "someone-else"), domain.ErrDenied)
	require.ErrorIs(t, svc.DeleteExercise(ctx, "no-such-exercise", "user-1"), domain.ErrDenied)

	require.NoError(t, svc.DeleteExercise(ctx, created.ID, "user-1"))
	_, err = svc.GetExercise(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrDenied)
}

func TestDeleteExerciseInUse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newExerciseService(store)

	created, err := svc.CreateExercise(ctx, domain.CreateExerciseInput{
		Name:               "Landmine Press",
		Category:           domain.CategoryStrength,
		PrimaryMuscleGroup: "shoulders",
	}, "user-1")
	require.NoError(t, err)

	ids := seedWorkouts(t, store, "user-1", 1)
	linked, err := store.CreateWorkoutExercise(ctx, domain.WorkoutExercise{
		ID:         uuid.NewString(),
		WorkoutID:  ids[0],
		ExerciseID: created.ID,
	}, 0)
	require.NoError(t, err)
	require.True(t, linked)

	require.ErrorIs(t, svc.DeleteExercise(ctx, created.ID, "user-1"), domain.ErrDenied)

	// Still present.
	_, err = svc.GetExercise(ctx, created.ID)
	require.NoError(t, err)
}
