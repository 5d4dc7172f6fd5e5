package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitnote/internal/domain"
	"example.com/fitnote/internal/persistence/memory"
)

func newWorkoutService(store *memory.Store, limits domain.Limits) *domain.WorkoutService {
	return domain.NewWorkoutService(store, domain.NewRules(store, limits))
}

func defaultExercise(t *testing.T, store *memory.Store) domain.Exercise {
	t.Helper()
	catalog, err := store.ListExercises(context.Background(), domain.ExerciseFilter{DefaultsOnly: true})
	require.NoError(t, err)
	require.NotEmpty(t, catalog)
	return catalog[0]
}

func TestCreateWorkout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	date := time.Now().Add(24 * time.Hour)
	detail, err := svc.CreateWorkout(ctx, domain.CreateWorkoutInput{
		Name:        "Push Day",
		Notes:       "focus on chest",
		Date:        date,
		DurationMin: 60,
	}, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, detail.ID)
	require.Equal(t, "user-1", detail.UserID)
	require.Equal(t, domain.WorkoutStatusPlanned, detail.Status)
	require.Equal(t, date.UTC(), detail.Date)
	require.Empty(t, detail.Exercises)

	count, err := store.CountUserWorkouts(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCreateWorkoutSubscriptionLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	seedWorkouts(t, store, "user-1", 10)

	_, err := svc.CreateWorkout(ctx, domain.CreateWorkoutInput{
		Name: "One Too Many",
		Date: time.Now(),
	}, "user-1")

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Result.Violations, 1)
	require.Equal(t, "subscription_limit", valErr.Result.Violations[0].Key)

	// Nothing was written.
	count, err := store.CountUserWorkouts(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 10, count)
}

func TestCreateWorkoutCollectsAllViolations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, domain.Limits{MaxWorkoutsPerUser: 1, MaxExercisesPerWorkout: 50, MaxSetsPerExercise: 100})

	seedWorkouts(t, store, "user-1", 1)

	_, err := svc.CreateWorkout(ctx, domain.CreateWorkoutInput{
		Name: "Far Future",
		Date: time.Now().AddDate(2, 0, 0),
	}, "user-1")

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	keys := make([]string, 0, len(valErr.Result.Violations))
	for _, v := range valErr.Result.Violations {
		keys = append(keys, v.Key)
	}
	require.Contains(t, keys, "workout_limit")
	require.Contains(t, keys, "date_invalid")
}

func TestGetWorkoutHidesOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "owner", 1)

	_, err := svc.GetWorkout(ctx, ids[0], "intruder")
	require.ErrorIs(t, err, domain.ErrDenied)

	_, err = svc.GetWorkout(ctx, "no-such-workout", "owner")
	require.ErrorIs(t, err, domain.ErrDenied)

	detail, err := svc.GetWorkout(ctx, ids[0], "owner")
	require.NoError(t, err)
	require.Equal(t, ids[0], detail.ID)
}

func TestUpdateWorkoutPartial(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	detail, err := svc.CreateWorkout(ctx, domain.CreateWorkoutInput{
		Name:  "Leg Day",
		Notes: "original notes",
		Date:  time.Now(),
	}, "user-1")
	require.NoError(t, err)

	name := "Leg Day v2"
	status := domain.WorkoutStatusCompleted
	updated, err := svc.UpdateWorkout(ctx, detail.ID, domain.UpdateWorkoutInput{
		Name:   &name,
		Status: &status,
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, "Leg Day v2", updated.Name)
	require.Equal(t, domain.WorkoutStatusCompleted, updated.Status)
	require.Equal(t, "original notes", updated.Notes)
	require.False(t, updated.UpdatedAt.Before(detail.UpdatedAt))

	_, err = svc.UpdateWorkout(ctx, detail.ID, domain.UpdateWorkoutInput{Name: &name}, "intruder")
	require.ErrorIs(t, err, domain.ErrDenied)
}

func TestDeleteWorkoutTwice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "user-1", 1)

	require.NoError(t, svc.DeleteWorkout(ctx, ids[0], "user-1"))
	require.ErrorIs(t, svc.DeleteWorkout(ctx, ids[0], "user-1"), domain.ErrDenied)
}

func TestAddExerciseToWorkout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "user-1", 1)
	exercise := defaultExercise(t, store)

	detail, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
		Position:   1,
		Notes:      "slow negatives",
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, exercise.Name, detail.Exercise.Name)
	require.Equal(t, 1, detail.Position)
	require.Empty(t, detail.Sets)

	// The workout aggregate now includes the slot.
	workout, err := svc.GetWorkout(ctx, ids[0], "user-1")
	require.NoError(t, err)
	require.Len(t, workout.Exercises, 1)
}

func TestAddExerciseDenied(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "owner", 1)
	exercise := defaultExercise(t, store)

	_, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "intruder")
	require.ErrorIs(t, err, domain.ErrDenied)

	_, err = svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: "no-such-exercise",
	}, "owner")
	require.ErrorIs(t, err, domain.ErrDenied)
}

func TestAddExerciseLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, domain.Limits{MaxWorkoutsPerUser: 1000, MaxExercisesPerWorkout: 1, MaxSetsPerExercise: 100})

	ids := seedWorkouts(t, store, "user-1", 1)
	exercise := defaultExercise(t, store)

	_, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "user-1")
	require.NoError(t, err)

	_, err = svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
		Position:   2,
	}, "user-1")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "exercise_limit", valErr.Result.Violations[0].Key)
}

func TestAddSetDefaultsToWorking(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "user-1", 1)
	exercise := defaultExercise(t, store)
	slot, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "user-1")
	require.NoError(t, err)

	set, err := svc.AddSet(ctx, domain.AddSetInput{
		WorkoutExerciseID: slot.ID,
		SetNumber:         1,
		Reps:              8,
		WeightKg:          60,
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.SetTypeWorking, set.SetType)
	require.Equal(t, 8, set.Reps)
}

func TestAddSetDenied(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "owner", 1)
	exercise := defaultExercise(t, store)
	slot, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "owner")
	require.NoError(t, err)

	_, err = svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: slot.ID, SetNumber: 1}, "intruder")
	require.ErrorIs(t, err, domain.ErrDenied)

	_, err = svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: "no-such-slot", SetNumber: 1}, "owner")
	require.ErrorIs(t, err, domain.ErrDenied)
}

func TestAddSetLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, domain.Limits{MaxWorkoutsPerUser: 1000, MaxExercisesPerWorkout: 50, MaxSetsPerExercise: 2})

	ids := seedWorkouts(t, store, "user-1", 1)
	exercise := defaultExercise(t, store)
	slot, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "user-1")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		_, err = svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: slot.ID, SetNumber: i}, "user-1")
		require.NoError(t, err)
	}

	_, err = svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: slot.ID, SetNumber: 3}, "user-1")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "set_limit", valErr.Result.Violations[0].Key)
}

func TestUpdateAndDeleteSetOwnership(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "owner", 1)
	exercise := defaultExercise(t, store)
	slot, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "owner")
	require.NoError(t, err)

	set, err := svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: slot.ID, SetNumber: 1, Reps: 5}, "owner")
	require.NoError(t, err)

	reps := 6
	completed := true
	_, err = svc.UpdateSet(ctx, set.ID, domain.UpdateSetInput{Reps: &reps}, "intruder")
	require.ErrorIs(t, err, domain.ErrDenied)

	updated, err := svc.UpdateSet(ctx, set.ID, domain.UpdateSetInput{Reps: &reps, Completed: &completed}, "owner")
	require.NoError(t, err)
	require.Equal(t, 6, updated.Reps)
	require.True(t, updated.Completed)
	require.Equal(t, 1, updated.SetNumber)

	require.ErrorIs(t, svc.DeleteSet(ctx, set.ID, "intruder"), domain.ErrDenied)
	require.NoError(t, svc.DeleteSet(ctx, set.ID, "owner"))
	require.ErrorIs(t, svc.DeleteSet(ctx, set.ID, "owner"), domain.ErrDenied)
}

func TestRemoveExerciseCascadesSets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	ids := seedWorkouts(t, store, "user-1", 1)
	exercise := defaultExercise(t, store)
	slot, err := svc.AddExerciseToWorkout(ctx, domain.AddExerciseInput{
		WorkoutID:  ids[0],
		ExerciseID: exercise.ID,
	}, "user-1")
	require.NoError(t, err)

	set, err := svc.AddSet(ctx, domain.AddSetInput{WorkoutExerciseID: slot.ID, SetNumber: 1}, "user-1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.RemoveExerciseFromWorkout(ctx, slot.ID, "intruder"), domain.ErrDenied)
	require.NoError(t, svc.RemoveExerciseFromWorkout(ctx, slot.ID, "user-1"))

	gone, err := store.GetSet(ctx, set.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestRecentWorkoutsDefaultsLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	seedWorkouts(t, store, "user-1", 15)

	recent, err := svc.RecentWorkouts(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, recent, 10)

	// Newest first.
	for i := 1; i < len(recent); i++ {
		require.False(t, recent[i].Date.After(recent[i-1].Date))
	}
}

func TestListWorkoutsDateRange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newWorkoutService(store, testLimits)

	// seedWorkouts spaces sessions one day apart going backwards.
	seedWorkouts(t, store, "user-1", 5)

	from := time.Now().UTC().AddDate(0, 0, -2).Add(-time.Hour)
	workouts, err := svc.ListWorkouts(ctx, "user-1", &from, nil)
	require.NoError(t, err)
	require.Len(t, workouts, 3)
	for _, w := range workouts {
		require.False(t, w.Date.Before(from))
	}
}
