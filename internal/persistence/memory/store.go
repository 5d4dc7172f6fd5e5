// Package memory provides an in-memory Store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/fitnote/internal/domain"
)

// Store keeps all entities in maps guarded by one RWMutex.
type Store struct {
	mu               sync.RWMutex
	users            map[string]domain.User
	subscriptions    map[string]domain.Subscription
	exercises        map[string]domain.Exercise
	workouts         map[string]domain.Workout
	workoutExercises map[string]domain.WorkoutExercise
	sets             map[string]domain.ExerciseSet
}

// NewStore constructs a Store seeded with the default exercise catalog.
func NewStore() *Store {
	s := &Store{
		users:            make(map[string]domain.User),
		subscriptions:    make(map[string]domain.Subscription),
		exercises:        make(map[string]domain.Exercise),
		workouts:         make(map[string]domain.Workout),
		workoutExercises: make(map[string]domain.WorkoutExercise),
		sets:             make(map[string]domain.ExerciseSet),
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := []domain.Exercise{
		{
			Name:                  "Push-up",
			Description:           "Standard push-up exercise",
			Category:              domain.CategoryBodyWeight,
			PrimaryMuscleGroup:    "chest",
			SecondaryMuscleGroups: []string{"triceps", "shoulders"},
			Instructions:          "Start in plank position, lower body to ground, push back up",
		},
		{
			Name:                  "Bodyweight Squat",
			Description:           "Bodyweight squat",
			Category:              domain.CategoryBodyWeight,
			PrimaryMuscleGroup:    "quadriceps",
			SecondaryMuscleGroups: []string{"glutes", "calves"},
			Instructions:          "Stand with feet shoulder-width apart, lower body as if sitting back into chair",
		},
		{
			Name:                  "Bench Press",
			Description:           "Barbell bench press",
			Category:              domain.CategoryStrength,
			PrimaryMuscleGroup:    "chest",
			SecondaryMuscleGroups: []string{"triceps", "shoulders"},
			Instructions:          "Lie on bench, grip barbell, lower to chest, press up",
		},
		{
			Name:                  "Deadlift",
			Description:           "Conventional deadlift",
			Category:              domain.CategoryStrength,
			PrimaryMuscleGroup:    "hamstrings",
			SecondaryMuscleGroups: []string{"glutes", "back"},
			Instructions:          "Stand with feet hip-width apart, bend at hips and knees, lift barbell",
		},
	}

	now := time.Now().UTC()
	for _, ex := range defaults {
		ex.ID = uuid.NewString()
		ex.IsDefault = true
		ex.CreatedAt = now
		ex.UpdatedAt = now
		s.exercises[ex.ID] = ex
	}
}

// PutSubscription inserts or replaces a subscription record. Billing writes
// come from an external collaborator; this hook stands in for it in dev and
// tests.
func (s *Store) PutSubscription(sub domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	s.subscriptions[sub.ID] = sub
}

// GetUser implements domain.UserStore.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, nil
}

// GetUserByEmail implements domain.UserStore.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, nil
}

// CreateUser implements domain.UserStore.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// UpdateUser implements domain.UserStore.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// GetActiveSubscription implements domain.SubscriptionStore.
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.IsActive {
			return &sub, nil
		}
	}
	return nil, nil
}

// GetExercise implements domain.ExerciseStore.
func (s *Store) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.exercises[id]; ok {
		return &ex, nil
	}
	return nil, nil
}

// ListExercises implements domain.ExerciseStore.
func (s *Store) ListExercises(ctx context.Context, filter domain.ExerciseFilter) ([]domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Exercise, 0, len(s.exercises))
	for _, ex := range s.exercises {
		if filter.Category != "" && ex.Category != filter.Category {
			continue
		}
		if filter.MuscleGroup != "" && !matchesMuscleGroup(ex, filter.MuscleGroup) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(ex.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.CreatedBy != "" && ex.CreatedByUserID != filter.CreatedBy {
			continue
		}
		if filter.DefaultsOnly && !ex.IsDefault {
			continue
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchesMuscleGroup(ex domain.Exercise, group string) bool {
	if strings.EqualFold(ex.PrimaryMuscleGroup, group) {
		return true
	}
	for _, g := range ex.SecondaryMuscleGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// CreateExercise implements domain.ExerciseStore. The mutex serializes the
// count and the insert, so the ceiling holds under concurrent creates.
func (s *Store) CreateExercise(ctx context.Context, exercise domain.Exercise, maxPerCreator int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerCreator > 0 {
		count := 0
		for _, ex := range s.exercises {
			if ex.CreatedByUserID == exercise.CreatedByUserID {
				count++
			}
		}
		if count >= maxPerCreator {
			return false, nil
		}
	}
	s.exercises[exercise.ID] = exercise
	return true, nil
}

// DeleteExercise implements domain.ExerciseStore.
func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exercises, id)
	return nil
}

// CountUserExercises implements domain.ExerciseStore.
func (s *Store) CountUserExercises(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ex := range s.exercises {
		if ex.CreatedByUserID == userID {
			count++
		}
	}
	return count, nil
}

// ExerciseInUse implements domain.ExerciseStore.
func (s *Store) ExerciseInUse(ctx context.Context, exerciseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, we := range s.workoutExercises {
		if we.ExerciseID == exerciseID {
			return true, nil
		}
	}
	return false, nil
}

// GetWorkout implements domain.WorkoutStore.
func (s *Store) GetWorkout(ctx context.Context, id string) (*domain.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.workouts[id]; ok {
		return &w, nil
	}
	return nil, nil
}

// GetWorkoutDetail implements domain.WorkoutStore.
func (s *Store) GetWorkoutDetail(ctx context.Context, id string) (*domain.WorkoutDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workout, ok := s.workouts[id]
	if !ok {
		return nil, nil
	}

	detail := domain.WorkoutDetail{Workout: workout, Exercises: []domain.WorkoutExerciseDetail{}}
	for _, we := range s.workoutExercises {
		if we.WorkoutID != id {
			continue
		}
		detail.Exercises = append(detail.Exercises, s.workoutExerciseDetailLocked(we))
	}
	sort.Slice(detail.Exercises, func(i, j int) bool {
		return detail.Exercises[i].Position < detail.Exercises[j].Position
	})
	return &detail, nil
}

func (s *Store) workoutExerciseDetailLocked(we domain.WorkoutExercise) domain.WorkoutExerciseDetail {
	detail := domain.WorkoutExerciseDetail{
		WorkoutExercise: we,
		Exercise:        s.exercises[we.ExerciseID],
		Sets:            []domain.ExerciseSet{},
	}
	for _, set := range s.sets {
		if set.WorkoutExerciseID == we.ID {
			detail.Sets = append(detail.Sets, set)
		}
	}
	sort.Slice(detail.Sets, func(i, j int) bool {
		return detail.Sets[i].SetNumber < detail.Sets[j].SetNumber
	})
	return detail
}

// ListUserWorkouts implements domain.WorkoutStore.
func (s *Store) ListUserWorkouts(ctx context.Context, userID string, from, to *time.Time) ([]domain.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Workout, 0)
	for _, w := range s.workouts {
		if w.UserID != userID {
			continue
		}
		if from != nil && w.Date.Before(*from) {
			continue
		}
		if to != nil && w.Date.After(*to) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// RecentUserWorkouts implements domain.WorkoutStore.
func (s *Store) RecentUserWorkouts(ctx context.Context, userID string, limit int) ([]domain.Workout, error) {
	all, err := s.ListUserWorkouts(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CreateWorkout implements domain.WorkoutStore. The mutex serializes the
// count and the insert, so the ceiling holds under concurrent creates.
func (s *Store) CreateWorkout(ctx context.Context, workout domain.Workout, maxPerUser int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerUser > 0 {
		count := 0
		for _, w := range s.workouts {
			if w.UserID == workout.UserID {
				count++
			}
		}
		if count >= maxPerUser {
			return false, nil
		}
	}
	s.workouts[workout.ID] = workout
	return true, nil
}

// UpdateWorkout implements domain.WorkoutStore.
func (s *Store) UpdateWorkout(ctx context.Context, workout domain.Workout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts[workout.ID] = workout
	return nil
}

// DeleteWorkout implements domain.WorkoutStore. Children cascade.
func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for weID, we := range s.workoutExercises {
		if we.WorkoutID != id {
			continue
		}
		for setID, set := range s.sets {
			if set.WorkoutExerciseID == weID {
				delete(s.sets, setID)
			}
		}
		delete(s.workoutExercises, weID)
	}
	delete(s.workouts, id)
	return nil
}

// CountUserWorkouts implements domain.WorkoutStore.
func (s *Store) CountUserWorkouts(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, w := range s.workouts {
		if w.UserID == userID {
			count++
		}
	}
	return count, nil
}

// GetWorkoutExercise implements domain.WorkoutStore.
func (s *Store) GetWorkoutExercise(ctx context.Context, id string) (*domain.WorkoutExercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if we, ok := s.workoutExercises[id]; ok {
		return &we, nil
	}
	return nil, nil
}

// GetWorkoutExerciseDetail implements domain.WorkoutStore.
func (s *Store) GetWorkoutExerciseDetail(ctx context.Context, id string) (*domain.WorkoutExerciseDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	we, ok := s.workoutExercises[id]
	if !ok {
		return nil, nil
	}
	detail := s.workoutExerciseDetailLocked(we)
	return &detail, nil
}

// CreateWorkoutExercise implements domain.WorkoutStore.
func (s *Store) CreateWorkoutExercise(ctx context.Context, we domain.WorkoutExercise, maxPerWorkout int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerWorkout > 0 {
		count := 0
		for _, existing := range s.workoutExercises {
			if existing.WorkoutID == we.WorkoutID {
				count++
			}
		}
		if count >= maxPerWorkout {
			return false, nil
		}
	}
	s.workoutExercises[we.ID] = we
	return true, nil
}

// DeleteWorkoutExercise implements domain.WorkoutStore. Sets cascade.
func (s *Store) DeleteWorkoutExercise(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for setID, set := range s.sets {
		if set.WorkoutExerciseID == id {
			delete(s.sets, setID)
		}
	}
	delete(s.workoutExercises, id)
	return nil
}

// CountWorkoutExercises implements domain.WorkoutStore.
func (s *Store) CountWorkoutExercises(ctx context.Context, workoutID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, we := range s.workoutExercises {
		if we.WorkoutID == workoutID {
			count++
		}
	}
	return count, nil
}

// GetSet implements domain.WorkoutStore.
func (s *Store) GetSet(ctx context.Context, id string) (*domain.ExerciseSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if set, ok := s.sets[id]; ok {
		return &set, nil
	}
	return nil, nil
}

// CreateSet implements domain.WorkoutStore.
func (s *Store) CreateSet(ctx context.Context, set domain.ExerciseSet, maxPerExercise int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxPerExercise > 0 {
		count := 0
		for _, existing := range s.sets {
			if existing.WorkoutExerciseID == set.WorkoutExerciseID {
				count++
			}
		}
		if count >= maxPerExercise {
			return false, nil
		}
	}
	s.sets[set.ID] = set
	return true, nil
}

// UpdateSet implements domain.WorkoutStore.
func (s *Store) UpdateSet(ctx context.Context, set domain.ExerciseSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.ID] = set
	return nil
}

// DeleteSet implements domain.WorkoutStore.
func (s *Store) DeleteSet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, id)
	return nil
}

// CountSets implements domain.WorkoutStore.
func (s *Store) CountSets(ctx context.Context, workoutExerciseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, set := range s.sets {
		if set.WorkoutExerciseID == workoutExerciseID {
			count++
		}
	}
	return count, nil
}
