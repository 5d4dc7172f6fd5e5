package domain

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"example.com/fitnote/internal/observability"
)

// Operation names understood by ValidateSubscriptionLimits.
const (
	OpCreateWorkout  = "create_workout"
	OpCreateExercise = "create_exercise"
)

// maxFutureDays bounds how far in the future a workout may be scheduled.
const maxFutureDays = 365

// Violation is one business-rule failure keyed for the caller.
type Violation struct {
	Key     string
	Message string
}

// ValidationResult accumulates business-rule violations in check order.
// Expected violations are values, never errors.
type ValidationResult struct {
	Violations []Violation
}

// Add appends a violation.
func (r *ValidationResult) Add(key, message string) {
	r.Violations = append(r.Violations, Violation{Key: key, Message: message})
}

// Valid reports whether no violations were recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Message joins all violation messages in result order.
func (r *ValidationResult) Message() string {
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, "; ")
}

// ValidationError wraps a failed ValidationResult so create operations can
// surface violations through the error return without losing structure.
type ValidationError struct {
	Result *ValidationResult
}

func (e *ValidationError) Error() string {
	return e.Result.Message()
}

// tierLimits maps a subscription tier to its resource ceilings. -1 means
// unlimited and bypasses the count entirely.
type tierLimits struct {
	MaxWorkouts        int
	MaxCustomExercises int
}

var subscriptionLimits = map[SubscriptionTier]tierLimits{
	TierFree:    {MaxWorkouts: 10, MaxCustomExercises: 5},
	TierPremium: {MaxWorkouts: 100, MaxCustomExercises: 50},
	TierPro:     {MaxWorkouts: -1, MaxCustomExercises: -1},
}

// Limits holds the configurable per-entity ceilings.
type Limits struct {
	MaxWorkoutsPerUser     int
	MaxExercisesPerWorkout int
	MaxSetsPerExercise     int
}

// Rules is the stateless business-rules engine. All state lives in the store.
type Rules struct {
	store  Store
	limits Limits
	now    func() time.Time
}

// NewRules constructs the engine.
func NewRules(store Store, limits Limits) *Rules {
	return &Rules{store: store, limits: limits, now: time.Now}
}

// ValidateWorkoutCreation checks the per-user workout ceiling and the
// candidate date. Violations accumulate; neither check short-circuits.
func (r *Rules) ValidateWorkoutCreation(ctx context.Context, userID string, date time.Time) (*ValidationResult, error) {
	result := &ValidationResult{}

	count, err := r.store.CountUserWorkouts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= r.limits.MaxWorkoutsPerUser {
		result.Add("workout_limit", fmt.Sprintf("maximum number of workouts (%d) reached", r.limits.MaxWorkoutsPerUser))
	}

	// The boundary is inclusive: exactly now+365d is still valid.
	if date.After(r.now().UTC().AddDate(0, 0, maxFutureDays)) {
		result.Add("date_invalid", "workout date cannot be more than 1 year in the future")
	}

	recordFailures(result)
	return result, nil
}

// ValidateExerciseAddition checks workout ownership and the per-workout
// exercise ceiling. An access failure returns early: the exercise count is
// meaningless for a workout the caller cannot see.
func (r *Rules) ValidateExerciseAddition(ctx context.Context, userID, workoutID string) (*ValidationResult, error) {
	result := &ValidationResult{}

	workout, err := r.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil || workout.UserID != userID {
		result.Add("workout_access", "workout not found or access denied")
		recordFailures(result)
		return result, nil
	}

	count, err := r.store.CountWorkoutExercises(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if count >= r.limits.MaxExercisesPerWorkout {
		result.Add("exercise_limit", fmt.Sprintf("maximum number of exercises per workout (%d) reached", r.limits.MaxExercisesPerWorkout))
	}

	recordFailures(result)
	return result, nil
}

// ValidateSetAddition resolves the workout exercise up its ownership chain
// and checks the per-exercise set ceiling.
func (r *Rules) ValidateSetAddition(ctx context.Context, userID, workoutExerciseID string) (*ValidationResult, error) {
	result := &ValidationResult{}

	we, err := r.store.GetWorkoutExercise(ctx, workoutExerciseID)
	if err != nil {
		return nil, err
	}
	if we == nil {
		result.Add("workout_exercise_not_found", "workout exercise not found")
		recordFailures(result)
		return result, nil
	}

	workout, err := r.store.GetWorkout(ctx, we.WorkoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil || workout.UserID != userID {
		result.Add("workout_access", "workout not found or access denied")
		recordFailures(result)
		return result, nil
	}

	count, err := r.store.CountSets(ctx, workoutExerciseID)
	if err != nil {
		return nil, err
	}
	if count >= r.limits.MaxSetsPerExercise {
		result.Add("set_limit", fmt.Sprintf("maximum number of sets per exercise (%d) reached", r.limits.MaxSetsPerExercise))
	}

	recordFailures(result)
	return result, nil
}

// ValidateSubscriptionLimits enforces the tier ceiling for the named
// operation. A user without an active subscription is treated as free tier.
// Limits apply at creation time only, never retroactively.
func (r *Rules) ValidateSubscriptionLimits(ctx context.Context, userID, operation string) (*ValidationResult, error) {
	result := &ValidationResult{}

	tier, limits, err := r.tierFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch operation {
	case OpCreateWorkout:
		if limits.MaxWorkouts > 0 {
			count, err := r.store.CountUserWorkouts(ctx, userID)
			if err != nil {
				return nil, err
			}
			if count >= limits.MaxWorkouts {
				result.Add("subscription_limit", fmt.Sprintf("your %s subscription allows up to %d workouts", tier, limits.MaxWorkouts))
			}
		}
	case OpCreateExercise:
		if limits.MaxCustomExercises > 0 {
			count, err := r.store.CountUserExercises(ctx, userID)
			if err != nil {
				return nil, err
			}
			if count >= limits.MaxCustomExercises {
				result.Add("subscription_limit", fmt.Sprintf("your %s subscription allows up to %d custom exercises", tier, limits.MaxCustomExercises))
			}
		}
	default:
		// Unknown operations pass. Log so a typo cannot hide behind the
		// default-allow behaviour.
		log.Printf("rules: unrecognized subscription operation %q, allowing", operation)
	}

	recordFailures(result)
	return result, nil
}

// WorkoutCeiling returns the tightest per-user workout ceiling across the
// configured limit and the subscription tier, or 0 when unbounded. Stores use
// it to reserve a creation slot atomically, so a concurrent create cannot
// slip past a count that was checked before the insert.
func (r *Rules) WorkoutCeiling(ctx context.Context, userID string) (int, error) {
	_, tier, err := r.tierFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	ceiling := r.limits.MaxWorkoutsPerUser
	if tier.MaxWorkouts > 0 && (ceiling <= 0 || tier.MaxWorkouts < ceiling) {
		ceiling = tier.MaxWorkouts
	}
	return ceiling, nil
}

// CustomExerciseCeiling returns the per-creator custom exercise ceiling for
// the user's tier, or 0 when unbounded.
func (r *Rules) CustomExerciseCeiling(ctx context.Context, userID string) (int, error) {
	_, tier, err := r.tierFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	if tier.MaxCustomExercises > 0 {
		return tier.MaxCustomExercises, nil
	}
	return 0, nil
}

// ExercisesPerWorkoutCeiling returns the configured per-workout exercise ceiling.
func (r *Rules) ExercisesPerWorkoutCeiling() int {
	return r.limits.MaxExercisesPerWorkout
}

// SetsPerExerciseCeiling returns the configured per-exercise set ceiling.
func (r *Rules) SetsPerExerciseCeiling() int {
	return r.limits.MaxSetsPerExercise
}

func (r *Rules) tierFor(ctx context.Context, userID string) (SubscriptionTier, tierLimits, error) {
	sub, err := r.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return "", tierLimits{}, err
	}
	tier := TierFree
	if sub != nil {
		tier = sub.Tier
	}
	limits, ok := subscriptionLimits[tier]
	if !ok {
		limits = subscriptionLimits[TierFree]
	}
	return tier, limits, nil
}

func recordFailures(result *ValidationResult) {
	for _, v := range result.Violations {
		observability.RecordValidationFailure(v.Key)
	}
}
