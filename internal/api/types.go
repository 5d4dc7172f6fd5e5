package api

import (
	"fmt"
	"strings"
	"time"

	"example.com/fitnote/internal/domain"
)

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate checks required fields before the service is invoked.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("email is invalid")
	}
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// AuthResponse carries the issued token plus the account profile.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// CreateWorkoutRequest is the payload for POST /v1/workouts.
type CreateWorkoutRequest struct {
	Name        string    `json:"name"`
	Notes       string    `json:"notes,omitempty"`
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min,omitempty"`
}

func (r CreateWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if r.DurationMin < 0 {
		return fmt.Errorf("duration_min must not be negative")
	}
	return nil
}

// UpdateWorkoutRequest is the payload for PATCH /v1/workouts/{id}. Absent
// fields leave the stored value untouched.
type UpdateWorkoutRequest struct {
	Name        *string    `json:"name,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DurationMin *int       `json:"duration_min,omitempty"`
}

func (r UpdateWorkoutRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name must not be blank")
	}
	if r.Status != nil {
		switch domain.WorkoutStatus(*r.Status) {
		case domain.WorkoutStatusPlanned, domain.WorkoutStatusInProgress, domain.WorkoutStatusCompleted:
		default:
			return fmt.Errorf("unknown status %q", *r.Status)
		}
	}
	if r.DurationMin != nil && *r.DurationMin < 0 {
		return fmt.Errorf("duration_min must not be negative")
	}
	return nil
}

func (r UpdateWorkoutRequest) toInput() domain.UpdateWorkoutInput {
	input := domain.UpdateWorkoutInput{
		Name:        r.Name,
		Notes:       r.Notes,
		Date:        r.Date,
		DurationMin: r.DurationMin,
	}
	if r.Status != nil {
		status := domain.WorkoutStatus(*r.Status)
		input.Status = &status
	}
	return input
}

// AddExerciseRequest is the payload for POST /v1/workouts/{id}/exercises.
type AddExerciseRequest struct {
	ExerciseID string `json:"exercise_id"`
	Position   int    `json:"position"`
	Notes      string `json:"notes,omitempty"`
}

func (r AddExerciseRequest) Validate() error {
	if r.ExerciseID == "" {
		return fmt.Errorf("exercise_id is required")
	}
	if r.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return nil
}

// AddSetRequest is the payload for POST /v1/workout-exercises/{id}/sets.
type AddSetRequest struct {
	SetNumber   int     `json:"set_number"`
	Reps        int     `json:"reps,omitempty"`
	WeightKg    float64 `json:"weight_kg,omitempty"`
	DurationSec int     `json:"duration_sec,omitempty"`
	DistanceM   float64 `json:"distance_m,omitempty"`
	SetType     string  `json:"set_type,omitempty"`
	Completed   bool    `json:"completed,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func (r AddSetRequest) Validate() error {
	if r.SetNumber <= 0 {
		return fmt.Errorf("set_number must be positive")
	}
	if r.Reps < 0 || r.WeightKg < 0 || r.DurationSec < 0 || r.DistanceM < 0 {
		return fmt.Errorf("set measurements must not be negative")
	}
	if r.SetType != "" {
		switch domain.SetType(r.SetType) {
		case domain.SetTypeWarmup, domain.SetTypeWorking, domain.SetTypeDrop, domain.SetTypeFailure:
		default:
			return fmt.Errorf("unknown set_type %q", r.SetType)
		}
	}
	return nil
}

// UpdateSetRequest is the payload for PATCH /v1/sets/{id}.
type UpdateSetRequest struct {
	SetNumber   *int     `json:"set_number,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	DurationSec *int     `json:"duration_sec,omitempty"`
	DistanceM   *float64 `json:"distance_m,omitempty"`
	SetType     *string  `json:"set_type,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (r UpdateSetRequest) toInput() domain.UpdateSetInput {
	input := domain.UpdateSetInput{
		SetNumber:   r.SetNumber,
		Reps:        r.Reps,
		WeightKg:    r.WeightKg,
		DurationSec: r.DurationSec,
		DistanceM:   r.DistanceM,
		Completed:   r.Completed,
		Notes:       r.Notes,
	}
	if r.SetType != nil {
		setType := domain.SetType(*r.SetType)
		input.SetType = &setType
	}
	return input
}

// CreateExerciseRequest is the payload for POST /v1/exercises.
type CreateExerciseRequest struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description,omitempty"`
	Category              string   `json:"category"`
	PrimaryMuscleGroup    string   `json:"primary_muscle_group"`
	SecondaryMuscleGroups []string `json:"secondary_muscle_groups,omitempty"`
	Instructions          string   `json:"instructions,omitempty"`
}

func (r CreateExerciseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	switch domain.ExerciseCategory(r.Category) {
	case domain.CategoryStrength, domain.CategoryBodyWeight, domain.CategoryCardio,
		domain.CategoryFlexibility, domain.CategoryOther:
	default:
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if strings.TrimSpace(r.PrimaryMuscleGroup) == "" {
		return fmt.Errorf("primary_muscle_group is required")
	}
	return nil
}

// UserView is the wire form of an account. Password material never leaves
// the domain.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ExerciseView is the wire form of a catalog entry.
type ExerciseView struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	Category              string    `json:"category"`
	PrimaryMuscleGroup    string    `json:"primary_muscle_group"`
	SecondaryMuscleGroups []string  `json:"secondary_muscle_groups,omitempty"`
	Instructions          string    `json:"instructions,omitempty"`
	IsDefault             bool      `json:"is_default"`
	CreatedByUserID       string    `json:"created_by_user_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toExerciseView(e domain.Exercise) ExerciseView {
	return ExerciseView{
		ID:                    e.ID,
		Name:                  e.Name,
		Description:           e.Description,
		Category:              string(e.Category),
		PrimaryMuscleGroup:    e.PrimaryMuscleGroup,
		SecondaryMuscleGroups: e.SecondaryMuscleGroups,
		Instructions:          e.Instructions,
		IsDefault:             e.IsDefault,
		CreatedByUserID:       e.CreatedByUserID,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// ListExercisesResponse wraps the catalog listing.
type ListExercisesResponse struct {
	Items []ExerciseView `json:"items"`
}

// SetView is the wire form of a performed set.
type SetView struct {
	ID                string    `json:"id"`
	WorkoutExerciseID string    `json:"workout_exercise_id"`
	SetNumber         int       `json:"set_number"`
	Reps              int       `json:"reps,omitempty"`
	WeightKg          float64   `json:"weight_kg,omitempty"`
	DurationSec       int       `json:"duration_sec,omitempty"`
	DistanceM         float64   `json:"distance_m,omitempty"`
	SetType           string    `json:"set_type"`
	Completed         bool      `json:"completed"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toSetView(s domain.ExerciseSet) SetView {
	return SetView{
		ID:                s.ID,
		WorkoutExerciseID: s.WorkoutExerciseID,
		SetNumber:         s.SetNumber,
		Reps:              s.Reps,
		WeightKg:          s.WeightKg,
		DurationSec:       s.DurationSec,
		DistanceM:         s.DistanceM,
		SetType:           string(s.SetType),
		Completed:         s.Completed,
		Notes:             s.Notes,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// WorkoutExerciseView is the wire form of an exercise slot within a workout,
// with its catalog entry and sets inlined.
type WorkoutExerciseView struct {
	ID        string       `json:"id"`
	WorkoutID string       `json:"workout_id"`
	Position  int          `json:"position"`
	Notes     string       `json:"notes,omitempty"`
	Exercise  ExerciseView `json:"exercise"`
	Sets      []SetView    `json:"sets"`
}

func toWorkoutExerciseView(d domain.WorkoutExerciseDetail) WorkoutExerciseView {
	sets := make([]SetView, 0, len(d.Sets))
	for _, s := range d.Sets {
		sets = append(sets, toSetView(s))
	}
	return WorkoutExerciseView{
		ID:        d.ID,
		WorkoutID: d.WorkoutID,
		Position:  d.Position,
		Notes:     d.WorkoutExercise.Notes,
		Exercise:  toExerciseView(d.Exercise),
		Sets:      sets,
	}
}

// WorkoutView is the wire form of a workout without its exercises.
type WorkoutView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Notes       string    `json:"notes,omitempty"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	DurationMin int       `json:"duration_min,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toWorkoutView(workout domain.Workout) WorkoutView {
	return WorkoutView{
		ID:          workout.ID,
		UserID:      workout.UserID,
		Name:        workout.Name,
		Notes:       workout.Notes,
		Date:        workout.Date,
		Status:      string(workout.Status),
		DurationMin: workout.DurationMin,
		CreatedAt:   workout.CreatedAt,
		UpdatedAt:   workout.UpdatedAt,
	}
}

// WorkoutDetailView is the full aggregate returned by create and get.
type WorkoutDetailView struct {
	WorkoutView
	Exercises []WorkoutExerciseView `json:"exercises"`
}

func toWorkoutDetailView(detail domain.WorkoutDetail) WorkoutDetailView {
	exercises := make([]WorkoutExerciseView, 0, len(detail.Exercises))
	for _, e := range detail.Exercises {
		exercises = append(exercises, toWorkoutExerciseView(e))
	}
	return WorkoutDetailView{
		WorkoutView: toWorkoutView(detail.Workout),
		Exercises:   exercises,
	}
}

// ListWorkoutsResponse wraps a workout listing.
type ListWorkoutsResponse struct {
	Items []WorkoutView `json:"items"`
}

func toWorkoutList(workouts []domain.Workout) ListWorkoutsResponse {
	items := make([]WorkoutView, 0, len(workouts))
	for _, workout := range workouts {
		items = append(items, toWorkoutView(workout))
	}
	return ListWorkoutsResponse{Items: items}
}

// ViolationView is one business rule failure in a 422 response.
type ViolationView struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationFailedResponse is the 422 body listing every violated rule.
type ValidationFailedResponse struct {
	Type       string          `json:"type"`
	Detail     string          `json:"detail"`
	Violations []ViolationView `json:"violations"`
}
