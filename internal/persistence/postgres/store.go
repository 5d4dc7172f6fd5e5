// Package postgres provides Postgres-backed persistence for the fitness domain.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitnote/internal/domain"
)

// Store implements the domain persistence gateway over a pgx pool. Every
// multi-entity write runs inside a single transaction; creates that emit
// events insert the outbox row in the same transaction as the write.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = "user_id, email, username, name, password_hash, role, is_active, created_at, updated_at"

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser implements domain.UserStore.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id)
	return scanUser(row)
}

// GetUserByEmail implements domain.UserStore.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
	return scanUser(row)
}

// CreateUser implements domain.UserStore.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, email, username, name, password_hash, role, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, stmt,
		user.ID, user.Email, user.Username, user.Name, user.PasswordHash,
		user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// UpdateUser implements domain.UserStore.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	const stmt = `UPDATE users SET email=$2, username=$3, name=$4, password_hash=$5, role=$6, is_active=$7, updated_at=$8
        WHERE user_id=$1`
	_, err := s.pool.Exec(ctx, stmt,
		user.ID, user.Email, user.Username, user.Name, user.PasswordHash,
		user.Role, user.IsActive, user.UpdatedAt,
	)
	return err
}

// GetActiveSubscription implements domain.SubscriptionStore.
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	const query = `SELECT subscription_id, user_id, tier, is_active, start_date, end_date, created_at, updated_at
        FROM subscriptions WHERE user_id=$1 AND is_active ORDER BY start_date DESC LIMIT 1`
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&sub.ID, &sub.UserID, &sub.Tier, &sub.IsActive, &sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const exerciseColumns = "exercise_id, name, description, category, primary_muscle_group, secondary_muscle_groups, instructions, is_default, COALESCE(created_by_user_id, ''), created_at, updated_at"

func scanExercise(row pgx.Row) (*domain.Exercise, error) {
	var ex domain.Exercise
	err := row.Scan(&ex.ID, &ex.Name, &ex.Description, &ex.Category, &ex.PrimaryMuscleGroup,
		&ex.SecondaryMuscleGroups, &ex.Instructions, &ex.IsDefault, &ex.CreatedByUserID, &ex.CreatedAt, &ex.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// GetExercise implements domain.ExerciseStore.
func (s *Store) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE exercise_id=$1`, id)
	return scanExercise(row)
}

// ListExercises implements domain.ExerciseStore.
func (s *Store) ListExercises(ctx context.Context, filter domain.ExerciseFilter) ([]domain.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises WHERE 1=1`
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category=$%d", len(args))
	}
	if filter.MuscleGroup != "" {
		args = append(args, filter.MuscleGroup)
		query += fmt.Sprintf(" AND (primary_muscle_group=$%d OR $%d = ANY(secondary_muscle_groups))", len(args), len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		query += fmt.Sprintf(" AND created_by_user_id=$%d", len(args))
	}
	if filter.DefaultsOnly {
		query += " AND is_default"
	}
	query += " ORDER BY name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Exercise, 0)
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ex)
	}
	return out, rows.Err()
}

// CreateExercise implements domain.ExerciseStore. The creator's slot is
// reserved under a row lock and the exercise.created outbox event is
// recorded in the same transaction.
func (s *Store) CreateExercise(ctx context.Context, exercise domain.Exercise, maxPerCreator int) (ok bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !ok {
			tx.Rollback(ctx)
		}
	}()

	ok, err = reserveSlot(ctx, tx,
		`SELECT 1 FROM users WHERE user_id=$1 FOR UPDATE`,
		`SELECT count(*) FROM exercises WHERE created_by_user_id=$1`,
		exercise.CreatedByUserID, maxPerCreator)
	if err != nil || !ok {
		return false, err
	}

	const stmt = `INSERT INTO exercises (exercise_id, name, description, category, primary_muscle_group, secondary_muscle_groups, instructions, is_default, created_by_user_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = tx.Exec(ctx, stmt,
		exercise.ID, exercise.Name, exercise.Description, exercise.Category,
		exercise.PrimaryMuscleGroup, exercise.SecondaryMuscleGroups, exercise.Instructions,
		exercise.IsDefault, nullIfEmpty(exercise.CreatedByUserID), exercise.CreatedAt, exercise.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	if err = insertOutbox(ctx, tx, "exercise.created", "exercise", exercise.ID, exercise.CreatedByUserID, exerciseCreatedEvent{
		ExerciseID:      exercise.ID,
		Name:            exercise.Name,
		Category:        string(exercise.Category),
		CreatedByUserID: exercise.CreatedByUserID,
		CreatedAt:       exercise.CreatedAt,
	}); err != nil {
		return false, err
	}

	err = tx.Commit(ctx)
	return err == nil, err
}

// DeleteExercise implements domain.ExerciseStore.
func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM exercises WHERE exercise_id=$1`, id)
	return err
}

// CountUserExercises implements domain.ExerciseStore.
func (s *Store) CountUserExercises(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM exercises WHERE created_by_user_id=$1`, userID).Scan(&count)
	return count, err
}

// ExerciseInUse implements domain.ExerciseStore.
func (s *Store) ExerciseInUse(ctx context.Context, exerciseID string) (bool, error) {
	var inUse bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workout_exercises WHERE exercise_id=$1)`, exerciseID).Scan(&inUse)
	return inUse, err
}

const workoutColumns = "workout_id, user_id, name, notes, workout_date, status, duration_min, created_at, updated_at"

func scanWorkout(row pgx.Row) (*domain.Workout, error) {
	var w domain.Workout
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Notes, &w.Date, &w.Status, &w.DurationMin, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWorkout implements domain.WorkoutStore.
func (s *Store) GetWorkout(ctx context.Context, id string) (*domain.Workout, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE workout_id=$1`, id)
	return scanWorkout(row)
}

// GetWorkoutDetail implements domain.WorkoutStore. The aggregate is loaded
// eagerly inside one transaction so the snapshot is consistent.
func (s *Store) GetWorkoutDetail(ctx context.Context, id string) (*domain.WorkoutDetail, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	workout, err := scanWorkout(tx.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE workout_id=$1`, id))
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, tx.Commit(ctx)
	}

	detail := &domain.WorkoutDetail{Workout: *workout, Exercises: []domain.WorkoutExerciseDetail{}}

	weQuery := `SELECT we.workout_exercise_id, we.workout_id, we.exercise_id, we.position, we.notes, we.created_at, we.updated_at,
            ` + prefixedExerciseColumns("e") + `
        FROM workout_exercises we
        JOIN exercises e ON e.exercise_id = we.exercise_id
        WHERE we.workout_id=$1
        ORDER BY we.position, we.created_at`

	rows, err := tx.Query(ctx, weQuery, id)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var wed domain.WorkoutExerciseDetail
		if err := rows.Scan(
			&wed.ID, &wed.WorkoutID, &wed.ExerciseID, &wed.Position, &wed.Notes, &wed.CreatedAt, &wed.UpdatedAt,
			&wed.Exercise.ID, &wed.Exercise.Name, &wed.Exercise.Description, &wed.Exercise.Category,
			&wed.Exercise.PrimaryMuscleGroup, &wed.Exercise.SecondaryMuscleGroups, &wed.Exercise.Instructions,
			&wed.Exercise.IsDefault, &wed.Exercise.CreatedByUserID, &wed.Exercise.CreatedAt, &wed.Exercise.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}
		wed.Sets = []domain.ExerciseSet{}
		index[wed.ID] = len(detail.Exercises)
		detail.Exercises = append(detail.Exercises, wed)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const setQuery = `SELECT ` + setColumns + `
        FROM exercise_sets s
        JOIN workout_exercises we ON we.workout_exercise_id = s.workout_exercise_id
        WHERE we.workout_id=$1
        ORDER BY s.set_number, s.created_at`

	setRows, err := tx.Query(ctx, setQuery, id)
	if err != nil {
		return nil, err
	}
	defer setRows.Close()
	for setRows.Next() {
		set, err := scanSet(setRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[set.WorkoutExerciseID]; ok {
			detail.Exercises[i].Sets = append(detail.Exercises[i].Sets, *set)
		}
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return detail, nil
}

func prefixedExerciseColumns(alias string) string {
	return fmt.Sprintf("%[1]s.exercise_id, %[1]s.name, %[1]s.description, %[1]s.category, %[1]s.primary_muscle_group, %[1]s.secondary_muscle_groups, %[1]s.instructions, %[1]s.is_default, COALESCE(%[1]s.created_by_user_id, ''), %[1]s.created_at, %[1]s.updated_at", alias)
}

// ListUserWorkouts implements domain.WorkoutStore.
func (s *Store) ListUserWorkouts(ctx context.Context, userID string, from, to *time.Time) ([]domain.Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id=$1`
	args := []interface{}{userID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND workout_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND workout_date <= $%d", len(args))
	}
	query += " ORDER BY workout_date DESC, workout_id DESC"

	return s.queryWorkouts(ctx, query, args...)
}

// RecentUserWorkouts implements domain.WorkoutStore.
func (s *Store) RecentUserWorkouts(ctx context.Context, userID string, limit int) ([]domain.Workout, error) {
	const query = `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id=$1
        ORDER BY workout_date DESC, workout_id DESC LIMIT $2`
	return s.queryWorkouts(ctx, query, userID, limit)
}

func (s *Store) queryWorkouts(ctx context.Context, query string, args ...interface{}) ([]domain.Workout, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Workout, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// CreateWorkout implements domain.WorkoutStore. The user's slot is reserved
// under a row lock and the workout.created outbox event is recorded in the
// same transaction.
func (s *Store) CreateWorkout(ctx context.Context, workout domain.Workout, maxPerUser int) (ok bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !ok {
			tx.Rollback(ctx)
		}
	}()

	ok, err = reserveSlot(ctx, tx,
		`SELECT 1 FROM users WHERE user_id=$1 FOR UPDATE`,
		`SELECT count(*) FROM workouts WHERE user_id=$1`,
		workout.UserID, maxPerUser)
	if err != nil || !ok {
		return false, err
	}

	const stmt = `INSERT INTO workouts (workout_id, user_id, name, notes, workout_date, status, duration_min, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = tx.Exec(ctx, stmt,
		workout.ID, workout.UserID, workout.Name, workout.Notes, workout.Date,
		workout.Status, workout.DurationMin, workout.CreatedAt, workout.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	if err = insertOutbox(ctx, tx, "workout.created", "workout", workout.ID, workout.UserID, workoutCreatedEvent{
		WorkoutID: workout.ID,
		UserID:    workout.UserID,
		Name:      workout.Name,
		Date:      workout.Date,
		Status:    string(workout.Status),
		CreatedAt: workout.CreatedAt,
	}); err != nil {
		return false, err
	}

	err = tx.Commit(ctx)
	return err == nil, err
}

// UpdateWorkout implements domain.WorkoutStore.
func (s *Store) UpdateWorkout(ctx context.Context, workout domain.Workout) error {
	const stmt = `UPDATE workouts SET name=$2, notes=$3, workout_date=$4, status=$5, duration_min=$6, updated_at=$7
        WHERE workout_id=$1`
	_, err := s.pool.Exec(ctx, stmt,
		workout.ID, workout.Name, workout.Notes, workout.Date, workout.Status,
		workout.DurationMin, workout.UpdatedAt,
	)
	return err
}

// DeleteWorkout implements domain.WorkoutStore. Child rows cascade via the
// schema's ON DELETE CASCADE; the workout.deleted outbox event is recorded
// in the same transaction.
func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var userID string
	err = tx.QueryRow(ctx, `DELETE FROM workouts WHERE workout_id=$1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return tx.Commit(ctx)
	}
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "workout.deleted", "workout", id, userID, workoutDeletedEvent{
		WorkoutID: id,
		UserID:    userID,
		DeletedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// CountUserWorkouts implements domain.WorkoutStore.
func (s *Store) CountUserWorkouts(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM workouts WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

const workoutExerciseColumns = "workout_exercise_id, workout_id, exercise_id, position, notes, created_at, updated_at"

func scanWorkoutExercise(row pgx.Row) (*domain.WorkoutExercise, error) {
	var we domain.WorkoutExercise
	err := row.Scan(&we.ID, &we.WorkoutID, &we.ExerciseID, &we.Position, &we.Notes, &we.CreatedAt, &we.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &we, nil
}

// GetWorkoutExercise implements domain.WorkoutStore.
func (s *Store) GetWorkoutExercise(ctx context.Context, id string) (*domain.WorkoutExercise, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workoutExerciseColumns+` FROM workout_exercises WHERE workout_exercise_id=$1`, id)
	return scanWorkoutExercise(row)
}

// GetWorkoutExerciseDetail implements domain.WorkoutStore.
func (s *Store) GetWorkoutExerciseDetail(ctx context.Context, id string) (*domain.WorkoutExerciseDetail, error) {
	const query = `SELECT we.workout_exercise_id, we.workout_id, we.exercise_id, we.position, we.notes, we.created_at, we.updated_at,
            ` + "e.exercise_id, e.name, e.description, e.category, e.primary_muscle_group, e.secondary_muscle_groups, e.instructions, e.is_default, COALESCE(e.created_by_user_id, ''), e.created_at, e.updated_at" + `
        FROM workout_exercises we
        JOIN exercises e ON e.exercise_id = we.exercise_id
        WHERE we.workout_exercise_id=$1`

	var wed domain.WorkoutExerciseDetail
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&wed.ID, &wed.WorkoutID, &wed.ExerciseID, &wed.Position, &wed.Notes, &wed.CreatedAt, &wed.UpdatedAt,
		&wed.Exercise.ID, &wed.Exercise.Name, &wed.Exercise.Description, &wed.Exercise.Category,
		&wed.Exercise.PrimaryMuscleGroup, &wed.Exercise.SecondaryMuscleGroups, &wed.Exercise.Instructions,
		&wed.Exercise.IsDefault, &wed.Exercise.CreatedByUserID, &wed.Exercise.CreatedAt, &wed.Exercise.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	wed.Sets = []domain.ExerciseSet{}
	rows, err := s.pool.Query(ctx, `SELECT `+setColumns+` FROM exercise_sets s WHERE s.workout_exercise_id=$1 ORDER BY s.set_number, s.created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		wed.Sets = append(wed.Sets, *set)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &wed, nil
}

// CreateWorkoutExercise implements domain.WorkoutStore. The workout's slot
// is reserved under a row lock in the same transaction as the insert.
func (s *Store) CreateWorkoutExercise(ctx context.Context, we domain.WorkoutExercise, maxPerWorkout int) (ok bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !ok {
			tx.Rollback(ctx)
		}
	}()

	ok, err = reserveSlot(ctx, tx,
		`SELECT 1 FROM workouts WHERE workout_id=$1 FOR UPDATE`,
		`SELECT count(*) FROM workout_exercises WHERE workout_id=$1`,
		we.WorkoutID, maxPerWorkout)
	if err != nil || !ok {
		return false, err
	}

	const stmt = `INSERT INTO workout_exercises (workout_exercise_id, workout_id, exercise_id, position, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = tx.Exec(ctx, stmt, we.ID, we.WorkoutID, we.ExerciseID, we.Position, we.Notes, we.CreatedAt, we.UpdatedAt)
	if err != nil {
		return false, err
	}

	err = tx.Commit(ctx)
	return err == nil, err
}

// DeleteWorkoutExercise implements domain.WorkoutStore. Sets cascade.
func (s *Store) DeleteWorkoutExercise(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM workout_exercises WHERE workout_exercise_id=$1`, id)
	return err
}

// CountWorkoutExercises implements domain.WorkoutStore.
func (s *Store) CountWorkoutExercises(ctx context.Context, workoutID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM workout_exercises WHERE workout_id=$1`, workoutID).Scan(&count)
	return count, err
}

const setColumns = "s.set_id, s.workout_exercise_id, s.set_number, s.reps, s.weight_kg, s.duration_sec, s.distance_m, s.set_type, s.completed, s.notes, s.created_at, s.updated_at"

func scanSet(row pgx.Row) (*domain.ExerciseSet, error) {
	var set domain.ExerciseSet
	err := row.Scan(&set.ID, &set.WorkoutExerciseID, &set.SetNumber, &set.Reps, &set.WeightKg,
		&set.DurationSec, &set.DistanceM, &set.SetType, &set.Completed, &set.Notes, &set.CreatedAt, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// GetSet implements domain.WorkoutStore.
func (s *Store) GetSet(ctx context.Context, id string) (*domain.ExerciseSet, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+setColumns+` FROM exercise_sets s WHERE s.set_id=$1`, id)
	return scanSet(row)
}

// CreateSet implements domain.WorkoutStore. The parent workout exercise's
// slot is reserved under a row lock in the same transaction as the insert.
func (s *Store) CreateSet(ctx context.Context, set domain.ExerciseSet, maxPerExercise int) (ok bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !ok {
			tx.Rollback(ctx)
		}
	}()

	ok, err = reserveSlot(ctx, tx,
		`SELECT 1 FROM workout_exercises WHERE workout_exercise_id=$1 FOR UPDATE`,
		`SELECT count(*) FROM exercise_sets WHERE workout_exercise_id=$1`,
		set.WorkoutExerciseID, maxPerExercise)
	if err != nil || !ok {
		return false, err
	}

	const stmt = `INSERT INTO exercise_sets (set_id, workout_exercise_id, set_number, reps, weight_kg, duration_sec, distance_m, set_type, completed, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = tx.Exec(ctx, stmt,
		set.ID, set.WorkoutExerciseID, set.SetNumber, set.Reps, set.WeightKg,
		set.DurationSec, set.DistanceM, set.SetType, set.Completed, set.Notes,
		set.CreatedAt, set.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	err = tx.Commit(ctx)
	return err == nil, err
}

// UpdateSet implements domain.WorkoutStore.
func (s *Store) UpdateSet(ctx context.Context, set domain.ExerciseSet) error {
	const stmt = `UPDATE exercise_sets SET set_number=$2, reps=$3, weight_kg=$4, duration_sec=$5, distance_m=$6, set_type=$7, completed=$8, notes=$9, updated_at=$10
        WHERE set_id=$1`
	_, err := s.pool.Exec(ctx, stmt,
		set.ID, set.SetNumber, set.Reps, set.WeightKg, set.DurationSec,
		set.DistanceM, set.SetType, set.Completed, set.Notes, set.UpdatedAt,
	)
	return err
}

// DeleteSet implements domain.WorkoutStore.
func (s *Store) DeleteSet(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM exercise_sets WHERE set_id=$1`, id)
	return err
}

// CountSets implements domain.WorkoutStore.
func (s *Store) CountSets(ctx context.Context, workoutExerciseID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM exercise_sets WHERE workout_exercise_id=$1`, workoutExerciseID).Scan(&count)
	return count, err
}

// reserveSlot locks the parent row and re-counts the children inside the
// surrounding transaction. The row lock serializes concurrent creates for
// the same parent, so the count cannot go stale before the insert commits.
// A ceiling of zero or below reserves unconditionally.
func reserveSlot(ctx context.Context, tx pgx.Tx, lockQuery, countQuery, parentID string, ceiling int) (bool, error) {
	if ceiling <= 0 {
		return true, nil
	}
	var one int
	if err := tx.QueryRow(ctx, lockQuery, parentID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Parent is gone; let the insert surface the FK violation.
			return true, nil
		}
		return false, err
	}
	var count int
	if err := tx.QueryRow(ctx, countQuery, parentID).Scan(&count); err != nil {
		return false, err
	}
	return count < ceiling, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// insertOutbox records a domain event in the outbox table as part of the
// surrounding transaction.
func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateType, aggregateID, ownerUserID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)
	_, err = tx.Exec(ctx, stmt, aggregateType, aggregateID, eventType, eventsTopic, ownerUserID, body, dedupeKey)
	return err
}

// eventsTopic is the single topic all domain events are published to.
const eventsTopic = "fitnote_events"

type workoutCreatedEvent struct {
	WorkoutID string    `json:"workout_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type workoutDeletedEvent struct {
	WorkoutID string    `json:"workout_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type exerciseCreatedEvent struct {
	ExerciseID      string    `json:"exercise_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	CreatedByUserID string    `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}
