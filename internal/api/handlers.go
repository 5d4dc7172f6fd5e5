// Package api exposes HTTP handlers for the fitness backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/fitnote/internal/auth"
	"example.com/fitnote/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	workouts  *domain.WorkoutService
	exercises *domain.ExerciseService
	auth      *domain.AuthService
}

// NewHandler builds a Handler.
func NewHandler(workouts *domain.WorkoutService, exercises *domain.ExerciseService, authSvc *domain.AuthService) *Handler {
	return &Handler{workouts: workouts, exercises: exercises, auth: authSvc}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/auth/register", h.register)
	mux.HandleFunc("/v1/auth/login", h.login)
	mux.HandleFunc("/v1/auth/me", h.me)
	mux.HandleFunc("/v1/workouts", h.workoutCollection)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/workout-exercises/", h.workoutExerciseByID)
	mux.HandleFunc("/v1/sets/", h.setByID)
	mux.HandleFunc("/v1/exercises", h.exerciseCollection)
	mux.HandleFunc("/v1/exercises/", h.exerciseByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.auth.Register(r.Context(), domain.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeAuthResult(w, result, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.auth.Login(r.Context(), domain.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeAuthResult(w, result, http.StatusOK)
}

func writeAuthResult(w http.ResponseWriter, result *domain.AuthResult, successStatus int) {
	if !result.Success {
		writeError(w, http.StatusUnauthorized, "auth_failed", result.ErrorMessage)
		return
	}
	writeJSON(w, successStatus, AuthResponse{Token: result.Token, User: toUserView(*result.User)})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) workoutCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	detail, err := h.workouts.CreateWorkout(r.Context(), domain.CreateWorkoutInput{
		Name:        req.Name,
		Notes:       req.Notes,
		Date:        req.Date,
		DurationMin: req.DurationMin,
	}, claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutDetailView(*detail))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsRead)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("recent"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid recent parameter")
			return
		}
		workouts, err := h.workouts.RecentWorkouts(r.Context(), claims.Subject, limit)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWorkoutList(workouts))
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid from parameter")
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid to parameter")
		return
	}

	workouts, err := h.workouts.ListWorkouts(r.Context(), claims.Subject, from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutList(workouts))
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	if id, found := strings.CutSuffix(rest, "/exercises"); found {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.addExerciseToWorkout(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, rest)
	case http.MethodPatch:
		h.updateWorkout(w, r, rest)
	case http.MethodDelete:
		h.deleteWorkout(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsRead)
	if !ok {
		return
	}
	detail, err := h.workouts.GetWorkout(r.Context(), id, claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutDetailView(*detail))
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	detail, err := h.workouts.UpdateWorkout(r.Context(), id, req.toInput(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutDetailView(*detail))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}
	if err := h.workouts.DeleteWorkout(r.Context(), id, claims.Subject); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addExerciseToWorkout(w http.ResponseWriter, r *http.Request, workoutID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	detail, err := h.workouts.AddExerciseToWorkout(r.Context(), domain.AddExerciseInput{
		WorkoutID:  workoutID,
		ExerciseID: req.ExerciseID,
		Position:   req.Position,
		Notes:      req.Notes,
	}, claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutExerciseView(*detail))
}

func (h *Handler) workoutExerciseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workout-exercises/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout exercise id")
		return
	}

	if id, found := strings.CutSuffix(rest, "/sets"); found {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.addSet(w, r, id)
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}
	if err := h.workouts.RemoveExerciseFromWorkout(r.Context(), rest, claims.Subject); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addSet(w http.ResponseWriter, r *http.Request, workoutExerciseID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req AddSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	set, err := h.workouts.AddSet(r.Context(), domain.AddSetInput{
		WorkoutExerciseID: workoutExerciseID,
		SetNumber:         req.SetNumber,
		Reps:              req.Reps,
		WeightKg:          req.WeightKg,
		DurationSec:       req.DurationSec,
		DistanceM:         req.DistanceM,
		SetType:           domain.SetType(req.SetType),
		Completed:         req.Completed,
		Notes:             req.Notes,
	}, claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSetView(*set))
}

func (h *Handler) setByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/sets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing set id")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req UpdateSetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		set, err := h.workouts.UpdateSet(r.Context(), id, req.toInput(), claims.Subject)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSetView(*set))
	case http.MethodDelete:
		if err := h.workouts.DeleteSet(r.Context(), id, claims.Subject); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) exerciseCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createExercise(w, r)
	case http.MethodGet:
		h.listExercises(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeExercisesWrite)
	if !ok {
		return
	}

	var req CreateExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	exercise, err := h.exercises.CreateExercise(r.Context(), domain.CreateExerciseInput{
		Name:                  req.Name,
		Description:           req.Description,
		Category:              domain.ExerciseCategory(req.Category),
		PrimaryMuscleGroup:    req.PrimaryMuscleGroup,
		SecondaryMuscleGroups: req.SecondaryMuscleGroups,
		Instructions:          req.Instructions,
	}, claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExerciseView(*exercise))
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeExercisesRead); !ok {
		return
	}

	query := r.URL.Query()
	filter := domain.ExerciseFilter{
		Category:     domain.ExerciseCategory(query.Get("category")),
		MuscleGroup:  query.Get("muscle_group"),
		Search:       query.Get("search"),
		CreatedBy:    query.Get("created_by"),
		DefaultsOnly: query.Get("defaults") == "true",
	}

	exercises, err := h.exercises.ListExercises(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]ExerciseView, 0, len(exercises))
	for _, ex := range exercises {
		items = append(items, toExerciseView(ex))
	}
	writeJSON(w, http.StatusOK, ListExercisesResponse{Items: items})
}

func (h *Handler) exerciseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/exercises/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing exercise id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := requireScope(w, r, auth.ScopeExercisesRead); !ok {
			return
		}
		exercise, err := h.exercises.GetExercise(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExerciseView(*exercise))
	case http.MethodDelete:
		claims, ok := requireScope(w, r, auth.ScopeExercisesWrite)
		if !ok {
			return
		}
		if err := h.exercises.DeleteExercise(r.Context(), id, claims.Subject); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// requireScope extracts claims and enforces the scope, writing the error
// response itself when the check fails.
func requireScope(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

// writeDomainError maps service errors onto wire responses. Denied and
// missing entities share one 404 so existence never leaks.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		violations := make([]ViolationView, 0, len(valErr.Result.Violations))
		for _, v := range valErr.Result.Violations {
			violations = append(violations, ViolationView{Key: v.Key, Message: v.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, ValidationFailedResponse{
			Type:       "validation_failed",
			Detail:     valErr.Error(),
			Violations: violations,
		})
		return
	}
	if errors.Is(err, domain.ErrDenied) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
