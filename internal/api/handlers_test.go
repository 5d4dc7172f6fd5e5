package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/fitnote/internal/auth"
	"example.com/fitnote/internal/domain"
	"example.com/fitnote/internal/persistence/memory"
)

type fixture struct {
	store   *memory.Store
	handler *Handler
	mux     *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	rules := domain.NewRules(store, domain.Limits{
		MaxWorkoutsPerUser:     1000,
		MaxExercisesPerWorkout: 50,
		MaxSetsPerExercise:     100,
	})
	handler := NewHandler(
		domain.NewWorkoutService(store, rules),
		domain.NewExerciseService(store, rules),
		domain.NewAuthService(store, testIssuer{}),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &fixture{store: store, handler: handler, mux: mux}
}

type testIssuer struct{}

func (testIssuer) Issue(userID, email string) (string, error) {
	return "test-token", nil
}

func userClaims(userID string, scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &auth.Claims{
		Subject:   userID,
		Scopes:    set,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seedWorkout(t *testing.T, userID string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	ok, err := f.store.CreateWorkout(context.Background(), domain.Workout{
		ID:        id,
		UserID:    userID,
		Name:      "seeded",
		Date:      now,
		Status:    domain.WorkoutStatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}, 0)
	if err != nil || !ok {
		t.Fatalf("failed to seed workout: ok=%v err=%v", ok, err)
	}
	return id
}

func TestCreateWorkoutEndpoint(t *testing.T) {
	f := newFixture(t)
	claims := userClaims("user-1", auth.ScopeWorkoutsWrite)

	rr := f.do(t, http.MethodPost, "/v1/workouts", CreateWorkoutRequest{
		Name:        "Push Day",
		Date:        time.Now().Add(24 * time.Hour),
		DurationMin: 45,
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp WorkoutDetailView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected generated workout id")
	}
	if resp.Status != string(domain.WorkoutStatusPlanned) {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if resp.UserID != "user-1" {
		t.Fatalf("unexpected owner %q", resp.UserID)
	}
}

func TestCreateWorkoutSubscriptionLimit422(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.seedWorkout(t, "user-1")
	}

	rr := f.do(t, http.MethodPost, "/v1/workouts", CreateWorkoutRequest{
		Name: "Eleventh",
		Date: time.Now(),
	}, userClaims("user-1", auth.ScopeWorkoutsWrite))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ValidationFailedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Violations) != 1 {
		t.Fatalf("expected 1 violation got %d", len(resp.Violations))
	}
	if resp.Violations[0].Key != "subscription_limit" {
		t.Fatalf("unexpected violation key %q", resp.Violations[0].Key)
	}
}

func TestCreateWorkoutRejectsBadBody(t *testing.T) {
	f := newFixture(t)
	claims := userClaims("user-1", auth.ScopeWorkoutsWrite)

	req := httptest.NewRequest(http.MethodPost, "/v1/workouts", bytes.NewBufferString("{not json"))
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestCreateWorkoutRequiresScope(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/workouts", CreateWorkoutRequest{
		Name: "No Scope",
		Date: time.Now(),
	}, userClaims("user-1", auth.ScopeWorkoutsRead))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestGetWorkoutHidesForeignWorkout(t *testing.T) {
	f := newFixture(t)
	id := f.seedWorkout(t, "owner")

	rr := f.do(t, http.MethodGet, "/v1/workouts/"+id, nil, userClaims("intruder", auth.ScopeWorkoutsRead))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/v1/workouts/"+id, nil, userClaims("owner", auth.ScopeWorkoutsRead))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListWorkoutsRecent(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.seedWorkout(t, "user-1")
	}

	rr := f.do(t, http.MethodGet, "/v1/workouts?recent=3", nil, userClaims("user-1", auth.ScopeWorkoutsRead))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ListWorkoutsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 items got %d", len(resp.Items))
	}
}

func TestDeleteWorkoutEndpoint(t *testing.T) {
	f := newFixture(t)
	id := f.seedWorkout(t, "user-1")
	claims := userClaims("user-1", auth.ScopeWorkoutsWrite)

	rr := f.do(t, http.MethodDelete, "/v1/workouts/"+id, nil, claims)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	// Second delete reports not found.
	rr = f.do(t, http.MethodDelete, "/v1/workouts/"+id, nil, claims)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestWorkoutExerciseAndSetFlow(t *testing.T) {
	f := newFixture(t)
	workoutID := f.seedWorkout(t, "user-1")
	claims := userClaims("user-1", auth.ScopeWorkoutsWrite, auth.ScopeWorkoutsRead)

	catalog, err := f.store.ListExercises(context.Background(), domain.ExerciseFilter{DefaultsOnly: true})
	if err != nil || len(catalog) == 0 {
		t.Fatalf("catalog unavailable: %v", err)
	}

	rr := f.do(t, http.MethodPost, fmt.Sprintf("/v1/workouts/%s/exercises", workoutID), AddExerciseRequest{
		ExerciseID: catalog[0].ID,
		Position:   1,
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var slot WorkoutExerciseView
	if err := json.Unmarshal(rr.Body.Bytes(), &slot); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if slot.Exercise.Name != catalog[0].Name {
		t.Fatalf("unexpected exercise %q", slot.Exercise.Name)
	}

	rr = f.do(t, http.MethodPost, fmt.Sprintf("/v1/workout-exercises/%s/sets", slot.ID), AddSetRequest{
		SetNumber: 1,
		Reps:      8,
		WeightKg:  60,
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var set SetView
	if err := json.Unmarshal(rr.Body.Bytes(), &set); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if set.SetType != string(domain.SetTypeWorking) {
		t.Fatalf("expected working set got %q", set.SetType)
	}

	completed := true
	rr = f.do(t, http.MethodPatch, "/v1/sets/"+set.ID, UpdateSetRequest{Completed: &completed}, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodDelete, "/v1/sets/"+set.ID, nil, claims)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	rr = f.do(t, http.MethodDelete, "/v1/workout-exercises/"+slot.ID, nil, claims)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}
}

func TestExerciseEndpoints(t *testing.T) {
	f := newFixture(t)
	claims := userClaims("user-1", auth.ScopeExercisesRead, auth.ScopeExercisesWrite)

	rr := f.do(t, http.MethodPost, "/v1/exercises", CreateExerciseRequest{
		Name:               "Cable Row",
		Category:           string(domain.CategoryStrength),
		PrimaryMuscleGroup: "back",
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var created ExerciseView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.IsDefault {
		t.Fatal("user-created exercise must not be default")
	}
	if created.CreatedByUserID != "user-1" {
		t.Fatalf("unexpected creator %q", created.CreatedByUserID)
	}

	rr = f.do(t, http.MethodGet, "/v1/exercises?defaults=true", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var list ListExercisesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, ex := range list.Items {
		if !ex.IsDefault {
			t.Fatalf("non-default exercise %q in defaults listing", ex.Name)
		}
	}

	rr = f.do(t, http.MethodDelete, "/v1/exercises/"+created.ID, nil, claims)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	// Defaults cannot be deleted.
	rr = f.do(t, http.MethodDelete, "/v1/exercises/"+list.Items[0].ID, nil, claims)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestCreateExerciseRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/exercises", CreateExerciseRequest{
		Name:               "Mystery Move",
		Category:           "yoga",
		PrimaryMuscleGroup: "core",
	}, userClaims("user-1", auth.ScopeExercisesWrite))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/auth/register", RegisterRequest{
		Email:    "lifter@example.com",
		Username: "lifter",
		Password: "long-enough-password",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var registered AuthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &registered); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if registered.Token == "" {
		t.Fatal("expected a token")
	}

	// Duplicate registration fails with the auth failure status.
	rr = f.do(t, http.MethodPost, "/v1/auth/register", RegisterRequest{
		Email:    "lifter@example.com",
		Username: "other",
		Password: "long-enough-password",
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/v1/auth/login", LoginRequest{
		Email:    "lifter@example.com",
		Password: "long-enough-password",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/v1/auth/me", nil, userClaims(registered.User.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var me UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if me.Email != "lifter@example.com" {
		t.Fatalf("unexpected email %q", me.Email)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/auth/register", RegisterRequest{
		Email:    "not-an-email",
		Username: "x",
		Password: "short",
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPut, "/v1/workouts", nil, userClaims("user-1", auth.ScopeWorkoutsWrite))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}
