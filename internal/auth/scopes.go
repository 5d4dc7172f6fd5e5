package auth

// Known OAuth scopes used by the API.
const (
	ScopeWorkoutsRead   = "workouts:read"
	ScopeWorkoutsWrite  = "workouts:write"
	ScopeExercisesRead  = "exercises:read"
	ScopeExercisesWrite = "exercises:write"
)

// DefaultScopes are granted to every registered user.
var DefaultScopes = []string{
	ScopeWorkoutsRead,
	ScopeWorkoutsWrite,
	ScopeExercisesRead,
	ScopeExercisesWrite,
}
