package workout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/metrics"
)

type handlerTestEnv struct {
	router  *mux.Router
	service *Service
	repo    *repoMock
}

func newHandlerTestEnv() *handlerTestEnv {
	repo := newRepoMock()
	service := NewService(repo, metrics.NewTestManager())
	handler := NewHandler(service)

	router := mux.NewRouter()
	handler.SetupRoutes(router.PathPrefix("/workout").Subrouter())

	return &handlerTestEnv{
		router:  router,
		service: service,
		repo:    repo,
	}
}

func (e *handlerTestEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, target, &reqBody)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), testUserID))

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeDayState(t *testing.T, rr *httptest.ResponseRecorder) DayState {
	t.Helper()
	var state DayState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	return state
}

func TestHandler_getState_freshUser(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "GET", "/workout?day="+testDay, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	state := decodeDayState(t, rr)
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Equal(t, testDay, state.Day)
	assert.False(t, state.CheckedIn)
}

func TestHandler_addExercise(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "POST", "/workout/exercise?day="+testDay, addExerciseRequest{
		Name: "Bench Press",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	state := decodeDayState(t, rr)
	require.Len(t, state.Data.Workouts[testDay], 1)
	assert.Equal(t, "Bench Press", state.Data.Workouts[testDay][0].Name)
	assert.Equal(t, PhaseOverview, state.Phase)
	assert.True(t, state.CheckedIn)
}

func TestHandler_addExercise_blankName(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "POST", "/workout/exercise?day="+testDay, addExerciseRequest{
		Name: "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "exercise name is blank")
}

func TestHandler_updateSet(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "POST", "/workout/exercise?day="+testDay, addExerciseRequest{Name: "Squats"})
	require.Equal(t, http.StatusOK, rr.Code)
	exerciseID := decodeDayState(t, rr).Data.Workouts[testDay][0].ID

	rr = env.do(t, "PUT",
		fmt.Sprintf("/workout/exercise/%s/set/0?day=%s", exerciseID, testDay),
		updateSetRequest{Field: "weight", Value: "100"},
	)
	require.Equal(t, http.StatusOK, rr.Code)
	state := decodeDayState(t, rr)
	assert.Equal(t, "100", state.Data.Workouts[testDay][0].Sets[0].Weight)

	// out of range set index is a client error
	rr = env.do(t, "PUT",
		fmt.Sprintf("/workout/exercise/%s/set/5?day=%s", exerciseID, testDay),
		updateSetRequest{Field: "weight", Value: "100"},
	)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_sessionFlow(t *testing.T) {
	env := newHandlerTestEnv()

	// starting with no exercises is rejected
	rr := env.do(t, "POST", "/workout/session/start?day="+testDay, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "POST", "/workout/exercise?day="+testDay, addExerciseRequest{Name: "Bench Press"})
	require.Equal(t, http.StatusOK, rr.Code)
	exerciseID := decodeDayState(t, rr).Data.Workouts[testDay][0].ID

	rr = env.do(t, "POST", "/workout/session/start?day="+testDay, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, PhaseActive, decodeDayState(t, rr).Phase)

	rr = env.do(t, "PUT",
		fmt.Sprintf("/workout/exercise/%s/set/0?day=%s", exerciseID, testDay),
		updateSetRequest{Field: "completed", Value: "true"},
	)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, "POST", "/workout/session/finish?day="+testDay, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	state := decodeDayState(t, rr)
	assert.Equal(t, PhaseFinished, state.Phase)
	require.NotNil(t, state.Data.WorkoutStatus[testDay].FinishedAt)

	rr = env.do(t, "POST", "/workout/session/undo-finish?day="+testDay, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, PhaseOverview, decodeDayState(t, rr).Phase)

	env.service.WaitSaves()
}

func TestHandler_abortNeedsConfirmation(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "POST", "/workout/exercise?day="+testDay, addExerciseRequest{Name: "Bench Press"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, "POST", "/workout/session/abort?day="+testDay, abortSessionRequest{Confirm: false})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "POST", "/workout/session/abort?day="+testDay, abortSessionRequest{Confirm: true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeDayState(t, rr).Data.Workouts[testDay])

	env.service.WaitSaves()
}

func TestHandler_applyTemplate(t *testing.T) {
	env := newHandlerTestEnv()

	rr := env.do(t, "POST", "/workout/template/apply?day="+testDay, applyTemplateRequest{
		Exercises: []string{"Bench Press", "Overhead Press", "Dips"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	state := decodeDayState(t, rr)
	require.Len(t, state.Data.Workouts[testDay], 3)
	assert.True(t, state.CheckedIn)

	rr = env.do(t, "POST", "/workout/template/apply?day="+testDay, applyTemplateRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_classify_noAuthNeeded(t *testing.T) {
	env := newHandlerTestEnv()

	// no user in context on purpose
	req := httptest.NewRequest("GET", "/workout/classify?name=Plank", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var cfg Config
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, InputKindTimed, cfg.InputKind)
}

func TestHandler_missingUserIsUnauthorized(t *testing.T) {
	env := newHandlerTestEnv()

	req := httptest.NewRequest("GET", "/workout?day="+testDay, nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
