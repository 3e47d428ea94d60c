package integration_testing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/workout"

	"github.com/stretchr/testify/require"
)

func Test_NewServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()

	require.NotNil(t, suite.server)
}

func Test_SignupLoginWorkoutFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()

	// give the http server a moment to start accepting connections
	time.Sleep(500 * time.Millisecond)

	httpClient := &http.Client{Timeout: 10 * time.Second}

	signupPayload := []byte(`{"email":"integ@test.com","password":"testpass123"}`)
	signupReq, err := http.NewRequest(http.MethodPost, serverEndpoint+"/a/signup", bytes.NewReader(signupPayload))
	require.NoError(t, err)
	signupReq.Header.Set("User-Agent", "test-agent")
	signupReq.Header.Set("Origin", "test")

	signupResp, err := httpClient.Do(signupReq)
	require.NoError(t, err)
	defer signupResp.Body.Close()
	require.Equal(t, http.StatusCreated, signupResp.StatusCode)

	var session struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(signupResp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)
	require.Equal(t, "integ", session.Username)

	// a fresh user starts with the default day state
	stateReq, err := http.NewRequest(http.MethodGet, serverEndpoint+"/workout", nil)
	require.NoError(t, err)
	stateReq.Header.Set("User-Agent", "test-agent")
	stateReq.Header.Set("Origin", "test")
	stateReq.Header.Set(auth.TokenHeader, session.Token)

	stateResp, err := httpClient.Do(stateReq)
	require.NoError(t, err)
	defer stateResp.Body.Close()
	require.Equal(t, http.StatusOK, stateResp.StatusCode)

	var dayState struct {
		Phase     workout.Phase `json:"phase"`
		CheckedIn bool          `json:"checked_in"`
	}
	require.NoError(t, json.NewDecoder(stateResp.Body).Decode(&dayState))
	require.Equal(t, workout.PhaseIdle, dayState.Phase)
	require.False(t, dayState.CheckedIn)

	// adding an exercise persists through the service to postgres
	addPayload := []byte(`{"name":"Bench Press"}`)
	addReq, err := http.NewRequest(http.MethodPost, serverEndpoint+"/workout/exercise", bytes.NewReader(addPayload))
	require.NoError(t, err)
	addReq.Header.Set("User-Agent", "test-agent")
	addReq.Header.Set("Origin", "test")
	addReq.Header.Set(auth.TokenHeader, session.Token)

	addResp, err := httpClient.Do(addReq)
	require.NoError(t, err)
	defer addResp.Body.Close()
	require.Equal(t, http.StatusOK, addResp.StatusCode)

	var afterAdd struct {
		Data      workout.UserData `json:"data"`
		CheckedIn bool             `json:"checked_in"`
	}
	require.NoError(t, json.NewDecoder(addResp.Body).Decode(&afterAdd))
	exercises, ok := afterAdd.Data.Workouts[todayKey()]
	require.True(t, ok)
	require.Len(t, exercises, 1)
	require.Equal(t, "Bench Press", exercises[0].Name)
	require.True(t, afterAdd.CheckedIn)

	// without a token the workout routes are off limits
	noTokenReq, err := http.NewRequest(http.MethodGet, serverEndpoint+"/workout", nil)
	require.NoError(t, err)
	noTokenReq.Header.Set("User-Agent", "test-agent")
	noTokenReq.Header.Set("Origin", "test")

	noTokenResp, err := httpClient.Do(noTokenReq)
	require.NoError(t, err)
	defer noTokenResp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, noTokenResp.StatusCode)
}

func todayKey() string {
	return time.Now().UTC().Format("2006-01-02")
}
