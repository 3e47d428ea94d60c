package workout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLifecycle() *Lifecycle {
	return NewLifecycle(NewStore())
}

func TestLifecycle_Phase(t *testing.T) {
	lifecycle := newTestLifecycle()
	data := DefaultUserData()

	assert.Equal(t, PhaseIdle, lifecycle.Phase(data, testDay))

	data.Workouts[testDay] = []Exercise{NewExercise("Bench Press")}
	assert.Equal(t, PhaseOverview, lifecycle.Phase(data, testDay))

	data.Sessions[testDay] = SessionView{Started: true}
	assert.Equal(t, PhaseActive, lifecycle.Phase(data, testDay))

	// finished trumps everything
	data.WorkoutStatus[testDay] = DayStatus{Finished: true}
	assert.Equal(t, PhaseFinished, lifecycle.Phase(data, testDay))

	// only archived exercises left: idle again after undo
	data = DefaultUserData()
	archived := NewExercise("Old")
	archived.Archived = true
	data.Workouts[testDay] = []Exercise{archived}
	assert.Equal(t, PhaseIdle, lifecycle.Phase(data, testDay))
}

func TestLifecycle_StartSession(t *testing.T) {
	lifecycle := newTestLifecycle()
	data := DefaultUserData()

	_, err := lifecycle.StartSession(data, testDay)
	assert.ErrorIs(t, err, ErrSessionNeedsExercise)

	data.Workouts[testDay] = []Exercise{NewExercise("Bench Press")}
	next, err := lifecycle.StartSession(data, testDay)
	require.NoError(t, err)
	assert.True(t, next.Sessions[testDay].Started)
	assert.Equal(t, 0, next.Sessions[testDay].CurrentIdx)
}

func TestLifecycle_FinishWorkout_stripsEmpty(t *testing.T) {
	lifecycle := newTestLifecycle()

	empty := NewExercise("A")
	completed := NewExercise("B")
	completed.Sets[0].Completed = true
	archivedEmpty := NewExercise("Old")
	archivedEmpty.Archived = true

	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{empty, completed, archivedEmpty}
	data.Sessions[testDay] = SessionView{Started: true, CurrentIdx: 1}

	finishedAt := time.Date(2026, 2, 15, 18, 30, 0, 0, time.UTC)
	next := lifecycle.FinishWorkout(data, testDay, finishedAt)

	// empty A dropped, completed B kept, archived history kept even empty
	require.Len(t, next.Workouts[testDay], 2)
	assert.Equal(t, "B", next.Workouts[testDay][0].Name)
	assert.Equal(t, "Old", next.Workouts[testDay][1].Name)

	assert.True(t, next.WorkoutStatus[testDay].Finished)
	require.NotNil(t, next.WorkoutStatus[testDay].FinishedAt)
	assert.Equal(t, finishedAt, *next.WorkoutStatus[testDay].FinishedAt)
	assert.False(t, next.Sessions[testDay].Started)
	assert.Equal(t, PhaseFinished, lifecycle.Phase(next, testDay))
}

func TestLifecycle_UndoFinish(t *testing.T) {
	lifecycle := newTestLifecycle()

	completed := NewExercise("B")
	completed.Sets[0].Completed = true
	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{completed}

	finished := lifecycle.FinishWorkout(data, testDay, time.Now())
	next := lifecycle.UndoFinish(finished, testDay)

	assert.False(t, next.WorkoutStatus[testDay].Finished)
	assert.Nil(t, next.WorkoutStatus[testDay].FinishedAt)
	// exercises survive the undo
	assert.Len(t, next.Workouts[testDay], 1)
	assert.Equal(t, PhaseOverview, lifecycle.Phase(next, testDay))
}

func TestLifecycle_AbortSession(t *testing.T) {
	lifecycle := newTestLifecycle()

	current := NewExercise("Current")
	current.Sets[0].Weight = "100"
	archived := NewExercise("Old")
	archived.Archived = true

	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{current, archived}
	data.Sessions[testDay] = SessionView{Started: true, CurrentIdx: 0}

	next := lifecycle.AbortSession(data, testDay)

	// only archived history survives an abort
	require.Len(t, next.Workouts[testDay], 1)
	assert.Equal(t, "Old", next.Workouts[testDay][0].Name)
	assert.False(t, next.Sessions[testDay].Started)
	assert.Equal(t, PhaseIdle, lifecycle.Phase(next, testDay))
}

func TestLifecycle_StartNewSession(t *testing.T) {
	lifecycle := newTestLifecycle()

	empty := NewExercise("Empty")
	completed := NewExercise("Done")
	completed.Sets[0].Completed = true

	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{empty, completed}
	data.WorkoutStatus[testDay] = DayStatus{Finished: true}

	next := lifecycle.StartNewSession(data, testDay)

	// empty dropped, survivor archived, finished flag cleared
	require.Len(t, next.Workouts[testDay], 1)
	assert.Equal(t, "Done", next.Workouts[testDay][0].Name)
	assert.True(t, next.Workouts[testDay][0].Archived)
	assert.False(t, next.WorkoutStatus[testDay].Finished)

	// visible list comes up empty for the fresh session
	assert.Empty(t, NewStore().Visible(next, testDay))
	assert.Equal(t, PhaseIdle, lifecycle.Phase(next, testDay))
}

func TestLifecycle_MoveCursor_clamped(t *testing.T) {
	lifecycle := newTestLifecycle()

	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{NewExercise("A"), NewExercise("B"), NewExercise("C")}
	data.Sessions[testDay] = SessionView{Started: true, CurrentIdx: 0}

	next := lifecycle.MoveCursor(data, testDay, 1)
	assert.Equal(t, 1, next.Sessions[testDay].CurrentIdx)

	// clamped at the top end
	next = lifecycle.MoveCursor(next, testDay, 10)
	assert.Equal(t, 2, next.Sessions[testDay].CurrentIdx)

	// clamped at zero
	next = lifecycle.MoveCursor(next, testDay, -10)
	assert.Equal(t, 0, next.Sessions[testDay].CurrentIdx)
}

func TestLifecycle_ClampCursor_afterListShrinks(t *testing.T) {
	store := NewStore()
	lifecycle := NewLifecycle(store)

	exA := NewExercise("A")
	exB := NewExercise("B")
	data := DefaultUserData()
	data.Workouts[testDay] = []Exercise{exA, exB}
	data.Sessions[testDay] = SessionView{Started: true, CurrentIdx: 1}

	shrunk := store.DeleteExercise(data, testDay, exB.ID)
	next := lifecycle.ClampCursor(shrunk, testDay)
	assert.Equal(t, 0, next.Sessions[testDay].CurrentIdx)
}

func TestLifecycle_SetViewMode_roundTripped(t *testing.T) {
	lifecycle := newTestLifecycle()
	data := DefaultUserData()

	next := lifecycle.SetViewMode(data, testDay, "focus")
	assert.Equal(t, "focus", next.Sessions[testDay].ViewMode)

	// opaque: any string round-trips
	next = lifecycle.SetViewMode(next, testDay, "some-future-mode")
	assert.Equal(t, "some-future-mode", next.Sessions[testDay].ViewMode)
}
