package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDay = "2026-02-15"

func testData(t *testing.T, exercises ...Exercise) UserData {
	t.Helper()
	data := DefaultUserData()
	data.Workouts[testDay] = exercises
	return data
}

func TestStore_ToggleCheckIn(t *testing.T) {
	store := NewStore()
	data := DefaultUserData()

	next := store.ToggleCheckIn(data, testDay)
	assert.True(t, next.CheckedIn(testDay))
	// original snapshot untouched
	assert.False(t, data.CheckedIn(testDay))

	next = store.ToggleCheckIn(next, testDay)
	assert.False(t, next.CheckedIn(testDay))
}

func TestStore_AddExercise(t *testing.T) {
	store := NewStore()
	data := DefaultUserData()

	next, err := store.AddExercise(data, testDay, "Bench Press", PositionBottom)
	require.NoError(t, err)
	require.Len(t, next.Workouts[testDay], 1)
	assert.Equal(t, "Bench Press", next.Workouts[testDay][0].Name)
	assert.NotEmpty(t, next.Workouts[testDay][0].ID)
	require.Len(t, next.Workouts[testDay][0].Sets, 1)
	assert.Empty(t, next.Workouts[testDay][0].Sets[0].Weight)
	// adding an exercise counts as gym activity
	assert.True(t, next.CheckedIn(testDay))

	next, err = store.AddExercise(next, testDay, "Squats", PositionTop)
	require.NoError(t, err)
	require.Len(t, next.Workouts[testDay], 2)
	assert.Equal(t, "Squats", next.Workouts[testDay][0].Name)
	assert.Equal(t, "Bench Press", next.Workouts[testDay][1].Name)
}

func TestStore_AddExercise_blankName(t *testing.T) {
	store := NewStore()
	data := DefaultUserData()

	_, err := store.AddExercise(data, testDay, "", PositionBottom)
	assert.ErrorIs(t, err, ErrBlankExerciseName)

	_, err = store.AddExercise(data, testDay, "   ", PositionBottom)
	assert.ErrorIs(t, err, ErrBlankExerciseName)

	// a rejected add leaves no trace, not even a check-in
	assert.False(t, data.CheckedIn(testDay))
	assert.Empty(t, data.Workouts[testDay])
}

func TestStore_EditExerciseName(t *testing.T) {
	store := NewStore()
	ex := NewExercise("Bench Press")
	data := testData(t, ex)

	next := store.EditExerciseName(data, testDay, ex.ID, "Incline Bench")
	assert.Equal(t, "Incline Bench", next.Workouts[testDay][0].Name)

	// unknown id: silent no-op
	next = store.EditExerciseName(data, testDay, "no-such-id", "Whatever")
	assert.Equal(t, "Bench Press", next.Workouts[testDay][0].Name)
}

func TestStore_UpdateSet(t *testing.T) {
	store := NewStore()
	ex := NewExercise("Bench Press")
	data := testData(t, ex)

	next, err := store.UpdateSet(data, testDay, ex.ID, 0, SetFieldWeight, "100")
	require.NoError(t, err)
	assert.Equal(t, "100", next.Workouts[testDay][0].Sets[0].Weight)

	next, err = store.UpdateSet(next, testDay, ex.ID, 0, SetFieldReps, "5")
	require.NoError(t, err)
	assert.Equal(t, "5", next.Workouts[testDay][0].Sets[0].Reps)

	next, err = store.UpdateSet(next, testDay, ex.ID, 0, SetFieldCompleted, "true")
	require.NoError(t, err)
	assert.True(t, next.Workouts[testDay][0].Sets[0].Completed)
}

func TestStore_UpdateSet_outOfRange(t *testing.T) {
	store := NewStore()
	ex := NewExercise("Bench Press")
	data := testData(t, ex)

	_, err := store.UpdateSet(data, testDay, ex.ID, 1, SetFieldWeight, "100")
	assert.ErrorIs(t, err, ErrSetIndexOutOfRange)

	_, err = store.UpdateSet(data, testDay, ex.ID, -1, SetFieldWeight, "100")
	assert.ErrorIs(t, err, ErrSetIndexOutOfRange)

	// missing exercise on the other hand is a silent no-op: it may have
	// been deleted by a sync from another device
	next, err := store.UpdateSet(data, testDay, "no-such-id", 5, SetFieldWeight, "100")
	require.NoError(t, err)
	assert.Equal(t, data.Workouts[testDay], next.Workouts[testDay])
}

func TestStore_AddSet_carriesWeightOver(t *testing.T) {
	store := NewStore()
	ex := NewExercise("Squats")
	ex.Sets[0].Weight = "135"
	ex.Sets[0].Reps = "5"
	data := testData(t, ex)

	next := store.AddSet(data, testDay, ex.ID)
	sets := next.Workouts[testDay][0].Sets
	require.Len(t, sets, 2)
	assert.Equal(t, "135", sets[1].Weight)
	assert.Empty(t, sets[1].Reps)
	assert.False(t, sets[1].Completed)
	assert.NotEqual(t, sets[0].ID, sets[1].ID)
	assert.True(t, next.CheckedIn(testDay))
}

func TestStore_DeleteExercise(t *testing.T) {
	store := NewStore()
	exA := NewExercise("A")
	exB := NewExercise("B")
	data := testData(t, exA, exB)

	next := store.DeleteExercise(data, testDay, exA.ID)
	require.Len(t, next.Workouts[testDay], 1)
	assert.Equal(t, "B", next.Workouts[testDay][0].Name)

	// unknown id: silent no-op
	next = store.DeleteExercise(data, testDay, "no-such-id")
	assert.Len(t, next.Workouts[testDay], 2)
}

func TestStore_MoveExercise(t *testing.T) {
	store := NewStore()
	exA := NewExercise("A")
	exB := NewExercise("B")
	exC := NewExercise("C")
	data := testData(t, exA, exB, exC)

	next, err := store.MoveExercise(data, testDay, exB.ID, MoveUp)
	require.NoError(t, err)
	assert.Equal(t, "B", next.Workouts[testDay][0].Name)
	assert.Equal(t, "A", next.Workouts[testDay][1].Name)

	next, err = store.MoveExercise(data, testDay, exB.ID, MoveDown)
	require.NoError(t, err)
	assert.Equal(t, "C", next.Workouts[testDay][1].Name)
	assert.Equal(t, "B", next.Workouts[testDay][2].Name)
}

func TestStore_MoveExercise_boundaries(t *testing.T) {
	store := NewStore()
	exA := NewExercise("A")
	exB := NewExercise("B")
	data := testData(t, exA, exB)

	// already at the top / bottom: no-op, no error
	next, err := store.MoveExercise(data, testDay, exA.ID, MoveUp)
	require.NoError(t, err)
	assert.Equal(t, "A", next.Workouts[testDay][0].Name)

	next, err = store.MoveExercise(data, testDay, exB.ID, MoveDown)
	require.NoError(t, err)
	assert.Equal(t, "B", next.Workouts[testDay][1].Name)

	_, err = store.MoveExercise(data, testDay, exA.ID, MoveDirection("sideways"))
	assert.ErrorIs(t, err, ErrUnknownMoveDirection)
}

func TestStore_MoveExercise_swapsOverArchivedNeighbor(t *testing.T) {
	store := NewStore()
	exA := NewExercise("A")
	archived := NewExercise("Old")
	archived.Archived = true
	exB := NewExercise("B")
	data := testData(t, exA, archived, exB)

	// moving A down swaps it with its archived neighbor; the visible
	// order does not change, only the canonical list does
	next, err := store.MoveExercise(data, testDay, exA.ID, MoveDown)
	require.NoError(t, err)
	assert.Equal(t, "Old", next.Workouts[testDay][0].Name)
	assert.Equal(t, "A", next.Workouts[testDay][1].Name)

	visible := store.Visible(next, testDay)
	require.Len(t, visible, 2)
	assert.Equal(t, "A", visible[0].Name)
	assert.Equal(t, "B", visible[1].Name)
}

func TestIsExerciseEmpty(t *testing.T) {
	ex := NewExercise("Bench Press")
	assert.True(t, IsExerciseEmpty(ex))

	ex.Sets[0].Weight = "  "
	assert.True(t, IsExerciseEmpty(ex))

	ex.Sets[0].Weight = "100"
	assert.False(t, IsExerciseEmpty(ex))

	ex.Sets[0].Weight = ""
	ex.Sets[0].Completed = true
	assert.False(t, IsExerciseEmpty(ex))
}

func TestStore_TotalVolume(t *testing.T) {
	store := NewStore()
	ex := NewExercise("Bench Press")
	ex.Sets[0].Weight = "10"
	ex.Sets[0].Reps = "5"
	ex.Sets[0].Completed = true
	data := testData(t, ex)

	assert.Equal(t, float64(50), store.TotalVolume(data, testDay))

	// uncompleted sets do not count
	data.Workouts[testDay][0].Sets[0].Completed = false
	assert.Equal(t, float64(0), store.TotalVolume(data, testDay))

	// unparsable values do not count
	data.Workouts[testDay][0].Sets[0].Completed = true
	data.Workouts[testDay][0].Sets[0].Reps = "a few"
	assert.Equal(t, float64(0), store.TotalVolume(data, testDay))
}

func TestUserData_Streak(t *testing.T) {
	data := DefaultUserData()
	data.GymLogs = []string{"2026-02-12", "2026-02-13", "2026-02-14"}

	// today not checked in yet: the run ending yesterday still counts
	assert.Equal(t, 3, data.Streak("2026-02-15"))

	data.GymLogs = append(data.GymLogs, "2026-02-15")
	assert.Equal(t, 4, data.Streak("2026-02-15"))

	// a gap resets the count
	data.GymLogs = []string{"2026-02-10", "2026-02-14"}
	assert.Equal(t, 1, data.Streak("2026-02-14"))

	assert.Equal(t, 0, DefaultUserData().Streak("2026-02-15"))
}
