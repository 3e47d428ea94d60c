package workout

import (
	"errors"
	"time"
)

var ErrSessionNeedsExercise = errors.New("session needs at least one exercise")

// Phase of the day's workout session. Only Active/Finished carry explicit
// state; Idle vs Overview falls out of whether any visible exercise exists.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseOverview Phase = "overview"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Lifecycle drives the overview -> active -> finished state machine for a
// single day. Like the Store, every transition returns a fresh snapshot.
type Lifecycle struct {
	store *Store
}

func NewLifecycle(store *Store) *Lifecycle {
	return &Lifecycle{
		store: store,
	}
}

func (l *Lifecycle) Phase(data UserData, day string) Phase {
	if data.WorkoutStatus[day].Finished {
		return PhaseFinished
	}
	if data.Sessions[day].Started {
		return PhaseActive
	}
	if len(l.store.Visible(data, day)) == 0 {
		return PhaseIdle
	}
	return PhaseOverview
}

// StartSession moves overview -> active, cursor on the first exercise.
func (l *Lifecycle) StartSession(data UserData, day string) (UserData, error) {
	if len(l.store.Visible(data, day)) == 0 {
		return data, ErrSessionNeedsExercise
	}

	next := data.Clone()
	session := next.Sessions[day]
	session.Started = true
	session.CurrentIdx = 0
	next.Sessions[day] = session
	return next, nil
}

// FinishWorkout strips every empty non-archived exercise (archived ones
// are history and survive even when empty), marks the day finished and
// stamps the finish time.
func (l *Lifecycle) FinishWorkout(data UserData, day string, finishedAt time.Time) UserData {
	next := data.Clone()

	kept := make([]Exercise, 0, len(next.Workouts[day]))
	for _, ex := range next.Workouts[day] {
		if !ex.Archived && IsExerciseEmpty(ex) {
			continue
		}
		kept = append(kept, ex)
	}
	next.Workouts[day] = kept

	next.WorkoutStatus[day] = DayStatus{
		Finished:   true,
		FinishedAt: &finishedAt,
	}

	session := next.Sessions[day]
	session.Started = false
	next.Sessions[day] = session

	return next
}

// BackToOverview leaves the active session, discarding the cursor.
func (l *Lifecycle) BackToOverview(data UserData, day string) UserData {
	next := data.Clone()
	session := next.Sessions[day]
	session.Started = false
	session.CurrentIdx = 0
	next.Sessions[day] = session
	return next
}

// AbortSession throws away all non-archived exercises for the day.
// Archived history stays. Destructive; callers must have confirmed.
func (l *Lifecycle) AbortSession(data UserData, day string) UserData {
	next := data.Clone()

	kept := make([]Exercise, 0, len(next.Workouts[day]))
	for _, ex := range next.Workouts[day] {
		if ex.Archived {
			kept = append(kept, ex)
		}
	}
	next.Workouts[day] = kept

	session := next.Sessions[day]
	session.Started = false
	session.CurrentIdx = 0
	next.Sessions[day] = session

	return next
}

// UndoFinish clears the finished flag so the list is editable again.
// Exercises stripped at finish time are gone and do not come back.
func (l *Lifecycle) UndoFinish(data UserData, day string) UserData {
	next := data.Clone()
	next.WorkoutStatus[day] = DayStatus{}
	return next
}

// StartNewSession layers a fresh session on top of the finished one:
// empty leftovers are dropped, every surviving exercise is archived, and
// the finished flag is cleared. The visible list comes up empty while the
// archived history keeps counting for stats and volume.
func (l *Lifecycle) StartNewSession(data UserData, day string) UserData {
	next := data.Clone()

	kept := make([]Exercise, 0, len(next.Workouts[day]))
	for _, ex := range next.Workouts[day] {
		if !ex.Archived && IsExerciseEmpty(ex) {
			continue
		}
		ex.Archived = true
		kept = append(kept, ex)
	}
	next.Workouts[day] = kept

	next.WorkoutStatus[day] = DayStatus{}

	session := next.Sessions[day]
	session.Started = false
	session.CurrentIdx = 0
	next.Sessions[day] = session

	return next
}

// MoveCursor steps the focus-view cursor over the visible list, clamped
// at both ends.
func (l *Lifecycle) MoveCursor(data UserData, day string, delta int) UserData {
	next := data.Clone()
	session := next.Sessions[day]
	session.CurrentIdx += delta
	next.Sessions[day] = session
	return l.ClampCursor(next, day)
}

// ClampCursor pulls the cursor back into the visible list bounds after
// the list shrank (e.g. a delete mid-session).
func (l *Lifecycle) ClampCursor(data UserData, day string) UserData {
	next := data.Clone()
	session := next.Sessions[day]

	visibleLen := len(l.store.Visible(next, day))
	if session.CurrentIdx > visibleLen-1 {
		session.CurrentIdx = visibleLen - 1
	}
	if session.CurrentIdx < 0 {
		session.CurrentIdx = 0
	}

	next.Sessions[day] = session
	return next
}

// SetViewMode stores the focus/list render toggle; it is round-tripped
// for the client and never interpreted here.
func (l *Lifecycle) SetViewMode(data UserData, day, mode string) UserData {
	next := data.Clone()
	session := next.Sessions[day]
	session.ViewMode = mode
	next.Sessions[day] = session
	return next
}
