package workout

import (
	"time"

	"github.com/google/uuid"

	"github.com/harshssd/HyperFit-sub001/internal/templates"
	"github.com/harshssd/HyperFit-sub001/pkg"
)

// Set is a single logged set of an exercise. Weight and reps stay strings
// on purpose: the mobile client sends raw input field contents, and a blank
// value means "not filled in yet".
type Set struct {
	ID        string `json:"id"`
	Weight    string `json:"weight"`
	Reps      string `json:"reps"`
	Completed bool   `json:"completed"`
}

func NewEmptySet() Set {
	return Set{
		ID: uuid.NewString(),
	}
}

// Exercise owns its sets exclusively. Archived marks an exercise carried
// over from an already-finished session on the same day: hidden from active
// views, preserved for history and volume, never touched by session resets.
type Exercise struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sets     []Set  `json:"sets"`
	Archived bool   `json:"archived"`
}

func NewExercise(name string) Exercise {
	return Exercise{
		ID:   uuid.NewString(),
		Name: name,
		Sets: []Set{NewEmptySet()},
	}
}

// DayStatus drives the finished/unfinished switch for a calendar day.
type DayStatus struct {
	Finished   bool       `json:"finished"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// SessionView is the per-day session UI state: whether the user stepped
// into the active session, which exercise the focus view points at, and
// the focus/list render toggle. The view mode is presentation-only and is
// just round-tripped, never interpreted.
type SessionView struct {
	Started    bool   `json:"started"`
	CurrentIdx int    `json:"currentExIndex"`
	ViewMode   string `json:"viewMode,omitempty"`
}

// UserData is the full per-user application state blob, stored and replaced
// as one document (last writer wins, no field-level merge).
type UserData struct {
	StepsToday       int                    `json:"stepsToday"`
	GymLogs          []string               `json:"gymLogs"`
	Workouts         map[string][]Exercise  `json:"workouts"`
	WorkoutStatus    map[string]DayStatus   `json:"workoutStatus"`
	Sessions         map[string]SessionView `json:"sessions"`
	ActiveChallenges []string               `json:"activeChallenges"`
	CustomTemplates  []templates.Template   `json:"customTemplates"`
	CustomChallenges []string               `json:"customChallenges"`
	PushupsCompleted int                    `json:"pushupsCompleted"`
}

func DefaultUserData() UserData {
	return UserData{
		GymLogs:          []string{},
		Workouts:         map[string][]Exercise{},
		WorkoutStatus:    map[string]DayStatus{},
		Sessions:         map[string]SessionView{},
		ActiveChallenges: []string{},
		CustomTemplates:  []templates.Template{},
		CustomChallenges: []string{},
	}
}

// Normalize fills in every missing collection field with its default, so
// blobs loaded from older clients or partial writes never surface nil maps.
func (d *UserData) Normalize() {
	if d.GymLogs == nil {
		d.GymLogs = []string{}
	}
	if d.Workouts == nil {
		d.Workouts = map[string][]Exercise{}
	}
	if d.WorkoutStatus == nil {
		d.WorkoutStatus = map[string]DayStatus{}
	}
	if d.Sessions == nil {
		d.Sessions = map[string]SessionView{}
	}
	if d.ActiveChallenges == nil {
		d.ActiveChallenges = []string{}
	}
	if d.CustomTemplates == nil {
		d.CustomTemplates = []templates.Template{}
	}
	if d.CustomChallenges == nil {
		d.CustomChallenges = []string{}
	}
	for day, exercises := range d.Workouts {
		for i := range exercises {
			if exercises[i].Sets == nil {
				exercises[i].Sets = []Set{}
			}
		}
		d.Workouts[day] = exercises
	}
}

// Clone deep-copies the blob. Every store operation works on a clone and
// returns it as the new snapshot, leaving the input untouched.
func (d UserData) Clone() UserData {
	out := d

	out.GymLogs = append([]string{}, d.GymLogs...)
	out.ActiveChallenges = append([]string{}, d.ActiveChallenges...)
	out.CustomChallenges = append([]string{}, d.CustomChallenges...)
	out.CustomTemplates = append([]templates.Template{}, d.CustomTemplates...)

	out.Workouts = make(map[string][]Exercise, len(d.Workouts))
	for day, exercises := range d.Workouts {
		cloned := make([]Exercise, len(exercises))
		for i, ex := range exercises {
			clonedEx := ex
			clonedEx.Sets = append([]Set{}, ex.Sets...)
			cloned[i] = clonedEx
		}
		out.Workouts[day] = cloned
	}

	out.WorkoutStatus = make(map[string]DayStatus, len(d.WorkoutStatus))
	for day, status := range d.WorkoutStatus {
		out.WorkoutStatus[day] = status
	}

	out.Sessions = make(map[string]SessionView, len(d.Sessions))
	for day, session := range d.Sessions {
		out.Sessions[day] = session
	}

	return out
}

// CheckedIn reports whether the given day is in the gym check-in log.
func (d UserData) CheckedIn(day string) bool {
	for _, logged := range d.GymLogs {
		if logged == day {
			return true
		}
	}
	return false
}

// Streak counts consecutive checked-in days ending at the given day.
// A day without a check-in yet still counts the run ending yesterday.
func (d UserData) Streak(day string) int {
	checked := make(map[string]bool, len(d.GymLogs))
	for _, logged := range d.GymLogs {
		checked[logged] = true
	}

	cursor, err := time.ParseInLocation(pkg.DateLayout, day, time.Local)
	if err != nil {
		return 0
	}
	if !checked[day] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for checked[pkg.DayKey(cursor)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
