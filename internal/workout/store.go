package workout

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrBlankExerciseName    = errors.New("exercise name is blank")
	ErrSetIndexOutOfRange   = errors.New("set index out of range")
	ErrUnknownSetField      = errors.New("unknown set field")
	ErrUnknownPosition      = errors.New("unknown insert position")
	ErrUnknownMoveDirection = errors.New("unknown move direction")
)

// Position is the end of the day's list a new exercise gets inserted at.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// SetField names a mutable field of a workout set.
type SetField string

const (
	SetFieldWeight    SetField = "weight"
	SetFieldReps      SetField = "reps"
	SetFieldCompleted SetField = "completed"
)

// Store holds the pure state transforms over the user blob. Every operation
// clones the input and returns the mutated clone as the next snapshot; the
// caller owns persisting it. Nothing in here touches the network or clock.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// ToggleCheckIn flips the day's membership in the gym check-in log.
func (s *Store) ToggleCheckIn(data UserData, day string) UserData {
	next := data.Clone()
	if next.CheckedIn(day) {
		kept := next.GymLogs[:0]
		for _, logged := range next.GymLogs {
			if logged != day {
				kept = append(kept, logged)
			}
		}
		next.GymLogs = kept
		return next
	}
	next.GymLogs = append(next.GymLogs, day)
	return next
}

func (s *Store) ensureCheckIn(data *UserData, day string) {
	if !data.CheckedIn(day) {
		data.GymLogs = append(data.GymLogs, day)
	}
}

// AddExercise creates a new exercise with one empty set and inserts it at
// the requested end of the day's list. Blank and whitespace-only names are
// rejected before any state change. Adding an exercise counts as gym
// activity, so the day is checked in as a side effect.
func (s *Store) AddExercise(data UserData, day, name string, position Position) (UserData, error) {
	if strings.TrimSpace(name) == "" {
		return data, ErrBlankExerciseName
	}

	next := data.Clone()
	exercise := NewExercise(strings.TrimSpace(name))

	switch position {
	case PositionTop:
		next.Workouts[day] = append([]Exercise{exercise}, next.Workouts[day]...)
	case PositionBottom:
		next.Workouts[day] = append(next.Workouts[day], exercise)
	default:
		return data, ErrUnknownPosition
	}

	s.ensureCheckIn(&next, day)
	return next, nil
}

// EditExerciseName renames an exercise in place. Unknown ids are a silent
// no-op, the snapshot comes back unchanged.
func (s *Store) EditExerciseName(data UserData, day, exerciseID, newName string) UserData {
	next := data.Clone()
	for i, ex := range next.Workouts[day] {
		if ex.ID == exerciseID {
			next.Workouts[day][i].Name = newName
			break
		}
	}
	return next
}

// UpdateSet writes one field of one set. A missing exercise is a silent
// no-op (it may have been deleted by a concurrent device sync), but an
// out-of-range set index is a caller contract violation and fails loudly.
func (s *Store) UpdateSet(data UserData, day, exerciseID string, setIndex int, field SetField, value string) (UserData, error) {
	next := data.Clone()
	for i, ex := range next.Workouts[day] {
		if ex.ID != exerciseID {
			continue
		}

		if setIndex < 0 || setIndex >= len(ex.Sets) {
			return data, ErrSetIndexOutOfRange
		}

		switch field {
		case SetFieldWeight:
			next.Workouts[day][i].Sets[setIndex].Weight = value
		case SetFieldReps:
			next.Workouts[day][i].Sets[setIndex].Reps = value
		case SetFieldCompleted:
			completed, err := strconv.ParseBool(value)
			if err != nil {
				return data, ErrUnknownSetField
			}
			next.Workouts[day][i].Sets[setIndex].Completed = completed
		default:
			return data, ErrUnknownSetField
		}
		return next, nil
	}
	return next, nil
}

// AddSet appends a new set to the exercise, carrying the previous set's
// weight over as a continuity convenience. With no previous set the new
// one simply starts with an empty weight. Unknown ids are a silent no-op.
func (s *Store) AddSet(data UserData, day, exerciseID string) UserData {
	next := data.Clone()
	for i, ex := range next.Workouts[day] {
		if ex.ID != exerciseID {
			continue
		}
		newSet := NewEmptySet()
		if len(ex.Sets) > 0 {
			newSet.Weight = ex.Sets[len(ex.Sets)-1].Weight
		}
		next.Workouts[day][i].Sets = append(next.Workouts[day][i].Sets, newSet)
		s.ensureCheckIn(&next, day)
		break
	}
	return next
}

// DeleteExercise removes the exercise unconditionally. Confirmation of
// destructive actions is a presentation concern, not enforced here.
func (s *Store) DeleteExercise(data UserData, day, exerciseID string) UserData {
	next := data.Clone()
	exercises := next.Workouts[day]
	for i, ex := range exercises {
		if ex.ID == exerciseID {
			next.Workouts[day] = append(exercises[:i], exercises[i+1:]...)
			break
		}
	}
	return next
}

// MoveExercise swaps the exercise with its immediate neighbor in the FULL
// day list, archived entries included. The UI renders only the visible
// subset, so a swap past a hidden archived neighbor has no visible effect;
// that quirk is intentional and preserved (ids are always resolved against
// the canonical list, never against visible indices).
func (s *Store) MoveExercise(data UserData, day, exerciseID string, direction MoveDirection) (UserData, error) {
	next := data.Clone()
	exercises := next.Workouts[day]

	index := -1
	for i, ex := range exercises {
		if ex.ID == exerciseID {
			index = i
			break
		}
	}
	if index == -1 {
		return next, nil
	}

	var target int
	switch direction {
	case MoveUp:
		target = index - 1
	case MoveDown:
		target = index + 1
	default:
		return data, ErrUnknownMoveDirection
	}

	if target < 0 || target >= len(exercises) {
		// at the boundary, nothing to swap with
		return next, nil
	}

	exercises[index], exercises[target] = exercises[target], exercises[index]
	return next, nil
}

// IsExerciseEmpty is true iff no set is completed and no set has a
// non-blank weight or reps. Empty exercises get silently dropped when the
// session is finished.
func IsExerciseEmpty(ex Exercise) bool {
	for _, set := range ex.Sets {
		if set.Completed {
			return false
		}
		if strings.TrimSpace(set.Weight) != "" || strings.TrimSpace(set.Reps) != "" {
			return false
		}
	}
	return true
}

// Visible returns the day's exercises excluding archived ones, in order.
func (s *Store) Visible(data UserData, day string) []Exercise {
	visible := make([]Exercise, 0, len(data.Workouts[day]))
	for _, ex := range data.Workouts[day] {
		if !ex.Archived {
			visible = append(visible, ex)
		}
	}
	return visible
}

// TotalVolume sums weight*reps over completed sets of visible exercises.
// Sets missing either value (or holding something unparsable) don't count.
func (s *Store) TotalVolume(data UserData, day string) float64 {
	var total float64
	for _, ex := range s.Visible(data, day) {
		for _, set := range ex.Sets {
			if !set.Completed {
				continue
			}
			weight, errW := strconv.ParseFloat(strings.TrimSpace(set.Weight), 64)
			reps, errR := strconv.ParseFloat(strings.TrimSpace(set.Reps), 64)
			if errW != nil || errR != nil {
				continue
			}
			total += weight * reps
		}
	}
	return total
}
