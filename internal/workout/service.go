package workout

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/telemetry/metrics"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
)

const saveTimeout = 10 * time.Second

type stateRepo interface {
	Get(ctx context.Context, userID string) (UserData, error)
	Save(ctx context.Context, userID string, ud UserData) error
	Watch(ctx context.Context, userID string) (<-chan UserData, error)
}

// Service applies state transforms per user. Every command loads the
// current snapshot, runs the pure transform, caches the result
// optimistically and persists it in the background: the caller gets the
// new state immediately and a failed save never blocks or reverts the
// in-memory view (it is logged and counted instead). Last write wins.
type Service struct {
	repo      stateRepo
	store     *Store
	lifecycle *Lifecycle
	metrics   *metrics.Manager

	mutex sync.Mutex
	cache map[string]UserData

	// pending background saves, awaited on shutdown
	saves sync.WaitGroup

	now func() time.Time
}

func NewService(repo stateRepo, metricsManager *metrics.Manager) *Service {
	store := NewStore()
	return &Service{
		repo:      repo,
		store:     store,
		lifecycle: NewLifecycle(store),
		metrics:   metricsManager,
		cache:     map[string]UserData{},
		now:       time.Now,
	}
}

// DayState is the full per-day view handed to clients: the raw snapshot
// plus everything derived from it.
type DayState struct {
	Data      UserData `json:"data"`
	Day       string   `json:"day"`
	Phase     Phase    `json:"phase"`
	CheckedIn bool     `json:"checked_in"`
	Streak    int      `json:"streak"`
	Volume    float64  `json:"volume"`
}

func (s *Service) load(ctx context.Context, userID string) (UserData, error) {
	s.mutex.Lock()
	cached, ok := s.cache[userID]
	s.mutex.Unlock()
	if ok {
		return cached, nil
	}

	ud, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserStateNotFound) {
			return UserData{}, err
		}
		// brand new user, start from a fresh blob
		ud = DefaultUserData()
	}

	s.mutex.Lock()
	s.cache[userID] = ud
	s.mutex.Unlock()
	return ud, nil
}

// apply runs a transform against the user's current snapshot. The result
// replaces the cached state before the save is even attempted.
func (s *Service) apply(ctx context.Context, userID string, transform func(UserData) (UserData, error)) (UserData, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workoutService.apply")
	defer span.End()

	current, err := s.load(ctx, userID)
	if err != nil {
		return UserData{}, err
	}

	next, err := transform(current)
	if err != nil {
		return UserData{}, err
	}

	s.mutex.Lock()
	s.cache[userID] = next
	s.mutex.Unlock()

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if saveErr := s.repo.Save(saveCtx, userID, next); saveErr != nil {
			s.metrics.CounterStateSaveFailures.Inc()
			log.Errorf("save user state for %s: %s", userID, saveErr)
		}
	}()

	return next, nil
}

// WaitSaves blocks until all pending background saves land. Called on
// graceful shutdown so the last edits are not lost.
func (s *Service) WaitSaves() {
	s.saves.Wait()
}

func (s *Service) State(ctx context.Context, userID, day string) (DayState, error) {
	ud, err := s.load(ctx, userID)
	if err != nil {
		return DayState{}, err
	}
	return s.dayState(ud, day), nil
}

func (s *Service) dayState(ud UserData, day string) DayState {
	return DayState{
		Data:      ud,
		Day:       day,
		Phase:     s.lifecycle.Phase(ud, day),
		CheckedIn: ud.CheckedIn(day),
		Streak:    ud.Streak(day),
		Volume:    s.store.TotalVolume(ud, day),
	}
}

// Sync replaces the cached snapshot with one that arrived from another
// device over the replacement feed.
func (s *Service) Sync(userID string, ud UserData) {
	s.mutex.Lock()
	s.cache[userID] = ud
	s.mutex.Unlock()
}

// Watch exposes the repo's replacement feed, refreshing the local cache
// as updates flow through.
func (s *Service) Watch(ctx context.Context, userID string) (<-chan UserData, error) {
	updates, err := s.repo.Watch(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan UserData)
	go func() {
		defer close(out)
		for ud := range updates {
			s.Sync(userID, ud)
			select {
			case out <- ud:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *Service) ToggleCheckIn(ctx context.Context, userID, day string) (UserData, error) {
	ud, err := s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.ToggleCheckIn(data, day), nil
	})
	if err == nil {
		s.metrics.CounterCheckIns.Inc()
	}
	return ud, err
}

func (s *Service) AddExercise(ctx context.Context, userID, day, name string, position Position) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.AddExercise(data, day, name, position)
	})
}

func (s *Service) EditExerciseName(ctx context.Context, userID, day, exerciseID, newName string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.EditExerciseName(data, day, exerciseID, newName), nil
	})
}

func (s *Service) UpdateSet(ctx context.Context, userID, day, exerciseID string, setIndex int, field SetField, value string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.UpdateSet(data, day, exerciseID, setIndex, field, value)
	})
}

func (s *Service) AddSet(ctx context.Context, userID, day, exerciseID string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.AddSet(data, day, exerciseID), nil
	})
}

// DeleteExercise removes the exercise and pulls the session cursor back
// into bounds in the same snapshot, so a delete mid-session never leaves
// the cursor pointing past the end of the list.
func (s *Service) DeleteExercise(ctx context.Context, userID, day, exerciseID string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		next := s.store.DeleteExercise(data, day, exerciseID)
		return s.lifecycle.ClampCursor(next, day), nil
	})
}

func (s *Service) MoveExercise(ctx context.Context, userID, day, exerciseID string, direction MoveDirection) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.store.MoveExercise(data, day, exerciseID, direction)
	})
}

func (s *Service) StartSession(ctx context.Context, userID, day string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.StartSession(data, day)
	})
}

func (s *Service) FinishWorkout(ctx context.Context, userID, day string) (UserData, error) {
	ud, err := s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.FinishWorkout(data, day, s.now()), nil
	})
	if err == nil {
		s.metrics.CounterWorkoutsFinished.Inc()
	}
	return ud, err
}

func (s *Service) AbortSession(ctx context.Context, userID, day string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.AbortSession(data, day), nil
	})
}

func (s *Service) BackToOverview(ctx context.Context, userID, day string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.BackToOverview(data, day), nil
	})
}

func (s *Service) UndoFinish(ctx context.Context, userID, day string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.UndoFinish(data, day), nil
	})
}

func (s *Service) StartNewSession(ctx context.Context, userID, day string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.StartNewSession(data, day), nil
	})
}

func (s *Service) MoveCursor(ctx context.Context, userID, day string, delta int) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.MoveCursor(data, day, delta), nil
	})
}

func (s *Service) SetViewMode(ctx context.Context, userID, day, mode string) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		return s.lifecycle.SetViewMode(data, day, mode), nil
	})
}

// ApplyTemplate appends one fresh exercise per template entry to the
// bottom of the day's list, each with its own new ids and a single empty
// set. Applying a template counts as gym activity for the day.
func (s *Service) ApplyTemplate(ctx context.Context, userID, day string, exerciseNames []string) (UserData, error) {
	ud, err := s.apply(ctx, userID, func(data UserData) (UserData, error) {
		next := data.Clone()
		for _, name := range exerciseNames {
			next.Workouts[day] = append(next.Workouts[day], NewExercise(name))
		}
		s.store.ensureCheckIn(&next, day)
		return next, nil
	})
	if err == nil {
		s.metrics.CounterTemplatesApplied.Inc()
	}
	return ud, err
}

func (s *Service) AddSteps(ctx context.Context, userID string, steps int) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		next := data.Clone()
		next.StepsToday += steps
		if next.StepsToday < 0 {
			next.StepsToday = 0
		}
		return next, nil
	})
}

func (s *Service) AddPushups(ctx context.Context, userID string, pushups int) (UserData, error) {
	return s.apply(ctx, userID, func(data UserData) (UserData, error) {
		next := data.Clone()
		next.PushupsCompleted += pushups
		if next.PushupsCompleted < 0 {
			next.PushupsCompleted = 0
		}
		return next, nil
	})
}
