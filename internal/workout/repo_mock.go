package workout

import (
	"context"
	"sync"
)

// repoMock is an in memory stand-in for the postgres+redis backed Repo.
type repoMock struct {
	mutex    sync.Mutex
	states   map[string]UserData
	saves    int
	watchers map[string][]chan UserData

	// when set, Get and Save fail with this error
	failWith error
}

func newRepoMock() *repoMock {
	return &repoMock{
		states:   map[string]UserData{},
		watchers: map[string][]chan UserData{},
	}
}

func (r *repoMock) FailWith(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.failWith = err
}

func (r *repoMock) SavesCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.saves
}

func (r *repoMock) Get(_ context.Context, userID string) (UserData, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failWith != nil {
		return UserData{}, r.failWith
	}
	ud, ok := r.states[userID]
	if !ok {
		return UserData{}, ErrUserStateNotFound
	}
	return ud.Clone(), nil
}

func (r *repoMock) Save(_ context.Context, userID string, ud UserData) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.saves++
	r.states[userID] = ud.Clone()
	for _, w := range r.watchers[userID] {
		select {
		case w <- ud.Clone():
		default:
		}
	}
	return nil
}

func (r *repoMock) Watch(_ context.Context, userID string) (<-chan UserData, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	updates := make(chan UserData, 16)
	r.watchers[userID] = append(r.watchers[userID], updates)
	return updates, nil
}
