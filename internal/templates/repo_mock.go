package templates

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

type repoMock struct {
	templates map[string]*Template
	folders   map[string]*Folder
	favorites map[string]map[string]bool

	// set to make every call fail, for fallback-path tests
	failWith error
}

func NewMockTemplatesRepo() *repoMock {
	return &repoMock{
		templates: make(map[string]*Template),
		folders:   make(map[string]*Folder),
		favorites: make(map[string]map[string]bool),
	}
}

func (r *repoMock) FailWith(err error) {
	r.failWith = err
}

func (r *repoMock) ListTemplates(_ context.Context, owner string) ([]Template, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	listed := make([]Template, 0)
	for _, t := range r.templates {
		if t.IsStandard || t.IsPublic || (t.Owner != nil && *t.Owner == owner) {
			listed = append(listed, *t)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].CreatedAt.After(listed[j].CreatedAt)
	})
	return listed, nil
}

func (r *repoMock) GetTemplate(_ context.Context, id string) (*Template, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	t, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (r *repoMock) CreateTemplate(_ context.Context, template Template) (*Template, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	r.templates[template.ID] = &template
	return &template, nil
}

func (r *repoMock) DeleteTemplate(_ context.Context, id, owner string) error {
	if r.failWith != nil {
		return r.failWith
	}
	t, ok := r.templates[id]
	if !ok || t.Owner == nil || *t.Owner != owner {
		return ErrTemplateNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *repoMock) ListFolders(_ context.Context, owner string) ([]Folder, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	listed := make([]Folder, 0)
	for _, f := range r.folders {
		if f.Owner == owner {
			listed = append(listed, *f)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].Name < listed[j].Name
	})
	return listed, nil
}

func (r *repoMock) CreateFolder(_ context.Context, folder Folder) (*Folder, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	r.folders[folder.ID] = &folder
	return &folder, nil
}

func (r *repoMock) DeleteFolder(_ context.Context, id, owner string) error {
	if r.failWith != nil {
		return r.failWith
	}
	f, ok := r.folders[id]
	if !ok || f.Owner != owner {
		return ErrFolderNotFound
	}
	for _, t := range r.templates {
		if t.FolderID != nil && *t.FolderID == id {
			t.FolderID = nil
		}
	}
	delete(r.folders, id)
	return nil
}

func (r *repoMock) ListFavorites(_ context.Context, owner string) ([]string, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	ids := make([]string, 0)
	for id := range r.favorites[owner] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *repoMock) AddFavorite(_ context.Context, owner, templateID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	if r.favorites[owner] == nil {
		r.favorites[owner] = make(map[string]bool)
	}
	r.favorites[owner][templateID] = true
	return nil
}

func (r *repoMock) RemoveFavorite(_ context.Context, owner, templateID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	delete(r.favorites[owner], templateID)
	return nil
}
