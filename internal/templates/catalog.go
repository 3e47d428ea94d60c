package templates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
)

var (
	ErrBlankTemplateName   = errors.New("template name is blank")
	ErrNoTemplateExercises = errors.New("template needs at least one exercise")
	ErrBlankFolderName     = errors.New("folder name is blank")
)

const (
	lastGoodCacheTTL  = 12 * 60 * 60 // seconds
	lastGoodCacheSize = 10 * 1024 * 1024
)

type templatesRepo interface {
	ListTemplates(ctx context.Context, owner string) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)
	CreateTemplate(ctx context.Context, template Template) (*Template, error)
	DeleteTemplate(ctx context.Context, id, owner string) error
	ListFolders(ctx context.Context, owner string) ([]Folder, error)
	CreateFolder(ctx context.Context, folder Folder) (*Folder, error)
	DeleteFolder(ctx context.Context, id, owner string) error
	ListFavorites(ctx context.Context, owner string) ([]string, error)
	AddFavorite(ctx context.Context, owner, templateID string) error
	RemoveFavorite(ctx context.Context, owner, templateID string) error
}

// Catalog is the template management layer the client talks to. It caches
// the last good remote fetch per owner and degrades to built-ins plus
// locally saved templates when the remote store is unreachable; reads
// never fail towards the caller.
type Catalog struct {
	repo templatesRepo

	mutex     sync.Mutex
	lastGood  *freecache.Cache
	localOnly map[string][]Template
	templates map[string][]Template
	folders   map[string][]Folder
	favorites map[string]map[string]bool
}

func NewCatalog(repo templatesRepo) *Catalog {
	return &Catalog{
		repo:      repo,
		lastGood:  freecache.NewCache(lastGoodCacheSize),
		localOnly: make(map[string][]Template),
		templates: make(map[string][]Template),
		folders:   make(map[string][]Folder),
		favorites: make(map[string]map[string]bool),
	}
}

// FetchTemplates lists the owner's visible templates, newest first. A
// remote failure is absorbed: the result falls back to the built-in list
// plus cached and local-only custom templates, and the previous in-memory
// list is RESET to that fallback (unlike folders/favorites).
func (c *Catalog) FetchTemplates(ctx context.Context, owner string) []Template {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.templates.fetch")
	defer span.End()

	remote, err := c.repo.ListTemplates(ctx, owner)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err != nil {
		log.Errorf("fetch templates for %s failed, serving fallback: %s", owner, err)
		fallback := append(BuiltinTemplates(), c.cachedCustoms(owner)...)
		fallback = append(fallback, c.localOnly[owner]...)
		c.templates[owner] = fallback
		return fallback
	}

	result := append(remote, c.localOnly[owner]...)
	c.templates[owner] = result
	c.storeLastGood(owner, remote)
	return result
}

// FetchFolders lists the owner's folders alphabetically. On failure the
// previously cached folders are returned untouched.
func (c *Catalog) FetchFolders(ctx context.Context, owner string) []Folder {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.folders.fetch")
	defer span.End()

	remote, err := c.repo.ListFolders(ctx, owner)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err != nil {
		log.Errorf("fetch folders for %s failed, keeping cached: %s", owner, err)
		return c.folders[owner]
	}

	c.folders[owner] = remote
	return remote
}

// FetchFavorites returns the owner's favorited template ids. On failure
// the previously cached set is returned untouched.
func (c *Catalog) FetchFavorites(ctx context.Context, owner string) map[string]bool {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.favorites.fetch")
	defer span.End()

	ids, err := c.repo.ListFavorites(ctx, owner)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err != nil {
		log.Errorf("fetch favorites for %s failed, keeping cached: %s", owner, err)
		return c.favoritesSet(owner)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	c.favorites[owner] = set
	return set
}

// SaveAsTemplate validates and persists a new template. When the remote
// write fails the template is kept as a local-only copy AND the error is
// returned: this is the one fallback the caller must surface.
func (c *Catalog) SaveAsTemplate(
	ctx context.Context,
	owner, username, name string,
	exerciseNames []string,
	folderID *string,
	tags []string,
) (*Template, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.templates.save")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, ErrBlankTemplateName
	}
	if len(exerciseNames) == 0 {
		return nil, ErrNoTemplateExercises
	}
	if tags == nil {
		tags = []string{}
	}

	template := Template{
		Name:              strings.TrimSpace(name),
		Exercises:         append([]string{}, exerciseNames...),
		Owner:             &owner,
		FolderID:          folderID,
		Tags:              tags,
		CreatedByUsername: username,
		CreatedAt:         time.Now(),
	}

	saved, err := c.repo.CreateTemplate(ctx, template)
	if err != nil {
		log.Errorf("save template [%s] for %s failed, keeping local-only copy: %s", name, owner, err)
		local := template
		local.ID = uuid.NewString()
		c.mutex.Lock()
		c.localOnly[owner] = append(c.localOnly[owner], local)
		c.templates[owner] = append(c.templates[owner], local)
		c.mutex.Unlock()
		return &local, err
	}

	c.mutex.Lock()
	c.templates[owner] = append([]Template{*saved}, c.templates[owner]...)
	c.mutex.Unlock()
	return saved, nil
}

// ToggleFavorite flips the favorite flag locally first and then tries the
// remote write; a remote failure is logged and NOT rolled back
// (documented best-effort). Returns the new local state.
func (c *Catalog) ToggleFavorite(ctx context.Context, owner, templateID string) bool {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.favorites.toggle")
	defer span.End()

	c.mutex.Lock()
	set := c.favoritesSet(owner)
	nowFavorite := !set[templateID]
	if nowFavorite {
		set[templateID] = true
	} else {
		delete(set, templateID)
	}
	c.favorites[owner] = set
	c.mutex.Unlock()

	var err error
	if nowFavorite {
		err = c.repo.AddFavorite(ctx, owner, templateID)
	} else {
		err = c.repo.RemoveFavorite(ctx, owner, templateID)
	}
	if err != nil {
		log.Errorf("toggle favorite [%s] for %s remote write failed (kept local): %s", templateID, owner, err)
	}

	return nowFavorite
}

// DeleteTemplate attempts the owner-scoped remote delete and prunes the
// local caches unconditionally, whatever the remote outcome.
func (c *Catalog) DeleteTemplate(ctx context.Context, owner, templateID string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.templates.delete")
	defer span.End()

	err := c.repo.DeleteTemplate(ctx, templateID, owner)
	if err != nil {
		log.Errorf("delete template [%s] for %s: %s", templateID, owner, err)
	}

	c.mutex.Lock()
	c.templates[owner] = pruneTemplate(c.templates[owner], templateID)
	c.localOnly[owner] = pruneTemplate(c.localOnly[owner], templateID)
	if set, ok := c.favorites[owner]; ok {
		delete(set, templateID)
	}
	c.mutex.Unlock()

	return err
}

// DuplicateTemplate makes a local-only copy with a fresh id and a
// "(Copy)" name suffix. It lives in the catalog until explicitly saved.
func (c *Catalog) DuplicateTemplate(owner string, template Template) Template {
	copied := template.Duplicate()
	copied.Owner = &owner

	c.mutex.Lock()
	c.localOnly[owner] = append(c.localOnly[owner], copied)
	c.templates[owner] = append(c.templates[owner], copied)
	c.mutex.Unlock()

	return copied
}

// CreateFolder persists a folder remotely; a failure surfaces to the user
// and leaves the local folder cache untouched.
func (c *Catalog) CreateFolder(ctx context.Context, owner, name, color, icon string) (*Folder, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.folders.create")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, ErrBlankFolderName
	}

	folder, err := c.repo.CreateFolder(ctx, Folder{
		Owner: owner,
		Name:  strings.TrimSpace(name),
		Color: color,
		Icon:  icon,
	})
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.folders[owner] = append(c.folders[owner], *folder)
	c.mutex.Unlock()
	return folder, nil
}

// DeleteFolder removes the folder remotely (templates inside it are
// detached, not deleted) and prunes the local folder cache on success.
func (c *Catalog) DeleteFolder(ctx context.Context, owner, folderID string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.folders.delete")
	defer span.End()

	if err := c.repo.DeleteFolder(ctx, folderID, owner); err != nil {
		return err
	}

	c.mutex.Lock()
	kept := make([]Folder, 0, len(c.folders[owner]))
	for _, f := range c.folders[owner] {
		if f.ID != folderID {
			kept = append(kept, f)
		}
	}
	c.folders[owner] = kept
	c.mutex.Unlock()
	return nil
}

// Get resolves a template by id, preferring the in-memory list (which
// includes local-only copies) over a remote lookup.
func (c *Catalog) Get(ctx context.Context, owner, templateID string) (*Template, error) {
	c.mutex.Lock()
	for _, t := range c.templates[owner] {
		if t.ID == templateID {
			found := t
			c.mutex.Unlock()
			return &found, nil
		}
	}
	c.mutex.Unlock()

	return c.repo.GetTemplate(ctx, templateID)
}

// FilterParams compose with logical AND; the tags filter itself uses OR
// semantics (any selected tag present).
type FilterParams struct {
	Query         string
	FolderID      *string
	FavoritesOnly bool
	Tags          []string
}

// Filter runs over the catalog's current list for the owner.
func (c *Catalog) Filter(owner string, params FilterParams) []Template {
	c.mutex.Lock()
	templates := append([]Template{}, c.templates[owner]...)
	favorites := c.favoritesSet(owner)
	c.mutex.Unlock()

	query := strings.ToLower(strings.TrimSpace(params.Query))

	filtered := make([]Template, 0, len(templates))
	for _, t := range templates {
		if params.FavoritesOnly && !favorites[t.ID] {
			continue
		}
		if params.FolderID != nil && !folderMatches(t, *params.FolderID) {
			continue
		}
		if len(params.Tags) > 0 && !anyTagMatches(t, params.Tags) {
			continue
		}
		if query != "" && !queryMatches(t, query) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func folderMatches(t Template, folderID string) bool {
	return t.FolderID != nil && *t.FolderID == folderID
}

func anyTagMatches(t Template, tags []string) bool {
	for _, wanted := range tags {
		for _, tag := range t.Tags {
			if strings.EqualFold(tag, wanted) {
				return true
			}
		}
	}
	return false
}

func queryMatches(t Template, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(t.Name), loweredQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), loweredQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(t.CreatedByUsername), loweredQuery) {
		return true
	}
	for _, exercise := range t.Exercises {
		if strings.Contains(strings.ToLower(exercise), loweredQuery) {
			return true
		}
	}
	return false
}

func pruneTemplate(templates []Template, id string) []Template {
	kept := templates[:0]
	for _, t := range templates {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return kept
}

// favoritesSet must be called with the mutex held.
func (c *Catalog) favoritesSet(owner string) map[string]bool {
	set, ok := c.favorites[owner]
	if !ok {
		set = make(map[string]bool)
		c.favorites[owner] = set
	}
	return set
}

// storeLastGood must be called with the mutex held. Only the owner's own
// custom templates are cached; built-ins are recreated on fallback anyway.
func (c *Catalog) storeLastGood(owner string, remote []Template) {
	customs := make([]Template, 0)
	for _, t := range remote {
		if t.Owner != nil && *t.Owner == owner {
			customs = append(customs, t)
		}
	}
	blob, err := json.Marshal(customs)
	if err != nil {
		log.Errorf("marshal last-good templates for %s: %s", owner, err)
		return
	}
	if err := c.lastGood.Set([]byte("templates||"+owner), blob, lastGoodCacheTTL); err != nil {
		log.Errorf("cache last-good templates for %s: %s", owner, err)
	}
}

// cachedCustoms must be called with the mutex held.
func (c *Catalog) cachedCustoms(owner string) []Template {
	blob, err := c.lastGood.Get([]byte("templates||" + owner))
	if err != nil {
		return nil
	}
	var customs []Template
	if err := json.Unmarshal(blob, &customs); err != nil {
		log.Errorf("unmarshal last-good templates for %s: %s", owner, err)
		return nil
	}
	return customs
}
