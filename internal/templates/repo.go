package templates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrFolderNotFound   = errors.New("folder not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// ListTemplates returns the owner's templates plus everything marked
// standard or public, newest first.
func (r *Repo) ListTemplates(ctx context.Context, owner string) (_ []Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("owner", owner))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, name, description, icon, exercises, owner, folder_id,
				tags, is_standard, is_public, created_by_username, created_at
			FROM workout_template
			WHERE is_standard OR is_public OR owner = $1
			ORDER BY created_at DESC;`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2templates(rows)
}

func (r *Repo) GetTemplate(ctx context.Context, id string) (_ *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, name, description, icon, exercises, owner, folder_id,
				tags, is_standard, is_public, created_by_username, created_at
			FROM workout_template
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates, err := r.rows2templates(rows)
	if err != nil {
		return nil, err
	}
	if len(templates) != 1 {
		return nil, ErrTemplateNotFound
	}
	return &templates[0], nil
}

func (r *Repo) CreateTemplate(ctx context.Context, template Template) (_ *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout_template
				(id, name, description, icon, exercises, owner, folder_id,
				tags, is_standard, is_public, created_by_username, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`,
		template.ID, template.Name, template.Description, template.Icon,
		template.Exercises, template.Owner, template.FolderID,
		template.Tags, template.IsStandard, template.IsPublic,
		template.CreatedByUsername, template.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}

	span.SetAttributes(attribute.String("template.id", template.ID))
	return &template, nil
}

// DeleteTemplate is scoped to (id, owner): another owner's template cannot
// be deleted, that case comes back as not found.
func (r *Repo) DeleteTemplate(ctx context.Context, id, owner string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_template WHERE id = $1 AND owner = $2;`,
		id, owner,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// ListFolders returns the owner's folders, alphabetical by name.
func (r *Repo) ListFolders(ctx context.Context, owner string) (_ []Folder, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.folders.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, owner, name, color, icon
			FROM template_folder
			WHERE owner = $1
			ORDER BY name;`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	folders := make([]Folder, 0)
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Owner, &f.Name, &f.Color, &f.Icon); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, nil
}

func (r *Repo) CreateFolder(ctx context.Context, folder Folder) (_ *Folder, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.folders.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO template_folder (id, owner, name, color, icon)
			VALUES ($1, $2, $3, $4, $5);`,
		folder.ID, folder.Owner, folder.Name, folder.Color, folder.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}
	return &folder, nil
}

// DeleteFolder detaches the folder's templates first, then removes the
// folder. No cascade: orphaned templates just lose their folder reference.
func (r *Repo) DeleteFolder(ctx context.Context, id, owner string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.folders.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	if _, err := r.db.Exec(
		ctx,
		`UPDATE workout_template SET folder_id = NULL WHERE folder_id = $1;`,
		id,
	); err != nil {
		return fmt.Errorf("detach templates: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM template_folder WHERE id = $1 AND owner = $2;`,
		id, owner,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// ListFavorites returns the ids of the owner's favorited templates.
func (r *Repo) ListFavorites(ctx context.Context, owner string) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.favorites.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT template_id FROM template_favorite WHERE owner = $1;`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddFavorite is idempotent: favoriting twice is not an error.
func (r *Repo) AddFavorite(ctx context.Context, owner, templateID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.favorites.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO template_favorite (owner, template_id)
			VALUES ($1, $2)
			ON CONFLICT (owner, template_id) DO NOTHING;`,
		owner, templateID,
	)
	return err
}

func (r *Repo) RemoveFavorite(ctx context.Context, owner, templateID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.favorites.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`DELETE FROM template_favorite WHERE owner = $1 AND template_id = $2;`,
		owner, templateID,
	)
	return err
}

func (r *Repo) rows2templates(rows pgx.Rows) ([]Template, error) {
	templates := make([]Template, 0)
	for rows.Next() {
		var t Template
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.Icon, &t.Exercises,
			&t.Owner, &t.FolderID, &t.Tags, &t.IsStandard, &t.IsPublic,
			&t.CreatedByUsername, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		if t.Exercises == nil {
			t.Exercises = []string{}
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
		templates = append(templates, t)
	}
	return templates, nil
}
