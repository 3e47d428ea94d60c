package templates

import (
	"time"

	"github.com/google/uuid"
)

// Template is an immutable workout blueprint: an ordered list of exercise
// names. Applying a template copies the names into fresh exercises and
// never mutates the template itself. A nil Owner marks a built-in.
type Template struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Icon              string    `json:"icon"`
	Exercises         []string  `json:"exercises"`
	Owner             *string   `json:"owner"`
	FolderID          *string   `json:"folderId"`
	Tags              []string  `json:"tags"`
	IsStandard        bool      `json:"isStandard"`
	IsPublic          bool      `json:"isPublic"`
	CreatedByUsername string    `json:"createdByUsername"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Folder groups templates. Deleting a folder never cascades: its templates
// are detached and show up as "no folder".
type Folder struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Favorite marks a template as favorited by an owner; existence is the flag.
type Favorite struct {
	Owner      string `json:"owner"`
	TemplateID string `json:"templateId"`
}

// Duplicate returns a local-only copy with a fresh identifier; it is not
// persisted until explicitly saved.
func (t Template) Duplicate() Template {
	copied := t
	copied.ID = uuid.NewString()
	copied.Name = t.Name + " (Copy)"
	copied.IsStandard = false
	copied.IsPublic = false
	copied.Exercises = append([]string{}, t.Exercises...)
	copied.Tags = append([]string{}, t.Tags...)
	copied.CreatedAt = time.Now()
	return copied
}

// BuiltinTemplates is the fixed fallback catalog served when the remote
// template store cannot be reached.
func BuiltinTemplates() []Template {
	return []Template{
		{
			ID:          "builtin-push-day",
			Name:        "Push Day",
			Description: "Chest, shoulders and triceps",
			Icon:        "💪",
			Exercises:   []string{"Bench Press", "Overhead Press", "Incline Dumbbell Press", "Dips", "Tricep Pushdown"},
			Tags:        []string{"push", "strength"},
			IsStandard:  true,
			IsPublic:    true,
		},
		{
			ID:          "builtin-pull-day",
			Name:        "Pull Day",
			Description: "Back and biceps",
			Icon:        "🏋️",
			Exercises:   []string{"Deadlift", "Pull Ups", "Barbell Row", "Face Pull", "Bicep Curl"},
			Tags:        []string{"pull", "strength"},
			IsStandard:  true,
			IsPublic:    true,
		},
		{
			ID:          "builtin-leg-day",
			Name:        "Leg Day",
			Description: "Quads, hamstrings and calves",
			Icon:        "🦵",
			Exercises:   []string{"Squats", "Romanian Deadlift", "Leg Press", "Walking Lunges", "Calf Raise"},
			Tags:        []string{"legs", "strength"},
			IsStandard:  true,
			IsPublic:    true,
		},
		{
			ID:          "builtin-full-body",
			Name:        "Full Body",
			Description: "One of everything",
			Icon:        "🔥",
			Exercises:   []string{"Squats", "Bench Press", "Barbell Row", "Plank"},
			Tags:        []string{"full body"},
			IsStandard:  true,
			IsPublic:    true,
		},
		{
			ID:          "builtin-core",
			Name:        "Core Blast",
			Description: "Quick core finisher",
			Icon:        "🧱",
			Exercises:   []string{"Plank", "Side Plank Hold", "Hanging Leg Raise", "Wall Sit"},
			Tags:        []string{"core", "quick"},
			IsStandard:  true,
			IsPublic:    true,
		},
	}
}
