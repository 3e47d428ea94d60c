package workout

import "strings"

// InputKind decides which input fields the client renders for an exercise.
type InputKind string

const (
	InputKindTimed      InputKind = "timed"
	InputKindBodyweight InputKind = "bodyweight"
	InputKindWeighted   InputKind = "weighted"
)

// Config is the display/input configuration for one exercise name.
type Config struct {
	InputKind         InputKind `json:"inputKind"`
	WeightLabel       string    `json:"weightLabel"`
	RepLabel          string    `json:"repLabel"`
	WeightPlaceholder string    `json:"weightPlaceholder"`
	RepPlaceholder    string    `json:"repPlaceholder"`
	WeightStep        int       `json:"weightStep"`
	RepStep           int       `json:"repStep"`
}

var (
	timedKeywords      = []string{"plank", "hold", "static", "wall sit"}
	bodyweightKeywords = []string{"pushup", "pull up", "chin up", "dip", "burpee", "lunge"}
)

// Classify maps an exercise name to its input configuration. Matching is a
// case-insensitive substring check, first rule wins:
//  1. timed keywords -> timed (tracked in seconds, weight optional)
//  2. bodyweight keywords, or "squat" without "barbell" -> bodyweight,
//     except the exact name "Squats" which stays weighted
//  3. everything else -> weighted
//
// Total by construction: there is always a config, never an error.
func Classify(name string) Config {
	lowered := strings.ToLower(name)

	for _, keyword := range timedKeywords {
		if strings.Contains(lowered, keyword) {
			return Config{
				InputKind:         InputKindTimed,
				WeightLabel:       "Weight (optional)",
				RepLabel:          "Seconds",
				WeightPlaceholder: "kg",
				RepPlaceholder:    "sec",
				WeightStep:        5,
				RepStep:           10,
			}
		}
	}

	if name != "Squats" {
		for _, keyword := range bodyweightKeywords {
			if strings.Contains(lowered, keyword) {
				return bodyweightConfig()
			}
		}
		if strings.Contains(lowered, "squat") && !strings.Contains(lowered, "barbell") {
			return bodyweightConfig()
		}
	}

	return Config{
		InputKind:         InputKindWeighted,
		WeightLabel:       "Weight",
		RepLabel:          "Reps",
		WeightPlaceholder: "kg",
		RepPlaceholder:    "reps",
		WeightStep:        5,
		RepStep:           1,
	}
}

func bodyweightConfig() Config {
	return Config{
		InputKind:         InputKindBodyweight,
		WeightLabel:       "Extra weight (optional)",
		RepLabel:          "Reps",
		WeightPlaceholder: "kg",
		RepPlaceholder:    "reps",
		WeightStep:        5,
		RepStep:           1,
	}
}
