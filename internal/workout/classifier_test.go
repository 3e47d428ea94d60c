package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name         string
		exerciseName string
		expectedKind InputKind
	}{
		{"PlankIsTimed", "Plank", InputKindTimed},
		{"WallSitIsTimed", "Wall Sit", InputKindTimed},
		{"StaticHoldIsTimed", "Static Hold", InputKindTimed},
		{"DeadHoldVariantIsTimed", "Dead Hang Hold", InputKindTimed},
		{"PushupsAreBodyweight", "Pushups", InputKindBodyweight},
		{"PullUpIsBodyweight", "Pull Up", InputKindBodyweight},
		{"WalkingLungeIsBodyweight", "Walking Lunge", InputKindBodyweight},
		{"JumpSquatsAreBodyweight", "Jump Squats", InputKindBodyweight},
		{"SquatVariantIsBodyweight", "Goblet squat", InputKindBodyweight},
		// the single legacy exception: exact name Squats stays weighted
		{"SquatsExactNameIsWeighted", "Squats", InputKindWeighted},
		{"BarbellSquatIsWeighted", "Barbell Squat", InputKindWeighted},
		{"BenchPressIsWeighted", "Bench Press", InputKindWeighted},
		{"UnknownNameIsWeighted", "Some Machine Thing", InputKindWeighted},
		{"EmptyNameIsWeighted", "", InputKindWeighted},
		{"CaseInsensitiveTimed", "pLaNk HoLd", InputKindTimed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedKind, Classify(tc.exerciseName).InputKind)
		})
	}
}

func TestClassify_configValues(t *testing.T) {
	timed := Classify("Plank")
	assert.Equal(t, "Seconds", timed.RepLabel)
	assert.Equal(t, 10, timed.RepStep)
	assert.Equal(t, 5, timed.WeightStep)

	bodyweight := Classify("Pushups")
	assert.Equal(t, "Extra weight (optional)", bodyweight.WeightLabel)
	assert.Equal(t, 1, bodyweight.RepStep)

	weighted := Classify("Bench Press")
	assert.Equal(t, "Weight", weighted.WeightLabel)
	assert.Equal(t, "Reps", weighted.RepLabel)
	assert.Equal(t, 1, weighted.RepStep)
	assert.Equal(t, 5, weighted.WeightStep)
}
