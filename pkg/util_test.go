package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	d := time.Date(2024, 3, 7, 23, 59, 30, 0, time.Local)
	assert.Equal(t, "2024-03-07", DayKey(d))
	assert.Equal(t, "2024-03-08", DayKey(d.Add(time.Minute)))
}

func TestGenerateRandomString(t *testing.T) {
	s1, err := GenerateRandomString(35)
	require.NoError(t, err)
	s2, err := GenerateRandomString(35)
	require.NoError(t, err)

	assert.NotEmpty(t, s1)
	assert.NotEmpty(t, s2)
	assert.NotEqual(t, s1, s2)
}

func TestBytesToString(t *testing.T) {
	assert.Equal(t, "hyperfit", BytesToString([]byte("hyperfit")))
	assert.Equal(t, "", BytesToString(nil))
}
