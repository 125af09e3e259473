package weekly_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/chesscycles/internal/weekly"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday midnight", monday},
		{"wednesday", time.Date(2024, 1, 3, 15, 4, 0, 0, time.UTC)},
		{"sunday last second", time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)},
		{"non utc zone", time.Date(2024, 1, 8, 1, 0, 0, 0, time.FixedZone("CET", 3600*2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, weekly.WeekStart(tt.in))
		})
	}
	assert.Equal(t, monday.AddDate(0, 0, 7), weekly.WeekStart(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)))
}

func TestRoll_SameWeekAccumulates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	v, s := weekly.Roll(14, &start, 3, now)

	assert.Equal(t, 17, v)
	assert.Equal(t, start, s)
}

func TestRoll_StaleWeekResets(t *testing.T) {
	start := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	v, s := weekly.Roll(9999, &start, 4, now)

	assert.Equal(t, 4, v)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s)
}

func TestRoll_MissingStart(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	v, s := weekly.Roll(50, nil, 1, now)

	assert.Equal(t, 1, v)
	assert.Equal(t, weekly.WeekStart(now), s)
}

func TestCurrent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 8, weekly.Current(8, &start, start.Add(48*time.Hour)))
	assert.Equal(t, 0, weekly.Current(8, &start, start.AddDate(0, 0, 7)))
	assert.Equal(t, 0, weekly.Current(8, nil, start))
}
