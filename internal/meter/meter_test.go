package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationMinutesRoundsUp(t *testing.T) {
	start := time.UnixMilli(0)

	cases := []struct {
		name string
		end  time.Time
		want int64
	}{
		{"zero", time.UnixMilli(0), 0},
		{"one millisecond", time.UnixMilli(1), 1},
		{"exact minute", time.UnixMilli(60_000), 1},
		{"minute and a half plus one ms", time.UnixMilli(90_001), 2},
		{"exact hour", time.UnixMilli(3_600_000), 60},
		{"negative span", time.UnixMilli(-5_000), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DurationMinutes(start, tc.end))
		})
	}
}

func TestGameAmountRoundsUp(t *testing.T) {
	assert.Equal(t, int64(0), GameAmount(0, 30000))
	assert.Equal(t, int64(500), GameAmount(1, 30000))
	// 7 minutes at 10000/hour = 1166.66 -> 1167
	assert.Equal(t, int64(1167), GameAmount(7, 10000))
	assert.Equal(t, int64(30000), GameAmount(60, 30000))
	assert.Equal(t, int64(0), GameAmount(10, 0))
}

func TestGameAmountIsMonotonic(t *testing.T) {
	for _, rate := range []int64{1, 7, 999, 25000, 40000} {
		prev := int64(-1)
		for minutes := int64(0); minutes <= 600; minutes++ {
			got := GameAmount(minutes, rate)
			assert.GreaterOrEqual(t, got, prev, "rate=%d minutes=%d", rate, minutes)
			prev = got
		}
	}
}

func TestProjectDriftsWithNow(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first := Project(start, start.Add(30*time.Minute), 60000, 5000)
	assert.Equal(t, int64(30), first.DurationMinutes)
	assert.Equal(t, int64(30000), first.GameAmount)
	assert.Equal(t, int64(35000), first.TotalAmount)

	later := Project(start, start.Add(61*time.Minute), 60000, 5000)
	assert.Equal(t, int64(61), later.DurationMinutes)
	assert.Equal(t, int64(66000), later.TotalAmount)
}
