// Package meter turns elapsed table time into a charge.
//
// Both roundings are ceilings: a started minute is a billed minute, and a
// fractional hourly charge rounds up to the next whole currency unit.
package meter

import "time"

const millisPerMinute = int64(60_000)

// Reading is the metered result for one start/end pair.
type Reading struct {
	DurationMinutes int64 `json:"duration_minutes"`
	GameAmount      int64 `json:"game_amount"`
}

// Projection is a live view of a session that is still open.
type Projection struct {
	Reading
	AdditionalAmount int64     `json:"additional_amount"`
	TotalAmount      int64     `json:"total_amount"`
	MeasuredAt       time.Time `json:"measured_at"`
}

// DurationMinutes returns ceil((end-start)/60000ms). Spans that are zero or
// negative (clock skew) bill nothing.
func DurationMinutes(start, end time.Time) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return (ms + millisPerMinute - 1) / millisPerMinute
}

// GameAmount returns ceil(minutes/60 * hourlyRate) in integer arithmetic.
func GameAmount(minutes, hourlyRate int64) int64 {
	if minutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	return (minutes*hourlyRate + 59) / 60
}

func Measure(start, end time.Time, hourlyRate int64) Reading {
	minutes := DurationMinutes(start, end)
	return Reading{
		DurationMinutes: minutes,
		GameAmount:      GameAmount(minutes, hourlyRate),
	}
}

// Project measures an open session against now and adds the ancillary total.
// Successive calls drift forward with the clock.
func Project(start, now time.Time, hourlyRate, additionalAmount int64) Projection {
	reading := Measure(start, now, hourlyRate)
	return Projection{
		Reading:          reading,
		AdditionalAmount: additionalAmount,
		TotalAmount:      reading.GameAmount + additionalAmount,
		MeasuredAt:       now,
	}
}
