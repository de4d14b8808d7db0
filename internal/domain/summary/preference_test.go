package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want TimeBand
	}{
		{0, TimeBandNight},
		{5, TimeBandNight},
		{6, TimeBandBalanced},
		{7, TimeBandMorningPeak},
		{9, TimeBandMorningPeak},
		{10, TimeBandBalanced},
		{16, TimeBandBalanced},
		{17, TimeBandEveningPeak},
		{19, TimeBandEveningPeak},
		{20, TimeBandBalanced},
		{21, TimeBandBalanced},
		{22, TimeBandNight},
		{23, TimeBandNight},
	}

	for _, tt := range tests {
		at := time.Date(2024, 3, 4, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, ClassifyTimeOfDay(at), "hour %d", tt.hour)
	}
}

func TestClassifyTimeOfDay_UsesLocalClock(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 23:00 UTC is 08:00 in Tokyo.
	at := time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, TimeBandNight, ClassifyTimeOfDay(at))
	assert.Equal(t, TimeBandMorningPeak, ClassifyTimeOfDay(at.In(tokyo)))
}

func TestTimeBand_Bias(t *testing.T) {
	assert.Contains(t, TimeBandNight.Bias(), "roundabouts")
	assert.Contains(t, TimeBandMorningPeak.Bias(), "travel time")
	assert.Equal(t, TimeBandMorningPeak.Bias(), TimeBandEveningPeak.Bias())
	assert.Contains(t, TimeBandBalanced.Bias(), "balanced")
}
