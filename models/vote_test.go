package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictionStats_OptionPercentage(t *testing.T) {
	stats := &PredictionStats{
		Counts:     map[int64]int{10: 2, 11: 1},
		TotalVotes: 3,
	}

	assert.InDelta(t, 66.7, stats.OptionPercentage(10), 0.001)
	assert.InDelta(t, 33.3, stats.OptionPercentage(11), 0.001)
	assert.Equal(t, 0.0, stats.OptionPercentage(999))
}

func TestPredictionStats_OptionPercentage_NoVotes(t *testing.T) {
	stats := &PredictionStats{Counts: map[int64]int{}, TotalVotes: 0}
	assert.Equal(t, 0.0, stats.OptionPercentage(10))
}
