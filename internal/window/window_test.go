package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"well before start", start.Add(-time.Hour), PhaseBefore},
		{"instant before start", start.Add(-time.Nanosecond), PhaseBefore},
		{"exactly at start", start, PhaseOpen},
		{"mid window", start.Add(30 * time.Minute), PhaseOpen},
		{"instant before end", end.Add(-time.Nanosecond), PhaseOpen},
		{"exactly at end", end, PhaseAfter},
		{"well after end", end.Add(time.Hour), PhaseAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.now, start, end))
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "before", PhaseBefore.String())
	assert.Equal(t, "open", PhaseOpen.String())
	assert.Equal(t, "after", PhaseAfter.String())
}
