package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindow_Resolve(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	explicitStart := now.Add(-90 * time.Minute)
	explicitEnd := now.Add(-30 * time.Minute)

	tests := []struct {
		name      string
		window    TimeWindow
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "relative minutes",
			window:    TimeWindow{Minutes: 30},
			wantStart: now.Add(-30 * time.Minute),
			wantEnd:   now,
		},
		{
			name:      "relative hours and days combine",
			window:    TimeWindow{Hours: 2, Days: 1},
			wantStart: now.Add(-26 * time.Hour),
			wantEnd:   now,
		},
		{
			name:      "explicit start, end defaults to now",
			window:    TimeWindow{StartTime: &explicitStart},
			wantStart: explicitStart,
			wantEnd:   now,
		},
		{
			name:      "explicit start and end",
			window:    TimeWindow{StartTime: &explicitStart, EndTime: &explicitEnd},
			wantStart: explicitStart,
			wantEnd:   explicitEnd,
		},
		{
			name:    "empty specification",
			window:  TimeWindow{},
			wantErr: true,
		},
		{
			name:    "inverted explicit range",
			window:  TimeWindow{StartTime: &now, EndTime: &explicitStart},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := tt.window.Resolve(now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, tr.Start)
			assert.Equal(t, tt.wantEnd, tr.End)
		})
	}
}

func TestTimeRange_Midpoint(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	r := TimeRange{Start: start, End: start.Add(2 * time.Hour)}
	assert.Equal(t, start.Add(time.Hour), r.Midpoint())
	assert.Equal(t, 2*time.Hour, r.Duration())
}
