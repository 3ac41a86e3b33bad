package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeBound(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"today", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2025, 3, 8, 14, 30, 0, 0, time.UTC)},
		{"month", time.Date(2025, 2, 13, 14, 30, 0, 0, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2025-01-02T03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T05:04:05+02:00", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05.250Z", time.Date(2025, 1, 2, 3, 4, 5, 250_000_000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeBound(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseTimeBound_Invalid(t *testing.T) {
	for _, in := range []string{"yesterday", "2025-13-01", "01/02/2025", ""} {
		_, err := ParseTimeBound(in, time.Now())
		require.Error(t, err, in)
		assert.Equal(t, KindInvalidArgument, KindOf(err), in)
	}
}

func TestTimeWindow_Contains(t *testing.T) {
	w := TimeWindow{
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, w.Contains("2025-01-01T00:00:00Z"), "since is inclusive")
	assert.True(t, w.Contains("2025-01-31T00:00:00Z"), "until is inclusive")
	assert.True(t, w.Contains("2025-01-15T12:00:00.123Z"))
	assert.True(t, w.Contains("2025-01-15"))
	assert.False(t, w.Contains("2024-12-31T23:59:59Z"))
	assert.False(t, w.Contains("2025-01-31T00:00:01Z"))
	assert.True(t, w.Contains("not a timestamp"), "unparsable timestamps are kept")
	assert.True(t, w.Contains(""))
}

func TestTimeWindow_Open(t *testing.T) {
	assert.True(t, TimeWindow{}.Contains("1970-01-01T00:00:00Z"))

	since := TimeWindow{Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, since.Contains("2024-06-01T00:00:00Z"))
	assert.True(t, since.Contains("2030-06-01T00:00:00Z"))
}
