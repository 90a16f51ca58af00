package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/errs"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLocation_EmptyIsUTC(t *testing.T) {
	loc, err := Location("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), loc.String())
}

func TestLocation_Invalid(t *testing.T) {
	_, err := Location("Mars/Olympus_Mons")
	assert.ErrorIs(t, err, errs.ErrInvalidTimezone)

	_, err = DaysBetween(time.Now(), time.Now(), "Not/AZone")
	assert.ErrorIs(t, err, errs.ErrInvalidTimezone)
}

func TestLocation_Cached(t *testing.T) {
	a, err := Location("Europe/Berlin")
	require.NoError(t, err)
	b, err := Location("Europe/Berlin")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestDateIn(t *testing.T) {
	// 02:30 UTC on the 10th is still the 9th in New York.
	instant := time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC)
	d, err := DateIn(instant, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 9}, d)
	assert.Equal(t, "2024-03-09", d.String())

	d, err = DateIn(instant, "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", d.String())
}

func TestStartOfDay_AcrossDST(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	// 2024-03-10 is the 23-hour spring-forward day in New York.
	noon := time.Date(2024, 3, 10, 12, 0, 0, 0, ny)
	start, err := StartOfDay(noon, "America/New_York")
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, ny)))

	next, err := StartOfDay(time.Date(2024, 3, 11, 12, 0, 0, 0, ny), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour, next.Sub(start))

	// 2024-11-03 is the 25-hour fall-back day.
	fallStart, err := StartOfDay(time.Date(2024, 11, 3, 18, 0, 0, 0, ny), "America/New_York")
	require.NoError(t, err)
	fallNext, err := StartOfDay(time.Date(2024, 11, 4, 1, 0, 0, 0, ny), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 25*time.Hour, fallNext.Sub(fallStart))
}

func TestStartOfWeek(t *testing.T) {
	// Wednesday 2024-05-15.
	wed := time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC)

	sunday, err := StartOfWeek(wed, "UTC", time.Sunday)
	require.NoError(t, err)
	assert.True(t, sunday.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)))

	monday, err := StartOfWeek(wed, "UTC", time.Monday)
	require.NoError(t, err)
	assert.True(t, monday.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)))

	thursday, err := StartOfWeek(wed, "UTC", time.Thursday)
	require.NoError(t, err)
	assert.True(t, thursday.Equal(time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)))

	_, err = StartOfWeek(wed, "UTC", time.Weekday(9))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestStartOfWeek_SpansDST(t *testing.T) {
	berlin := mustLoad(t, "Europe/Berlin")
	// Tuesday after the 2024-03-31 spring-forward; week starts Monday 25th.
	tue := time.Date(2024, 4, 2, 9, 0, 0, 0, berlin)
	start, err := StartOfWeek(tue, "Europe/Berlin", time.Monday)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, berlin)))

	sun := time.Date(2024, 3, 31, 23, 0, 0, 0, berlin)
	start, err = StartOfWeek(sun, "Europe/Berlin", time.Monday)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 3, 25, 0, 0, 0, 0, berlin)))
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		tz   string
		want int
	}{
		{
			name: "same day",
			a:    time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: 0,
		},
		{
			name: "two minutes across midnight",
			a:    time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC),
			b:    time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC),
			tz:   "UTC",
			want: 1,
		},
		{
			name: "zone shifts the dates",
			a:    time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
			tz:   "America/Los_Angeles",
			want: 0,
		},
		{
			name: "spring forward day counts once",
			a:    time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC),
			tz:   "America/New_York",
			want: 2,
		},
		{
			name: "reverse order is negative",
			a:    time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: -3,
		},
		{
			name: "leap day",
			a:    time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			tz:   "UTC",
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysBetween(tt.a, tt.b, tt.tz)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
