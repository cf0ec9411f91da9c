package service

import (
	"errors"
	"testing"
	"time"

	"cafe-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday
var fixedNow = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func TestResolvePeriodToday(t *testing.T) {
	p, err := ResolvePeriod(PeriodQuery{Period: "today"}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 10, 14, 23, 59, 59, 999999000, time.UTC), p.End)
}

func TestResolvePeriodWeekStartsSunday(t *testing.T) {
	p, err := ResolvePeriod(PeriodQuery{Period: "week"}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, p.Start.Weekday())
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 10, 17, 23, 59, 59, 999999000, time.UTC), p.End)
}

func TestResolvePeriodMonth(t *testing.T) {
	p, err := ResolvePeriod(PeriodQuery{Period: "MONTH"}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 10, 31, 23, 59, 59, 999999000, time.UTC), p.End)
}

func TestResolvePeriodCustom(t *testing.T) {
	p, err := ResolvePeriod(PeriodQuery{StartDate: "2026-10-01", EndDate: "2026-10-03"}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, PeriodCustom, p.Label)
	assert.Equal(t, time.Date(2026, 10, 3, 23, 59, 59, 999999000, time.UTC), p.End)

	p, err = ResolvePeriod(PeriodQuery{StartDate: "2026-10-01T08:00:00Z", EndDate: "2026-10-01T12:00:00Z"}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, p.End.Sub(p.Start))
}

func TestResolvePeriodEndsSurviveMicrosecondStorage(t *testing.T) {
	for _, label := range []string{PeriodToday, PeriodWeek, PeriodMonth} {
		p, err := ResolvePeriod(PeriodQuery{Period: label}, fixedNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, p.End, p.End.Round(time.Microsecond), label)
		assert.Equal(t, 0, p.End.Add(time.Microsecond).Hour(), label)
	}
}

func TestResolvePeriodDefaultsToAll(t *testing.T) {
	p, err := ResolvePeriod(PeriodQuery{}, fixedNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, p.IsAll())
}

func TestResolvePeriodRejectsBadInput(t *testing.T) {
	cases := []PeriodQuery{
		{Period: "year"},
		{Period: "custom"},
		{StartDate: "2026-10-01"},
		{StartDate: "yesterday", EndDate: "2026-10-01"},
		{StartDate: "2026-10-05", EndDate: "2026-10-01"},
	}
	for _, q := range cases {
		_, err := ResolvePeriod(q, fixedNow, time.UTC)
		assert.True(t, errors.Is(err, models.ErrValidation), "query %+v", q)
	}
}
