package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/schedule"
)

// 2026-01-05 is a Monday.
func monday(hour, min int, loc *time.Location) time.Time {
	return time.Date(2026, 1, 5, hour, min, 0, 0, loc)
}

func TestResolver_Window(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	subjects := []schedule.Subject{{
		ID: "cs101", Name: "Intro CS", Code: "CS101",
		DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:50", AttendanceWindow: 15,
	}}

	cases := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"before start", monday(8, 59, time.UTC), false},
		{"at start", monday(9, 0, time.UTC), true},
		{"during class", monday(9, 10, time.UTC), true},
		{"inside grace window", monday(10, 4, time.UTC), true},
		{"window closed", monday(10, 6, time.UTC), false},
		{"wrong day", monday(9, 10, time.UTC).AddDate(0, 0, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Active(tc.now, subjects)
			require.NoError(t, err)
			if tc.active {
				require.NotNil(t, got)
				assert.Equal(t, "CS101", got.Code)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestResolver_FixedZoneNotServerLocal(t *testing.T) {
	karachi, err := time.LoadLocation("Asia/Karachi")
	require.NoError(t, err)
	r := schedule.NewResolver(karachi)

	subjects := []schedule.Subject{{
		Code: "CS101", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:50", AttendanceWindow: 15,
	}}

	// 04:10 UTC on Monday is 09:10 in Karachi (UTC+5).
	got, err := r.Active(monday(4, 10, time.UTC), subjects)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CS101", got.Code)

	// 09:10 UTC is already past the Karachi window.
	got, err = r.Active(monday(9, 10, time.UTC), subjects)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolver_OverlapEarliestStartWins(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	// Overlapping windows are a configuration anomaly; the resolver must
	// still be deterministic regardless of slice order.
	subjects := []schedule.Subject{
		{Code: "LATE", DayOfWeek: "Monday", StartTime: "09:30", EndTime: "10:30", AttendanceWindow: 0},
		{Code: "EARLY", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", AttendanceWindow: 0},
	}

	got, err := r.Active(monday(9, 45, time.UTC), subjects)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "EARLY", got.Code)

	// Same result with the slice reversed.
	got, err = r.Active(monday(9, 45, time.UTC), []schedule.Subject{subjects[1], subjects[0]})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "EARLY", got.Code)
}

func TestResolver_NoSubjects(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	got, err := r.Active(monday(9, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolver_BadStoredTime(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	_, err := r.Active(monday(9, 0, time.UTC), []schedule.Subject{
		{Code: "X", DayOfWeek: "Monday", StartTime: "nine", EndTime: "10:00"},
	})
	assert.Error(t, err)
}

func TestSubjectValidate(t *testing.T) {
	valid := schedule.Subject{
		Name: "Intro CS", Code: "CS101", DayOfWeek: "Monday",
		StartTime: "09:00", EndTime: "09:50", AttendanceWindow: 15,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*schedule.Subject)
	}{
		{"bad day", func(s *schedule.Subject) { s.DayOfWeek = "Funday" }},
		{"bad start", func(s *schedule.Subject) { s.StartTime = "25:00" }},
		{"bad end", func(s *schedule.Subject) { s.EndTime = "" }},
		{"start after end", func(s *schedule.Subject) { s.StartTime = "10:00"; s.EndTime = "09:00" }},
		{"start equals end", func(s *schedule.Subject) { s.EndTime = "09:00"; s.StartTime = "09:00" }},
		{"negative window", func(s *schedule.Subject) { s.AttendanceWindow = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
