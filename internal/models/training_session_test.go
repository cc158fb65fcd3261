package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func session(id string, day DayOfWeek, hour, minute int) TrainingSession {
	return TrainingSession{ID: id, DayOfWeek: day, StartTime: TimeOfDay(hour, minute), EndTime: TimeOfDay(hour+1, minute)}
}

func TestDayOfWeekOrder(t *testing.T) {
	for i, day := range Week {
		assert.Equal(t, i+1, day.Order())
	}
	assert.Equal(t, 0, DayOfWeek("funday").Order())
	assert.Equal(t, time.Monday, Monday.Weekday())
	assert.Equal(t, time.Sunday, Sunday.Weekday())
	assert.Equal(t, "Wednesday", Wednesday.DisplayName())
}

func TestSortSessionsWeeklyOrder(t *testing.T) {
	sessions := []TrainingSession{
		session("tue-09", Tuesday, 9, 0),
		session("mon-18", Monday, 18, 0),
		session("sun-07", Sunday, 7, 0),
		session("mon-08", Monday, 8, 0),
	}
	SortSessions(sessions)

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"mon-08", "mon-18", "tue-09", "sun-07"}, ids)
}

func TestSortSessionsIsStableForEqualKeys(t *testing.T) {
	sessions := []TrainingSession{
		session("first", Friday, 10, 0),
		session("second", Friday, 10, 0),
		session("early", Friday, 9, 30),
	}
	SortSessions(sessions)
	assert.Equal(t, "early", sessions[0].ID)
	assert.Equal(t, "first", sessions[1].ID)
	assert.Equal(t, "second", sessions[2].ID)
}

func TestSortSessionsIgnoresDatePortion(t *testing.T) {
	late := session("late", Monday, 18, 0)
	early := session("early", Monday, 8, 0)
	late.StartTime = time.Date(1999, 1, 1, 18, 0, 0, 0, time.UTC)
	early.StartTime = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	sessions := []TrainingSession{late, early}
	SortSessions(sessions)
	assert.Equal(t, "early", sessions[0].ID)
}

func TestVenueOmitsMissingCourt(t *testing.T) {
	s := session("a", Monday, 8, 0)
	s.CourtLocation = CourtLocationMalaga
	assert.Equal(t, "Malaga", s.Venue())
	s.CourtNumber = intPtr(3)
	assert.Equal(t, "Malaga, Court 3", s.Venue())
	assert.Equal(t, "8:00 AM - 9:00 AM", s.TimeRange())
}

func TestNewTrainingSessionLinksStudent(t *testing.T) {
	student, err := NewStudent("Alice", false, ContactModeWhatsApp, "+61400000000")
	require.NoError(t, err)
	s := NewTrainingSession(student, CourtLocationCanningvale, intPtr(3), TimeOfDay(8, 0), TimeOfDay(9, 0), Monday, false, false)
	assert.NotEmpty(t, s.ID)
	require.NotNil(t, s.StudentID)
	assert.Equal(t, student.ID, *s.StudentID)
	assert.Equal(t, "Alice", s.StudentName())
	assert.False(t, s.IsMessaged)
	assert.False(t, s.IsBooked)

	s.AssignStudent(nil)
	assert.Nil(t, s.StudentID)
	assert.Equal(t, "", s.StudentName())
}

func TestEnumScanFallbacks(t *testing.T) {
	var loc CourtLocation
	require.NoError(t, loc.Scan("MALAGA"))
	assert.Equal(t, CourtLocationMalaga, loc)
	require.NoError(t, loc.Scan("somewhere-else"))
	assert.Equal(t, CourtLocationCanningvale, loc)

	var day DayOfWeek
	require.NoError(t, day.Scan([]byte("sunday")))
	assert.Equal(t, Sunday, day)
	require.NoError(t, day.Scan("someday"))
	assert.Equal(t, Monday, day)
}

func TestParseClock(t *testing.T) {
	tm, err := ParseClock("18:45")
	require.NoError(t, err)
	assert.Equal(t, 18, tm.Hour())
	assert.Equal(t, 45, tm.Minute())

	_, err = ParseClock("6pm")
	assert.Error(t, err)
}
