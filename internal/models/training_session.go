package models

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CourtLocation is the venue a session is played at.
type CourtLocation string

const (
	CourtLocationCanningvale CourtLocation = "canningvale"
	CourtLocationMalaga      CourtLocation = "malaga"
)

// CourtLocations lists every supported venue.
var CourtLocations = []CourtLocation{CourtLocationCanningvale, CourtLocationMalaga}

// Valid reports whether l is a known venue.
func (l CourtLocation) Valid() bool {
	return l == CourtLocationCanningvale || l == CourtLocationMalaga
}

// DisplayName is the venue name used in messages and exports.
func (l CourtLocation) DisplayName() string {
	switch l {
	case CourtLocationMalaga:
		return "Malaga"
	default:
		return "Canningvale"
	}
}

// ParseCourtLocation decodes a venue, falling back to Canningvale for unknown values.
func ParseCourtLocation(raw string) CourtLocation {
	loc := CourtLocation(strings.ToLower(strings.TrimSpace(raw)))
	if !loc.Valid() {
		return CourtLocationCanningvale
	}
	return loc
}

// Scan implements sql.Scanner.
func (l *CourtLocation) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan court location: %w", err)
	}
	*l = ParseCourtLocation(raw)
	return nil
}

// Value implements driver.Valuer.
func (l CourtLocation) Value() (driver.Value, error) {
	return string(l), nil
}

// DayOfWeek is the weekday a session recurs on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

// Week lists the days in scheduling order, Monday first.
var Week = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Order returns 1 for Monday through 7 for Sunday, and 0 for unknown values.
func (d DayOfWeek) Order() int {
	for i, day := range Week {
		if day == d {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether d is a known weekday.
func (d DayOfWeek) Valid() bool {
	return d.Order() > 0
}

// DisplayName returns the capitalised day name.
func (d DayOfWeek) DisplayName() string {
	if !d.Valid() {
		return string(d)
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Weekday converts to the standard library weekday.
func (d DayOfWeek) Weekday() time.Weekday {
	return time.Weekday(d.Order() % 7)
}

// ParseDayOfWeek decodes a weekday name; ok is false for unknown values.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	day := DayOfWeek(strings.ToLower(strings.TrimSpace(raw)))
	return day, day.Valid()
}

// Scan implements sql.Scanner. Unknown stored values decode as Monday.
func (d *DayOfWeek) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan day of week: %w", err)
	}
	day, ok := ParseDayOfWeek(raw)
	if !ok {
		day = Monday
	}
	*d = day
	return nil
}

// Value implements driver.Valuer.
func (d DayOfWeek) Value() (driver.Value, error) {
	return string(d), nil
}

// ClockLayout is the wire format for session times.
const ClockLayout = "15:04"

// TimeOfDay anchors a clock time on a fixed reference date; only the clock is significant.
func TimeOfDay(hour, minute int) time.Time {
	return time.Date(2000, time.January, 1, hour, minute, 0, 0, time.UTC)
}

// ParseClock parses an "HH:MM" string into a time-of-day value.
func ParseClock(raw string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "time", Message: fmt.Sprintf("invalid time %q, expected HH:MM", raw)}
	}
	return TimeOfDay(t.Hour(), t.Minute()), nil
}

func secondsOfDay(t time.Time) int {
	h, m, s := t.Clock()
	return h*3600 + m*60 + s
}

// TrainingSession is one recurring weekly slot.
type TrainingSession struct {
	ID            string        `db:"id" json:"id"`
	StudentID     *string       `db:"student_id" json:"student_id"`
	Student       *Student      `db:"-" json:"student,omitempty"`
	CourtLocation CourtLocation `db:"court_location" json:"court_location"`
	CourtNumber   *int          `db:"court_number" json:"court_number,omitempty"`
	StartTime     time.Time     `db:"start_time" json:"start_time"`
	EndTime       time.Time     `db:"end_time" json:"end_time"`
	DayOfWeek     DayOfWeek     `db:"day_of_week" json:"day_of_week"`
	IsMessaged    bool          `db:"is_messaged" json:"is_messaged"`
	IsBooked      bool          `db:"is_booked" json:"is_booked"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// NewTrainingSession builds a session with a fresh identifier. Fields are not cross-checked.
func NewTrainingSession(student *Student, location CourtLocation, courtNumber *int, start, end time.Time, day DayOfWeek, isMessaged, isBooked bool) *TrainingSession {
	session := &TrainingSession{
		ID:            uuid.NewString(),
		CourtLocation: location,
		CourtNumber:   courtNumber,
		StartTime:     start,
		EndTime:       end,
		DayOfWeek:     day,
		IsMessaged:    isMessaged,
		IsBooked:      isBooked,
	}
	session.AssignStudent(student)
	return session
}

// AssignStudent links the session to student, or clears the link when student is nil.
func (s *TrainingSession) AssignStudent(student *Student) {
	s.Student = student
	if student == nil {
		s.StudentID = nil
		return
	}
	id := student.ID
	s.StudentID = &id
}

// StudentName returns the linked student's name or an empty string.
func (s *TrainingSession) StudentName() string {
	if s.Student == nil {
		return ""
	}
	return s.Student.Name
}

// Venue renders the location with the court clause only when a court is assigned.
func (s *TrainingSession) Venue() string {
	if s.CourtNumber == nil {
		return s.CourtLocation.DisplayName()
	}
	return fmt.Sprintf("%s, Court %d", s.CourtLocation.DisplayName(), *s.CourtNumber)
}

// TimeRange renders the start and end clocks, e.g. "8:00 AM - 9:30 AM".
func (s *TrainingSession) TimeRange() string {
	return fmt.Sprintf("%s - %s", s.StartTime.Format("3:04 PM"), s.EndTime.Format("3:04 PM"))
}

// Before reports whether s sorts ahead of other in the weekly schedule.
func (s *TrainingSession) Before(other *TrainingSession) bool {
	if s.DayOfWeek.Order() != other.DayOfWeek.Order() {
		return s.DayOfWeek.Order() < other.DayOfWeek.Order()
	}
	return secondsOfDay(s.StartTime) < secondsOfDay(other.StartTime)
}

// SortSessions orders sessions by weekday then start time, keeping the input order for ties.
func SortSessions(sessions []TrainingSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Before(&sessions[j])
	})
}

// SessionFilter narrows session queries. The zero value matches every session.
type SessionFilter struct {
	IDs       []string
	StudentID string
	DayOfWeek DayOfWeek
}
