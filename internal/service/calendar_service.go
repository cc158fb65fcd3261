package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

// SessionSource loads sessions for export.
type SessionSource interface {
	FetchAll(ctx context.Context) ([]models.TrainingSession, error)
	Get(ctx context.Context, id string) (*models.TrainingSession, error)
}

// DocumentCache memoises rendered documents.
type DocumentCache interface {
	Remember(ctx context.Context, name string, render func() ([]byte, error)) ([]byte, error)
}

// CalendarOptions configures calendar export.
type CalendarOptions struct {
	Timezone  string
	ProductID string
}

// CalendarService renders sessions as iCalendar documents on their next real date.
type CalendarService struct {
	sessions  SessionSource
	cache     DocumentCache
	location  *time.Location
	productID string
	now       func() time.Time
	logger    *zap.Logger
}

// NewCalendarService constructs the service. An empty timezone means UTC.
func NewCalendarService(sessions SessionSource, cache DocumentCache, opts CalendarOptions, logger *zap.Logger) (*CalendarService, error) {
	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load calendar timezone %q: %w", opts.Timezone, err)
		}
	}
	if opts.ProductID == "" {
		opts.ProductID = "-//WeeklyWorks//Training Sessions//EN"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{sessions: sessions, cache: cache, location: loc, productID: opts.ProductID, now: time.Now, logger: logger}, nil
}

// Location is the timezone sessions are projected into.
func (s *CalendarService) Location() *time.Location {
	return s.location
}

// ExportOptions tunes a calendar export.
type ExportOptions struct {
	// Reminder adds a display alarm this long before each event when positive.
	Reminder time.Duration
}

// NextOccurrence returns the first date strictly after the day of now that falls on day, at clock's time of day, in loc.
func NextOccurrence(now time.Time, day models.DayOfWeek, clock time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	ahead := (int(day.Weekday()) - int(local.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	date := local.AddDate(0, 0, ahead)
	hour, minute, second := clock.Clock()
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, loc)
}

// ExportEvent renders one session. A session without a student fails with ErrMissingStudent.
func (s *CalendarService) ExportEvent(ctx context.Context, id string, opts ExportOptions) ([]byte, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Student == nil {
		s.logger.Warn("skipping calendar export for session without student", zap.String("session_id", id))
		return nil, appErrors.Clone(appErrors.ErrMissingStudent, "session has no student to export")
	}
	cal := s.newCalendar()
	s.addEvent(cal, session, s.now(), opts)
	return []byte(cal.Serialize()), nil
}

// ExportAllEvents renders every exportable session in weekly order.
func (s *CalendarService) ExportAllEvents(ctx context.Context, opts ExportOptions) ([]byte, error) {
	now := s.now()
	key := fmt.Sprintf("calendar:all:%s:%s", now.In(s.location).Format("2006-01-02"), opts.Reminder)
	render := func() ([]byte, error) {
		sessions, err := s.sessions.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		doc, _ := s.Render(sessions, now, opts)
		return doc, nil
	}
	if s.cache == nil {
		return render()
	}
	return s.cache.Remember(ctx, key, render)
}

// Render builds a calendar from sessions, skipping and counting those without a student.
func (s *CalendarService) Render(sessions []models.TrainingSession, now time.Time, opts ExportOptions) ([]byte, int) {
	cal := s.newCalendar()
	skipped := 0
	for i := range sessions {
		if sessions[i].Student == nil {
			skipped++
			s.logger.Warn("skipping calendar export for session without student",
				zap.String("session_id", sessions[i].ID),
				zap.Error(appErrors.ErrMissingStudent))
			continue
		}
		s.addEvent(cal, &sessions[i], now, opts)
	}
	return []byte(cal.Serialize()), skipped
}

func (s *CalendarService) newCalendar() *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(s.productID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName("WeeklyWorks training")
	cal.SetXWRTimezone(s.location.String())
	return cal
}

func (s *CalendarService) addEvent(cal *ics.Calendar, session *models.TrainingSession, now time.Time, opts ExportOptions) {
	start := NextOccurrence(now, session.DayOfWeek, session.StartTime, s.location)
	end := NextOccurrence(now, session.DayOfWeek, session.EndTime, s.location)
	if !end.After(start) {
		end = start
	}

	event := cal.AddEvent(session.ID + "@weeklyworks")
	event.SetDtStampTime(now.UTC())
	event.SetSummary("Training with " + session.Student.Name)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetLocation(session.Venue())
	event.SetDescription(fmt.Sprintf("%s session at %s, %s. Messaged: %s. Booked: %s.",
		session.DayOfWeek.DisplayName(), session.Venue(), session.TimeRange(),
		yesNo(session.IsMessaged), yesNo(session.IsBooked)))

	if opts.Reminder > 0 {
		alarm := event.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", int(opts.Reminder.Minutes())))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
