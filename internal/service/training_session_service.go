package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/events"
	"github.com/noah-isme/weeklyworks-api/internal/models"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

// SessionRequest holds the editable fields of a training session.
type SessionRequest struct {
	StudentID     string `json:"student_id" validate:"required"`
	CourtLocation string `json:"court_location" validate:"required,oneof=canningvale malaga"`
	CourtNumber   *int   `json:"court_number" validate:"omitempty,min=1"`
	StartTime     string `json:"start_time" validate:"required,clock" example:"08:00"`
	EndTime       string `json:"end_time" validate:"required,clock" example:"09:00"`
	DayOfWeek     string `json:"day_of_week" validate:"required,weekday" example:"monday"`
	IsMessaged    bool   `json:"is_messaged"`
	IsBooked      bool   `json:"is_booked"`
}

// SessionStatusRequest toggles the confirmation flags of one session.
type SessionStatusRequest struct {
	IsMessaged *bool `json:"is_messaged"`
	IsBooked   *bool `json:"is_booked"`
}

// ResetResult reports what a week reset touched.
type ResetResult struct {
	Reset    int `json:"reset"`
	Sessions int `json:"sessions"`
}

// MetricsRecorder receives schedule gauges.
type MetricsRecorder interface {
	SetSessionCounts(total, booked int)
}

// TrainingSessionService manages the weekly schedule. The held list is always in weekly order.
type TrainingSessionService struct {
	uow       *UnitOfWork
	publisher EventPublisher
	exports   ExportInvalidator
	metrics   MetricsRecorder
	validator *validator.Validate
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions []models.TrainingSession
}

// NewTrainingSessionService constructs the session service. validate must come from NewValidator; nil builds one.
func NewTrainingSessionService(uow *UnitOfWork, publisher EventPublisher, exports ExportInvalidator, metrics MetricsRecorder, validate *validator.Validate, logger *zap.Logger) *TrainingSessionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if exports == nil {
		exports = noopInvalidator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = defaultValidator(logger)
	}
	return &TrainingSessionService{uow: uow, publisher: publisher, exports: exports, metrics: metrics, validator: validate, logger: logger}
}

// FetchAll reloads every session in weekly order and replaces the held list.
func (s *TrainingSessionService) FetchAll(ctx context.Context) ([]models.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return s.snapshotLocked(), nil
}

// Sessions returns the held list without touching storage.
func (s *TrainingSessionService) Sessions() []models.TrainingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get loads one session with its student.
func (s *TrainingSessionService) Get(ctx context.Context, id string) (*models.TrainingSession, error) {
	sessions, err := s.uow.Reader().Sessions(ctx, models.SessionFilter{IDs: []string{id}})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if len(sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return &sessions[0], nil
}

// Add stores a new session for an existing student.
func (s *TrainingSessionService) Add(ctx context.Context, req SessionRequest) (*models.TrainingSession, error) {
	session := &models.TrainingSession{}
	if err := s.apply(ctx, session, req); err != nil {
		return nil, err
	}
	fresh := models.NewTrainingSession(session.Student, session.CourtLocation, session.CourtNumber, session.StartTime, session.EndTime, session.DayOfWeek, session.IsMessaged, session.IsBooked)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Insert(fresh) }); err != nil {
		return nil, mutationError(err, "failed to create session")
	}
	s.afterMutationLocked(ctx, events.ActionCreated, fresh.ID, fresh)
	return fresh, nil
}

// Update replaces every editable field of a session.
func (s *TrainingSessionService) Update(ctx context.Context, id string, req SessionRequest) (*models.TrainingSession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, session, req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Update(session) }); err != nil {
		return nil, mutationError(err, "failed to update session")
	}
	s.afterMutationLocked(ctx, events.ActionUpdated, session.ID, session)
	return session, nil
}

// UpdateStatus flips the messaged and booked flags that are set in req.
func (s *TrainingSessionService) UpdateStatus(ctx context.Context, id string, req SessionStatusRequest) (*models.TrainingSession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsMessaged != nil {
		session.IsMessaged = *req.IsMessaged
	}
	if req.IsBooked != nil {
		session.IsBooked = *req.IsBooked
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Update(session) }); err != nil {
		return nil, mutationError(err, "failed to update session status")
	}
	s.afterMutationLocked(ctx, events.ActionUpdated, session.ID, session)
	return session, nil
}

// SaveOrUpdate updates the session identified by existingID, or creates one when it is empty.
func (s *TrainingSessionService) SaveOrUpdate(ctx context.Context, existingID string, req SessionRequest) (*models.TrainingSession, bool, error) {
	if existingID == "" {
		session, err := s.Add(ctx, req)
		return session, true, err
	}
	session, err := s.Update(ctx, existingID, req)
	return session, false, err
}

// Delete removes one session.
func (s *TrainingSessionService) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Delete(session) }); err != nil {
		return mutationError(err, "failed to delete session")
	}
	s.afterMutationLocked(ctx, events.ActionDeleted, session.ID, nil)
	return nil
}

// ResetWeek clears the messaged and booked flags on every session. Running it again changes nothing.
func (s *TrainingSessionService) ResetWeek(ctx context.Context) (ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.uow.Reader().Sessions(ctx, models.SessionFilter{})
	if err != nil {
		return ResetResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	result := ResetResult{Sessions: len(sessions)}
	err = s.uow.Do(ctx, func(g Gateway) error {
		for i := range sessions {
			if !sessions[i].IsMessaged && !sessions[i].IsBooked {
				continue
			}
			sessions[i].IsMessaged = false
			sessions[i].IsBooked = false
			if err := g.Update(&sessions[i]); err != nil {
				return err
			}
			result.Reset++
		}
		return nil
	})
	if err != nil {
		return ResetResult{}, mutationError(err, "failed to reset week")
	}

	if err := s.refreshLocked(ctx); err != nil {
		s.logger.Warn("refresh sessions after week reset failed", zap.Error(err))
	}
	if result.Reset > 0 {
		s.exports.Invalidate(ctx)
	}
	s.publisher.Publish(ctx, events.NewEvent(events.TopicWeekReset, events.ActionUpdated, "", result))
	s.logger.Info("week reset", zap.Int("sessions", result.Sessions), zap.Int("reset", result.Reset))
	return result, nil
}

func (s *TrainingSessionService) apply(ctx context.Context, session *models.TrainingSession, req SessionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid session payload")
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return mutationError(err, "invalid start time")
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return mutationError(err, "invalid end time")
	}
	day, _ := models.ParseDayOfWeek(req.DayOfWeek)
	if req.CourtNumber != nil && *req.CourtNumber < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "court number must be positive")
	}

	students, err := s.uow.Reader().Students(ctx, models.StudentFilter{IDs: []string{req.StudentID}})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if len(students) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "student not found")
	}

	session.AssignStudent(&students[0])
	session.CourtLocation = models.ParseCourtLocation(req.CourtLocation)
	session.CourtNumber = req.CourtNumber
	session.StartTime = start
	session.EndTime = end
	session.DayOfWeek = day
	session.IsMessaged = req.IsMessaged
	session.IsBooked = req.IsBooked
	return nil
}

func (s *TrainingSessionService) afterMutationLocked(ctx context.Context, action, id string, payload interface{}) {
	if err := s.refreshLocked(ctx); err != nil {
		s.logger.Warn("refresh sessions after mutation failed", zap.String("action", action), zap.Error(err))
	}
	s.exports.Invalidate(ctx)
	s.publisher.Publish(ctx, events.NewEvent(events.TopicSessionsChanged, action, id, payload))
}

func (s *TrainingSessionService) refreshLocked(ctx context.Context) error {
	sessions, err := s.uow.Reader().Sessions(ctx, models.SessionFilter{})
	if err != nil {
		return err
	}
	models.SortSessions(sessions)
	s.sessions = sessions

	if s.metrics != nil {
		booked := 0
		for _, session := range sessions {
			if session.IsBooked {
				booked++
			}
		}
		s.metrics.SetSessionCounts(len(sessions), booked)
	}
	return nil
}

func (s *TrainingSessionService) snapshotLocked() []models.TrainingSession {
	out := make([]models.TrainingSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}
