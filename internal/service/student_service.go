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

// StudentRequest holds the editable fields of a student.
type StudentRequest struct {
	Name        string `json:"name" validate:"required"`
	IsMale      bool   `json:"is_male"`
	ContactMode string `json:"contact_mode" validate:"required,oneof=whatsapp instagram"`
	Contact     string `json:"contact" validate:"required"`
}

// StudentService is the student directory. It keeps the last fetched list in insertion order.
type StudentService struct {
	uow       *UnitOfWork
	publisher EventPublisher
	exports   ExportInvalidator
	validator *validator.Validate
	logger    *zap.Logger

	mu       sync.RWMutex
	students []models.Student
}

// NewStudentService constructs the student service.
func NewStudentService(uow *UnitOfWork, publisher EventPublisher, exports ExportInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
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
	return &StudentService{uow: uow, publisher: publisher, exports: exports, validator: validate, logger: logger}
}

// FetchAll reloads every student and replaces the held list.
func (s *StudentService) FetchAll(ctx context.Context) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return s.snapshotLocked(), nil
}

// Students returns the held list without touching storage.
func (s *StudentService) Students() []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	students, err := s.uow.Reader().Students(ctx, models.StudentFilter{IDs: []string{id}})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &students[0], nil
}

// FindByName returns the first student with exactly this name.
func (s *StudentService) FindByName(ctx context.Context, name string) (*models.Student, error) {
	students, err := s.uow.Reader().Students(ctx, models.StudentFilter{Name: name})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &students[0], nil
}

// Add validates and stores a new student.
func (s *StudentService) Add(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	student, err := models.NewStudent(req.Name, req.IsMale, models.ContactMode(req.ContactMode), req.Contact)
	if err != nil {
		return nil, mutationError(err, "invalid student")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Insert(student) }); err != nil {
		return nil, mutationError(err, "failed to create student")
	}
	s.afterMutationLocked(ctx, events.ActionCreated, student.ID, student)
	return student, nil
}

// Update applies req to an existing student. Contact changes are validated before anything is staged.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := student.SetName(req.Name); err != nil {
		return nil, mutationError(err, "invalid student")
	}
	if err := student.SetContact(models.ContactMode(req.ContactMode), req.Contact); err != nil {
		return nil, mutationError(err, "invalid student")
	}
	student.IsMale = req.IsMale

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Update(student) }); err != nil {
		return nil, mutationError(err, "failed to update student")
	}
	s.afterMutationLocked(ctx, events.ActionUpdated, student.ID, student)
	return student, nil
}

// SaveOrUpdate updates the student identified by existingID, or creates one when it is empty.
func (s *StudentService) SaveOrUpdate(ctx context.Context, existingID string, req StudentRequest) (*models.Student, bool, error) {
	if existingID == "" {
		student, err := s.Add(ctx, req)
		return student, true, err
	}
	student, err := s.Update(ctx, existingID, req)
	return student, false, err
}

// Delete removes a student together with all of its sessions.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.uow.Do(ctx, func(g Gateway) error { return g.Delete(student) }); err != nil {
		return mutationError(err, "failed to delete student")
	}
	s.afterMutationLocked(ctx, events.ActionDeleted, student.ID, nil)
	s.publisher.Publish(ctx, events.NewEvent(events.TopicSessionsChanged, events.ActionDeleted, "", map[string]string{"student_id": student.ID}))
	return nil
}

func (s *StudentService) afterMutationLocked(ctx context.Context, action, id string, payload interface{}) {
	if err := s.refreshLocked(ctx); err != nil {
		s.logger.Warn("refresh students after mutation failed", zap.String("action", action), zap.Error(err))
	}
	s.exports.Invalidate(ctx)
	s.publisher.Publish(ctx, events.NewEvent(events.TopicStudentsChanged, action, id, payload))
}

func (s *StudentService) refreshLocked(ctx context.Context) error {
	students, err := s.uow.Reader().Students(ctx, models.StudentFilter{})
	if err != nil {
		return err
	}
	s.students = students
	return nil
}

func (s *StudentService) snapshotLocked() []models.Student {
	out := make([]models.Student, len(s.students))
	copy(out, s.students)
	return out
}
