package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/noah-isme/weeklyworks-api/internal/events"
	"github.com/noah-isme/weeklyworks-api/internal/models"
)

// memoryGateway mimics the SQL store: changes are staged and applied on Save.
type memoryGateway struct {
	mu       sync.Mutex
	students []models.Student
	sessions []models.TrainingSession
	pending  []func()
	saveErr  error
	queryErr error
	saves    int
}

func (m *memoryGateway) Insert(entity interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := entity.(type) {
	case *models.Student:
		if err := e.Validate(); err != nil {
			return err
		}
		m.pending = append(m.pending, func() { m.students = append(m.students, *e) })
	case *models.TrainingSession:
		m.pending = append(m.pending, func() {
			row := *e
			row.Student = nil
			m.sessions = append(m.sessions, row)
		})
	default:
		return fmt.Errorf("unsupported entity %T", entity)
	}
	return nil
}

func (m *memoryGateway) Update(entity interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := entity.(type) {
	case *models.Student:
		if err := e.Validate(); err != nil {
			return err
		}
		m.pending = append(m.pending, func() {
			for i := range m.students {
				if m.students[i].ID == e.ID {
					m.students[i] = *e
				}
			}
		})
	case *models.TrainingSession:
		m.pending = append(m.pending, func() {
			for i := range m.sessions {
				if m.sessions[i].ID == e.ID {
					row := *e
					row.Student = nil
					m.sessions[i] = row
				}
			}
		})
	default:
		return fmt.Errorf("unsupported entity %T", entity)
	}
	return nil
}

func (m *memoryGateway) Delete(entity interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := entity.(type) {
	case *models.Student:
		id := e.ID
		m.pending = append(m.pending, func() {
			kept := m.sessions[:0]
			for _, s := range m.sessions {
				if s.StudentID == nil || *s.StudentID != id {
					kept = append(kept, s)
				}
			}
			m.sessions = kept
			students := m.students[:0]
			for _, s := range m.students {
				if s.ID != id {
					students = append(students, s)
				}
			}
			m.students = students
		})
	case *models.TrainingSession:
		id := e.ID
		m.pending = append(m.pending, func() {
			kept := m.sessions[:0]
			for _, s := range m.sessions {
				if s.ID != id {
					kept = append(kept, s)
				}
			}
			m.sessions = kept
		})
	default:
		return fmt.Errorf("unsupported entity %T", entity)
	}
	return nil
}

func (m *memoryGateway) Discard() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

func (m *memoryGateway) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pending
	m.pending = nil
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, apply := range pending {
		apply()
	}
	m.saves++
	return nil
}

func (m *memoryGateway) Students(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]models.Student, 0)
	for _, s := range m.students {
		if filter.Name != "" && s.Name != filter.Name {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryGateway) Sessions(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]models.TrainingSession, 0)
	for _, s := range m.sessions {
		if len(filter.IDs) > 0 && !contains(filter.IDs, s.ID) {
			continue
		}
		if filter.StudentID != "" && (s.StudentID == nil || *s.StudentID != filter.StudentID) {
			continue
		}
		if filter.DayOfWeek != "" && s.DayOfWeek != filter.DayOfWeek {
			continue
		}
		if s.StudentID != nil {
			for i := range m.students {
				if m.students[i].ID == *s.StudentID {
					student := m.students[i]
					s.Student = &student
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type publisherMock struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *publisherMock) Publish(_ context.Context, evt events.Event) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *publisherMock) topics() []events.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Topic, len(p.events))
	for i, evt := range p.events {
		out[i] = evt.Type
	}
	return out
}

type invalidatorMock struct {
	calls int
}

func (i *invalidatorMock) Invalidate(context.Context) {
	i.calls++
}

type fixture struct {
	gateway   *memoryGateway
	publisher *publisherMock
	exports   *invalidatorMock
	students  *StudentService
	sessions  *TrainingSessionService
}

func newFixture() *fixture {
	gateway := &memoryGateway{}
	uow := NewUnitOfWork(gateway)
	publisher := &publisherMock{}
	exports := &invalidatorMock{}
	return &fixture{
		gateway:   gateway,
		publisher: publisher,
		exports:   exports,
		students:  NewStudentService(uow, publisher, exports, nil, nil),
		sessions:  NewTrainingSessionService(uow, publisher, exports, nil, nil, nil),
	}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
