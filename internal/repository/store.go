package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/models"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

func (k changeKind) String() string {
	switch k {
	case changeInsert:
		return "insert"
	case changeUpdate:
		return "update"
	default:
		return "delete"
	}
}

type change struct {
	kind    changeKind
	student *models.Student
	session *models.TrainingSession
}

// QueryObserver receives the duration of every gateway round trip.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// Store is the persistence gateway: callers stage inserts, updates and deletes and commit them with Save.
type Store struct {
	db       *sqlx.DB
	logger   *zap.Logger
	observer QueryObserver

	mu      sync.Mutex
	pending []change
}

// NewStore constructs a Store over an open database.
func NewStore(db *sqlx.DB, logger *zap.Logger, observer QueryObserver) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, observer: observer}
}

// Insert stages a new student or training session.
func (s *Store) Insert(entity interface{}) error {
	return s.stage(changeInsert, entity)
}

// Update stages the current state of an existing entity; nothing is written until Save.
func (s *Store) Update(entity interface{}) error {
	return s.stage(changeUpdate, entity)
}

// Delete stages removal of an entity. Deleting a student also removes its sessions.
func (s *Store) Delete(entity interface{}) error {
	return s.stage(changeDelete, entity)
}

// Pending reports how many changes are staged.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Discard drops every staged change.
func (s *Store) Discard() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *Store) stage(kind changeKind, entity interface{}) error {
	c := change{kind: kind}
	switch e := entity.(type) {
	case *models.Student:
		if e == nil {
			return fmt.Errorf("%s student: nil entity", kind)
		}
		if kind != changeDelete {
			if err := e.Validate(); err != nil {
				return err
			}
		}
		c.student = e
	case *models.TrainingSession:
		if e == nil {
			return fmt.Errorf("%s session: nil entity", kind)
		}
		c.session = e
	default:
		return fmt.Errorf("%s: unsupported entity %T", kind, entity)
	}

	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()
	return nil
}

// Save commits every staged change in one transaction. On failure the transaction is rolled back,
// the staged changes are dropped and the error is logged and returned.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	err := s.commit(ctx, pending)
	s.observe("save", start)
	if err != nil {
		s.logger.Error("save changes failed", zap.Int("changes", len(pending)), zap.Error(err))
		return fmt.Errorf("save changes: %w", err)
	}
	return nil
}

func (s *Store) commit(ctx context.Context, pending []change) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// created_at follows staging order within one save.
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, c := range pending {
		if err = s.apply(ctx, tx, c, now.Add(time.Duration(i)*time.Microsecond)); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, tx *sqlx.Tx, c change, now time.Time) error {
	switch {
	case c.student != nil:
		return applyStudent(ctx, tx, c.kind, c.student, now)
	case c.session != nil:
		return applySession(ctx, tx, c.kind, c.session, now)
	}
	return nil
}

func applyStudent(ctx context.Context, tx *sqlx.Tx, kind changeKind, student *models.Student, now time.Time) error {
	switch kind {
	case changeInsert:
		if err := student.Validate(); err != nil {
			return err
		}
		if student.CreatedAt.IsZero() {
			student.CreatedAt = now
		}
		student.UpdatedAt = now
		const query = `INSERT INTO students (id, name, is_male, contact_mode, contact, created_at, updated_at)
        VALUES (:id, :name, :is_male, :contact_mode, :contact, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
	case changeUpdate:
		if err := student.Validate(); err != nil {
			return err
		}
		student.UpdatedAt = now
		const query = `UPDATE students SET name = :name, is_male = :is_male, contact_mode = :contact_mode, contact = :contact, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("update student: %w", err)
		}
	case changeDelete:
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM training_sessions WHERE student_id = ?`), student.ID); err != nil {
			return fmt.Errorf("delete student sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE id = ?`), student.ID); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
	}
	return nil
}

func applySession(ctx context.Context, tx *sqlx.Tx, kind changeKind, session *models.TrainingSession, now time.Time) error {
	switch kind {
	case changeInsert:
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.UpdatedAt = now
		const query = `INSERT INTO training_sessions (id, student_id, court_location, court_number, start_time, end_time, day_of_week, is_messaged, is_booked, created_at, updated_at)
        VALUES (:id, :student_id, :court_location, :court_number, :start_time, :end_time, :day_of_week, :is_messaged, :is_booked, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	case changeUpdate:
		session.UpdatedAt = now
		const query = `UPDATE training_sessions SET student_id = :student_id, court_location = :court_location, court_number = :court_number, start_time = :start_time, end_time = :end_time, day_of_week = :day_of_week, is_messaged = :is_messaged, is_booked = :is_booked, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
	case changeDelete:
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM training_sessions WHERE id = ?`), session.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

// Students returns the students matching filter in insertion order.
func (s *Store) Students(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := "SELECT id, name, is_male, contact_mode, contact, created_at, updated_at FROM students"
	var conditions []string
	var args []interface{}

	if filter.Name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, filter.Name)
	}
	if len(filter.IDs) > 0 {
		conditions = append(conditions, "id IN (?)")
		args = append(args, filter.IDs)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	query, args, err := expand(s.db, query, args)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}

	start := time.Now()
	students := make([]models.Student, 0)
	err = s.db.SelectContext(ctx, &students, query, args...)
	s.observe("students", start)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Sessions returns the sessions matching filter in insertion order with their students attached.
func (s *Store) Sessions(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, error) {
	query := "SELECT id, student_id, court_location, court_number, start_time, end_time, day_of_week, is_messaged, is_booked, created_at, updated_at FROM training_sessions"
	var conditions []string
	var args []interface{}

	if len(filter.IDs) > 0 {
		conditions = append(conditions, "id IN (?)")
		args = append(args, filter.IDs)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, "day_of_week = ?")
		args = append(args, string(filter.DayOfWeek))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	query, args, err := expand(s.db, query, args)
	if err != nil {
		return nil, fmt.Errorf("build sessions query: %w", err)
	}

	start := time.Now()
	sessions := make([]models.TrainingSession, 0)
	err = s.db.SelectContext(ctx, &sessions, query, args...)
	s.observe("sessions", start)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	if err := s.attachStudents(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) attachStudents(ctx context.Context, sessions []models.TrainingSession) error {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, session := range sessions {
		if session.StudentID == nil {
			continue
		}
		if _, ok := seen[*session.StudentID]; ok {
			continue
		}
		seen[*session.StudentID] = struct{}{}
		ids = append(ids, *session.StudentID)
	}
	if len(ids) == 0 {
		return nil
	}

	students, err := s.Students(ctx, models.StudentFilter{IDs: ids})
	if err != nil {
		return fmt.Errorf("load session students: %w", err)
	}
	byID := make(map[string]*models.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}
	for i := range sessions {
		if sessions[i].StudentID == nil {
			continue
		}
		sessions[i].Student = byID[*sessions[i].StudentID]
	}
	return nil
}

func (s *Store) observe(label string, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveDBQuery(label, time.Since(start))
}

func expand(db *sqlx.DB, query string, args []interface{}) (string, []interface{}, error) {
	if len(args) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return "", nil, err
		}
	}
	return db.Rebind(query), args, nil
}
