package service

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/weeklyworks-api/internal/events"
	"github.com/noah-isme/weeklyworks-api/internal/models"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

// Gateway is the persistence contract shared by the directory and session services.
type Gateway interface {
	Insert(entity interface{}) error
	Update(entity interface{}) error
	Delete(entity interface{}) error
	Discard()
	Save(ctx context.Context) error
	Students(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Sessions(ctx context.Context, filter models.SessionFilter) ([]models.TrainingSession, error)
}

// EventPublisher delivers change notifications.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event)
}

// ExportInvalidator drops cached exports after the schedule changes.
type ExportInvalidator interface {
	Invalidate(ctx context.Context)
}

// UnitOfWork serialises stage-and-save sequences so one caller never commits another's staged changes.
type UnitOfWork struct {
	mu      sync.Mutex
	gateway Gateway
}

// NewUnitOfWork wraps a gateway.
func NewUnitOfWork(gateway Gateway) *UnitOfWork {
	return &UnitOfWork{gateway: gateway}
}

// Do stages changes through fn and saves them. Staged changes are discarded when fn fails.
func (u *UnitOfWork) Do(ctx context.Context, fn func(g Gateway) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := fn(u.gateway); err != nil {
		u.gateway.Discard()
		return err
	}
	return u.gateway.Save(ctx)
}

// Reader exposes the gateway for queries.
func (u *UnitOfWork) Reader() Gateway {
	return u.gateway
}

func mutationError(err error, message string) error {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return appErrors.Invalid(err, vErr.Error()).WithField(vErr.Field, vErr.Message)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) {}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}
