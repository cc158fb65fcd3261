package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

func TestNewValidatorChecksSessionTags(t *testing.T) {
	validate, err := NewValidator()
	require.NoError(t, err)

	valid := SessionRequest{StudentID: "s1", CourtLocation: "malaga", StartTime: "08:00", EndTime: "09:00", DayOfWeek: "Monday"}
	assert.NoError(t, validate.Struct(valid))

	badClock := valid
	badClock.EndTime = "9pm"
	err = validate.Struct(badClock)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"end_time": "clock"}, appErrors.Invalid(err, "invalid session payload").Fields)

	badDay := valid
	badDay.DayOfWeek = "funday"
	assert.Error(t, validate.Struct(badDay))
}

func TestSharedValidatorServesBothServices(t *testing.T) {
	validate, err := NewValidator()
	require.NoError(t, err)

	gateway := &memoryGateway{}
	uow := NewUnitOfWork(gateway)
	students := NewStudentService(uow, nil, nil, validate, nil)
	sessions := NewTrainingSessionService(uow, nil, nil, nil, validate, nil)

	alice, err := students.Add(context.Background(), aliceRequest())
	require.NoError(t, err)

	_, err = sessions.Add(context.Background(), SessionRequest{StudentID: alice.ID, CourtLocation: "canningvale", StartTime: "08:00", EndTime: "09:00", DayOfWeek: "monday"})
	require.NoError(t, err)

	_, err = sessions.Add(context.Background(), SessionRequest{StudentID: alice.ID, CourtLocation: "canningvale", StartTime: "eight", EndTime: "09:00", DayOfWeek: "monday"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
