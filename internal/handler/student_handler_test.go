package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	"github.com/noah-isme/weeklyworks-api/internal/service"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

type studentServiceMock struct {
	students  []models.Student
	student   *models.Student
	err       error
	lastReq   service.StudentRequest
	lastID    string
	lastName  string
	deletedID string
}

func (m *studentServiceMock) FetchAll(context.Context) ([]models.Student, error) {
	return m.students, m.err
}

func (m *studentServiceMock) Get(_ context.Context, id string) (*models.Student, error) {
	m.lastID = id
	return m.student, m.err
}

func (m *studentServiceMock) FindByName(_ context.Context, name string) (*models.Student, error) {
	m.lastName = name
	return m.student, m.err
}

func (m *studentServiceMock) Add(_ context.Context, req service.StudentRequest) (*models.Student, error) {
	m.lastReq = req
	return m.student, m.err
}

func (m *studentServiceMock) Update(_ context.Context, id string, req service.StudentRequest) (*models.Student, error) {
	m.lastID = id
	m.lastReq = req
	return m.student, m.err
}

func (m *studentServiceMock) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func alice() *models.Student {
	return &models.Student{ID: "s1", Name: "Alice", ContactMode: models.ContactModeWhatsApp, Contact: "+61400000000"}
}

func TestStudentHandlerCreate(t *testing.T) {
	mock := &studentServiceMock{student: alice()}
	handler := NewStudentHandler(mock)

	req := service.StudentRequest{Name: "Alice", ContactMode: "whatsapp", Contact: "+61400000000"}
	c, w := newGinContext(http.MethodPost, "/api/v1/students", mustJSON(t, req))
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, req, mock.lastReq)
	var got models.Student
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, "s1", got.ID)
}

func TestStudentHandlerCreateErrors(t *testing.T) {
	handler := NewStudentHandler(&studentServiceMock{})
	c, w := newGinContext(http.MethodPost, "/api/v1/students", []byte("{not json"))
	handler.Create(c)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)

	mock := &studentServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "contact: WhatsApp contacts must start with \"+\"")}
	handler = NewStudentHandler(mock)
	c, w = newGinContext(http.MethodPost, "/api/v1/students", mustJSON(t, service.StudentRequest{Name: "Alice", ContactMode: "whatsapp", Contact: "@alice"}))
	handler.Create(c)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)
}

func TestStudentHandlerList(t *testing.T) {
	handler := NewStudentHandler(&studentServiceMock{students: []models.Student{*alice()}})
	c, w := newGinContext(http.MethodGet, "/api/v1/students", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeEnvelope(t, w).Meta["total"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	mock := &studentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	handler := NewStudentHandler(mock)
	c, w := newGinContext(http.MethodGet, "/api/v1/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	requireErrorCode(t, w, http.StatusNotFound, appErrors.ErrNotFound.Code)
	assert.Equal(t, "missing", mock.lastID)
}

func TestStudentHandlerLookup(t *testing.T) {
	mock := &studentServiceMock{student: alice()}
	handler := NewStudentHandler(mock)

	c, w := newGinContext(http.MethodGet, "/api/v1/students/lookup?name=%20Alice%20", nil)
	handler.Lookup(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", mock.lastName)

	c, w = newGinContext(http.MethodGet, "/api/v1/students/lookup", nil)
	handler.Lookup(c)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)
}

func TestStudentHandlerUpdateAndDelete(t *testing.T) {
	mock := &studentServiceMock{student: alice()}
	handler := NewStudentHandler(mock)

	c, w := newGinContext(http.MethodPut, "/api/v1/students/s1", mustJSON(t, service.StudentRequest{Name: "Alicia", ContactMode: "whatsapp", Contact: "+61400000000"}))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alicia", mock.lastReq.Name)

	c, w = newGinContext(http.MethodDelete, "/api/v1/students/s1", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", mock.deletedID)
}
