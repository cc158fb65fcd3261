package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/weeklyworks-api/internal/service"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

type rosterRendererMock struct {
	format service.ExportFormat
	err    error
}

func (m *rosterRendererMock) Render(_ context.Context, format service.ExportFormat) (*service.Document, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.Document{Format: format, Filename: "weeklyworks_20240603_100000." + string(format), Payload: []byte("Day\n")}, nil
}

type shareServiceMock struct {
	job      *service.ShareJob
	download *service.ShareDownload
	err      error
	lastReq  service.ShareRequest
	token    string
}

func (m *shareServiceMock) Request(_ context.Context, req service.ShareRequest) (*service.ShareJob, error) {
	m.lastReq = req
	return m.job, m.err
}

func (m *shareServiceMock) Status(string) (*service.ShareJob, error) {
	return m.job, m.err
}

func (m *shareServiceMock) ResolveDownload(token string) (*service.ShareDownload, error) {
	m.token = token
	return m.download, m.err
}

func TestExportHandlerRoster(t *testing.T) {
	renderer := &rosterRendererMock{}
	handler := NewExportHandler(renderer, &shareServiceMock{})

	c, w := newGinContext(http.MethodGet, "/api/v1/exports/roster", nil)
	handler.Roster(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, renderer.format)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "weeklyworks_20240603_100000.csv")

	c, w = newGinContext(http.MethodGet, "/api/v1/exports/roster?format=pdf", nil)
	handler.Roster(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestExportHandlerRosterRejectsOtherFormats(t *testing.T) {
	handler := NewExportHandler(&rosterRendererMock{}, &shareServiceMock{})
	for _, format := range []string{"ics", "xlsx"} {
		c, w := newGinContext(http.MethodGet, "/api/v1/exports/roster?format="+format, nil)
		handler.Roster(c)
		requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)
	}
}

func TestExportHandlerShare(t *testing.T) {
	shares := &shareServiceMock{job: &service.ShareJob{ID: "share-1", Format: service.ExportFormatPDF, Status: service.ShareStatusQueued}}
	handler := NewExportHandler(&rosterRendererMock{}, shares)

	c, w := newGinContext(http.MethodPost, "/api/v1/exports/share", []byte(`{"format":"pdf"}`))
	handler.Share(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "pdf", shares.lastReq.Format)

	c, w = newGinContext(http.MethodGet, "/api/v1/exports/share/share-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "share-1"}}
	handler.ShareStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"status":"queued"`)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Day,Time\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	shares := &shareServiceMock{download: &service.ShareDownload{File: file, Filename: "roster.csv", Format: service.ExportFormatCSV, ExpiresAt: time.Unix(1717400000, 0)}}
	handler := NewExportHandler(&rosterRendererMock{}, shares)
	c, w := newGinContext(http.MethodGet, "/api/v1/exports/download?token=abc", nil)
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", shares.token)
	assert.Equal(t, "Day,Time\n", w.Body.String())
	assert.Equal(t, "attachment; filename=roster.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1717400000", w.Header().Get("X-Expires-At"))
}

func TestExportHandlerDownloadErrors(t *testing.T) {
	handler := NewExportHandler(&rosterRendererMock{}, &shareServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})

	c, w := newGinContext(http.MethodGet, "/api/v1/exports/download", nil)
	handler.Download(c)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)

	c, w = newGinContext(http.MethodGet, "/api/v1/exports/download?token=stale", nil)
	handler.Download(c)
	requireErrorCode(t, w, http.StatusForbidden, appErrors.ErrForbidden.Code)
}
