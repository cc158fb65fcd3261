package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/weeklyworks-api/internal/service"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
	"github.com/noah-isme/weeklyworks-api/pkg/response"
)

type rosterRenderer interface {
	Render(ctx context.Context, format service.ExportFormat) (*service.Document, error)
}

type shareService interface {
	Request(ctx context.Context, req service.ShareRequest) (*service.ShareJob, error)
	Status(id string) (*service.ShareJob, error)
	ResolveDownload(token string) (*service.ShareDownload, error)
}

// ExportHandler serves roster downloads and shareable export files.
type ExportHandler struct {
	exports rosterRenderer
	shares  shareService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports rosterRenderer, shares shareService) *ExportHandler {
	return &ExportHandler{exports: exports, shares: shares}
}

// Roster godoc
// @Summary Download the weekly roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exports/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format, ok := service.ParseExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	if !ok || format == service.ExportFormatICS {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	doc, err := h.exports.Render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Format.ContentType(), doc.Filename, doc.Payload)
}

// Share godoc
// @Summary Queue a shareable export file
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.ShareRequest true "Export format"
// @Success 202 {object} response.Envelope
// @Router /exports/share [post]
func (h *ExportHandler) Share(c *gin.Context) {
	var req service.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	job, err := h.shares.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ShareStatus godoc
// @Summary Share job status
// @Tags Exports
// @Produce json
// @Param id path string true "Share job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/share/{id} [get]
func (h *ExportHandler) ShareStatus(c *gin.Context) {
	job, err := h.shares.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Download godoc
// @Summary Download a shared export with a signed token
// @Tags Exports
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.shares.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	response.Download(c, download.Format.ContentType(), download.Filename, info.Size(), download.File, download.ExpiresAt)
}
