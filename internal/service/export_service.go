package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
	"github.com/noah-isme/weeklyworks-api/pkg/export"
	"github.com/noah-isme/weeklyworks-api/pkg/storage"
)

// ExportFormat names a downloadable rendering of the schedule.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatICS ExportFormat = "ics"
)

// ParseExportFormat decodes a format name.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	switch format {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatICS:
		return format, true
	default:
		return "", false
	}
}

// ContentType is the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type calendarExporter interface {
	ExportAllEvents(ctx context.Context, opts ExportOptions) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// Document is a rendered export ready to serve.
type Document struct {
	Format   ExportFormat
	Filename string
	Payload  []byte
}

// ExportResult describes a stored export and its signed download link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	ExpiresAt    time.Time
}

// Roster columns, in order.
var rosterHeaders = []string{"Day", "Time", "Student", "Contact", "Venue", "Messaged", "Booked"}

// ExportService renders the weekly roster and calendar and stores shareable copies.
type ExportService struct {
	sessions SessionSource
	calendar calendarExporter
	cache    DocumentCache
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sessions SessionSource, calendar calendarExporter, cache DocumentCache, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sessions: sessions,
		calendar: calendar,
		cache:    cache,
		storage:  files,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Render produces the document for format.
func (s *ExportService) Render(ctx context.Context, format ExportFormat) (*Document, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatICS:
		payload, err = s.calendar.ExportAllEvents(ctx, ExportOptions{})
	case ExportFormatCSV, ExportFormatPDF:
		render := func() ([]byte, error) { return s.renderRoster(ctx, format) }
		if s.cache != nil {
			payload, err = s.cache.Remember(ctx, "roster:"+string(format), render)
		} else {
			payload, err = render()
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, mutationError(err, "failed to render export")
	}

	return &Document{
		Format:   format,
		Filename: fmt.Sprintf("weeklyworks_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		Payload:  payload,
	}, nil
}

// RosterDataset turns sessions into roster rows. Sessions without a student are left out.
func (s *ExportService) RosterDataset(sessions []models.TrainingSession) export.Dataset {
	rows := make([]map[string]string, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		if session.Student == nil {
			s.logger.Warn("skipping roster row for session without student", zap.String("session_id", session.ID))
			continue
		}
		rows = append(rows, map[string]string{
			"Day":      session.DayOfWeek.DisplayName(),
			"Time":     session.TimeRange(),
			"Student":  session.Student.Name,
			"Contact":  fmt.Sprintf("%s %s", session.Student.ContactMode.DisplayName(), session.Student.Contact),
			"Venue":    session.Venue(),
			"Messaged": yesNo(session.IsMessaged),
			"Booked":   yesNo(session.IsBooked),
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}

func (s *ExportService) renderRoster(ctx context.Context, format ExportFormat) ([]byte, error) {
	sessions, err := s.sessions.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	dataset := s.RosterDataset(sessions)
	if format == ExportFormatPDF {
		return s.pdf.Render(dataset, "Weekly training roster")
	}
	return s.csv.Render(dataset)
}

// Generate renders format, stores it and signs a download link for jobID.
func (s *ExportService) Generate(ctx context.Context, jobID string, format ExportFormat) (*ExportResult, error) {
	doc, err := s.Render(ctx, format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(jobID+"/"+doc.Filename, doc.Payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download?token=%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes stored exports older than ttl, or the configured result TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}
