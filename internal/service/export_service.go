package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
	"github.com/noah-isme/pe-space-master/pkg/export"
	"github.com/noah-isme/pe-space-master/pkg/storage"
)

type exportRecordSource interface {
	Records(ctx context.Context, sessionID string) ([]models.AllocationRecord, error)
	SessionActive(ctx context.Context, sessionID string) (bool, error)
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

type documentRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService renders allocation records to files and hands out signed
// download links for them.
type ExportService struct {
	source    exportRecordSource
	storage   fileStorage
	csv       csvRenderer
	pdf       documentRenderer
	xlsx      documentRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package defaults.
func NewExportService(source exportRecordSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf, xlsx documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		source:    source,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		xlsx:      xlsx,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate renders the session's records, optionally narrowed to one teacher
// and week, and stores the file behind a signed token.
func (s *ExportService) Generate(ctx context.Context, sessionID string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	req.Format = dto.ExportFormat(strings.ToLower(string(req.Format)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be xlsx, csv or pdf")
	}

	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	filter := models.RecordFilter{Staff: strings.TrimSpace(req.Staff)}
	if strings.TrimSpace(req.Week) != "" {
		filter.Week = allocator.NormalizeWeek(req.Week)
	}
	records = allocator.FilterRecords(records, filter)

	dataset := RecordsDataset(records)
	title := exportTitle(filter)

	var payload []byte
	switch req.Format {
	case dto.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		payload, err = s.xlsx.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := filepath.Join(id, s.buildFilename(filter, req.Format))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(storage.DownloadClaims{SessionID: sessionID, ExportID: id, Path: relPath})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("session_id", sessionID),
		zap.String("format", string(req.Format)),
		zap.String("file", relPath),
		zap.Int("records", len(records)),
	)
	return &dto.ExportResponse{
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Filename:  filepath.Base(relPath),
		Format:    req.Format,
		Records:   len(records),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a token and opens the stored export file. Links
// stop working once the session that produced them has ended.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	relPath := claims.Path
	if filepath.Dir(relPath) != claims.ExportID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	active, err := s.source.SessionActive(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "the session that created this export has ended")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	filename := filepath.Base(relPath)
	return &ExportDownload{
		File:        file,
		Filename:    filename,
		ContentType: contentType(filepath.Ext(filename)),
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.Cleanup(0)
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(deleted) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(deleted))
				}
			}
		}
	}()
}

// RecordsDataset lays records out in the column order of the results table.
func RecordsDataset(records []models.AllocationRecord) export.Dataset {
	headers := []string{"Date", "Week", "Day", "Period", "Class", "Sport", "Space", "Reason", "Staff"}
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"Date":   r.Date,
			"Week":   r.Week,
			"Day":    r.Day,
			"Period": r.Period,
			"Class":  r.Class,
			"Sport":  r.Sport,
			"Space":  r.Space,
			"Reason": r.Reason,
			"Staff":  r.Staff,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows, Widths: recordColumnWidths}
}

var recordColumnWidths = map[string]float64{
	"Date":   1.1,
	"Week":   0.8,
	"Day":    1,
	"Period": 0.9,
	"Class":  1.3,
	"Sport":  1.4,
	"Space":  1.4,
	"Reason": 3.2,
	"Staff":  1.3,
}

func exportTitle(filter models.RecordFilter) string {
	parts := []string{"Allocations"}
	if filter.Staff != "" {
		parts = append(parts, filter.Staff)
	}
	if filter.Week != "" {
		parts = append(parts, filter.Week)
	}
	return strings.Join(parts, " - ")
}

func (s *ExportService) buildFilename(filter models.RecordFilter, format dto.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if filter.Staff != "" {
		scope = sanitizeFilename(strings.ToLower(filter.Staff))
	}
	if filter.Week != "" {
		scope += "_" + sanitizeFilename(strings.ToLower(filter.Week))
	}
	return fmt.Sprintf("allocations_%s_%s.%s", scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func contentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
