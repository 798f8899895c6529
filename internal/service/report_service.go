package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type recordSource interface {
	Records(ctx context.Context, sessionID string) ([]models.AllocationRecord, error)
	FacilityMap(ctx context.Context, sessionID string) (allocator.FacilityMap, error)
}

// ReportService derives the read-only views of a completed run.
type ReportService struct {
	source    recordSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(source recordSource, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{source: source, validator: validate, logger: logger}
}

// TeacherSchedule returns a teacher's week as a period by day grid plus the
// underlying records.
func (s *ReportService) TeacherSchedule(ctx context.Context, sessionID string, query dto.TeacherScheduleQuery) (*dto.TeacherScheduleResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "staff is required")
	}
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	week := weekOrDefault(query.Week)
	staff := strings.TrimSpace(query.Staff)
	return &dto.TeacherScheduleResponse{
		Grid:    allocator.TeacherGrid(records, staff, week),
		Records: allocator.FilterRecords(records, models.RecordFilter{Staff: staff, Week: week}),
	}, nil
}

// Heatmap counts bookings per space and period for a week.
func (s *ReportService) Heatmap(ctx context.Context, sessionID string, query dto.WeekQuery) (*models.SpaceHeatmap, error) {
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	heat := allocator.SpaceHeatmap(records, weekOrDefault(query.Week))
	return &heat, nil
}

// Activities counts sessions per sport across the run.
func (s *ReportService) Activities(ctx context.Context, sessionID string) ([]models.ActivityCount, error) {
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return allocator.ActivityCounts(records), nil
}

// FreeSpaces lists the known spaces nobody is booked into for a slot.
func (s *ReportService) FreeSpaces(ctx context.Context, sessionID string, query dto.FreeSpacesQuery) (*dto.FreeSpacesResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "day and period are required")
	}
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	facilities, err := s.source.FacilityMap(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	week := weekOrDefault(query.Week)
	day := allocator.NormalizeDay(query.Day)
	period := periodLabel(query.Period)
	return &dto.FreeSpacesResponse{
		Week:   week,
		Day:    day,
		Period: period,
		Spaces: allocator.FreeSpaces(records, facilities, week, day, period),
	}, nil
}

// Conflicts lists records double-booking a space.
func (s *ReportService) Conflicts(ctx context.Context, sessionID string) ([]models.AllocationRecord, error) {
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conflicts := allocator.ConflictReport(records)
	if len(conflicts) > 0 {
		s.logger.Debug("conflicts detected", zap.String("session_id", sessionID), zap.Int("records", len(conflicts)))
	}
	return conflicts, nil
}

// Staff lists the teachers present in the run.
func (s *ReportService) Staff(ctx context.Context, sessionID string) ([]string, error) {
	records, err := s.source.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return allocator.StaffList(records), nil
}

func weekOrDefault(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return models.WeekA
	}
	return allocator.NormalizeWeek(raw)
}

// periodLabel accepts "3", "P3" or "period 3".
func periodLabel(raw string) string {
	v := strings.TrimSpace(raw)
	trimmed := strings.TrimSpace(strings.TrimLeft(strings.ToLower(v), "periodp"))
	if n, err := strconv.Atoi(trimmed); err == nil {
		return allocator.PeriodLabel(n)
	}
	return allocator.TitleCase(v)
}
